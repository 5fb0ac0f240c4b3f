package service

import (
	"context"
	"errors"

	"github.com/nikbrunner/marks/internal/model"
)

// Profile returns the user's profile, creating an empty one on first access.
func (s *Service) Profile(ctx context.Context) (model.Profile, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.Profile{}, err
	}

	p, err := s.scope.GetProfile(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, s.fail("get profile", err)
	}

	p = model.NewProfile(uid)
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	if err := s.scope.UpsertProfile(ctx, p); err != nil {
		return model.Profile{}, s.fail("create profile", err)
	}
	return p, nil
}

// UpdateProfile applies patch to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (model.Profile, error) {
	if _, err := s.UserID(); err != nil {
		return model.Profile{}, err
	}
	patch, err := model.ValidateProfilePatch(patch)
	if err != nil {
		return model.Profile{}, s.fail("update profile", err)
	}

	p, err := s.Profile(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	p = p.Apply(patch, s.now())
	if err := s.scope.UpsertProfile(ctx, p); err != nil {
		return model.Profile{}, s.fail("update profile", err)
	}
	return p, nil
}

// Preferences returns the user's preferences, storing the defaults on first
// access.
func (s *Service) Preferences(ctx context.Context) (model.UserPreferences, error) {
	uid, err := s.UserID()
	if err != nil {
		return model.UserPreferences{}, err
	}

	p, err := s.scope.GetPreferences(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.UserPreferences{}, s.fail("get preferences", err)
	}

	p = model.DefaultPreferences(uid)
	p.UpdatedAt = s.now()
	if err := s.scope.UpsertPreferences(ctx, p); err != nil {
		return model.UserPreferences{}, s.fail("create preferences", err)
	}
	return p, nil
}

// UpdatePreferences applies patch to the user's preferences.
func (s *Service) UpdatePreferences(ctx context.Context, patch model.PreferencesPatch) (model.UserPreferences, error) {
	p, err := s.Preferences(ctx)
	if err != nil {
		return model.UserPreferences{}, err
	}
	p = p.Apply(patch, s.now())
	if err := s.scope.UpsertPreferences(ctx, p); err != nil {
		return model.UserPreferences{}, s.fail("update preferences", err)
	}
	return p, nil
}
