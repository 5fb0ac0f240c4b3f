// Package session provides the "current user" collaborator that every
// service and query entry point consults before touching storage.
package session

import "github.com/nikbrunner/marks/internal/model"

// Session reports the authenticated user, if any.
type Session interface {
	UserID() (string, bool)
}

type static string

func (s static) UserID() (string, bool) {
	return string(s), s != ""
}

// Static returns a Session for a fixed user id. An empty id behaves like None.
func Static(userID string) Session {
	return static(userID)
}

// None is a Session without a user.
var None Session = static("")

// Require returns the session's user id, or model.ErrAuthentication when
// there is no active session.
func Require(s Session) (string, error) {
	if s == nil {
		return "", model.ErrAuthentication
	}
	id, ok := s.UserID()
	if !ok || id == "" {
		return "", model.ErrAuthentication
	}
	return id, nil
}
