package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/model"
)

var (
	prefsAutoFetch string
	prefsEmail     string
	prefsName      string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change your profile and preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		var patch model.PreferencesPatch
		if patch.AutoFetchMetadata, err = boolFlag("auto-fetch", prefsAutoFetch); err != nil {
			return err
		}
		if patch.EmailNotifications, err = boolFlag("email", prefsEmail); err != nil {
			return err
		}

		prefs, err := c.Preferences(ctx)
		if err != nil {
			return err
		}
		if patch.AutoFetchMetadata != nil || patch.EmailNotifications != nil {
			if prefs, err = c.UpdatePreferences(ctx, patch); err != nil {
				return err
			}
		}

		profile, err := c.Profile(ctx)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			if profile, err = c.UpdateProfile(ctx, model.ProfilePatch{FullName: &prefsName}); err != nil {
				return err
			}
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"profile": profile, "preferences": prefs})
		}
		name := "-"
		if profile.FullName != nil {
			name = *profile.FullName
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "user:                %s\n", profile.ID)
		fmt.Fprintf(w, "name:                %s\n", name)
		fmt.Fprintf(w, "auto_fetch_metadata: %t\n", prefs.AutoFetchMetadata)
		fmt.Fprintf(w, "email_notifications: %t\n", prefs.EmailNotifications)
		return nil
	},
}

func init() {
	prefsCmd.Flags().StringVar(&prefsAutoFetch, "auto-fetch", "", "fetch page metadata for new bookmarks (true|false)")
	prefsCmd.Flags().StringVar(&prefsEmail, "email", "", "email notifications (true|false)")
	prefsCmd.Flags().StringVar(&prefsName, "name", "", "full name; empty clears it")
}

func boolFlag(name, value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &b, nil
}
