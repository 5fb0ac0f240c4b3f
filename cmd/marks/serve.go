package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/config"
	"github.com/nikbrunner/marks/internal/metadata"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/server"
	"github.com/nikbrunner/marks/internal/session"
)

var tokenNewUser bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		signer, err := session.NewSigner(cfg.TokenSecret)
		if err != nil {
			return fmt.Errorf("%w: set %s in the config file", err, config.KeyTokenSecret)
		}
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}

		srv := server.New(server.Options{
			Backend:   b,
			Signer:    signer,
			Logger:    logger,
			Fetcher:   metadata.NewHTTPFetcher(cfg.FetchTimeout),
			StaleTime: cfg.StaleTime,
		})
		return srv.ListenAndServe(ctx, cfg.ServerAddress)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an API token for the current user",
	Long: `Print an API token. Send it as "Authorization: Bearer <token>" or in the
` + server.TokenCookie + ` cookie.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, err := session.NewSigner(cfg.TokenSecret)
		if err != nil {
			return fmt.Errorf("%w: set %s in the config file", err, config.KeyTokenSecret)
		}

		var userID, token string
		if tokenNewUser {
			userID, token = signer.IssueNew()
		} else {
			userID, err = currentUser()
			if err != nil {
				return err
			}
			if !model.IsUUID(userID) {
				return fmt.Errorf("user id %q is not a UUID", userID)
			}
			token = signer.Issue(userID)
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]string{"user_id": userID, "token": token})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user:  %s\ntoken: %s\n", userID, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenNewUser, "new-user", false, "issue a token for a freshly generated user id")
}
