// Command marks manages bookmarks from the terminal and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/config"
	"github.com/nikbrunner/marks/internal/logging"
	"github.com/nikbrunner/marks/internal/metadata"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/service"
	"github.com/nikbrunner/marks/internal/session"
	"github.com/nikbrunner/marks/internal/storage"
)

// Global flag values.
var (
	flagConfig   string
	flagUser     string
	flagBackend  string
	flagLogLevel string
	flagJSON     bool
)

// Set by PersistentPreRunE.
var (
	v          *viper.Viper
	cfg        *config.Config
	configPath string
	logger     = zap.NewNop()
	backend    storage.Backend
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "marks",
	Short:         "marks is a personal bookmark manager",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Sync()
		if backend == nil {
			return nil
		}
		err := backend.Close()
		backend = nil
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: ~/.config/marks/config.json)")
	pf.StringVar(&flagUser, "user", "", "user id to act as (default: user_id from config)")
	pf.StringVar(&flagBackend, "backend", "", "storage backend: sqlite, postgres or json")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(serveCmd, tokenCmd)
	rootCmd.AddCommand(addCmd, listCmd, searchCmd, pickCmd, rmCmd, tagCmd, mvCmd)
	rootCmd.AddCommand(folderCmd, tagsCmd)
	rootCmd.AddCommand(importCmd, exportCmd)
	rootCmd.AddCommand(prefsCmd, refreshCmd)
}

func loadConfig(cmd *cobra.Command) error {
	v = config.NewViper()
	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		config.KeyUserID:   "user",
		config.KeyBackend:  "backend",
		config.KeyLogLevel: "log-level",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return err
		}
	}

	configPath = flagConfig
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		configPath = p
	}

	var err error
	cfg, err = config.Load(v, configPath)
	if err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	return nil
}

// openBackend opens the configured store once per invocation.
func openBackend(ctx context.Context) (storage.Backend, error) {
	if backend != nil {
		return backend, nil
	}
	b, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	backend = b
	logger.Debug("storage opened", zap.String("backend", cfg.Backend))
	return backend, nil
}

// currentUser returns the configured user id. On first use it generates one
// and saves it to the config file.
func currentUser() (string, error) {
	if cfg.UserID != "" {
		if !model.IsUUID(cfg.UserID) {
			return "", fmt.Errorf("user id %q is not a UUID", cfg.UserID)
		}
		return cfg.UserID, nil
	}

	id := model.GenerateUUID()
	v.Set(config.KeyUserID, id)
	if err := config.Save(configPath, v.AllSettings()); err != nil {
		return "", fmt.Errorf("save user id: %w", err)
	}
	cfg.UserID = id
	logger.Info("created local user", zap.String("user_id", id))
	return id, nil
}

// newClient builds a cache-backed client for the current user.
func newClient(ctx context.Context) (*query.Client, error) {
	b, err := openBackend(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := currentUser()
	if err != nil {
		return nil, err
	}

	svc := service.New(storage.NewScope(b, session.Static(userID)), logger, service.Options{
		Fetcher: metadata.NewHTTPFetcher(cfg.FetchTimeout),
	})
	cache := query.NewCache(query.CacheOptions{StaleTime: cfg.StaleTime, Logger: logger})
	return query.NewClient(svc, cache, logger), nil
}
