// Package main provides the profile_engine CLI: the HTTP API server plus
// migration, reconciliation and maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/profile-engine/internal/artifact"
	"github.com/jonathan/profile-engine/internal/config"
	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/logging"
	"github.com/jonathan/profile-engine/internal/profile"
)

var rootCmd = &cobra.Command{
	Use:   "profile_engine",
	Short: "Profile and document service",
	Long: `profile_engine keeps user profiles, their uploaded documents and the stored
artifacts behind them consistent, and maintains each profile's completion score.`,
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values override environment variables)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadServiceConfig reads the environment, overlays the --config file and
// flags, and validates the result.
func loadServiceConfig() (*config.Config, error) {
	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := *envCfg
	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg.MergeWithDefaults(*envCfg)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func requireDatabase(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable (or database_url in --config) is required")
	}
	return nil
}

// app holds the collaborators shared by the commands that touch data.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *db.DB
	store   artifact.Store
	service *profile.Service

	closeStore func() error
}

// openApp loads configuration, connects to the database and opens the
// artifact store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadServiceConfig()
	if err != nil {
		return nil, err
	}
	if err := requireDatabase(cfg); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DB(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store, closeStore, err := artifact.Open(ctx, cfg.Artifact(), log)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	return &app{
		cfg:        cfg,
		log:        log,
		db:         database,
		store:      store,
		service:    profile.NewService(profile.FromDB(database), store, cfg.Profile(), log),
		closeStore: closeStore,
	}, nil
}

func (rt *app) Close() {
	if err := rt.closeStore(); err != nil {
		rt.log.Warn("failed to close artifact store", zap.Error(err))
	}
	rt.db.Close()
	_ = rt.log.Sync()
}
