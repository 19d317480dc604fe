package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/profile-engine/internal/config"
	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/server"
	"github.com/jonathan/profile-engine/internal/server/ratelimit"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the profile, document and profile entry endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	rt, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if serveMigrate {
		if err := db.Migrate(ctx, rt.cfg.DatabaseURL, db.MigrateUp, rt.log); err != nil {
			return err
		}
	}

	port := rt.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv, err := server.New(server.Config{
		Port:           port,
		MaxUploadBytes: max(rt.cfg.MaxResumeBytes, rt.cfg.MaxImageBytes) + 1<<20,
	}, server.Deps{
		Profiles: rt.service,
		Tokens:   server.NewJWTService(jwtConfig).AsTokenValidator(),
		Ready:    rt.db,
		Limiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Log:      rt.log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

var _ server.Pinger = (*db.DB)(nil)
