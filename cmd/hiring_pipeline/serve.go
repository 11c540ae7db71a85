package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/server"
	"github.com/jonathan/hiring-pipeline/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort  int
	serveStore string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the mapping, assignment and interview workflows over REST.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Store backend: postgres or memory (overrides STORE_BACKEND)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath, func(c *config.Config) {
		if servePort != 0 {
			c.Port = servePort
		}
		if serveStore != "" {
			c.StoreBackend = serveStore
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := seedDefaultAdmin(ctx, a); err != nil {
		return err
	}

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:           cfg.Port,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, server.Options{
		Workflow: a.workflow,
		Accounts: a.accounts,
		JWT:      server.NewJWTService(jwtCfg),
		Logger:   a.logger,
		Limiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Health:   a.health,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}

// seedDefaultAdmin creates the configured bootstrap admin once.
func seedDefaultAdmin(ctx context.Context, a *app) error {
	if a.cfg.DefaultAdminEmail == "" {
		return nil
	}
	admin, created, err := a.accounts.EnsureAdmin(ctx, a.cfg.DefaultAdminName, a.cfg.DefaultAdminEmail, a.cfg.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed default admin: %w", err)
	}
	if created {
		a.logger.Info("created default admin", "actor_id", admin.ID, "email", admin.Email)
	}
	return nil
}
