package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"Mansoor88-6/pulse-tracker/internal/app"
	"Mansoor88-6/pulse-tracker/internal/auth"
	"Mansoor88-6/pulse-tracker/internal/config"
	"Mansoor88-6/pulse-tracker/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pulsed",
		Short:         "Pulse time-tracking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/local.yaml", "Path to configuration file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newRecomputeCmd(&configPath))
	root.AddCommand(newConfigCmd(&configPath))
	root.AddCommand(newClientCmd())
	return root
}

// setup loads configuration and builds the logger and application.
func setup(configPath string) (*config.Config, *logger.Logger, *app.App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := app.New(cfg, nil, log.Logger)
	if err != nil {
		log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, a, nil
}

func closeApp(log *logger.Logger, a *app.App) {
	if err := a.Close(); err != nil {
		log.Error("Failed to close application", zap.Error(err))
	}
	log.Sync()
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeApp(log, a)

			log.Info("Starting pulse server",
				zap.String("env", cfg.Env),
				zap.String("config_path", *configPath),
				zap.String("address", cfg.HTTP.Addr()),
			)

			srv := &http.Server{
				Addr:         cfg.HTTP.Addr(),
				Handler:      a.Handler,
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
				IdleTimeout:  cfg.HTTP.IdleTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
				log.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("Server shutdown error", zap.Error(err))
				return err
			}

			log.Info("Pulse server stopped")
			return nil
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeApp(log, a)

			version, err := a.DB.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func newRecomputeCmd(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "recompute-totals",
		Short: "Rebuild project totals from completed sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeApp(log, a)

			who := auth.Identity{UserID: userID, Role: auth.RoleAdmin}
			changed, err := a.Projects.RecomputeTotals(cmd.Context(), who, userID == "")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d project totals corrected\n", changed)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only recompute this user's projects (default: all users)")
	return cmd
}

func newConfigCmd(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Manage configuration"}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(*configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", *configPath)
			}
			if err := config.Save(*configPath, config.Default()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", *configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}
