package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"staffhub-api/internal/handler"
	"staffhub-api/internal/router"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var noWarm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Run the HTTP API and, unless disabled, the periodic cache warming scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			cfg := a.cfg
			r := router.New(router.Config{
				Handler:      handler.New(a.cache, a.repo, cfg.App.Name, cfg.App.Version),
				HRHandler:    handler.NewHRHandler(a.hr, a.logger),
				AdminHandler: handler.NewAdminHandler(a.warmer, a.invalidator, a.cache, cfg.Cache.Type, cfg.Database.Type, a.logger),
				Logger:       a.logger,
			})

			srv := &http.Server{
				Addr:         cfg.Server.Address(),
				Handler:      r,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			if cfg.Warming.Enabled && !noWarm {
				a.warmer.Start()
				// runs before a.close: an in-flight pass finishes before the store closes
				defer a.warmer.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening",
					zap.String("addr", cfg.Server.Address()),
					zap.String("env", cfg.App.Environment))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-quit:
				a.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			a.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWarm, "no-warm", false, "Do not start the cache warming scheduler")

	return cmd
}
