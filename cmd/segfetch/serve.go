package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/datallboy/segfetch/internal/api"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			appCtx, cleanup, err := bootstrap(cfg)
			if err != nil {
				cmd.PrintErrf("Startup error: %v\n", err)
				return err
			}
			defer cleanup()

			e := echo.New()
			api.RegisterRoutes(e, appCtx)

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           e,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				appCtx.Logger.Info("API listening on %s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					appCtx.Logger.Error("API server: %v", err)
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			appCtx.Logger.Info("Shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "listen port")
	return cmd
}
