package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datallboy/segfetch/internal/app"
	"github.com/datallboy/segfetch/internal/infra/config"
	"github.com/datallboy/segfetch/internal/infra/logger"
	"github.com/datallboy/segfetch/internal/store"
)

var configPath string

func main() {
	// We create a context that is cancelled when the user hits Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "segfetch",
		Short: "Fetch numbered stream segments in parallel and join them",
		// Errors are already reported by the logger.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml when present)")

	root.AddCommand(newFetchCmd(), newRunsCmd(), newServeCmd())
	return root
}

// bootstrap loads config and opens the shared resources. The returned
// cleanup closes them.
func bootstrap(cfg *config.Config) (*app.Context, func(), error) {
	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	appCtx := app.NewContext(cfg, log)

	hist, err := store.NewHistoryStore(cfg.Store.SQLitePath)
	if err != nil {
		log.Close()
		return nil, nil, fmt.Errorf("history store: %w", err)
	}
	appCtx.History = hist

	cleanup := func() {
		hist.Close()
		log.Close()
	}
	return appCtx, cleanup, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return nil, err
	}
	return cfg, nil
}
