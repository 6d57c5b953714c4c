package cliutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/pkg/config"
)

// OpenChain opens a dbpool.Chain named name sized and addressed from
// cfg.Database.
func OpenChain(ctx context.Context, name string, cfg config.DatabaseConfig) (*dbpool.Chain, error) {
	return dbpool.NewChain(ctx, name, cfg.PoolSize, cfg.DSN)
}

// RunUntilSignal runs serve in the background and blocks until either a
// SIGINT/SIGTERM arrives (cancelling ctx and waiting for serve to
// return) or serve returns on its own. Grounded on
// marmos91-dittofs/cmd/dfs/commands/start.go's serverDone channel +
// signal.Notify select loop.
func RunUntilSignal(ctx context.Context, cancel context.CancelFunc, serve func(ctx context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.InfoCtx(ctx, "shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-done; err != nil {
			logger.ErrorCtx(ctx, "server shutdown error", "error", err)
			return err
		}
		logger.InfoCtx(ctx, "server stopped gracefully")
	case err := <-done:
		signal.Stop(sigChan)
		if err != nil {
			logger.ErrorCtx(ctx, "server error", "error", err)
			return err
		}
		logger.InfoCtx(ctx, "server stopped")
	}
	return nil
}
