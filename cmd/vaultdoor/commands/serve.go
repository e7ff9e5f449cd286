package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/systmms/vaultdoor/internal/facade"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/internal/server"
	"github.com/systmms/vaultdoor/internal/stores"
)

const (
	startupProbeTimeout = 5 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// runServe builds the store, facade, and HTTP server from configuration
// and serves until SIGINT or SIGTERM.
func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Debug, cfg.NoColor)
	logger.Info("%s", cfg.Summary())
	if cfg.UsingDemoToken() {
		logger.Warn("using the built-in demo token; set VAULTDOOR_API_TOKEN before exposing this server")
	}

	st, err := stores.NewRegistry().CreateStore(cfg.Store.Type, cfg.Store)
	if err != nil {
		return err
	}

	fac := facade.New(st,
		facade.WithCacheCapacity(cfg.Cache.Capacity),
		facade.WithMetrics(server.NewMetrics()),
		facade.WithLogger(logger),
	)

	// A failed probe is worth a warning but not a refusal to start; the
	// /ready endpoint keeps reporting it until the backend recovers.
	probeCtx, cancelProbe := context.WithTimeout(ctx, startupProbeTimeout)
	if err := fac.Validate(probeCtx); err != nil {
		logger.Warn("store validation failed at startup: %v", err)
	}
	cancelProbe()

	srv := server.NewServer(cfg, fac, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
