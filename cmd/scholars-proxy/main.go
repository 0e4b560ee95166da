// Command scholars-proxy serves Semantic Scholar Graph API listings over
// HTTP. Every listing is drained through the pagination engine, so callers
// ask for a number of results instead of walking offset/limit pages.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/scholars-client/internal/config"
	"github.com/Sternrassler/scholars-client/pkg/client"
	"github.com/Sternrassler/scholars-client/pkg/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("scholars-proxy stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Logger())
	logger := logging.NewLogger("proxy")

	rdb := cfg.Redis.NewClient()
	if rdb != nil {
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		logger.Info().Msg("Redis disabled, responses are not cached")
	}

	api, err := client.New(cfg.ClientConfig(rdb))
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	defer api.Close()

	p := &proxy{
		api:     api,
		redis:   rdb,
		gateway: cfg.Gateway,
		logger:  logger,
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      newRouter(p),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("base_url", cfg.API.BaseURL).
			Bool("api_key", cfg.API.APIKey != "").
			Msg("Starting scholars proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
