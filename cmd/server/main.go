package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AngelCh415/adbrain/internal/brain"
	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/httpx"
	"github.com/AngelCh415/adbrain/internal/ingest"
	"github.com/AngelCh415/adbrain/internal/metrics"
	"github.com/AngelCh415/adbrain/internal/store"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bcfg, err := config.LoadBrain(cfg.BrainConfigPath)
	if err != nil {
		return err
	}

	var (
		reader brain.MetricsReader
		ing    *ingest.Ingester
		ready  []httpx.Pinger
	)
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		reader, ing = pg, ingest.NewIngester(pg, logger)
		ready = append(ready, pg)
		logger.Info("metrics backend", slog.String("kind", "postgres"))
	case cfg.DataAPIURL != "":
		// solo lectura
		reader = ingest.NewRemoteReader(ingest.NewHTTPClient(cfg.HTTPTimeout), cfg.DataAPIURL)
		logger.Info("metrics backend", slog.String("kind", "remote"), slog.String("url", cfg.DataAPIURL))
	default:
		mem := store.NewMemoryStore()
		reader, ing = mem, ingest.NewIngester(mem, logger)
		ready = append(ready, mem)
		logger.Info("metrics backend", slog.String("kind", "memory"))
	}

	clock := brain.SystemClock()
	var cache brain.StateCache
	if cfg.RedisURL != "" {
		rc, err := brain.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		cache = rc
		ready = append(ready, rc)
	} else {
		cache = brain.NewLocalCache(clock)
	}

	eng := brain.NewEngine(reader, bcfg, logger, clock)
	svc := brain.NewService(eng, cache, bcfg, clock, logger)

	if len(cfg.RefreshOrgs) > 0 {
		go brain.NewRefresher(svc, cfg.RefreshOrgs, cfg.RefreshInterval, logger).Run(ctx)
	}

	r := httpx.NewRouter(logger, httpx.Deps{
		Brain:   svc,
		Metrics: metrics.NewService(reader),
		Ingest:  ing,
		Ready:   ready,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
