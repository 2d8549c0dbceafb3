package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "carpark_aggregator/internal/adapters/http_server"
	"carpark_aggregator/internal/adapters/observability"
	redisad "carpark_aggregator/internal/adapters/redis"
	"carpark_aggregator/internal/app"
	"carpark_aggregator/internal/domain"
	"carpark_aggregator/internal/shared"
	"carpark_aggregator/internal/storage/snapshot"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// deps
	store := snapshot.New(cfg.OutputPath)
	if _, err := store.Load(ctx); err != nil {
		log.Warn().Err(err).Str("path", cfg.OutputPath).Msg("snapshot not readable yet; run the aggregator")
	}

	// the cache is optional: without redis every lookup reads the snapshot
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; caching disabled")
		} else {
			cache = rc
		}
		cancel()
	}
	q := app.NewQueryService(store, cache, cfg.CacheTTL())

	// http
	srv := server.New(log.Logger)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(server.NewHandlers(q, cfg.Langs))

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
