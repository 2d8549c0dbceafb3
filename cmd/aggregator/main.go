package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"carpark_aggregator/internal/adapters/feeds"
	"carpark_aggregator/internal/adapters/observability"
	"carpark_aggregator/internal/app"
	"carpark_aggregator/internal/shared"
	"carpark_aggregator/internal/storage/snapshot"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = log.With().Str("run_id", runID).Logger().WithContext(ctx)

	log.Ctx(ctx).Info().
		Strs("langs", cfg.Langs).
		Str("output", cfg.OutputPath).
		Int("fetch_timeout_s", cfg.FetchTimeout).
		Msg("aggregator starting")

	client, err := feeds.New(cfg.Feeds, cfg.FetchTimeoutDuration(), cfg.FetchRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize feed client")
	}
	agg := app.NewAggregator(client, cfg.Langs)
	store := snapshot.New(cfg.OutputPath)

	start := time.Now()
	n, err := agg.RunAndWrite(ctx, store)
	observability.ObserveRun(err)
	if err != nil {
		log.Ctx(ctx).Fatal().Err(err).Str("kind", observability.LabelErr(err)).Msg("aggregation failed; no output written")
	}
	log.Ctx(ctx).Info().
		Int("facilities", n).
		Str("path", store.Path()).
		Dur("took", time.Since(start)).
		Msg("carpark data written")
}
