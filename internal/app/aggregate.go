package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"carpark_aggregator/internal/adapters/observability"
	"carpark_aggregator/internal/domain"
)

type Aggregator struct {
	feeds     domain.FeedClient
	languages *LanguageEnricher
}

func NewAggregator(c domain.FeedClient, langs []string) *Aggregator {
	return &Aggregator{feeds: c, languages: NewLanguageEnricher(c, langs)}
}

// Run fetches the single-shot feeds, then merges vacancy, basic info and the
// language variants strictly in that order. The returned facilities are in
// order of first sighting.
func (a *Aggregator) Run(ctx context.Context) (out []domain.Facility, err error) {
	ctx, span := observability.StartSpan(ctx, "aggregate.run")
	defer func() { observability.EndSpan(span, err) }()
	l := log.Ctx(ctx)

	// 1) Single-shot feeds, sequentially.
	hourly, err := a.fetch(ctx, "vacancy_info", a.feeds.VacancyInfo)
	if err != nil {
		return nil, err
	}
	normalized, err := a.fetch(ctx, "vacancy", a.feeds.Vacancy)
	if err != nil {
		return nil, err
	}
	basic, err := a.fetch(ctx, "basic_info", a.feeds.BasicInfo)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()

	// 2) Vacancy first: the later stages create-if-absent on ids it may not know.
	if err := MergeVacancy(ctx, reg, hourly, normalized); err != nil {
		return nil, fmt.Errorf("merge vacancy: %w", err)
	}
	a.stageDone(ctx, "vacancy", reg)

	// 3) Basic info.
	if err := EnrichBasicInfo(ctx, reg, basic); err != nil {
		return nil, fmt.Errorf("basic info: %w", err)
	}
	a.stageDone(ctx, "basic_info", reg)

	// 4) Language variants, fetched in parallel.
	if err := a.languages.Enrich(ctx, reg); err != nil {
		return nil, fmt.Errorf("language variants: %w", err)
	}
	a.stageDone(ctx, "languages", reg)

	out = reg.Facilities()
	l.Info().Int("facilities", len(out)).Msg("aggregation completed")
	return out, nil
}

// RunAndWrite runs the aggregation and hands the result to w. Nothing is
// written when any stage fails.
func (a *Aggregator) RunAndWrite(ctx context.Context, w domain.SnapshotWriter) (int, error) {
	fs, err := a.Run(ctx)
	if err != nil {
		return 0, err
	}
	if err := w.Write(ctx, fs); err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	return len(fs), nil
}

func (a *Aggregator) fetch(ctx context.Context, name string, get func(context.Context) (any, error)) (any, error) {
	start := time.Now()
	v, err := get(ctx)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("feed", name).Dur("took", time.Since(start)).Msg("feed fetched")
	return v, nil
}

func (a *Aggregator) stageDone(ctx context.Context, stage string, reg *Registry) {
	n := reg.Len()
	observability.ObserveStage(stage, n)
	log.Ctx(ctx).Info().Str("stage", stage).Int("facilities", n).Msg("stage done")
}
