package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"carpark_aggregator/internal/adapters/observability"
	"carpark_aggregator/internal/domain"
)

// LanguageEnricher attaches every language variant of the info/vacancy feed
// under carpark_info_vacancy[lang].
type LanguageEnricher struct {
	feeds domain.FeedClient
	langs []string
}

func NewLanguageEnricher(c domain.FeedClient, langs []string) *LanguageEnricher {
	return &LanguageEnricher{feeds: c, langs: append([]string(nil), langs...)}
}

type languageEntry struct {
	id  any
	key string
	doc domain.Document
}

// Enrich fetches all languages concurrently, one worker per language. Each
// worker fills only its own result slot; the slots are applied to reg after
// every fetch succeeded, in configured language order, so the outcome does not
// depend on completion order. Any failure fails the whole step.
func (e *LanguageEnricher) Enrich(ctx context.Context, reg *Registry) error {
	results := make([][]languageEntry, len(e.langs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(len(e.langs), 1))
	for i, lang := range e.langs {
		i, lang := i, lang
		g.Go(func() (err error) {
			ctx, span := observability.StartSpan(gctx, "aggregate.language", attribute.String("lang", lang))
			defer func() { observability.EndSpan(span, err) }()

			start := time.Now()
			payload, err := e.feeds.InfoVacancy(ctx, lang)
			if err != nil {
				return fmt.Errorf("language %s: %w", lang, err)
			}
			entries, err := parseLanguage(ctx, lang, payload)
			if err != nil {
				return fmt.Errorf("language %s: %w", lang, err)
			}
			results[i] = entries
			log.Ctx(ctx).Debug().
				Str("lang", lang).
				Int("facilities", len(entries)).
				Dur("took", time.Since(start)).
				Msg("language variant fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, lang := range e.langs {
		applyLanguage(reg, lang, results[i])
	}
	return nil
}

// ApplyLanguage attaches one already-fetched language payload to reg.
func ApplyLanguage(ctx context.Context, reg *Registry, lang string, payload any) error {
	entries, err := parseLanguage(ctx, lang, payload)
	if err != nil {
		return err
	}
	applyLanguage(reg, lang, entries)
	return nil
}

func applyLanguage(reg *Registry, lang string, entries []languageEntry) {
	for _, en := range entries {
		reg.attachLanguage(en.id, en.key, lang, en.doc)
	}
}

// parseLanguage reads {"results":[{"park_Id":..,...}]} into documents whose
// id lives under park_id only.
func parseLanguage(ctx context.Context, lang string, payload any) ([]languageEntry, error) {
	feed := "info_vacancy:" + lang
	parks, err := listAt(feed, payload, resultsKey)
	if err != nil {
		return nil, err
	}
	l := log.Ctx(ctx)
	out := make([]languageEntry, 0, len(parks))
	for i, it := range parks {
		park, ok := it.(map[string]any)
		if !ok {
			l.Debug().Str("lang", lang).Int("index", i).Msg("info_vacancy: skipping non-object entry")
			continue
		}
		id, key, _, ok := idOf(park, domain.FieldLegacyID, domain.FieldParkID)
		if !ok {
			l.Warn().Str("lang", lang).Int("index", i).Msg("info_vacancy: entry without park_Id")
			continue
		}
		out = append(out, languageEntry{id: id, key: key, doc: languageDoc(park, id)})
	}
	return out, nil
}
