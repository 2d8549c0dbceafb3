package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"carpark_aggregator/internal/domain"
)

type QueryService struct {
	snap     domain.SnapshotReader
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.SnapshotReader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{snap: r, cache: c, cacheTTL: ttl}
}

// GetFacility looks a facility up by park id. A non-empty lang keeps only that
// language's document. Cached views are keyed by snapshot generation, so a new
// run is visible as soon as its artifact lands.
func (s *QueryService) GetFacility(ctx context.Context, id, lang string) (domain.FacilityView, error) {
	var (
		fv  domain.FacilityView
		key string
	)
	if s.cache != nil {
		gen, err := s.snap.Generation(ctx)
		if err != nil {
			return domain.FacilityView{}, err
		}
		key = fmt.Sprintf("carpark:%s:%s:%s", gen, id, lang)
		if ok, _ := s.cache.Get(ctx, key, &fv); ok {
			return fv, nil
		}
	}

	fs, err := s.snap.Load(ctx)
	if err != nil {
		return domain.FacilityView{}, err
	}
	for _, f := range fs {
		if f.Key != id {
			continue
		}
		fv = domain.FacilityView{Facility: f, Language: lang}
		if lang != "" {
			fv.Facility = f.WithLanguage(lang)
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, fv, int(s.cacheTTL.Seconds()))
		}
		return fv, nil
	}
	return domain.FacilityView{}, fmt.Errorf("carpark %s: %w", id, domain.ErrNotFound)
}

// ListFacilities pages through the snapshot in file order; the cursor is an offset.
func (s *QueryService) ListFacilities(ctx context.Context, pg domain.PageQuery) (domain.FacilitiesPage, error) {
	fs, err := s.snap.Load(ctx)
	if err != nil {
		return domain.FacilitiesPage{}, err
	}
	start := 0
	if pg.Cursor != nil {
		n, err := strconv.Atoi(*pg.Cursor)
		if err != nil || n < 0 {
			return domain.FacilitiesPage{}, fmt.Errorf("invalid cursor %q", *pg.Cursor)
		}
		start = n
	}
	if start > len(fs) {
		start = len(fs)
	}
	end := len(fs)
	if pg.Limit > 0 && start+pg.Limit < end {
		end = start + pg.Limit
	}

	// copy to avoid aliasing the reader's backing array
	out := domain.FacilitiesPage{Items: make([]domain.Facility, end-start)}
	copy(out.Items, fs[start:end])
	if end < len(fs) {
		next := strconv.Itoa(end)
		out.NextCursor = &next
	}
	return out, nil
}
