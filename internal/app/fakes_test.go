package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carpark_aggregator/internal/adapters/feeds"
	"carpark_aggregator/internal/app"
	"carpark_aggregator/internal/domain"
)

// ---- fakes ----

type fakeFeeds struct {
	hourly, normalized, basic string
	langs                     map[string]string
	langErr                   map[string]error
	delay                     map[string]time.Duration

	mu      sync.Mutex
	fetched []string
}

func (f *fakeFeeds) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, name)
}

func (f *fakeFeeds) VacancyInfo(ctx context.Context) (any, error) {
	f.record("vacancy_info")
	return feeds.Decode("vacancy_info", []byte(f.hourly))
}

func (f *fakeFeeds) Vacancy(ctx context.Context) (any, error) {
	f.record("vacancy")
	return feeds.Decode("vacancy", []byte(f.normalized))
}

func (f *fakeFeeds) BasicInfo(ctx context.Context) (any, error) {
	f.record("basic_info")
	return feeds.Decode("basic_info", []byte(f.basic))
}

func (f *fakeFeeds) InfoVacancy(ctx context.Context, lang string) (any, error) {
	if d := f.delay[lang]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.record("info_vacancy:" + lang)
	if err := f.langErr[lang]; err != nil {
		return nil, err
	}
	return feeds.Decode("info_vacancy:"+lang, []byte(f.langs[lang]))
}

type fakeWriter struct {
	calls int
	got   []domain.Facility
}

func (w *fakeWriter) Write(ctx context.Context, fs []domain.Facility) error {
	w.calls++
	w.got = fs
	return nil
}

// ---- helpers ----

var allLangs = []string{"en_US", "zh_TW", "zh_CN"}

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := feeds.Decode("test", []byte(s))
	require.NoError(t, err)
	return v
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func mustGet(t *testing.T, reg *app.Registry, key string) domain.Facility {
	t.Helper()
	f, ok := reg.Get(key)
	require.True(t, ok, "facility %s missing", key)
	return f
}
