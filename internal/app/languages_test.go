package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpark_aggregator/internal/app"
	"carpark_aggregator/internal/domain"
)

func langFeed(lang string) string {
	return fmt.Sprintf(`{"results":[
	  {"park_Id":"P1","name":"Lot One (%[1]s)","opening_status":"OPEN"},
	  {"park_Id":"L-%[1]s","name":"only in %[1]s"},
	  {"park_Id":"SHARED","name":"shared %[1]s"}
	]}`, lang)
}

func langFeeds() map[string]string {
	out := map[string]string{}
	for _, l := range allLangs {
		out[l] = langFeed(l)
	}
	return out
}

func permutations(in []string) [][]string {
	if len(in) <= 1 {
		return [][]string{append([]string(nil), in...)}
	}
	var out [][]string
	for i := range in {
		rest := append(append([]string(nil), in[:i]...), in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{in[i]}, p...))
		}
	}
	return out
}

func TestApplyLanguage_Commutative(t *testing.T) {
	ctx := context.Background()
	byKey := func(reg *app.Registry) map[string]domain.Facility {
		out := map[string]domain.Facility{}
		for _, f := range reg.Facilities() {
			out[f.Key] = f
		}
		return out
	}

	var want map[string]domain.Facility
	perms := permutations(allLangs)
	require.Len(t, perms, 6)
	for _, order := range perms {
		reg := app.NewRegistry()
		require.NoError(t, app.EnrichBasicInfo(ctx, reg, decode(t, `{"car_park":[{"park_id":"P1","name_en":"Lot One"}]}`)))
		for _, lang := range order {
			require.NoError(t, app.ApplyLanguage(ctx, reg, lang, decode(t, langFeed(lang))))
		}
		got := byKey(reg)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "order %v", order)
	}

	// every language of the shared facility survives, regardless of order
	assert.Len(t, want["SHARED"].Languages, 3)
	assert.Len(t, want["P1"].Languages, 3)
}

func TestApplyLanguage_NormalizesID(t *testing.T) {
	ctx := context.Background()
	reg := app.NewRegistry()
	require.NoError(t, app.ApplyLanguage(ctx, reg, "en_US", decode(t, langFeed("en_US"))))

	for _, f := range reg.Facilities() {
		doc := f.Languages["en_US"]
		assert.NotContains(t, doc, "park_Id")
		assert.Equal(t, f.ParkID, doc["park_id"])
	}
}

func TestApplyLanguage_LanguageOnlyFacilityHasNoVehicleTypes(t *testing.T) {
	reg := app.NewRegistry()
	require.NoError(t, app.ApplyLanguage(context.Background(), reg, "zh_TW", decode(t, langFeed("zh_TW"))))

	f := mustGet(t, reg, "L-zh_TW")
	assert.Nil(t, f.VehicleTypes)
	assert.False(t, f.HasVehicleTypes())
	assert.JSONEq(t,
		`{"park_id":"L-zh_TW","carpark_info_vacancy":{"zh_TW":{"park_id":"L-zh_TW","name":"only in zh_TW"}}}`,
		marshal(t, f))
}

func TestApplyLanguage_ReplacesSameLanguageOnly(t *testing.T) {
	ctx := context.Background()
	reg := app.NewRegistry()
	require.NoError(t, app.ApplyLanguage(ctx, reg, "en_US", decode(t, `{"results":[{"park_Id":"P1","v":1}]}`)))
	require.NoError(t, app.ApplyLanguage(ctx, reg, "zh_CN", decode(t, `{"results":[{"park_Id":"P1","v":2}]}`)))
	require.NoError(t, app.ApplyLanguage(ctx, reg, "en_US", decode(t, `{"results":[{"park_Id":"P1","v":3}]}`)))

	langs := mustGet(t, reg, "P1").Languages
	require.Len(t, langs, 2)
	assert.Equal(t, "3", fmt.Sprint(langs["en_US"]["v"]))
	assert.Equal(t, "2", fmt.Sprint(langs["zh_CN"]["v"]))
}

func TestLanguageEnricher_ParallelAndOrderIndependent(t *testing.T) {
	ctx := context.Background()
	var inflight, peak int32
	barrier := make(chan struct{})
	var arrived int32

	f := &gateFeeds{
		fakeFeeds: fakeFeeds{langs: langFeeds()},
		onEnter: func() {
			n := atomic.AddInt32(&inflight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			if atomic.AddInt32(&arrived, 1) == int32(len(allLangs)) {
				close(barrier)
			}
			select {
			case <-barrier:
			case <-time.After(2 * time.Second):
			}
		},
		onExit: func() { atomic.AddInt32(&inflight, -1) },
	}
	// reverse completion order relative to configuration
	f.delay = map[string]time.Duration{"en_US": 60 * time.Millisecond, "zh_TW": 30 * time.Millisecond}

	reg := app.NewRegistry()
	require.NoError(t, app.NewLanguageEnricher(f, allLangs).Enrich(ctx, reg))
	assert.EqualValues(t, len(allLangs), atomic.LoadInt32(&peak), "all language fetches run concurrently")

	// language-only facilities appear in configured language order, not completion order
	var keys []string
	for _, fc := range reg.Facilities() {
		keys = append(keys, fc.Key)
	}
	assert.Equal(t, []string{"P1", "L-en_US", "SHARED", "L-zh_TW", "L-zh_CN"}, keys)
}

func TestLanguageEnricher_OneFailureFailsStep(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeFeeds{
		langs:   langFeeds(),
		langErr: map[string]error{"zh_CN": &domain.FetchError{Feed: "info_vacancy:zh_CN", Err: boom}},
	}
	reg := app.NewRegistry()
	err := app.NewLanguageEnricher(f, allLangs).Enrich(context.Background(), reg)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "zh_CN")
	assert.Zero(t, reg.Len(), "no partial language data is applied")
}

func TestLanguageEnricher_ShapeErrorFailsStep(t *testing.T) {
	feeds := langFeeds()
	feeds["zh_TW"] = `{"error":"quota"}`
	err := app.NewLanguageEnricher(&fakeFeeds{langs: feeds}, allLangs).Enrich(context.Background(), app.NewRegistry())
	assert.ErrorIs(t, err, domain.ErrShape)
}

// gateFeeds lets a test observe how many InfoVacancy calls overlap.
type gateFeeds struct {
	fakeFeeds
	onEnter, onExit func()
}

func (g *gateFeeds) InfoVacancy(ctx context.Context, lang string) (any, error) {
	g.onEnter()
	defer g.onExit()
	return g.fakeFeeds.InfoVacancy(ctx, lang)
}
