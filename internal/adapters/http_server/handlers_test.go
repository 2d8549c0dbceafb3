package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	server "carpark_aggregator/internal/adapters/http_server"
	"carpark_aggregator/internal/app"
	"carpark_aggregator/internal/domain"
	"carpark_aggregator/internal/storage/snapshot"
)

var langs = []string{"en_US", "zh_TW", "zh_CN"}

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	return newLoggedAPI(t, zerolog.Nop())
}

func newLoggedAPI(t *testing.T, l zerolog.Logger) http.Handler {
	t.Helper()
	st := snapshot.New(filepath.Join(t.TempDir(), "carpark_data.json"))
	fs := []domain.Facility{
		{
			Key: "P1", ParkID: "P1",
			Info:         map[string]any{"name": "Test Lot"},
			VehicleTypes: []domain.VehicleType{},
			Languages: map[string]domain.Document{
				"en_US": {"park_id": "P1", "name": "Test Lot"},
				"zh_TW": {"park_id": "P1", "name": "測試停車場"},
				"zh_CN": {"park_id": "P1", "name": "测试停车场"},
			},
		},
		{Key: "P2", ParkID: "P2", VehicleTypes: []domain.VehicleType{}},
		{Key: "P3", ParkID: "P3", VehicleTypes: []domain.VehicleType{}},
	}
	if err := st.Write(context.Background(), fs); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	q := app.NewQueryService(st, nil, time.Minute)
	srv := server.New(l)
	srv.MountHandlers(server.NewHandlers(q, langs))
	return srv.Mux()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetFacility_AllLanguages(t *testing.T) {
	h := newAPI(t)
	rr := do(t, h, httptest.NewRequest("GET", "/v1/carparks/P1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["park_id"] != "P1" || got["name"] != "Test Lot" {
		t.Fatalf("unexpected body: %v", got)
	}
	if n := len(got["carpark_info_vacancy"].(map[string]any)); n != 3 {
		t.Fatalf("expected 3 languages, got %d", n)
	}
}

func TestGetFacility_AcceptLanguage(t *testing.T) {
	h := newAPI(t)
	req := httptest.NewRequest("GET", "/v1/carparks/P1", nil)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9")
	rr := do(t, h, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	if cl := rr.Header().Get("Content-Language"); cl != "zh_TW" {
		t.Fatalf("Content-Language: %q", cl)
	}
	var got map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	variants := got["carpark_info_vacancy"].(map[string]any)
	if len(variants) != 1 || variants["zh_TW"] == nil {
		t.Fatalf("expected only zh_TW, got %v", variants)
	}
}

func TestGetFacility_ETag(t *testing.T) {
	h := newAPI(t)
	first := do(t, h, httptest.NewRequest("GET", "/v1/carparks/P1?lang=en_US", nil))
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	req := httptest.NewRequest("GET", "/v1/carparks/P1?lang=en_US", nil)
	req.Header.Set("If-None-Match", etag)
	if rr := do(t, h, req); rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestGetFacility_Errors(t *testing.T) {
	h := newAPI(t)
	if rr := do(t, h, httptest.NewRequest("GET", "/v1/carparks/NOPE", nil)); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := do(t, h, httptest.NewRequest("GET", "/v1/carparks/P1?lang=fr_FR", nil)); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListFacilities_Paging(t *testing.T) {
	h := newAPI(t)
	rr := do(t, h, httptest.NewRequest("GET", "/v1/carparks?limit=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var page struct {
		Items      []map[string]any `json:"items"`
		NextCursor *string          `json:"next_cursor"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == nil || *page.NextCursor != "2" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	rr = do(t, h, httptest.NewRequest("GET", "/v1/carparks?limit=2&cursor=2", nil))
	page.NextCursor = nil
	_ = json.Unmarshal(rr.Body.Bytes(), &page)
	if len(page.Items) != 1 || page.Items[0]["park_id"] != "P3" || page.NextCursor != nil {
		t.Fatalf("unexpected second page: %+v", page)
	}

	if rr := do(t, h, httptest.NewRequest("GET", "/v1/carparks?limit=0", nil)); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=0, got %d", rr.Code)
	}
}
