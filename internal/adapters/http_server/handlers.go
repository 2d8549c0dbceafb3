// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"carpark_aggregator/internal/app"
	"carpark_aggregator/internal/domain"
	"carpark_aggregator/internal/shared"
)

type Handlers struct {
	Q *app.QueryService

	langs   []string // feed spelling, index-aligned with the matcher's tags
	matcher language.Matcher
}

func NewHandlers(q *app.QueryService, langs []string) *Handlers {
	h := &Handlers{Q: q}
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		t, err := shared.ParseLang(l)
		if err != nil {
			continue
		}
		h.langs = append(h.langs, l)
		tags = append(tags, t)
	}
	if len(tags) > 0 {
		h.matcher = language.NewMatcher(tags)
	}
	return h
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/carparks", h.listFacilities)
	s.mux.Get("/v1/carparks/{id}", h.getFacility)
}

// selectLang maps an Accept-Language header onto a configured variant, or "" for all.
func (h *Handlers) selectLang(al string) string {
	if al == "" || h.matcher == nil {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(al)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, conf := h.matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	return h.langs[idx]
}

func (h *Handlers) knownLang(lang string) bool {
	for _, l := range h.langs {
		if l == lang {
			return true
		}
	}
	return false
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any, lang string) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not encode response")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	if lang != "" {
		w.Header().Set("Content-Language", lang)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) getFacility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.selectLang(r.Header.Get("Accept-Language"))
	} else if !h.knownLang(lang) {
		writeProblem(w, http.StatusBadRequest, "Invalid lang", "lang must be one of the configured variants")
		return
	}

	resp, err := h.Q.GetFacility(r.Context(), id, lang)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "carpark not found")
		return
	case err != nil:
		log.Error().Err(err).Str("park_id", id).Msg("getFacility failed")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "snapshot not readable")
		return
	}
	writeJSON(w, r, resp.Facility, resp.Language)
}

func (h *Handlers) listFacilities(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = l
	}
	pg := domain.PageQuery{Limit: limit}
	if c := r.URL.Query().Get("cursor"); c != "" {
		if n, err := strconv.Atoi(c); err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "cursor must come from next_cursor")
			return
		}
		pg.Cursor = &c
	}

	out, err := h.Q.ListFacilities(r.Context(), pg)
	if err != nil {
		log.Error().Err(err).Msg("listFacilities failed")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "snapshot not readable")
		return
	}
	writeJSON(w, r, out, "")
}
