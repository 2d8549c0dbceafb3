package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"carpark_aggregator/internal/adapters/observability"
)

// Access records one metric sample and one log line per request. Carpark
// lookups also log the requested park id and language variant.
func Access(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			took := time.Since(start)
			rctx := chi.RouteContext(r.Context())
			route := rctx.RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			observability.ObserveHTTP(route, r.Method, status, took)

			ev := l.Info()
			switch {
			case status >= 500:
				ev = l.Error()
			case status == http.StatusNotFound:
				ev = l.Debug()
			}
			ev = ev.Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("took", took).
				Str("remote", r.RemoteAddr).
				Str("request_id", chimw.GetReqID(r.Context()))
			if id := rctx.URLParam("id"); id != "" {
				ev = ev.Str("park_id", id)
			}
			if lang := w.Header().Get("Content-Language"); lang != "" {
				ev = ev.Str("lang", lang)
			}
			ev.Msg("carpark api request")
		})
	}
}
