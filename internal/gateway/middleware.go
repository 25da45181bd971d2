// Package gateway exposes the prediction-market instruction surface over
// HTTP: a chi.Router (grounded on nhbchain's gateway/routes.New) fronting
// the internal/market.Engine, with a zerolog access-log middleware standing
// in for that repo's Observability middleware.
package gateway

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// accessLog logs one structured line per request: method, path, status and
// latency, the way a chi-fronted service in this pack typically does.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
