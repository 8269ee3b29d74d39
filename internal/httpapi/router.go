// Package httpapi exposes the covid screens as a read-only JSON API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/metrics"
	"github.com/ilyalavrinov/covidstats/internal/screen"
)

// Loader is what the handlers need from the country loader.
type Loader interface {
	screen.CountryLoader
	screen.Comparer
}

// NewRouter wires every endpoint. gatherer may be nil to skip /metrics.
func NewRouter(loader Loader, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := NewHandler(loader)

	r.Get("/health", h.Health)
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/countries", h.ListCountries)
		r.Get("/countries/{name}", h.GetCountry)
		r.Get("/compare", h.Compare)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start),
			"requestID": middleware.GetReqID(r.Context()),
		}).Info("HTTP request served")
	})
}
