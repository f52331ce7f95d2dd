package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const rateLimitVisitors = 100_000

type RouterOptions struct {
	CORSOrigins []string
	// RateRPS <= 0 disables rate limiting.
	RateRPS   float64
	RateBurst int
}

// NewRouter mounts every endpoint under its short path and its legacy
// /4.7/{name}.php path, for GET and POST.
func NewRouter(h *TrackingHandler, opts RouterOptions) (*chi.Mux, error) {
	log := h.logger()
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog(log))
	r.Use(Recoverer(log))
	r.Use(Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Get("/", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	endpoints := map[string]http.HandlerFunc{
		"hit":         h.Hit,
		"action":      h.Action,
		"checkpoint":  h.Checkpoint,
		"param":       h.Param,
		"sale":        h.Sale,
		"socialproof": h.SocialProof,
	}

	tracking := chi.Chain()
	if opts.RateRPS > 0 {
		rl, err := NewRateLimiter(opts.RateRPS, opts.RateBurst, rateLimitVisitors)
		if err != nil {
			return nil, err
		}
		tracking = chi.Chain(rl.Handler)
	}

	for name, fn := range endpoints {
		handler := tracking.HandlerFunc(fn)
		for _, path := range []string{"/" + name, "/4.7/" + name + ".php"} {
			r.Method(http.MethodGet, path, handler)
			r.Method(http.MethodPost, path, handler)
		}
	}

	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)
	return r, nil
}
