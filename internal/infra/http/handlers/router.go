package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/infra/http/middleware"
)

type RouterDeps struct {
	Leads          *LeadHandler
	Geo            *GeoHandler
	Health         *HealthHandler
	Board          http.Handler // hub websocket; nil desliga /ws/leads
	ScoringSecret  string
	AllowedOrigins []string
	TrustProxy     bool // liga chimw.RealIP; sem proxy na frente os cabeçalhos vêm do cliente
	Logger         *zap.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.L()
	}

	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", actingUserHeader},
		MaxAge:         300,
	}))

	r.Get("/health", deps.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())
	if deps.Board != nil {
		r.Handle("/ws/leads", deps.Board)
	}

	r.Route("/leads", func(r chi.Router) {
		r.Post("/", deps.Leads.CaptureLead)
		r.Get("/", deps.Leads.ListLeads)
		r.Get("/stats", deps.Leads.Stats)
		r.Get("/geo-distribution", deps.Leads.GeoDistribution)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", deps.Leads.GetLead)
			r.Post("/transition", deps.Leads.Transition)
			r.Post("/assign", deps.Leads.Assign)
			r.Post("/interactions", deps.Leads.AddInteraction)
			r.With(RequireSignature(deps.ScoringSecret)).Put("/scoring", deps.Leads.ApplyScoring)
		})
	})

	r.Route("/geo", func(r chi.Router) {
		r.Post("/resolve", deps.Geo.Resolve)
		r.Post("/distribution", deps.Geo.Distribution)
	})

	return r
}
