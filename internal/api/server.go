package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/metrics"
)

// Server is the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer wires the routes.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Post("/score", handler.Score)
		r.Post("/score/batch", handler.ScoreBatch)
		r.Get("/assessments/{id}", handler.GetAssessment)

		r.Get("/personas", handler.ListPersonas)
		r.Get("/personas/{persona}/form", handler.PersonaForm)
		r.Post("/personas/{persona}/score", handler.ScorePersona)

		r.Post("/loans/recommend", handler.RecommendLoans)
		r.Post("/loans/check", handler.CheckLoan)
		r.Post("/loans/compare", handler.CompareLoans)
		r.Get("/loans/search", handler.SearchLoans)
		r.Get("/loans/catalog", handler.LoanCatalog)
		r.Get("/loans/categories", handler.LoanCategories)
		r.Get("/tiers/{score}", handler.Tier)
		r.Post("/emi", handler.EMI)
		r.Post("/tips", handler.FinancialTips)
		r.Get("/seasonal", handler.SeasonalLoans)

		r.Get("/risk-rules", handler.ListRiskRules)
		r.Post("/risk-rules", handler.CreateRiskRule)
		r.Post("/risk-rules/reload", handler.ReloadRiskRules)
		r.Get("/risk-rules/{id}", handler.GetRiskRule)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler.
func (s *Server) Handler() *Handler {
	return s.handler
}
