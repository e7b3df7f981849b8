// Package api serves the CrediVist HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/opensource-finance/credivist/internal/assessments"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/loan"
	"github.com/opensource-finance/credivist/internal/persona"
	"github.com/opensource-finance/credivist/internal/repository"
	"github.com/opensource-finance/credivist/internal/risk"
	"github.com/opensource-finance/credivist/internal/scoring"
)

// maxBodyBytes bounds request bodies; batch requests are the largest.
const maxBodyBytes = 8 << 20

// Deps are the services behind the handlers. Repo, Cache, Bus and Rules may
// be nil.
type Deps struct {
	Repo    domain.Repository
	Cache   domain.Cache
	Bus     domain.EventBus
	Store   *assessments.Store
	Scorer  *scoring.Scorer
	Rules   *risk.RuleOracle
	Scoring domain.ScoringConfig
	Version string
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	store   *assessments.Store
	scorer  *scoring.Scorer
	rules   *risk.RuleOracle
	scoring domain.ScoringConfig
	version string
}

// NewHandler creates the API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		repo:    d.Repo,
		cache:   d.Cache,
		bus:     d.Bus,
		store:   d.Store,
		scorer:  d.Scorer,
		rules:   d.Rules,
		scoring: d.Scoring,
		version: d.Version,
	}
	if h.store == nil {
		h.store = assessments.NewStore(d.Repo, d.Cache, d.Scoring.AssessmentTTL)
	}
	if h.scorer == nil {
		h.scorer = scoring.NewScorer(nil)
	}
	return h
}

// Health reports dependency health. It always answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	status := "healthy"

	checkDep := func(name string, ping func() error) {
		if err := ping(); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			return
		}
		checks[name] = "ok"
	}
	if h.repo != nil {
		checkDep("repository", func() error { return h.repo.Ping(ctx) })
	}
	if h.cache != nil {
		checkDep("cache", func() error { return h.cache.Ping(ctx) })
	}
	if h.bus != nil {
		checkDep("eventBus", func() error { return h.bus.Ping(ctx) })
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version,
		"oracle":  h.scorer.Oracle().Name(),
		"checks":  checks,
	})
}

// Ready answers 503 until the repository is reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
				"error": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"ready": "true"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v. Unknown fields are allowed.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON request body: %w", err)
	}
	return nil
}

// statusFor maps package sentinels onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, persona.ErrUnknownPersona),
		errors.Is(err, loan.ErrLoanNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, persona.ErrInvalidData),
		errors.Is(err, risk.ErrInvalidRule),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, assessments.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
