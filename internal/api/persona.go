package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/loan"
	"github.com/opensource-finance/credivist/internal/metrics"
	"github.com/opensource-finance/credivist/internal/persona"
)

// ListPersonas handles GET /personas.
func (h *Handler) ListPersonas(w http.ResponseWriter, r *http.Request) {
	profiles := persona.Profiles()
	writeJSON(w, http.StatusOK, map[string]any{
		"personas": profiles,
		"count":    len(profiles),
	})
}

// PersonaForm handles GET /personas/{persona}/form.
func (h *Handler) PersonaForm(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "persona")

	sections, err := persona.Form(key)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	schema, err := persona.Schema(key)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"persona":  key,
		"sections": sections,
		"schema":   schema,
	})
}

// PersonaScoreRequest is the body of POST /personas/{persona}/score.
type PersonaScoreRequest struct {
	ApplicantID string        `json:"user_id"`
	Data        persona.Input `json:"persona_data"`
}

// PersonaScoreResponse is the body of POST /personas/{persona}/score.
type PersonaScoreResponse struct {
	AssessmentID string `json:"assessment_id,omitempty"`
	*persona.Result
	Tips     []persona.Tip         `json:"tips"`
	Seasonal []loan.SeasonalAdvice `json:"seasonal,omitempty"`
}

// ScorePersona handles POST /personas/{persona}/score.
func (h *Handler) ScorePersona(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	key := chi.URLParam(r, "persona")

	var req PersonaScoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := persona.Validate(key, req.Data); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	res, err := persona.Score(key, req.Data)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := PersonaScoreResponse{
		Result:   res,
		Tips:     persona.Tips(res),
		Seasonal: loan.Seasonal(key, currentMonth()),
	}
	if resp.Tips == nil {
		resp.Tips = []persona.Tip{}
	}

	a, err := res.Assessment(tenantID, req.ApplicantID)
	if err == nil {
		a.Metadata.TraceID = GetTraceID(ctx)
		err = h.store.Save(ctx, tenantID, a)
	}
	if err != nil {
		slog.Error("failed to save persona assessment", "tenant_id", tenantID, "persona", key, "error", err)
	} else {
		resp.AssessmentID = a.ID
	}
	metrics.AssessmentDuration.WithLabelValues(string(domain.SourcePersona)).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, resp)
}
