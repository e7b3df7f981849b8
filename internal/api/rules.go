package api

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/credivist/internal/domain"
)

// ListRiskRules returns the rules loaded in the CEL risk oracle.
func (h *Handler) ListRiskRules(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, http.StatusServiceUnavailable, "risk rules not available")
		return
	}

	loaded := h.rules.LoadedRules()
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRiskRule returns one loaded rule.
func (h *Handler) GetRiskRule(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, http.StatusServiceUnavailable, "risk rules not available")
		return
	}

	id := chi.URLParam(r, "id")
	for _, rule := range h.rules.LoadedRules() {
		if rule.ID == id {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}
	writeError(w, http.StatusNotFound, "risk rule not found")
}

// CreateRiskRuleRequest is the body of POST /risk-rules.
type CreateRiskRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Weight      float64           `json:"weight"`
	Enabled     bool              `json:"enabled"`
}

// CreateRiskRule validates and stores a global rule. It takes effect after
// POST /risk-rules/reload.
func (h *Handler) CreateRiskRule(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil || h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "risk rules not available")
		return
	}

	var req CreateRiskRuleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeError(w, http.StatusBadRequest, "id, name, and expression are required")
		return
	}
	if req.Version == "" {
		req.Version = "1.0.0"
	}
	if req.Weight <= 0 {
		req.Weight = 1
	}

	rule := &domain.RiskRule{
		ID:          req.ID,
		TenantID:    domain.GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}
	if err := h.rules.ValidateRule(rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.SaveRiskRule(r.Context(), domain.GlobalTenantID, rule); err != nil {
		slog.Error("failed to save risk rule", "id", rule.ID, "error", err)
		writeError(w, statusFor(err), "failed to save risk rule")
		return
	}

	slog.Info("risk rule created", "id", rule.ID, "version", rule.Version)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": "Rule saved. Call POST /risk-rules/reload to apply changes.",
	})
}

// ReloadRiskRules swaps the oracle's rules for the stored global set.
func (h *Handler) ReloadRiskRules(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil || h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "risk rules not available")
		return
	}

	stored, err := h.repo.ListRiskRules(r.Context(), domain.GlobalTenantID)
	if err != nil {
		slog.Error("failed to list risk rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load risk rules")
		return
	}
	if err := h.rules.ReloadRules(stored); err != nil {
		slog.Error("failed to reload risk rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload risk rules: "+err.Error())
		return
	}

	slog.Info("risk rules reloaded", "count", h.rules.RulesCount())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "risk rules reloaded",
		"count":   h.rules.RulesCount(),
	})
}
