package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/credivist/internal/bus"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/scoring"
)

// MaxBatchSize bounds POST /score/batch.
const MaxBatchSize = 500

// ScoreResponse is the body of POST /score.
type ScoreResponse struct {
	AssessmentID string `json:"assessment_id,omitempty"`
	*scoring.Result
}

// Score handles POST /score. With ?async=true the record is queued on the
// event bus and 202 is returned.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var raw json.RawMessage
	if err := decode(w, r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var rec features.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record: "+err.Error())
		return
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("async") == "true" {
		h.enqueue(w, r, rec.ApplicantID, raw)
		return
	}

	res, err := h.scorer.Score(ctx, tenantID, &rec)
	if err != nil {
		slog.Error("scoring failed", "tenant_id", tenantID, "applicant_id", rec.ApplicantID, "error", err)
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	writeJSON(w, http.StatusOK, ScoreResponse{
		AssessmentID: h.persist(r, res),
		Result:       res,
	})
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, applicantID string, raw json.RawMessage) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	req := domain.AssessmentRequest{
		RequestID:   uuid.New().String(),
		ApplicantID: applicantID,
		Record:      raw,
	}
	if err := bus.PublishJSON(r.Context(), h.bus, GetTenantID(r.Context()), domain.TopicAssessmentRequested, req); err != nil {
		slog.Error("failed to queue assessment", "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to queue assessment")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"request_id": req.RequestID,
		"status":     "accepted",
		"topic":      domain.TopicAssessmentCompleted,
	})
}

// persist stores a transaction assessment and returns its id, or "" when it
// could not be stored.
func (h *Handler) persist(r *http.Request, res *scoring.Result) string {
	tenantID := GetTenantID(r.Context())
	a, err := res.Assessment(tenantID)
	if err != nil {
		slog.Error("failed to build assessment", "error", err)
		return ""
	}
	a.Metadata.TraceID = GetTraceID(r.Context())

	if err := h.store.Save(r.Context(), tenantID, a); err != nil {
		slog.Error("failed to save assessment", "tenant_id", tenantID, "error", err)
		return ""
	}
	return a.ID
}

// BatchRequest is the body of POST /score/batch.
type BatchRequest struct {
	Records []*features.Record `json:"records"`
}

// BatchResponse is the body of POST /score/batch.
type BatchResponse struct {
	Results   []BatchResult `json:"results"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// BatchResult is one scored record of a batch.
type BatchResult struct {
	scoring.BatchItem
	AssessmentID string `json:"assessment_id,omitempty"`
}

// ScoreBatch handles POST /score/batch.
func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records must not be empty")
		return
	}
	if len(req.Records) > MaxBatchSize {
		writeError(w, http.StatusBadRequest, "at most 500 records per batch")
		return
	}

	items := h.scorer.ScoreBatch(r.Context(), GetTenantID(r.Context()), req.Records, h.scoring.BatchWorkers)

	resp := BatchResponse{Results: make([]BatchResult, len(items)), Total: len(items)}
	for i, item := range items {
		resp.Results[i] = BatchResult{BatchItem: item}
		if item.Result == nil {
			resp.Failed++
			continue
		}
		resp.Succeeded++
		resp.Results[i].AssessmentID = h.persist(r, item.Result)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAssessment handles GET /assessments/{id}.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	a, err := h.store.Get(ctx, tenantID, id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to get assessment", "id", id, "error", err)
		}
		writeError(w, status, "assessment not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
