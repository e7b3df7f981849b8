package api

import (
	"fmt"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/credivist/internal/loan"
	"github.com/opensource-finance/credivist/internal/metrics"
	"github.com/opensource-finance/credivist/internal/numeric"
	"github.com/opensource-finance/credivist/internal/persona"
	"github.com/opensource-finance/credivist/internal/scoring"
)

// RecommendRequest is the body of the loan recommendation, comparison and
// tips endpoints. Persona selects the persona path.
type RecommendRequest struct {
	Score           float64       `json:"score"`
	MonthlyIncome   float64       `json:"monthly_income"`
	MonthlyExpenses float64       `json:"monthly_expenses"`
	ExistingEMI     float64       `json:"existing_emi"`
	Persona         string        `json:"persona,omitempty"`
	PersonaData     persona.Input `json:"persona_data,omitempty"`
}

func (req RecommendRequest) validate() error {
	if req.Score < scoring.MinScore || req.Score > scoring.MaxScore {
		return errors.New("score must be within 300-900")
	}
	if req.MonthlyIncome < 0 || req.MonthlyExpenses < 0 || req.ExistingEMI < 0 {
		return errors.New("income, expenses and existing_emi must not be negative")
	}
	return nil
}

func (req RecommendRequest) bundle() (*loan.Bundle, error) {
	if req.Persona != "" {
		return loan.RecommendPersona(loan.PersonaRequest{
			Persona:       req.Persona,
			Score:         req.Score,
			Data:          req.PersonaData,
			MonthlyIncome: req.MonthlyIncome,
		})
	}
	return loan.RecommendTransaction(loan.TransactionRequest{
		Score:           req.Score,
		MonthlyIncome:   req.MonthlyIncome,
		MonthlyExpenses: req.MonthlyExpenses,
		ExistingEMI:     req.ExistingEMI,
	}), nil
}

func (h *Handler) decodeBundle(w http.ResponseWriter, r *http.Request) (*RecommendRequest, *loan.Bundle, bool) {
	var req RecommendRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	b, err := req.bundle()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil, nil, false
	}
	return &req, b, true
}

// RecommendLoans handles POST /loans/recommend.
func (h *Handler) RecommendLoans(w http.ResponseWriter, r *http.Request) {
	if _, b, ok := h.decodeBundle(w, r); ok {
		writeJSON(w, http.StatusOK, b)
	}
}

// CompareLoans handles POST /loans/compare.
func (h *Handler) CompareLoans(w http.ResponseWriter, r *http.Request) {
	_, b, ok := h.decodeBundle(w, r)
	if !ok {
		return
	}
	ranked := loan.Compare(b.EligibleLoans)
	writeJSON(w, http.StatusOK, map[string]any{
		"comparison":     ranked,
		"count":          len(ranked),
		"total_eligible": b.TotalEligible,
	})
}

// FinancialTips handles POST /tips.
func (h *Handler) FinancialTips(w http.ResponseWriter, r *http.Request) {
	req, b, ok := h.decodeBundle(w, r)
	if !ok {
		return
	}
	tips := loan.FinancialTips(req.Persona, req.Score, b.EligibleLoans)
	writeJSON(w, http.StatusOK, map[string]any{
		"tips":  tips,
		"count": len(tips),
	})
}

// CheckLoan handles POST /loans/check. An unknown product answers 404 with
// the LOAN_NOT_FOUND result as body.
func (h *Handler) CheckLoan(w http.ResponseWriter, r *http.Request) {
	var req loan.CheckRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "loan_key is required")
		return
	}
	if req.Source == "" {
		req.Source = loan.SourceTransaction
		if req.Persona != "" {
			req.Source = loan.SourcePersona
		}
	}

	res, err := loan.CheckEligibility(req)
	if res != nil {
		metrics.LoanVerdicts.WithLabelValues(string(res.Verdict)).Inc()
	}
	if err != nil {
		if res != nil && errors.Is(err, loan.ErrLoanNotFound) {
			writeJSON(w, http.StatusNotFound, res)
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SearchLoans handles GET /loans/search.
func (h *Handler) SearchLoans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := loan.SearchQuery{
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Source:      loan.Source(q.Get("source")),
		Persona:     q.Get("persona"),
		Collateral:  q.Get("collateral"),
		SubsidyOnly: q.Get("subsidy_only") == "true",
	}

	var err error
	if query.MaxRate, err = floatParam(q.Get("max_rate")); err != nil {
		writeError(w, http.StatusBadRequest, "max_rate must be a number")
		return
	}
	if query.MinAmount, err = floatParam(q.Get("min_amount")); err != nil {
		writeError(w, http.StatusBadRequest, "min_amount must be a number")
		return
	}
	switch query.Collateral {
	case loan.CollateralAny, loan.CollateralYes, loan.CollateralNo:
	default:
		writeError(w, http.StatusBadRequest, "collateral must be yes or no")
		return
	}

	products := loan.Search(query)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": products,
		"count":   len(products),
	})
}

func floatParam(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// LoanCatalog handles GET /loans/catalog.
func (h *Handler) LoanCatalog(w http.ResponseWriter, r *http.Request) {
	products := loan.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"loans": products,
		"count": len(products),
	})
}

// LoanCategories handles GET /loans/categories.
func (h *Handler) LoanCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": loan.Categories(),
	})
}

// Tier handles GET /tiers/{score}.
func (h *Handler) Tier(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.ParseFloat(chi.URLParam(r, "score"), 64)
	if err != nil || score < scoring.MinScore || score > scoring.MaxScore {
		writeError(w, http.StatusBadRequest, "score must be a number within 300-900")
		return
	}
	writeJSON(w, http.StatusOK, loan.TierFor(score))
}

// EMIRequest is the body of POST /emi.
type EMIRequest struct {
	Principal    float64 `json:"principal"`
	AnnualRate   float64 `json:"annual_rate"`
	TenureMonths int     `json:"tenure_months"`
	Schedule     bool    `json:"schedule"`
	StartMonth   string  `json:"start_month,omitempty"`
}

// EMIResponse is the body of POST /emi.
type EMIResponse struct {
	EMI           float64            `json:"emi"`
	TotalInterest float64            `json:"total_interest"`
	TotalPayable  float64            `json:"total_payable"`
	Schedule      []loan.Installment `json:"schedule,omitempty"`
}

// EMI handles POST /emi.
func (h *Handler) EMI(w http.ResponseWriter, r *http.Request) {
	var req EMIRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Principal <= 0 || req.TenureMonths <= 0 || req.AnnualRate < 0 {
		writeError(w, http.StatusBadRequest, "principal and tenure_months must be positive and annual_rate not negative")
		return
	}
	if req.TenureMonths > loan.MaxTenureMonths {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("tenure_months must not exceed %d", loan.MaxTenureMonths))
		return
	}

	emi := loan.EMI(req.Principal, req.AnnualRate, req.TenureMonths)
	interest := loan.TotalInterest(req.Principal, req.AnnualRate, req.TenureMonths)
	resp := EMIResponse{
		EMI:           emi,
		TotalInterest: interest,
		TotalPayable:  numeric.Round(req.Principal+interest, 2),
	}
	if req.Schedule {
		start := req.StartMonth
		if start == "" {
			start = h.scoring.ScheduleStart
		}
		resp.Schedule = loan.Schedule(req.Principal, req.AnnualRate, req.TenureMonths, loan.ParseMonth(start))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SeasonalLoans handles GET /seasonal. The month defaults to the current
// one and the persona to farmer.
func (h *Handler) SeasonalLoans(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = currentMonth()
	}
	personaKey := r.URL.Query().Get("persona")
	if personaKey == "" {
		personaKey = persona.Farmer
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month":           month,
		"persona":         personaKey,
		"recommendations": loan.Seasonal(personaKey, month),
		"calendar":        loan.Seasons(),
	})
}

func currentMonth() string {
	return time.Now().Format("Jan")
}
