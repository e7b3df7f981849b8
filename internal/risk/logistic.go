package risk

import (
	"context"
	"math"

	"github.com/opensource-finance/credivist/internal/features"
)

// Term is one standardized logistic-regression input.
type Term struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
	Coef  float64 `json:"coef"`
}

// Logistic is an inference-only logistic regression over the model row.
// Each model feature is standardized with its Term before weighting.
// Features missing from the row, or not finite, are read as zero.
type Logistic struct {
	Intercept float64         `json:"intercept"`
	Terms     map[string]Term `json:"terms"`
}

// DefaultLogistic returns the bundled coefficient table.
func DefaultLogistic() *Logistic {
	return &Logistic{
		Intercept: -1.6,
		Terms: map[string]Term{
			"feat_income_stability": {Mean: 0.75, Scale: 0.15, Coef: -0.90},
			"feat_income_trend":     {Mean: 0, Scale: 0.10, Coef: -0.25},
			"feat_cash_flow_ratio":  {Mean: 0.35, Scale: 0.20, Coef: -0.80},
			"feat_income_diversity": {Mean: 0.40, Scale: 0.20, Coef: -0.20},
			"feat_utility_score":    {Mean: 0.70, Scale: 0.20, Coef: -0.85},
			"feat_emi_score":        {Mean: 0.55, Scale: 0.20, Coef: -0.50},
			"feat_txn_regularity":   {Mean: 0.60, Scale: 0.20, Coef: -0.35},
			"feat_expense_score":    {Mean: 0.55, Scale: 0.15, Coef: -0.30},
			"feat_savings_score":    {Mean: 0.45, Scale: 0.25, Coef: -0.60},
			"feat_work_reliability": {Mean: 0.60, Scale: 0.15, Coef: -0.45},
			"feat_shock_recovery":   {Mean: 0.75, Scale: 0.10, Coef: -0.30},
			"recharge_regularity":   {Mean: 0.65, Scale: 0.20, Coef: -0.25},
			"mean_income":           {Mean: 22000, Scale: 9000, Coef: -0.30},
			"income_std":            {Mean: 3000, Scale: 2000, Coef: 0.25},
			"num_income_sources":    {Mean: 2, Scale: 1, Coef: -0.10},
			"tenure_months":         {Mean: 18, Scale: 12, Coef: -0.20},
			"platform_rating":       {Mean: 4.1, Scale: 0.5, Coef: -0.20},
			"active_days_per_month": {Mean: 20, Scale: 6, Coef: -0.10},
			"avg_monthly_savings":   {Mean: 2000, Scale: 1500, Coef: -0.20},
			"total_transactions":    {Mean: 90, Scale: 40, Coef: -0.10},
		},
	}
}

func (l *Logistic) Name() string { return "logistic" }

func (l *Logistic) Predict(_ context.Context, in *Input) (float64, error) {
	return l.Probability(in.Features), nil
}

// Probability evaluates the model for one row.
func (l *Logistic) Probability(row features.ModelRow) float64 {
	z := l.Intercept
	for _, name := range features.ModelFeatures {
		t, ok := l.Terms[name]
		if !ok {
			continue
		}
		x, ok := row[name]
		if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		scale := t.Scale
		if scale == 0 {
			scale = 1
		}
		z += t.Coef * (x - t.Mean) / scale
	}
	return 1 / (1 + math.Exp(-z))
}
