// Package scoring turns feature vectors into the 300–900 trust score.
package scoring

import (
	"math"

	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/numeric"
)

// Sub-score weights in the base blend.
const (
	WeightFinancialStability = 0.35
	WeightPaymentDiscipline  = 0.30
	WeightDigitalBehavior    = 0.20
	WeightWorkReliability    = 0.15
)

// Components are the 0–100 inputs behind each sub-score.
type Components struct {
	IncomeStability float64 `json:"detail_income_stability"`
	CashFlow        float64 `json:"detail_cash_flow"`
	Savings         float64 `json:"detail_savings"`
	TrendBonus      float64 `json:"detail_trend_bonus"`

	Utility  float64 `json:"detail_utility"`
	EMI      float64 `json:"detail_emi"`
	Recharge float64 `json:"detail_recharge"`

	TxnRegularity float64 `json:"detail_txn_regularity"`
	Expense       float64 `json:"detail_expense"`

	WorkReliability float64 `json:"detail_work_rel"`
	Diversity       float64 `json:"detail_diversity"`
	ShockRecovery   float64 `json:"detail_shock_recovery"`
}

// SubScores are the four weighted sub-scores, each in [0,100].
type SubScores struct {
	FinancialStability float64    `json:"sub_financial_stability"`
	PaymentDiscipline  float64    `json:"sub_payment_discipline"`
	DigitalBehavior    float64    `json:"sub_digital_behavior"`
	WorkReliability    float64    `json:"sub_work_reliability"`
	Components         Components `json:"components"`
}

func subScore(raw float64) float64 {
	return numeric.Round(numeric.Clamp(raw, 0, 100), 2)
}

// ComputeSubScores derives the four sub-scores from a feature vector and
// the applicant's recharge regularity.
func ComputeSubScores(v features.Vector, rechargeRegularity float64) SubScores {
	c := Components{
		IncomeStability: v.IncomeStability * 100,
		CashFlow:        v.CashFlowRatio * 100,
		Savings:         v.SavingsScore * 100,
		TrendBonus:      math.Max(v.IncomeTrend*10, 0),

		Utility:  v.UtilityScore * 100,
		EMI:      v.EMIScore * 100,
		Recharge: rechargeRegularity * 100,

		TxnRegularity: v.TxnRegularity * 100,
		Expense:       v.ExpenseScore * 100,

		WorkReliability: v.WorkReliability * 100,
		Diversity:       v.IncomeDiversity * 100,
		ShockRecovery:   v.ShockRecovery * 100,
	}

	s := SubScores{
		FinancialStability: subScore(c.IncomeStability*0.40 + c.CashFlow*0.35 + c.Savings*0.25 + c.TrendBonus),
		PaymentDiscipline:  subScore(c.Utility*0.40 + c.EMI*0.35 + c.Recharge*0.25),
		DigitalBehavior:    subScore(c.TxnRegularity*0.50 + c.Expense*0.50),
		WorkReliability:    subScore(c.WorkReliability*0.45 + c.Diversity*0.25 + c.ShockRecovery*0.30),
	}

	for _, p := range []*float64{
		&c.IncomeStability, &c.CashFlow, &c.Savings, &c.TrendBonus,
		&c.Utility, &c.EMI, &c.Recharge, &c.TxnRegularity, &c.Expense,
		&c.WorkReliability, &c.Diversity, &c.ShockRecovery,
	} {
		*p = numeric.Round(*p, 2)
	}
	s.Components = c
	return s
}

// Blend100 is the weighted sum of the sub-scores on a 0–100 scale.
func (s SubScores) Blend100() float64 {
	return s.FinancialStability*WeightFinancialStability +
		s.PaymentDiscipline*WeightPaymentDiscipline +
		s.DigitalBehavior*WeightDigitalBehavior +
		s.WorkReliability*WeightWorkReliability
}

// BreakdownItem is one labelled component value.
type BreakdownItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// BreakdownGroup is a sub-score with its weight and components.
type BreakdownGroup struct {
	Name       string          `json:"name"`
	Score      float64         `json:"score"`
	Weight     string          `json:"weight"`
	Components []BreakdownItem `json:"components"`
}

// Breakdown lists the sub-scores in display order.
func (s SubScores) Breakdown() []BreakdownGroup {
	c := s.Components
	return []BreakdownGroup{
		{
			Name: "Financial Stability", Score: s.FinancialStability, Weight: "35%",
			Components: []BreakdownItem{
				{"Income Stability", c.IncomeStability},
				{"Cash Flow Health", c.CashFlow},
				{"Savings Discipline", c.Savings},
				{"Income Trend Bonus", c.TrendBonus},
			},
		},
		{
			Name: "Payment Discipline", Score: s.PaymentDiscipline, Weight: "30%",
			Components: []BreakdownItem{
				{"Utility Bill Timeliness", c.Utility},
				{"EMI-like Behavior", c.EMI},
				{"Recharge Regularity", c.Recharge},
			},
		},
		{
			Name: "Digital Behavior", Score: s.DigitalBehavior, Weight: "20%",
			Components: []BreakdownItem{
				{"Transaction Regularity", c.TxnRegularity},
				{"Essential Expense Ratio", c.Expense},
			},
		},
		{
			Name: "Work Reliability", Score: s.WorkReliability, Weight: "15%",
			Components: []BreakdownItem{
				{"Platform Performance", c.WorkReliability},
				{"Income Diversity", c.Diversity},
				{"Shock Recovery", c.ShockRecovery},
			},
		},
	}
}
