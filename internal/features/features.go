package features

import (
	"math"

	"github.com/opensource-finance/credivist/internal/numeric"
)

// CashFlowCategory labels the cash-flow ratio.
type CashFlowCategory string

const (
	CashFlowStrong   CashFlowCategory = "Strong"
	CashFlowModerate CashFlowCategory = "Moderate"
	CashFlowRisk     CashFlowCategory = "Risk"
)

// ExpenseRisk labels the essential-spend ratio.
type ExpenseRisk string

const (
	ExpenseRiskLow    ExpenseRisk = "Low"
	ExpenseRiskMedium ExpenseRisk = "Medium"
	ExpenseRiskHigh   ExpenseRisk = "High"
)

// Shock severities.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// NeverShockedResilience is the resilience given to an income history with no
// detected shock. It stays below 1.0: resilience that was never tested is not
// scored as proven.
const NeverShockedResilience = 0.85

const (
	shockRatio        = 0.85
	severeRatio       = 0.5
	moderateRatio     = 0.7
	recoveryThreshold = 0.9
	flatTrajectory    = 0.3
)

// StabilityResult is the income stability signal.
type StabilityResult struct {
	StabilityScore float64 `json:"stability_score"`
	IncomeTrend    float64 `json:"income_trend"`
	MeanIncome     float64 `json:"mean_income"`
	IncomeStd      float64 `json:"income_std"`
}

// IncomeStability scores 1 - std/mean of the income history and its
// mean-normalized linear trend.
func IncomeStability(incomes []float64) StabilityResult {
	if len(incomes) == 0 {
		return StabilityResult{}
	}
	mean := numeric.Mean(incomes)
	std := numeric.Std(incomes)
	stability := numeric.Clamp01(1 - std/(mean+numeric.Epsilon))
	if mean <= 0 {
		stability = 0
	}
	trend := numeric.Clamp(numeric.Slope(incomes)/(mean+numeric.Epsilon), -1, 1)

	return StabilityResult{
		StabilityScore: numeric.Round(stability, 4),
		IncomeTrend:    numeric.Round(trend, 4),
		MeanIncome:     numeric.Round(mean, 2),
		IncomeStd:      numeric.Round(std, 2),
	}
}

// CashFlowResult is the cash-flow health signal.
type CashFlowResult struct {
	Ratio    float64          `json:"ratio"`
	Category CashFlowCategory `json:"category"`
}

// CashFlowHealth scores (income - fixed expenses) / income.
func CashFlowHealth(income, fixedExpenses float64) CashFlowResult {
	ratio := numeric.Clamp01((income - fixedExpenses) / (income + numeric.Epsilon))
	category := CashFlowRisk
	switch {
	case ratio > 0.4:
		category = CashFlowStrong
	case ratio >= 0.2:
		category = CashFlowModerate
	}
	return CashFlowResult{Ratio: numeric.Round(ratio, 4), Category: category}
}

// DiversityResult is the income-source diversity signal.
type DiversityResult struct {
	NumSources     int     `json:"num_sources"`
	DiversityScore float64 `json:"diversity_score"`
	IsDiversified  bool    `json:"is_diversified"`
}

// IncomeDiversity scores the number of income sources against a cap of five.
func IncomeDiversity(numSources int) DiversityResult {
	score := math.Max(numeric.MinRatio(float64(numSources), 5), 0)
	return DiversityResult{
		NumSources:     numSources,
		DiversityScore: numeric.Round(score, 4),
		IsDiversified:  numSources > 1,
	}
}

// UtilityResult is the bill timeliness signal.
type UtilityResult struct {
	OnTimeRate   float64 `json:"on_time_rate"`
	DelayPenalty float64 `json:"delay_penalty"`
	UtilityScore float64 `json:"utility_score"`
}

// UtilityTimeliness scores the on-time rate minus 0.02 per average delay day.
func UtilityTimeliness(onTime, totalBills int, avgDelayDays float64) UtilityResult {
	rate := float64(onTime) / (float64(totalBills) + numeric.Epsilon)
	penalty := 0.02 * avgDelayDays
	score := math.Max(rate-penalty, 0)
	return UtilityResult{
		OnTimeRate:   numeric.Round(rate, 4),
		DelayPenalty: numeric.Round(penalty, 4),
		UtilityScore: numeric.Round(score, 4),
	}
}

// EMIResult is the recurring-payment signal.
type EMIResult struct {
	RecurringPayments int     `json:"recurring_payments"`
	Consistency       float64 `json:"consistency"`
	EMIScore          float64 `json:"emi_score"`
}

// EMIPattern blends the recurring-payment count (capped at five) with payment
// consistency.
func EMIPattern(recurring int, consistency float64) EMIResult {
	norm := math.Max(numeric.MinRatio(float64(recurring), 5), 0)
	score := norm*0.5 + consistency*0.5
	return EMIResult{
		RecurringPayments: recurring,
		Consistency:       numeric.Round(consistency, 4),
		EMIScore:          numeric.Round(score, 4),
	}
}

// RegularityResult is the transaction regularity signal.
type RegularityResult struct {
	RegularityScore float64 `json:"regularity_score"`
	VolumeFactor    float64 `json:"volume_factor"`
	AdjustedScore   float64 `json:"adjusted_score"`
}

// TransactionRegularity blends weekly-count regularity with transaction volume
// capped at 150.
func TransactionRegularity(regularity float64, totalTransactions int) RegularityResult {
	volume := math.Max(numeric.MinRatio(float64(totalTransactions), 150), 0)
	adjusted := regularity*0.7 + volume*0.3
	return RegularityResult{
		RegularityScore: numeric.Round(regularity, 4),
		VolumeFactor:    numeric.Round(volume, 4),
		AdjustedScore:   numeric.Round(adjusted, 4),
	}
}

// ExpenseResult is the essential-spend signal.
type ExpenseResult struct {
	EssentialRatio float64     `json:"essential_ratio"`
	RiskLevel      ExpenseRisk `json:"risk_level"`
	ExpenseScore   float64     `json:"expense_score"`
}

// ExpenseCategorization labels the essential share of total spend.
func ExpenseCategorization(essentialRatio float64) ExpenseResult {
	level := ExpenseRiskHigh
	switch {
	case essentialRatio >= 0.65:
		level = ExpenseRiskLow
	case essentialRatio >= 0.45:
		level = ExpenseRiskMedium
	}
	return ExpenseResult{
		EssentialRatio: numeric.Round(essentialRatio, 4),
		RiskLevel:      level,
		ExpenseScore:   numeric.Round(numeric.Clamp01(essentialRatio), 4),
	}
}

// SavingsResult is the savings discipline signal.
type SavingsResult struct {
	SavingsRate          float64 `json:"savings_rate"`
	HasRecurringSavings  bool    `json:"has_recurring_savings"`
	MinBalanceMaintained bool    `json:"min_balance_maintained"`
	SavingsScore         float64 `json:"savings_score"`
}

// SavingsBehavior scores recurring savings, minimum balance and the savings
// rate.
func SavingsBehavior(recurring, minBalance bool, avgSavings, income float64) SavingsResult {
	rate := numeric.Clamp01(avgSavings / (income + numeric.Epsilon))
	score := 0.4 * rate
	if recurring {
		score += 0.3
	}
	if minBalance {
		score += 0.3
	}
	return SavingsResult{
		SavingsRate:          numeric.Round(rate, 4),
		HasRecurringSavings:  recurring,
		MinBalanceMaintained: minBalance,
		SavingsScore:         numeric.Round(score, 4),
	}
}

// WorkResult is the gig-platform reliability signal.
type WorkResult struct {
	TenureScore          float64 `json:"tenure_score"`
	RatingScore          float64 `json:"rating_score"`
	ActivityScore        float64 `json:"activity_score"`
	WorkReliabilityScore float64 `json:"work_reliability_score"`
}

// PlatformTenureRating blends tenure (capped at 48 months), rating out of five
// and active days (capped at 30).
func PlatformTenureRating(tenureMonths int, rating float64, activeDays int) WorkResult {
	tenure := math.Max(numeric.MinRatio(float64(tenureMonths), 48), 0)
	ratingScore := rating / 5.0
	activity := math.Max(numeric.MinRatio(float64(activeDays), 30), 0)
	combined := tenure*0.35 + ratingScore*0.40 + activity*0.25
	return WorkResult{
		TenureScore:          numeric.Round(tenure, 4),
		RatingScore:          numeric.Round(ratingScore, 4),
		ActivityScore:        numeric.Round(activity, 4),
		WorkReliabilityScore: numeric.Round(combined, 4),
	}
}

// Shock is one detected month-over-month income drop.
type Shock struct {
	Month          int     `json:"month"`
	DropPct        float64 `json:"drop_pct"`
	Severity       string  `json:"severity"`
	RecoveryMonths int     `json:"recovery_months"`
	Recovered      bool    `json:"recovered"`
	Completeness   float64 `json:"completeness"`
}

// ShockResult is the shock-recovery signal.
type ShockResult struct {
	HadShock        bool    `json:"had_shock"`
	NumShocks       int     `json:"num_shocks"`
	Shocks          []Shock `json:"shock_details"`
	ResilienceScore float64 `json:"resilience_score"`
}

// ShockRecovery finds every drop of more than 15% and scores how fast, how
// fully and in which direction income recovered afterwards.
func ShockRecovery(incomes []float64) ShockResult {
	n := len(incomes)
	var shocks []Shock

	for i := 1; i < n; i++ {
		prev := incomes[i-1]
		ratio := incomes[i] / (prev + numeric.Epsilon)
		if ratio >= shockRatio {
			continue
		}

		severity := SeverityMild
		switch {
		case ratio < severeRatio:
			severity = SeveritySevere
		case ratio < moderateRatio:
			severity = SeverityModerate
		}

		recoveryMonths := 0
		recovered := false
		for j := i + 1; j < n; j++ {
			recoveryMonths++
			if incomes[j] >= prev*recoveryThreshold {
				recovered = true
				break
			}
		}
		if !recovered && i+1 < n {
			recoveryMonths = n - i
		}

		shocks = append(shocks, Shock{
			Month:          i,
			DropPct:        numeric.Round((1-ratio)*100, 1),
			Severity:       severity,
			RecoveryMonths: recoveryMonths,
			Recovered:      recovered,
			Completeness:   math.Min(numeric.Max(incomes[i:])/(prev+numeric.Epsilon), 1),
		})
	}

	resilience := NeverShockedResilience
	if len(shocks) > 0 {
		var recoverySum, completenessSum float64
		for _, s := range shocks {
			recoverySum += float64(s.RecoveryMonths)
			completenessSum += s.Completeness
		}
		avgRecovery := recoverySum / float64(len(shocks))
		speed := math.Max(0, 1-avgRecovery/float64(n))
		completeness := completenessSum / float64(len(shocks))

		trajectory := flatTrajectory
		last := shocks[len(shocks)-1].Month
		if last < n-1 {
			slope := numeric.Slope(incomes[last:])
			trajectory = numeric.Clamp01(slope/(numeric.Mean(incomes)+numeric.Epsilon) + 0.5)
		}

		resilience = 0.40*speed + 0.35*completeness + 0.25*trajectory
	}

	return ShockResult{
		HadShock:        len(shocks) > 0,
		NumShocks:       len(shocks),
		Shocks:          shocks,
		ResilienceScore: numeric.Round(numeric.Clamp01(resilience), 4),
	}
}
