package loan

import (
	"fmt"

	"github.com/opensource-finance/credivist/internal/numeric"
)

// Verdict is an eligibility outcome.
type Verdict string

const (
	VerdictEligible    Verdict = "ELIGIBLE"
	VerdictCaution     Verdict = "ELIGIBLE_WITH_CAUTION"
	VerdictMicroOnly   Verdict = "MICRO_ONLY"
	VerdictNotEligible Verdict = "NOT_ELIGIBLE"
	VerdictNotFound    Verdict = "LOAN_NOT_FOUND"
)

// Rank orders verdicts from most to least favorable; higher is better.
func (v Verdict) Rank() int {
	switch v {
	case VerdictEligible:
		return 3
	case VerdictCaution:
		return 2
	case VerdictMicroOnly:
		return 1
	case VerdictNotEligible:
		return 0
	}
	return -1
}

const (
	overLeveragedFOIR   = 0.50
	minDisposableShare  = 0.20
	limitedCapacityEMI  = 1000
	microOnlyEMI        = 2000
	flagZeroIncome      = "Zero or negative income detected"
	flagOverLeveraged   = "Over-leveraged: Existing EMIs exceed 50% of income"
	flagLowDisposable   = "Low disposable income: Less than 20% of earnings remain"
	flagLimitedCapacity = "Very limited new EMI capacity"
)

// Capacity is a FOIR (fixed obligation to income ratio) analysis of how much
// new EMI an applicant can carry.
type Capacity struct {
	MonthlyIncome    float64  `json:"monthly_income"`
	MonthlyExpenses  float64  `json:"monthly_expenses"`
	ExistingEMI      float64  `json:"existing_emi"`
	DisposableIncome float64  `json:"disposable_income"`
	MaxTotalEMI      float64  `json:"max_total_emi"`
	MaxNewEMI        float64  `json:"max_new_emi"`
	CurrentFOIR      float64  `json:"current_foir"`
	FOIRLimit        float64  `json:"foir_limit"`
	FOIRHeadroom     float64  `json:"foir_headroom"`
	RiskFlags        []string `json:"risk_flags"`
	Verdict          Verdict  `json:"verdict"`
}

// AnalyzeRepayment computes repayment capacity under a FOIR cap.
func AnalyzeRepayment(income, expenses, existingEMI, foirCap float64) Capacity {
	if income <= 0 {
		return Capacity{
			MonthlyExpenses: expenses,
			ExistingEMI:     existingEMI,
			FOIRLimit:       foirCap,
			RiskFlags:       []string{flagZeroIncome},
			Verdict:         VerdictNotEligible,
		}
	}

	disposable := income - expenses
	maxTotal := income * foirCap
	maxNew := max(maxTotal-existingEMI, 0)
	foir := existingEMI / income
	headroom := max(foirCap-foir, 0)

	flags := []string{}
	if foir > overLeveragedFOIR {
		flags = append(flags, flagOverLeveraged)
	}
	if foir > foirCap {
		flags = append(flags, fmt.Sprintf("FOIR exceeded: %.0f%% > %.0f%% limit", foir*100, foirCap*100))
	}
	if disposable < income*minDisposableShare {
		flags = append(flags, flagLowDisposable)
	}
	if existingEMI > 0 && maxNew < limitedCapacityEMI {
		flags = append(flags, flagLimitedCapacity)
	}

	verdict := VerdictEligible
	switch {
	case maxNew <= 0:
		verdict = VerdictNotEligible
	case maxNew < microOnlyEMI:
		verdict = VerdictMicroOnly
	case len(flags) > 0:
		verdict = VerdictCaution
	}

	return Capacity{
		MonthlyIncome:    numeric.Round(income, 2),
		MonthlyExpenses:  numeric.Round(expenses, 2),
		ExistingEMI:      numeric.Round(existingEMI, 2),
		DisposableIncome: numeric.Round(disposable, 2),
		MaxTotalEMI:      numeric.Round(maxTotal, 2),
		MaxNewEMI:        numeric.Round(maxNew, 2),
		CurrentFOIR:      numeric.Round(foir, 4),
		FOIRLimit:        foirCap,
		FOIRHeadroom:     numeric.Round(headroom, 4),
		RiskFlags:        flags,
		Verdict:          verdict,
	}
}
