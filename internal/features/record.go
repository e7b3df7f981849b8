// Package features turns a raw applicant record into normalized credit signals.
package features

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/credivist/internal/numeric"
)

// Record is the flat applicant record produced by a statement parser or an
// upstream data pipeline.
type Record struct {
	ApplicantID string `json:"user_id,omitempty"`

	MonthlyIncomes   IncomeHistory `json:"monthly_incomes"`
	MeanIncome       float64       `json:"mean_income"`
	FixedExpenses    float64       `json:"fixed_expenses"`
	NumIncomeSources int           `json:"num_income_sources"`

	// Bill payments
	OnTimePayments int     `json:"on_time_payments"`
	TotalBills     int     `json:"total_bills"`
	AvgDelayDays   float64 `json:"avg_delay_days"`

	// Recurring obligations
	RecurringPaymentsDetected int     `json:"recurring_payments_detected"`
	EMIConsistencyScore       float64 `json:"emi_consistency_score"`

	// Transactions
	TxnRegularityScore float64 `json:"txn_regularity_score"`
	TotalTransactions  int     `json:"total_transactions"`
	EssentialRatio     float64 `json:"essential_ratio"`

	// Savings
	HasRecurringSavings  bool    `json:"has_recurring_savings"`
	MinBalanceMaintained bool    `json:"min_balance_maintained"`
	AvgMonthlySavings    float64 `json:"avg_monthly_savings"`

	// Gig platform
	TenureMonths       int     `json:"tenure_months"`
	PlatformRating     float64 `json:"platform_rating"`
	ActiveDaysPerMonth int     `json:"active_days_per_month"`

	RechargeRegularity float64 `json:"recharge_regularity"`
}

// Income returns the declared mean income, falling back to the mean of the
// income history when none was declared.
func (r *Record) Income() float64 {
	if r.MeanIncome > 0 {
		return r.MeanIncome
	}
	return numeric.Mean(r.MonthlyIncomes)
}

// Validate reports records that cannot be scored meaningfully.
func (r *Record) Validate() error {
	if len(r.MonthlyIncomes) < 3 {
		return fmt.Errorf("monthly_incomes needs at least 3 months, got %d", len(r.MonthlyIncomes))
	}
	for i, v := range r.MonthlyIncomes {
		if v < 0 {
			return fmt.Errorf("monthly_incomes[%d] is negative", i)
		}
	}
	if r.PlatformRating < 0 || r.PlatformRating > 5 {
		return fmt.Errorf("platform_rating must be within 0-5, got %.2f", r.PlatformRating)
	}
	return nil
}

// IncomeHistory is an ordered monthly income series. It decodes from either a
// JSON array or a JSON-encoded array string.
type IncomeHistory []float64

// UnmarshalJSON accepts [1,2,3] and "[1,2,3]".
func (h *IncomeHistory) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*h = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		data = []byte(encoded)
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("monthly_incomes: %w", err)
	}
	*h = values
	return nil
}
