package features

// Vector is the normalized feature set derived from one Record.
type Vector struct {
	IncomeStability  float64          `json:"feat_income_stability"`
	IncomeTrend      float64          `json:"feat_income_trend"`
	CashFlowRatio    float64          `json:"feat_cash_flow_ratio"`
	CashFlowCategory CashFlowCategory `json:"feat_cash_flow_category"`
	IncomeDiversity  float64          `json:"feat_income_diversity"`
	UtilityScore     float64          `json:"feat_utility_score"`
	EMIScore         float64          `json:"feat_emi_score"`
	TxnRegularity    float64          `json:"feat_txn_regularity"`
	ExpenseScore     float64          `json:"feat_expense_score"`
	ExpenseRisk      ExpenseRisk      `json:"feat_expense_risk"`
	SavingsScore     float64          `json:"feat_savings_score"`
	WorkReliability  float64          `json:"feat_work_reliability"`
	ShockRecovery    float64          `json:"feat_shock_recovery"`
}

// Details keeps each signal's diagnostics for the breakdown view.
type Details struct {
	Stability  StabilityResult  `json:"income_stability"`
	CashFlow   CashFlowResult   `json:"cash_flow"`
	Diversity  DiversityResult  `json:"income_diversity"`
	Utility    UtilityResult    `json:"utility"`
	EMI        EMIResult        `json:"emi_pattern"`
	Regularity RegularityResult `json:"transaction_regularity"`
	Expense    ExpenseResult    `json:"expense"`
	Savings    SavingsResult    `json:"savings"`
	Work       WorkResult       `json:"work"`
	Shock      ShockResult      `json:"shock_recovery"`
}

// Extraction is the output of Extract.
type Extraction struct {
	Vector  Vector  `json:"features"`
	Details Details `json:"details"`
}

// Extract computes every signal for a record. It never fails; absent values
// produce the conservative defaults of each signal.
func Extract(r *Record) Extraction {
	incomes := []float64(r.MonthlyIncomes)
	income := r.Income()

	d := Details{
		Stability:  IncomeStability(incomes),
		CashFlow:   CashFlowHealth(income, r.FixedExpenses),
		Diversity:  IncomeDiversity(r.NumIncomeSources),
		Utility:    UtilityTimeliness(r.OnTimePayments, r.TotalBills, r.AvgDelayDays),
		EMI:        EMIPattern(r.RecurringPaymentsDetected, r.EMIConsistencyScore),
		Regularity: TransactionRegularity(r.TxnRegularityScore, r.TotalTransactions),
		Expense:    ExpenseCategorization(r.EssentialRatio),
		Savings:    SavingsBehavior(r.HasRecurringSavings, r.MinBalanceMaintained, r.AvgMonthlySavings, income),
		Work:       PlatformTenureRating(r.TenureMonths, r.PlatformRating, r.ActiveDaysPerMonth),
		Shock:      ShockRecovery(incomes),
	}

	return Extraction{
		Vector: Vector{
			IncomeStability:  d.Stability.StabilityScore,
			IncomeTrend:      d.Stability.IncomeTrend,
			CashFlowRatio:    d.CashFlow.Ratio,
			CashFlowCategory: d.CashFlow.Category,
			IncomeDiversity:  d.Diversity.DiversityScore,
			UtilityScore:     d.Utility.UtilityScore,
			EMIScore:         d.EMI.EMIScore,
			TxnRegularity:    d.Regularity.AdjustedScore,
			ExpenseScore:     d.Expense.ExpenseScore,
			ExpenseRisk:      d.Expense.RiskLevel,
			SavingsScore:     d.Savings.SavingsScore,
			WorkReliability:  d.Work.WorkReliabilityScore,
			ShockRecovery:    d.Shock.ResilienceScore,
		},
		Details: d,
	}
}

// ModelFeatures lists the inputs of the risk model, in model order.
var ModelFeatures = []string{
	"feat_income_stability",
	"feat_income_trend",
	"feat_cash_flow_ratio",
	"feat_income_diversity",
	"feat_utility_score",
	"feat_emi_score",
	"feat_txn_regularity",
	"feat_expense_score",
	"feat_savings_score",
	"feat_work_reliability",
	"feat_shock_recovery",
	"recharge_regularity",
	"mean_income",
	"income_std",
	"num_income_sources",
	"tenure_months",
	"platform_rating",
	"active_days_per_month",
	"avg_monthly_savings",
	"total_transactions",
}

// ModelRow is the flat named input to a risk model.
type ModelRow map[string]float64

// Row builds the model row for an extraction and its source record.
func (e Extraction) Row(r *Record) ModelRow {
	v := e.Vector
	return ModelRow{
		"feat_income_stability": v.IncomeStability,
		"feat_income_trend":     v.IncomeTrend,
		"feat_cash_flow_ratio":  v.CashFlowRatio,
		"feat_income_diversity": v.IncomeDiversity,
		"feat_utility_score":    v.UtilityScore,
		"feat_emi_score":        v.EMIScore,
		"feat_txn_regularity":   v.TxnRegularity,
		"feat_expense_score":    v.ExpenseScore,
		"feat_savings_score":    v.SavingsScore,
		"feat_work_reliability": v.WorkReliability,
		"feat_shock_recovery":   v.ShockRecovery,
		"recharge_regularity":   r.RechargeRegularity,
		"mean_income":           r.Income(),
		"income_std":            e.Details.Stability.IncomeStd,
		"num_income_sources":    float64(r.NumIncomeSources),
		"tenure_months":         float64(r.TenureMonths),
		"platform_rating":       r.PlatformRating,
		"active_days_per_month": float64(r.ActiveDaysPerMonth),
		"avg_monthly_savings":   r.AvgMonthlySavings,
		"total_transactions":    float64(r.TotalTransactions),
	}
}

// Labels are the display names of the model features.
var Labels = map[string]string{
	"feat_income_stability": "Income Stability",
	"feat_income_trend":     "Income Trend",
	"feat_cash_flow_ratio":  "Cash Flow Health",
	"feat_income_diversity": "Income Diversity",
	"feat_utility_score":    "Utility Bill Timeliness",
	"feat_emi_score":        "EMI-like Behavior",
	"feat_txn_regularity":   "Transaction Regularity",
	"feat_expense_score":    "Essential Expense Ratio",
	"feat_savings_score":    "Savings Discipline",
	"feat_work_reliability": "Work Reliability",
	"feat_shock_recovery":   "Shock Recovery",
	"recharge_regularity":   "Recharge Regularity",
	"mean_income":           "Mean Monthly Income",
	"income_std":            "Income Variability",
	"num_income_sources":    "Number of Income Sources",
	"tenure_months":         "Platform Tenure (Months)",
	"platform_rating":       "Platform Rating",
	"active_days_per_month": "Active Days / Month",
	"avg_monthly_savings":   "Monthly Savings (₹)",
	"total_transactions":    "Total Transactions",
}
