package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomeStability(t *testing.T) {
	t.Run("FlatIncome", func(t *testing.T) {
		res := IncomeStability([]float64{20000, 20000, 20000, 20000, 20000, 20000})
		assert.Equal(t, 1.0, res.StabilityScore)
		assert.Equal(t, 0.0, res.IncomeTrend)
		assert.Equal(t, 20000.0, res.MeanIncome)
		assert.Equal(t, 0.0, res.IncomeStd)
	})

	t.Run("GrowingIncome", func(t *testing.T) {
		res := IncomeStability([]float64{10000, 11000, 12000, 13000})
		assert.Greater(t, res.IncomeTrend, 0.0)
		assert.Less(t, res.StabilityScore, 1.0)
	})

	t.Run("ZeroIncome", func(t *testing.T) {
		res := IncomeStability([]float64{0, 0, 0})
		assert.Equal(t, 0.0, res.StabilityScore)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, StabilityResult{}, IncomeStability(nil))
	})
}

func TestCashFlowHealth(t *testing.T) {
	tests := []struct {
		income, fixed float64
		ratio         float64
		category      CashFlowCategory
	}{
		{20000, 10000, 0.5, CashFlowStrong},
		{20000, 14000, 0.3, CashFlowModerate},
		{20000, 18000, 0.1, CashFlowRisk},
		{0, 100, 0, CashFlowRisk},
	}
	for _, tt := range tests {
		res := CashFlowHealth(tt.income, tt.fixed)
		assert.InDelta(t, tt.ratio, res.Ratio, 1e-4)
		assert.Equal(t, tt.category, res.Category)
	}
}

func TestSimpleSignals(t *testing.T) {
	assert.Equal(t, 0.6, IncomeDiversity(3).DiversityScore)
	assert.Equal(t, 1.0, IncomeDiversity(9).DiversityScore)
	assert.False(t, IncomeDiversity(1).IsDiversified)

	assert.InDelta(t, 0.7933, UtilityTimeliness(10, 12, 2).UtilityScore, 1e-4)
	assert.Equal(t, 0.0, UtilityTimeliness(0, 0, 5).UtilityScore)

	assert.InDelta(t, 0.8, EMIPattern(3, 1.0).EMIScore, 1e-9)
	assert.InDelta(t, 0.79, TransactionRegularity(0.7, 150).AdjustedScore, 1e-9)

	assert.Equal(t, ExpenseRiskLow, ExpenseCategorization(0.65).RiskLevel)
	assert.Equal(t, ExpenseRiskMedium, ExpenseCategorization(0.5).RiskLevel)
	assert.Equal(t, ExpenseRiskHigh, ExpenseCategorization(0.2).RiskLevel)
	assert.Equal(t, 1.0, ExpenseCategorization(1.4).ExpenseScore)

	assert.InDelta(t, 0.64, SavingsBehavior(true, false, 17000, 20000).SavingsScore, 1e-9)
	assert.InDelta(t, 0.7017, PlatformTenureRating(24, 4.5, 20).WorkReliabilityScore, 1e-4)
}

func TestShockRecovery(t *testing.T) {
	t.Run("NeverShocked", func(t *testing.T) {
		res := ShockRecovery([]float64{20000, 20000, 20000, 20000, 20000, 20000})
		assert.False(t, res.HadShock)
		assert.Equal(t, NeverShockedResilience, res.ResilienceScore)
	})

	t.Run("RecoveredShock", func(t *testing.T) {
		res := ShockRecovery([]float64{20000, 20000, 11000, 15000, 19000, 21000})
		require.Equal(t, 1, res.NumShocks)

		shock := res.Shocks[0]
		assert.Equal(t, 2, shock.Month)
		assert.Equal(t, SeverityModerate, shock.Severity)
		assert.Equal(t, 45.0, shock.DropPct)
		assert.Equal(t, 2, shock.RecoveryMonths)
		assert.True(t, shock.Recovered)
		assert.Equal(t, 1.0, shock.Completeness)
		assert.InDelta(t, 0.7898, res.ResilienceScore, 1e-4)
	})

	t.Run("ShockInFinalMonth", func(t *testing.T) {
		res := ShockRecovery([]float64{20000, 20000, 20000, 20000, 20000, 5000})
		require.Equal(t, 1, res.NumShocks)
		assert.Equal(t, SeveritySevere, res.Shocks[0].Severity)
		assert.False(t, res.Shocks[0].Recovered)
		assert.InDelta(t, 0.5625, res.ResilienceScore, 1e-4)
	})

	t.Run("ShortSeries", func(t *testing.T) {
		assert.Equal(t, NeverShockedResilience, ShockRecovery([]float64{1000}).ResilienceScore)
		assert.Equal(t, NeverShockedResilience, ShockRecovery(nil).ResilienceScore)
	})
}

func TestExtract(t *testing.T) {
	r := &Record{
		MonthlyIncomes:            IncomeHistory{20000, 20000, 20000, 20000, 20000, 20000},
		MeanIncome:                20000,
		FixedExpenses:             8000,
		NumIncomeSources:          2,
		OnTimePayments:            12,
		TotalBills:                12,
		RecurringPaymentsDetected: 3,
		EMIConsistencyScore:       0.9,
		TxnRegularityScore:        0.8,
		TotalTransactions:         120,
		EssentialRatio:            0.7,
		HasRecurringSavings:       true,
		MinBalanceMaintained:      true,
		AvgMonthlySavings:         3000,
		TenureMonths:              24,
		PlatformRating:            4.6,
		ActiveDaysPerMonth:        25,
		RechargeRegularity:        0.9,
	}

	ext := Extract(r)
	v := ext.Vector

	assert.Equal(t, 1.0, v.IncomeStability)
	assert.Equal(t, 0.85, v.ShockRecovery)
	assert.Equal(t, CashFlowStrong, v.CashFlowCategory)
	assert.Equal(t, ExpenseRiskLow, v.ExpenseRisk)
	assert.InDelta(t, 0.6, v.CashFlowRatio, 1e-4)

	row := ext.Row(r)
	assert.Len(t, row, len(ModelFeatures))
	for _, name := range ModelFeatures {
		_, ok := row[name]
		assert.True(t, ok, "missing model feature %s", name)
		assert.NotEmpty(t, Labels[name])
	}
}

func TestExtractEmptyRecord(t *testing.T) {
	ext := Extract(&Record{})
	assert.Equal(t, 0.0, ext.Vector.IncomeStability)
	assert.Equal(t, NeverShockedResilience, ext.Vector.ShockRecovery)
	assert.Equal(t, CashFlowRisk, ext.Vector.CashFlowCategory)
}

func TestRecordDecoding(t *testing.T) {
	t.Run("EncodedString", func(t *testing.T) {
		var r Record
		require.NoError(t, json.Unmarshal([]byte(`{"monthly_incomes":"[1000, 2000, 3000]"}`), &r))
		assert.Equal(t, IncomeHistory{1000, 2000, 3000}, r.MonthlyIncomes)
		assert.Equal(t, 2000.0, r.Income())
	})

	t.Run("NativeArray", func(t *testing.T) {
		var r Record
		require.NoError(t, json.Unmarshal([]byte(`{"monthly_incomes":[5,6,7],"mean_income":10}`), &r))
		assert.Len(t, r.MonthlyIncomes, 3)
		assert.Equal(t, 10.0, r.Income())
	})

	t.Run("Invalid", func(t *testing.T) {
		var r Record
		assert.Error(t, json.Unmarshal([]byte(`{"monthly_incomes":"oops"}`), &r))
	})

	t.Run("Validate", func(t *testing.T) {
		r := Record{MonthlyIncomes: IncomeHistory{1, 2}}
		assert.Error(t, r.Validate())
		r.MonthlyIncomes = IncomeHistory{1, 2, 3}
		assert.NoError(t, r.Validate())
		r.PlatformRating = 7
		assert.Error(t, r.Validate())
	})
}
