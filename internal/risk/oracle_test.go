package risk

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/credivist/internal/features"
)

type failingOracle struct{}

func (failingOracle) Name() string { return "failing" }

func (failingOracle) Predict(context.Context, *Input) (float64, error) {
	return 0, errors.New("model unavailable")
}

func strongRecord() *features.Record {
	return &features.Record{
		ApplicantID:               "strong",
		MonthlyIncomes:            features.IncomeHistory{30000, 30500, 31000, 31500, 32000, 32500},
		FixedExpenses:             9000,
		NumIncomeSources:          3,
		OnTimePayments:            12,
		TotalBills:                12,
		RecurringPaymentsDetected: 4,
		EMIConsistencyScore:       0.95,
		TxnRegularityScore:        0.9,
		TotalTransactions:         160,
		EssentialRatio:            0.75,
		HasRecurringSavings:       true,
		MinBalanceMaintained:      true,
		AvgMonthlySavings:         6000,
		TenureMonths:              40,
		PlatformRating:            4.8,
		ActiveDaysPerMonth:        26,
		RechargeRegularity:        0.95,
	}
}

func weakRecord() *features.Record {
	return &features.Record{
		ApplicantID:        "weak",
		MonthlyIncomes:     features.IncomeHistory{12000, 4000, 9000, 3000, 8000, 2500},
		FixedExpenses:      7000,
		NumIncomeSources:   1,
		OnTimePayments:     3,
		TotalBills:         12,
		AvgDelayDays:       9,
		TxnRegularityScore: 0.2,
		TotalTransactions:  20,
		EssentialRatio:     0.3,
		TenureMonths:       2,
		PlatformRating:     3.1,
		ActiveDaysPerMonth: 8,
		RechargeRegularity: 0.2,
	}
}

func inputFor(r *features.Record) *Input {
	return NewInput("tenant-001", r, features.Extract(r))
}

func TestConstant(t *testing.T) {
	p, err := Constant(0.3).Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.3, p)

	p, _ = Constant(1.7).Predict(context.Background(), nil)
	assert.Equal(t, 1.0, p)
	assert.Equal(t, "constant", Constant(0).Name())
}

func TestLogistic(t *testing.T) {
	model := DefaultLogistic()
	ctx := context.Background()

	strong, err := model.Predict(ctx, inputFor(strongRecord()))
	require.NoError(t, err)
	weak, err := model.Predict(ctx, inputFor(weakRecord()))
	require.NoError(t, err)

	assert.Less(t, strong, 0.05)
	assert.Greater(t, weak, 0.5)
	assert.Less(t, strong, weak)

	t.Run("NonFiniteInputs", func(t *testing.T) {
		row := features.ModelRow{"mean_income": math.Inf(1), "income_std": math.NaN()}
		p := model.Probability(row)
		assert.False(t, math.IsNaN(p))
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	})

	t.Run("Intercept", func(t *testing.T) {
		bare := &Logistic{}
		assert.InDelta(t, 0.5, bare.Probability(features.ModelRow{}), 1e-12)
	})
}

func TestEnsemble(t *testing.T) {
	ctx := context.Background()

	e := NewEnsemble(Constant(0.5), Constant(0.0))
	p, err := e.Predict(ctx, inputFor(strongRecord()))
	require.NoError(t, err)
	assert.InDelta(t, 0.3, p, 1e-12)
	assert.Equal(t, "ensemble(constant+constant)", e.Name())

	t.Run("CarriesRuleResults", func(t *testing.T) {
		rules, err := NewRuleOracle(nil, 0, 4)
		require.NoError(t, err)
		require.NoError(t, rules.LoadRules(BuiltinRules()))

		ens := NewEnsemble(DefaultLogistic(), rules)
		ev, err := Evaluate(ctx, ens, inputFor(weakRecord()))
		require.NoError(t, err)
		assert.Len(t, ev.Results, len(BuiltinRules()))
		assert.Greater(t, ev.Probability, 0.5)
	})

	t.Run("PropagatesErrors", func(t *testing.T) {
		_, err := NewEnsemble(failingOracle{}, Constant(0)).Predict(ctx, inputFor(weakRecord()))
		assert.ErrorContains(t, err, "failing")
	})
}

func TestEvaluatePlainOracle(t *testing.T) {
	ev, err := Evaluate(context.Background(), Constant(0.2), inputFor(strongRecord()))
	require.NoError(t, err)
	assert.Equal(t, 0.2, ev.Probability)
	assert.Empty(t, ev.Results)
}
