package persona

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyInputAllPersonas(t *testing.T) {
	for _, key := range Keys() {
		t.Run(key, func(t *testing.T) {
			res, err := Score(key, Input{})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.TrustScore, 300.0)
			assert.LessOrEqual(t, res.TrustScore, 900.0)
			assert.GreaterOrEqual(t, res.Confidence, 0.30)
			assert.Equal(t, res.CriteriaCount, len(res.Breakdown))
			for _, b := range res.Breakdown {
				assert.GreaterOrEqual(t, b.Score, 0.0, b.Criterion.String())
				assert.LessOrEqual(t, b.Score, 1.0, b.Criterion.String())
				assert.NotEmpty(t, b.Label)
			}
		})
	}
}

func TestFarmerEmpty(t *testing.T) {
	res, err := Score(Farmer, nil)
	require.NoError(t, err)

	assert.InDelta(t, 12.1, res.BaseScore100, 1e-9)
	assert.Equal(t, 373.0, res.TrustScore)
	assert.Equal(t, "Very Poor", res.Grade)
	assert.Equal(t, 2, res.FilledCount)
	assert.Equal(t, 0.30, res.Confidence)

	tips := Tips(res)
	require.Len(t, tips, 5)
	assert.Equal(t, SubsidyLinkage, tips[0].Criterion)
	assert.Equal(t, MarketEngagement, tips[1].Criterion)
	assert.Equal(t, CommunityTrust, tips[2].Criterion)
	assert.Equal(t, LandAsset, tips[3].Criterion)
	assert.Equal(t, MobileBehaviour, tips[4].Criterion)
	for i := 1; i < len(tips); i++ {
		assert.LessOrEqual(t, tips[i-1].CurrentScore, tips[i].CurrentScore)
	}
}

func TestStrongFarmer(t *testing.T) {
	in := Input{
		"owns_land": true, "land_acres": 6.0, "years_on_land": 12.0,
		"seasons_active": 8.0, "crops_per_year": 3.0, "yield_trend": "up",
		"has_pm_kisan": true, "has_crop_insurance": true, "kcc_holder": true,
		"sells_at_mandi": true, "has_warehouse_receipt": true, "uses_enam": true, "avg_trips_per_month": 4.0,
		"references_count": 3.0, "is_group_member": true, "years_in_community": 10.0, "has_local_business_reference": true,
		"bills_per_year": 12.0, "on_time_pct": 100.0, "has_electricity": true, "has_water": true,
		"recharge_frequency": "monthly", "has_smartphone": true, "uses_upi_basic": true, "avg_monthly_recharge": 500.0,
	}
	res, err := Score(Farmer, in)
	require.NoError(t, err)

	land, ok := res.Criterion(LandAsset)
	require.True(t, ok)
	assert.InDelta(t, 0.84, land.Score, 1e-9)
	assert.Equal(t, "Owns 6.0 acres, 12 yrs", land.Detail)

	assert.Greater(t, res.TrustScore, 800.0)
	assert.Equal(t, "Excellent", res.Grade)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Empty(t, Tips(res))
}

func TestCriterionScorers(t *testing.T) {
	tests := []struct {
		name      string
		criterion Criterion
		in        Input
		score     float64
	}{
		{"cgpa with backlog", AcademicPerformance, Input{"score_type": "cgpa", "score_value": 8.0, "backlog_count": 1.0, "education_level": "pg"}, 0.8},
		{"backlog penalty capped", AcademicPerformance, Input{"score_value": 50.0, "backlog_count": 9.0}, 0.1},
		{"no part time", PartTimeIncome, Input{}, 0.30},
		{"no rent data", RentalDiscipline, Input{}, 0.40},
		{"no enterprise", MicroEnterprise, Input{}, 0.25},
		{"psychometric max", Psychometric, Input{"q1_financial_planning": 5, "q2_risk_awareness": 5, "q3_goal_orientation": 5, "q4_repayment_intent": 5, "q5_responsibility": 5}, 1.0},
		{"psychometric neutral", Psychometric, Input{}, 0.5},
		{"aadhaar only", IDVerification, Input{"has_aadhaar": true}, 0.8/3 + 0.2},
		{"tier as string", FuturePotential, Input{"institution_tier": "1", "branch_demand": "high", "has_internship": true}, 1.0},
		{"unknown savings method", SavingsHabit, Input{"savings_method": "mattress"}, 0.09},
		{"household deficit", HouseholdBudgeting, Input{"household_income": 10000.0, "household_expenses": 12000.0}, 0},
		{"platform list", SkillCertifications, Input{"platform_certs": "NPTEL, Coursera, ,edX"}, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer, ok := ScorerFor(tt.criterion)
			require.True(t, ok)
			assert.InDelta(t, tt.score, scorer.Score(tt.in).Score, 1e-4)
		})
	}
}

func TestCriterionKeys(t *testing.T) {
	for c := Criterion(0); c < numCriteria; c++ {
		parsed, ok := ParseCriterion(c.String())
		require.True(t, ok)
		assert.Equal(t, c, parsed)
	}
	_, ok := ParseCriterion("credit_history")
	assert.False(t, ok)
	_, ok = ScorerFor(numCriteria)
	assert.False(t, ok)

	b, err := json.Marshal(Tip{Criterion: LandAsset})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"criterion":"land_asset"`)
}

func TestUnknownPersona(t *testing.T) {
	_, err := Score("astronaut", Input{})
	assert.ErrorIs(t, err, ErrUnknownPersona)
	_, err = Form("astronaut")
	assert.ErrorIs(t, err, ErrUnknownPersona)
	assert.ErrorIs(t, Validate("astronaut", nil), ErrUnknownPersona)
}

func TestProfilesAreCopies(t *testing.T) {
	ps := Profiles()
	require.Len(t, ps, 5)
	ps[0].Weights[0].Weight = 99

	p, err := Lookup(Farmer)
	require.NoError(t, err)
	assert.Equal(t, 0.20, p.Weights[0].Weight)
}

func TestForm(t *testing.T) {
	sections, err := Form(Student)
	require.NoError(t, err)
	require.Len(t, sections, 8)
	assert.Equal(t, AcademicPerformance, sections[0].Criterion)
	assert.Equal(t, "Academic Performance", sections[0].Label)
	assert.NotEmpty(t, sections[0].Fields)
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		in := Input{"pays_rent": true, "rent_amount": 3000, "on_time_pct": 95, "extra_note": "ignored"}
		assert.NoError(t, Validate(StreetVendor, in))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.NoError(t, Validate(Homemaker, nil))
	})

	t.Run("OutOfRange", func(t *testing.T) {
		err := Validate(Farmer, Input{"land_acres": -1})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("BadOption", func(t *testing.T) {
		err := Validate(Farmer, Input{"yield_trend": "sideways"})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("NumericTier", func(t *testing.T) {
		assert.NoError(t, Validate(Student, Input{"institution_tier": 2}))
		assert.NoError(t, Validate(Student, Input{"institution_tier": "2"}))
		assert.ErrorIs(t, Validate(Student, Input{"institution_tier": 7}), ErrInvalidData)
	})

	t.Run("WrongType", func(t *testing.T) {
		err := Validate(GeneralNoBank, Input{"has_aadhaar": 12})
		assert.ErrorIs(t, err, ErrInvalidData)
	})
}

func TestRupees(t *testing.T) {
	assert.Equal(t, "₹1,234,567", rupees(1234567))
	assert.Equal(t, "₹500", rupees(500))
	assert.Equal(t, "₹0", rupees(0))
}

func TestGradeBeforeRounding(t *testing.T) {
	trust, grade, _ := gradeBase(449.6 / 6)
	assert.Equal(t, 750.0, trust)
	assert.Equal(t, "Good", grade)

	trust, grade, _ = gradeBase(75)
	assert.Equal(t, 750.0, trust)
	assert.Equal(t, "Excellent", grade)

	trust, grade, _ = gradeBase(349.7 / 6)
	assert.Equal(t, 650.0, trust)
	assert.Equal(t, "Fair", grade)
}

func TestResultJSONKeys(t *testing.T) {
	res, err := Score(Farmer, nil)
	require.NoError(t, err)
	b, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "criteria_breakdown")
	assert.NotContains(t, m, "breakdown")
	assert.Contains(t, m, "filled_count")
}
