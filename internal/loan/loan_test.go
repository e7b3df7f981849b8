package loan

import (
	"testing"
	"time"

	"github.com/opensource-finance/credivist/internal/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMI(t *testing.T) {
	assert.Equal(t, 8884.88, EMI(100000, 12, 12))
	assert.Equal(t, 1000.0, EMI(12000, 0, 12))
	assert.Equal(t, 0.0, EMI(0, 12, 12))
	assert.Equal(t, 0.0, EMI(100000, 12, 0))

	assert.InDelta(t, 100000, MaxLoanFromEMI(8884.88, 12, 12), 1)
	assert.Equal(t, 12000.0, MaxLoanFromEMI(1000, 0, 12))
	assert.InDelta(t, 6618.56, TotalInterest(100000, 12, 12), 0.01)
}

func TestSchedule(t *testing.T) {
	rows := Schedule(100000, 12, 12, DefaultScheduleStart)
	require.Len(t, rows, 12)

	assert.Equal(t, "Jan 2026", rows[0].Month)
	assert.Equal(t, "Dec 2026", rows[11].Month)
	assert.Equal(t, 1000.0, rows[0].Interest)
	assert.Equal(t, 8884.88, rows[0].EMI)
	assert.Less(t, rows[11].Balance, 1.0)

	assert.Nil(t, Schedule(0, 12, 12, DefaultScheduleStart))

	assert.Equal(t, time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC), ParseMonth("2027-03"))
	assert.Equal(t, time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC), ParseMonth("Mar 2027"))
	assert.Equal(t, DefaultScheduleStart, ParseMonth("soon"))
}

func TestScheduleClosesAtZero(t *testing.T) {
	rates := []float64{0, 7, 8.5, 9, 10.5, 12, 24}
	tenures := []int{1, 12, 60, 120, 240, 360}
	for principal := 1_000_000.0; principal <= 5_000_000; principal += 61_725 {
		for _, rate := range rates {
			for _, n := range tenures {
				rows := Schedule(principal, rate, n, DefaultScheduleStart)
				require.NotEmpty(t, rows)
				require.LessOrEqual(t, len(rows), n)

				last := rows[len(rows)-1]
				if last.Balance != 0 {
					t.Fatalf("P=%.0f rate=%v n=%d ends with balance %.2f", principal, rate, n, last.Balance)
				}

				var repaid float64
				for _, row := range rows {
					repaid += row.Principal
				}
				assert.InDelta(t, principal, repaid, 0.01*float64(n), "P=%.0f rate=%v n=%d", principal, rate, n)
			}
		}
	}
}

func TestScheduleSmallPrincipal(t *testing.T) {
	rows := Schedule(100, 12, 360, DefaultScheduleStart)
	require.NotEmpty(t, rows)
	assert.Equal(t, 0.0, rows[len(rows)-1].Balance)
}

func TestScheduleTenureLimit(t *testing.T) {
	assert.NotEmpty(t, Schedule(100000, 12, MaxTenureMonths, DefaultScheduleStart))
	assert.Nil(t, Schedule(100000, 12, MaxTenureMonths+1, DefaultScheduleStart))
	assert.Nil(t, Schedule(100000, 12, 2_000_000_000, DefaultScheduleStart))

	for _, p := range Catalog() {
		assert.LessOrEqual(t, p.TenureRange.High(), MaxTenureMonths, p.Key)
	}
}

func TestEMIRoundTrip(t *testing.T) {
	for _, principal := range []float64{5000, 25000, 100000, 750000, 2_500_000, 5_000_000} {
		for _, rate := range []float64{0, 4, 8.5, 12, 18, 36} {
			for _, n := range []int{1, 6, 12, 36, 84, 180, 360} {
				emi := EMI(principal, rate, n)
				require.Positive(t, emi)
				// The EMI is rounded to paise, so the error grows with n.
				tolerance := 0.005*float64(n) + 0.01
				assert.InDelta(t, principal, MaxLoanFromEMI(emi, rate, n), tolerance,
					"P=%.0f rate=%v n=%d", principal, rate, n)
			}
		}
	}
}

func TestRepaymentVerdictMonotonic(t *testing.T) {
	for _, income := range []float64{8000, 20000, 50000, 150000} {
		for _, foirCap := range []float64{0.3, 0.4, 0.5} {
			for _, expenses := range []float64{0, income * 0.5, income * 0.9} {
				prev := AnalyzeRepayment(income, expenses, 0, foirCap).Verdict
				for existing := 100.0; existing <= income; existing += 100 {
					v := AnalyzeRepayment(income, expenses, existing, foirCap).Verdict
					if v.Rank() > prev.Rank() {
						t.Fatalf("income=%v expenses=%v cap=%v: verdict improved from %s to %s at existing EMI %v",
							income, expenses, foirCap, prev, v, existing)
					}
					prev = v
				}
			}
		}
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score float64
		key   TierKey
	}{
		{900, TierExcellent},
		{800, TierExcellent},
		{750, TierExcellent},
		{749.6, TierGood},
		{650, TierGood},
		{649.99, TierFair},
		{500, TierFair},
		{400, TierPoor},
		{350, TierVeryPoor},
		{120, TierVeryPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, TierFor(tt.score).Key, "score %v", tt.score)
	}

	all := Tiers()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Equal(t, all[i].Range.High()+1, all[i-1].Range.Low(), "bands must be contiguous")
	}
	assert.Zero(t, TierFor(300).MaxSimultaneousLoans)
}

func TestAnalyzeRepayment(t *testing.T) {
	t.Run("ZeroIncome", func(t *testing.T) {
		c := AnalyzeRepayment(0, 1000, 0, 0.5)
		assert.Equal(t, VerdictNotEligible, c.Verdict)
		assert.Equal(t, []string{flagZeroIncome}, c.RiskFlags)
	})

	t.Run("Healthy", func(t *testing.T) {
		c := AnalyzeRepayment(50000, 20000, 0, 0.5)
		assert.Equal(t, VerdictEligible, c.Verdict)
		assert.Equal(t, 25000.0, c.MaxNewEMI)
		assert.Empty(t, c.RiskFlags)
		assert.NotNil(t, c.RiskFlags)
	})

	t.Run("FOIRExceeded", func(t *testing.T) {
		c := AnalyzeRepayment(20000, 5000, 9000, 0.4)
		assert.Equal(t, VerdictNotEligible, c.Verdict)
		assert.Equal(t, 0.0, c.MaxNewEMI)
		assert.Contains(t, c.RiskFlags, "FOIR exceeded: 45% > 40% limit")
		assert.Contains(t, c.RiskFlags, flagLimitedCapacity)
		assert.NotContains(t, c.RiskFlags, flagOverLeveraged)
	})

	t.Run("MicroOnly", func(t *testing.T) {
		c := AnalyzeRepayment(5000, 0, 0, 0.3)
		assert.Equal(t, VerdictMicroOnly, c.Verdict)
		assert.Equal(t, 1500.0, c.MaxNewEMI)
	})

	assert.Greater(t, VerdictEligible.Rank(), VerdictCaution.Rank())
	assert.Greater(t, VerdictCaution.Rank(), VerdictMicroOnly.Rank())
	assert.Greater(t, VerdictMicroOnly.Rank(), VerdictNotEligible.Rank())
	assert.Greater(t, VerdictNotEligible.Rank(), VerdictNotFound.Rank())
}

func TestRecommendTransaction(t *testing.T) {
	t.Run("VeryPoor", func(t *testing.T) {
		b := RecommendTransaction(TransactionRequest{Score: 350, MonthlyIncome: 30000, MonthlyExpenses: 10000})
		assert.Empty(t, b.EligibleLoans)
		assert.Len(t, b.IneligibleLoans, len(TransactionProducts()))
		for _, r := range b.IneligibleLoans {
			assert.Contains(t, r.Reasons, "Score too low for any loans")
		}
		require.NotEmpty(t, b.ImprovementPath)
		assert.Equal(t, ImprovementScore, b.ImprovementPath[0].Type)
		assert.Equal(t, 400, b.ImprovementPath[0].TargetScore)
	})

	t.Run("Excellent", func(t *testing.T) {
		b := RecommendTransaction(TransactionRequest{Score: 800, MonthlyIncome: 60000, MonthlyExpenses: 20000})
		assert.Equal(t, TierExcellent, b.Tier.Key)
		assert.Equal(t, BundleTransaction, b.Source)
		assert.Equal(t, 360000.0, b.MaxTotalExposure)
		require.NotEmpty(t, b.EligibleLoans)
		assert.Equal(t, len(b.EligibleLoans), b.TotalEligible)
		for i, r := range b.EligibleLoans {
			assert.Empty(t, r.Reasons)
			if i > 0 {
				assert.GreaterOrEqual(t, b.EligibleLoans[i-1].MaxLoanAmount, r.MaxLoanAmount)
			}
		}
		last := b.ImprovementPath[len(b.ImprovementPath)-1]
		assert.Equal(t, ImprovementMaintenance, last.Type)
	})

	t.Run("IncomeBelowMinimum", func(t *testing.T) {
		b := RecommendTransaction(TransactionRequest{Score: 800, MonthlyIncome: 9000})
		var home *Recommendation
		for i := range b.IneligibleLoans {
			if b.IneligibleLoans[i].Key == "home_loan" {
				home = &b.IneligibleLoans[i]
			}
		}
		require.NotNil(t, home)
		assert.Contains(t, home.Reasons, "Income ₹9,000 below minimum ₹25,000")
	})
}

func TestRecommendPersona(t *testing.T) {
	_, err := RecommendPersona(PersonaRequest{Persona: "astronaut", Score: 700})
	assert.ErrorIs(t, err, persona.ErrUnknownPersona)

	b, err := RecommendPersona(PersonaRequest{Persona: persona.Farmer, Score: 700, Data: persona.Input{"crops_per_year": 2}})
	require.NoError(t, err)
	assert.Equal(t, BundlePersona, b.Source)
	assert.Equal(t, 6000.0, b.EstimatedMonthlyIncome)
	assert.Equal(t, TierGood, b.Tier.Key)

	var kcc *Recommendation
	for i := range b.EligibleLoans {
		if b.EligibleLoans[i].Key == "kcc" {
			kcc = &b.EligibleLoans[i]
		}
	}
	require.NotNil(t, kcc, "missing persona data must not block a loan")
	assert.Equal(t, []string{"crops_per_year"}, kcc.CriteriaMet)
	assert.Equal(t, []string{"owns_land"}, kcc.CriteriaNotMet)
	assert.Contains(t, kcc.Reasons, "Missing data for: owns land")
	assert.Equal(t, 24000.0, kcc.MaxLoanAmount)
	assert.Equal(t, 25000.0, kcc.RecommendedAmount)
	assert.Equal(t, 4.0, kcc.EffectiveRate)
	assert.Greater(t, kcc.InterestSaved, 0.0)
}

func TestCheckEligibility(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		res, err := CheckEligibility(CheckRequest{Key: "moon_loan", Source: SourceTransaction, Score: 700})
		assert.ErrorIs(t, err, ErrLoanNotFound)
		require.NotNil(t, res)
		assert.Equal(t, VerdictNotFound, res.Verdict)
		assert.False(t, res.Eligible)
	})

	t.Run("VeryPoorNeverEligible", func(t *testing.T) {
		for _, p := range TransactionProducts() {
			res, err := CheckEligibility(CheckRequest{Key: p.Key, Source: SourceTransaction, Score: 350, MonthlyIncome: 30000})
			require.NoError(t, err)
			assert.Equal(t, VerdictNotEligible, res.Verdict, p.Key)
			assert.Nil(t, res.LoanDetails)
			assert.NotEmpty(t, res.ImprovementSteps)
		}
	})

	t.Run("FullyEligible", func(t *testing.T) {
		res, err := CheckEligibility(CheckRequest{
			Key: "personal_loan", Source: SourceTransaction,
			Score: 800, MonthlyIncome: 60000, MonthlyExpenses: 20000,
		})
		require.NoError(t, err)
		assert.Equal(t, VerdictEligible, res.Verdict)
		assert.True(t, res.Eligible)
		require.NotNil(t, res.LoanDetails)
		assert.Equal(t, 10.5, res.LoanDetails.EffectiveRate)
		assert.Equal(t, 360000.0, res.LoanDetails.MaxEligibleAmount)
		assert.Equal(t, 288000.0, res.LoanDetails.ActualAmount)
		assert.Equal(t, 60, res.LoanDetails.ActualTenureMonths)
		assert.Len(t, res.ImprovementSteps, 2)
	})

	t.Run("DesiredAmountTooHigh", func(t *testing.T) {
		res, err := CheckEligibility(CheckRequest{
			Key: "personal_loan", Source: SourceTransaction,
			Score: 800, MonthlyIncome: 60000, MonthlyExpenses: 20000, DesiredAmount: 1000000,
		})
		require.NoError(t, err)
		assert.Equal(t, VerdictCaution, res.Verdict)
		assert.False(t, res.Eligible)
		require.NotNil(t, res.LoanDetails)
		assert.False(t, res.LoanDetails.AmountOK)
		require.NotEmpty(t, res.GapAnalysis)
		assert.Equal(t, CheckAmount, res.GapAnalysis[len(res.GapAnalysis)-1].Check)
		assert.Contains(t, res.ImprovementSteps, "Apply for a lower amount (max eligible: 360,000)")
	})

	t.Run("ScoreGap", func(t *testing.T) {
		res, err := CheckEligibility(CheckRequest{Key: "home_loan", Source: SourceTransaction, Score: 660, MonthlyIncome: 40000})
		require.NoError(t, err)
		assert.Equal(t, VerdictNotEligible, res.Verdict)
		require.NotEmpty(t, res.GapAnalysis)
		assert.Equal(t, CheckScore, res.GapAnalysis[0].Check)
		assert.Equal(t, "+40 points needed", res.GapAnalysis[0].Gap)
		assert.Equal(t, "Medium", res.GapAnalysis[0].Difficulty)
	})

	t.Run("PersonaCriteria", func(t *testing.T) {
		res, err := CheckEligibility(CheckRequest{
			Key: "crop_loan", Source: SourcePersona, Persona: persona.Farmer,
			Score: 700, PersonaData: persona.Input{"owns_land": false},
		})
		require.NoError(t, err)
		assert.Equal(t, VerdictCaution, res.Verdict)
		assert.Contains(t, res.ReasonsFail, "Criteria 'Owns Land' not verified: provide proof/data to strengthen application")
	})
}

func TestImprovementPath(t *testing.T) {
	tier := TierFor(620)
	path := ImprovementPath(620, tier, AnalyzeRepayment(50000, 10000, 0, tier.FOIRCap))
	require.Len(t, path, 1)

	up := path[0]
	assert.Equal(t, "Reach 650 to unlock Personal & Business Loans", up.Title)
	assert.Equal(t, 30.0, up.Gap)
	assert.Equal(t, "Max loans: 1 → 2 | Interest: 18-22% → 13-16%", up.Benefit)
	require.Len(t, up.Actions, 5)
	assert.Equal(t, "You're only 30 points away, focus on consistency!", up.Actions[0])

	flagged := ImprovementPath(620, tier, AnalyzeRepayment(20000, 5000, 9000, tier.FOIRCap))
	assert.Greater(t, len(flagged), 1)
	for _, imp := range flagged[1:] {
		assert.Equal(t, ImprovementHealth, imp.Type)
		assert.Len(t, imp.Actions, 3)
	}
}

func TestCompare(t *testing.T) {
	recs := []Recommendation{
		{Key: "cheap", Eligible: true, EffectiveRate: 10, MaxLoanAmount: 500000, Subsidy: "yes"},
		{Key: "dear", Eligible: true, EffectiveRate: 30, CollateralRequired: true},
		{Key: "blocked", Eligible: false, EffectiveRate: 1, MaxLoanAmount: 900000, Subsidy: "yes"},
		{Key: "mid", Eligible: true, EffectiveRate: 15, MaxLoanAmount: 100000},
		{Key: "secured", Eligible: true, EffectiveRate: 12, MaxLoanAmount: 200000, CollateralRequired: true},
	}
	ranked := Compare(recs)
	require.Len(t, ranked, 3)
	assert.Equal(t, "cheap", ranked[0].Key)
	assert.InDelta(t, 0.8083, ranked[0].CompositeScore, 1e-4)
	for _, r := range ranked {
		assert.NotEqual(t, "blocked", r.Key)
		assert.NotEqual(t, "dear", r.Key)
	}
	assert.Empty(t, Compare(nil))
}

func TestCatalogAndSearch(t *testing.T) {
	assert.Len(t, TransactionProducts(), 9)
	farmer, err := PersonaProducts(persona.Farmer)
	require.NoError(t, err)
	assert.Len(t, farmer, 6)
	_, err = PersonaProducts("astronaut")
	assert.ErrorIs(t, err, persona.ErrUnknownPersona)

	assert.Len(t, Search(SearchQuery{Source: SourceTransaction}), 9)
	assert.Len(t, Search(SearchQuery{Persona: persona.Farmer}), 6)
	assert.Len(t, Search(SearchQuery{}), len(Catalog()))

	for _, p := range Search(SearchQuery{SubsidyOnly: true}) {
		assert.NotEmpty(t, p.Subsidy)
	}
	for _, p := range Search(SearchQuery{MaxRate: 5}) {
		assert.LessOrEqual(t, p.InterestRange.Low(), 5.0)
	}
	for _, p := range Search(SearchQuery{Collateral: CollateralNo}) {
		assert.False(t, p.Collateral)
	}

	kisan := Search(SearchQuery{Query: "  KISAN "})
	require.NotEmpty(t, kisan)
	assert.Equal(t, "kcc", kisan[0].Key)

	assert.Empty(t, Search(SearchQuery{Category: "agriculture", Source: SourceTransaction}))

	p, err := Find(SourcePersona, persona.Farmer, "kcc")
	require.NoError(t, err)
	assert.Equal(t, SourcePersona, p.Source)
	assert.Equal(t, persona.Farmer, p.Persona)
	_, err = Find(SourceTransaction, "", "kcc")
	assert.ErrorIs(t, err, ErrLoanNotFound)

	cats := Categories()
	assert.Contains(t, cats, "Agriculture")
	assert.IsIncreasing(t, cats)
}

func TestFinancialTips(t *testing.T) {
	assert.Len(t, FinancialTips("", 700, nil), 1)
	assert.Len(t, FinancialTips(persona.Farmer, 500, nil), 4)

	tips := FinancialTips(persona.Homemaker, 700, []Recommendation{
		{Subsidy: "SHG", InterestSaved: 1234},
		{InterestSaved: 999},
	})
	last := tips[len(tips)-1]
	assert.Equal(t, "Potential Subsidy Savings: ₹1,234", last.Title)
	assert.Contains(t, last.Detail, "You have 1 subsidized loan(s) available.")
}

func TestSeasonal(t *testing.T) {
	assert.Empty(t, Seasonal(persona.Student, "Oct"))

	oct := Seasonal(persona.Farmer, "Oct")
	require.Len(t, oct, 2)
	assert.Equal(t, "Kharif", oct[0].Season)
	assert.Equal(t, "Active", oct[0].Status)
	assert.Equal(t, "Rabi", oct[1].Season)

	feb := Seasonal(persona.Farmer, "Feb")
	require.Len(t, feb, 2)
	assert.Equal(t, "Zaid", feb[1].Season)
	assert.Equal(t, "Apply Now", feb[1].Status)
	assert.Equal(t, "Zaid season starts soon. Apply for crop loan by Feb for best rates.", feb[1].Advice)

	unknown := Seasonal(persona.Farmer, "Smarch")
	require.Len(t, unknown, 1)
	assert.Equal(t, "Upcoming: Apply by May", unknown[0].Status)

	assert.Len(t, Seasons(), 3)
}
