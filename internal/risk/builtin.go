package risk

import "github.com/opensource-finance/credivist/internal/domain"

func limit(v float64) *float64 { return &v }

// standardBands maps a rule score to pass below 0.5, review below 0.8 and
// fail from 0.8.
func standardBands(review, fail string) []domain.RuleBand {
	return []domain.RuleBand{
		{LowerLimit: limit(0), UpperLimit: limit(0.5), SubRuleRef: domain.RuleOutcomePass, Reason: "within tolerance"},
		{LowerLimit: limit(0.5), UpperLimit: limit(0.8), SubRuleRef: domain.RuleOutcomeReview, Reason: review},
		{LowerLimit: limit(0.8), SubRuleRef: domain.RuleOutcomeFail, Reason: fail},
	}
}

// BuiltinRules returns the starter risk rules seeded into an empty store.
func BuiltinRules() []*domain.RiskRule {
	return []*domain.RiskRule{
		{
			ID:          "income-volatility-001",
			Name:        "Income Volatility",
			Description: "Unstable monthly income raises default risk",
			Version:     "1.0.0",
			Expression:  "1.0 - feat_income_stability",
			Bands:       standardBands("income moderately volatile", "income highly volatile"),
			Weight:      1.5,
			Enabled:     true,
		},
		{
			ID:          "cash-flow-stress-001",
			Name:        "Cash Flow Stress",
			Description: "Little money left after fixed expenses",
			Version:     "1.0.0",
			Expression:  `cash_flow_category == "Risk" ? 0.9 : (cash_flow_category == "Moderate" ? 0.5 : 0.1)`,
			Bands:       standardBands("moderate cash flow", "fixed expenses consume most income"),
			Weight:      1.5,
			Enabled:     true,
		},
		{
			ID:          "bill-delinquency-001",
			Name:        "Bill Delinquency",
			Description: "Late or missed utility payments",
			Version:     "1.0.0",
			Expression:  "feat_utility_score >= 1.0 ? 0.0 : 1.0 - feat_utility_score",
			Bands:       standardBands("some bills paid late", "bills regularly paid late"),
			Weight:      1.2,
			Enabled:     true,
		},
		{
			ID:          "thin-file-001",
			Name:        "Thin File",
			Description: "Too few transactions to trust the profile",
			Version:     "1.0.0",
			Expression:  "total_transactions < 30.0 ? 1.0 : (total_transactions < 60.0 ? 0.5 : 0.0)",
			Bands:       standardBands("limited transaction history", "very little transaction history"),
			Weight:      0.8,
			Enabled:     true,
		},
		{
			ID:          "shock-fragility-001",
			Name:        "Shock Fragility",
			Description: "Income did not recover from past shocks",
			Version:     "1.0.0",
			Expression:  "feat_shock_recovery < 0.5 ? 1.0 : 0.0",
			Bands:       standardBands("slow shock recovery", "income did not recover from shocks"),
			Weight:      0.8,
			Enabled:     true,
		},
		{
			ID:          "enquiry-burst-001",
			Name:        "Enquiry Burst",
			Description: "Many scoring enquiries in a short window",
			Version:     "1.0.0",
			Expression:  "enquiry_count >= 6 ? 1.0 : double(enquiry_count) / 6.0",
			Bands:       standardBands("several recent enquiries", "credit-hungry enquiry pattern"),
			Weight:      1.0,
			Enabled:     true,
		},
	}
}
