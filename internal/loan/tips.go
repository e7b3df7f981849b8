package loan

import (
	"fmt"

	"github.com/opensource-finance/credivist/internal/numeric"
	"github.com/opensource-finance/credivist/internal/persona"
)

// Tip is a piece of financial literacy advice.
type Tip struct {
	Icon   string `json:"icon"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

const buildHistoryBelow = 600

var personaTips = map[string][]Tip{
	persona.Farmer: {
		{"🌾", "KCC Has 4% Interest Subvention",
			"Kisan Credit Card loans have only 4% effective interest if repaid within 1 year. " +
				"Much cheaper than informal moneylenders (36-60%)."},
		{"☀️", "PM-KUSUM: 60% Subsidy on Solar Pumps",
			"Govt covers 60% of solar pump cost. You only pay 40%. Saves ₹3,000-₹5,000/month on electricity."},
	},
	persona.Student: {
		{"🎓", "Education Loan Interest Subsidy",
			"Family income < ₹4.5L/yr? You get full interest waiver during study + 1 year moratorium under CSIS scheme."},
		{"📚", "Vidya Lakshmi Portal",
			"Apply to multiple bank education loans with single form at vidyalakshmi.co.in. Compare rates across 38 banks."},
	},
	persona.StreetVendor: {
		{"🏪", "PM SVANidhi: ₹1,200 Digital Cashback",
			"Accept 50+ digital payments/month and earn ₹1,200/year cashback. Plus 7% interest subsidy on your loan."},
		{"📈", "SVANidhi 3-Tranche Growth",
			"Repay ₹10K → Get ₹20K → Repay → Get ₹50K. Each stage unlocks a larger loan with better terms."},
	},
	persona.Homemaker: {
		{"👩‍👩‍👧‍👦", "Women SHG Loans at 4% Interest",
			"Self-Help Group members get 3% interest subvention. Effective rate is only 4%, much lower than market."},
		{"🏗️", "Stand-Up India: ₹10L-₹1Cr for Women",
			"Every bank branch must give at least 1 loan of ₹10L-₹1Cr to a woman entrepreneur. Ask your nearest bank."},
	},
	persona.GeneralNoBank: {
		{"🤝", "JLG: No Collateral, Group Guarantee",
			"Join a group of 5-10 people. The group's joint guarantee replaces collateral. Available at MFIs and NABARD."},
		{"🪙", "Gold Loan: Fastest Approval",
			"Gold loans need zero income proof and disburse in 30 minutes. Interest is only 7-12% vs 36%+ from moneylenders."},
	},
}

// FinancialTips returns general advice, advice for scores that still need a
// history, the persona's scheme tips and the subsidy savings on offer.
// personaKey may be empty.
func FinancialTips(personaKey string, score float64, eligible []Recommendation) []Tip {
	tips := []Tip{{
		Icon:   "💡",
		Title:  "Understand EMI Before You Borrow",
		Detail: "Your EMI should never exceed 40% of your monthly income. Use our EMI calculator to plan.",
	}}
	if score < buildHistoryBelow {
		tips = append(tips, Tip{
			Icon:   "📈",
			Title:  "Build Credit History First",
			Detail: "Start with small loans (₹5K-₹10K), repay on time, and your score will improve within 6 months.",
		})
	}
	tips = append(tips, personaTips[personaKey]...)

	subsidized := 0
	saved := 0.0
	for _, r := range eligible {
		if r.Subsidy == "" {
			continue
		}
		subsidized++
		saved += r.InterestSaved
	}
	if saved > 0 {
		total := numeric.Grouped(saved)
		tips = append(tips, Tip{
			Icon:   "💰",
			Title:  "Potential Subsidy Savings: ₹" + total,
			Detail: fmt.Sprintf("You have %d subsidized loan(s) available. Government schemes can save you ₹%s in interest.", subsidized, total),
		})
	}
	return tips
}
