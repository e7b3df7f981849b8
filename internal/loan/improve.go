package loan

import (
	"fmt"

	"github.com/opensource-finance/credivist/internal/numeric"
)

// Improvement kinds.
const (
	ImprovementScore       = "score_upgrade"
	ImprovementHealth      = "financial_health"
	ImprovementMaintenance = "maintenance"
)

// Improvement is one step on the path to better loan terms.
type Improvement struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Gap          float64  `json:"gap,omitempty"`
	CurrentScore float64  `json:"current_score,omitempty"`
	TargetScore  int      `json:"target_score,omitempty"`
	Benefit      string   `json:"benefit,omitempty"`
	Actions      []string `json:"actions"`
}

type upgrade struct {
	next    TierKey
	target  int
	unlocks string
}

var upgrades = map[TierKey]upgrade{
	TierVeryPoor: {TierPoor, 400, "Micro Loans"},
	TierPoor:     {TierFair, 500, "Standard Micro Loans"},
	TierFair:     {TierGood, 650, "Personal & Business Loans"},
	TierGood:     {TierExcellent, 750, "Premium Loans & Credit Cards"},
}

// ImprovementPath lists what would unlock the next tier, one health item per
// repayment risk flag, and upkeep advice for excellent scores.
func ImprovementPath(score float64, tier Tier, capacity Capacity) []Improvement {
	path := []Improvement{}

	if up, ok := upgrades[tier.Key]; ok {
		next, _ := tierByKey(up.next)
		gap := float64(up.target) - score
		path = append(path, Improvement{
			Type:         ImprovementScore,
			Title:        fmt.Sprintf("Reach %d to unlock %s", up.target, up.unlocks),
			Gap:          numeric.RoundScore(gap),
			CurrentScore: score,
			TargetScore:  up.target,
			Benefit: fmt.Sprintf("Max loans: %d → %d | Interest: %g-%g%% → %g-%g%%",
				tier.MaxSimultaneousLoans, next.MaxSimultaneousLoans,
				tier.BaseInterestRange.Low(), tier.BaseInterestRange.High(),
				next.BaseInterestRange.Low(), next.BaseInterestRange.High()),
			Actions: scoreActions(score, gap),
		})
	}

	for _, flag := range capacity.RiskFlags {
		path = append(path, Improvement{
			Type:  ImprovementHealth,
			Title: flag,
			Actions: []string{
				"Reduce existing EMI burden by prepaying high-interest loans",
				"Increase income through supplementary earnings",
				"Reduce fixed expenses to improve disposable income",
			},
		})
	}

	if tier.Key == TierExcellent {
		path = append(path, Improvement{
			Type:  ImprovementMaintenance,
			Title: "Maintain your excellent score",
			Actions: []string{
				"Continue on-time payments across all obligations",
				"Keep FOIR below 40% for best rates",
				"Diversify income sources for higher limits",
				"Build 6+ months emergency fund",
			},
		})
	}
	return path
}

func scoreActions(score, gap float64) []string {
	var actions []string
	switch {
	case score < 450:
		actions = []string{
			"Start regular mobile recharges (monthly plans)",
			"Pay utility bills on time for 3+ months",
			"Get Aadhaar and at least one more government ID",
			"Join a Self-Help Group (SHG) or community group",
		}
	case score < 600:
		actions = []string{
			"Maintain 6+ months of consistent income records",
			"Build a savings habit: even ₹500/month helps",
			"Pay all utility bills within due date",
			"Get references from community members or employers",
		}
	case score < 750:
		actions = []string{
			"Maintain transaction consistency (avoid long gaps)",
			"Reduce expense-to-income ratio below 60%",
			"Build recurring savings (SIP, RD, or SHG deposits)",
			"Establish 12+ month positive payment history",
		}
	default:
		actions = []string{}
	}
	if gap <= 30 {
		actions = append([]string{fmt.Sprintf("You're only %.0f points away, focus on consistency!", gap)}, actions...)
	}
	return actions
}
