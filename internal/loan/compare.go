package loan

import "sort"

const (
	compareTop       = 3
	compareRateCeil  = 30.0
	compareAmountRef = 500000.0
)

// Ranked is an eligible recommendation with its comparison score.
type Ranked struct {
	Recommendation
	CompositeScore float64 `json:"composite_score"`
}

// Compare ranks eligible recommendations by a blend of rate, size, subsidy
// and collateral and keeps the best three.
func Compare(recs []Recommendation) []Ranked {
	out := []Ranked{}
	for _, r := range recs {
		if !r.Eligible {
			continue
		}
		rate := max(0, compareRateCeil-r.EffectiveRate) / compareRateCeil
		amount := min(r.MaxLoanAmount/compareAmountRef, 1)
		subsidy := 0.0
		if r.Subsidy != "" {
			subsidy = 1
		}
		collateral := 0.5
		if r.CollateralRequired {
			collateral = 0
		}
		out = append(out, Ranked{
			Recommendation: r,
			CompositeScore: rate*0.35 + amount*0.30 + subsidy*0.20 + collateral*0.15,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompositeScore > out[j].CompositeScore
	})
	if len(out) > compareTop {
		out = out[:compareTop]
	}
	return out
}
