package scoring

import (
	"sort"
	"strings"

	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/numeric"
)

// Contribution directions.
const (
	DirectionPositive = "positive"
	DirectionNegative = "negative"
	DirectionNeutral  = "neutral"
)

// explainedFeatures are the model inputs that live on a 0–1 scale.
var explainedFeatures = []string{
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
}

// Contribution is one feature's effect on the score.
type Contribution struct {
	Feature   string  `json:"feature"`
	Key       string  `json:"feature_key"`
	Value     float64 `json:"feature_value"`
	Strength  float64 `json:"strength"`
	Direction string  `json:"direction"`
}

// Explanation lists the features that help and hurt a score.
type Explanation struct {
	Contributions []Contribution `json:"all_contributions"`
	Strengths     []Contribution `json:"top_positive_factors"`
	Risks         []Contribution `json:"top_risk_factors"`
	Text          string         `json:"explanation_text"`
}

// Explain classifies each 0–1 feature: ≥0.7 helps, ≤0.3 hurts, anything
// in between is neutral. Strengths and risks keep the five strongest each.
func Explain(row features.ModelRow) Explanation {
	all := make([]Contribution, 0, len(explainedFeatures))
	for _, key := range explainedFeatures {
		v, ok := row[key]
		if !ok {
			continue
		}
		c := Contribution{
			Feature:   features.Labels[key],
			Key:       key,
			Value:     numeric.Round(v, 4),
			Direction: DirectionNeutral,
			Strength:  0.5,
		}
		switch {
		case v >= 0.7:
			c.Direction = DirectionPositive
			c.Strength = numeric.Round(v, 4)
		case v <= 0.3:
			c.Direction = DirectionNegative
			c.Strength = numeric.Round(1-v, 4)
		}
		all = append(all, c)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Strength > all[j].Strength })

	var strengths, risks []Contribution
	for _, c := range all {
		switch {
		case c.Direction == DirectionPositive && len(strengths) < 5:
			strengths = append(strengths, c)
		case c.Direction == DirectionNegative && len(risks) < 5:
			risks = append(risks, c)
		}
	}

	return Explanation{
		Contributions: all,
		Strengths:     strengths,
		Risks:         risks,
		Text:          explanationText(strengths, risks),
	}
}

func explanationText(strengths, risks []Contribution) string {
	var lines []string
	if len(strengths) > 0 {
		lines = append(lines, "Strengths:")
		for _, c := range strengths[:min(3, len(strengths))] {
			lines = append(lines, "  • "+c.Feature+" is working in your favor")
		}
	}
	if len(risks) > 0 {
		lines = append(lines, "Areas to Improve:")
		for _, c := range risks[:min(3, len(risks))] {
			lines = append(lines, "  • "+c.Feature+" needs attention")
		}
	}
	if len(lines) == 0 {
		return "Score computed based on overall financial profile."
	}
	return strings.Join(lines, "\n")
}
