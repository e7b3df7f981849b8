package scoring

import (
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/numeric"
)

// Trust score range.
const (
	MinScore = 300.0
	MaxScore = 900.0
)

// Confidence bounds.
const (
	MinConfidence = 0.40
	MaxConfidence = 0.95
)

// Grade labels.
const (
	GradeExcellent = "Excellent"
	GradeGood      = "Good"
	GradeFair      = "Fair"
	GradePoor      = "Poor"
	GradeVeryPoor  = "Very Poor"
)

// ScoreResult is the outcome of the base and final blend.
type ScoreResult struct {
	BaseScore100    float64 `json:"base_score_100"`
	BaseTrustScore  float64 `json:"base_trust_score"`
	FinalTrustScore float64 `json:"final_trust_score"`
	RiskProbability float64 `json:"risk_probability"`
	Grade           string  `json:"grade"`
	GradeColor      string  `json:"grade_color"`
	Confidence      float64 `json:"confidence"`
}

// ToTrustScore maps a 0–100 score onto 300–900 without rounding.
func ToTrustScore(score100 float64) float64 {
	return numeric.Clamp(MinScore+score100/100*(MaxScore-MinScore), MinScore, MaxScore)
}

// BaseScore blends the sub-scores and maps them to a whole 300–900 score.
func BaseScore(s SubScores) (score100, trust float64) {
	score100 = s.Blend100()
	return numeric.Round(score100, 2), numeric.RoundScore(ToTrustScore(score100))
}

// FinalScore applies the risk penalty to a base trust score:
// the distance above 300 shrinks by the factor (1 − risk).
func FinalScore(base, risk float64) float64 {
	risk = numeric.Clamp01(risk)
	adjusted := (base - MinScore) / (MaxScore - MinScore) * 100 * (1 - risk)
	return numeric.RoundScore(ToTrustScore(adjusted))
}

// Grade returns the grade label and display color of a trust score.
func Grade(score float64) (grade, color string) {
	switch {
	case score >= 750:
		return GradeExcellent, "#22c55e"
	case score >= 650:
		return GradeGood, "#84cc16"
	case score >= 500:
		return GradeFair, "#eab308"
	case score >= 400:
		return GradePoor, "#f97316"
	default:
		return GradeVeryPoor, "#ef4444"
	}
}

var confidenceWeights = [6]float64{0.20, 0.25, 0.15, 0.15, 0.10, 0.15}

// Confidence measures how much data backs a score. It only looks at data
// volume and coverage, never at whether the data is favorable.
func Confidence(r *features.Record) float64 {
	savings := 0.4
	if r.HasRecurringSavings || r.AvgMonthlySavings > 0 {
		savings = 1.0
	}
	checks := [6]float64{
		numeric.MinRatio(float64(len(r.MonthlyIncomes)), 6),
		numeric.MinRatio(float64(r.TotalTransactions), 150),
		numeric.MinRatio(float64(r.TotalBills), 12),
		numeric.MinRatio(float64(r.TenureMonths), 12),
		savings,
		numeric.MinRatio(float64(r.NumIncomeSources), 3),
	}

	var raw float64
	for i, c := range checks {
		raw += max(c, 0) * confidenceWeights[i]
	}
	return numeric.Round(numeric.Clamp(raw, MinConfidence, MaxConfidence), 2)
}

// Compute scores a record for a given risk probability. It is a pure
// function of its inputs.
func Compute(r *features.Record, ext features.Extraction, riskProbability float64) (SubScores, ScoreResult) {
	subs := ComputeSubScores(ext.Vector, r.RechargeRegularity)
	base100, base := BaseScore(subs)
	final := FinalScore(base, riskProbability)
	grade, color := Grade(final)

	return subs, ScoreResult{
		BaseScore100:    base100,
		BaseTrustScore:  base,
		FinalTrustScore: final,
		RiskProbability: numeric.Round(numeric.Clamp01(riskProbability), 4),
		Grade:           grade,
		GradeColor:      color,
		Confidence:      Confidence(r),
	}
}
