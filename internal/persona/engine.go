// Package persona scores applicants without transaction history from
// persona-specific alternative data.
package persona

import (
	"sort"

	"github.com/opensource-finance/credivist/internal/numeric"
	"github.com/opensource-finance/credivist/internal/scoring"
)

const (
	filledThreshold = 0.20
	tipThreshold    = 0.50
	maxTips         = 5
	emptyBase100    = 30
	minConfidence   = 0.30
	maxConfidence   = 0.95
)

// Breakdown is one criterion's entry in a persona result.
type Breakdown struct {
	Criterion Criterion `json:"criterion"`
	Weight    float64   `json:"weight"`
	CriterionResult
}

// Result is a persona credit score on the same 300-900 scale as the
// transaction path.
type Result struct {
	Persona       string      `json:"persona"`
	Label         string      `json:"label"`
	BaseScore100  float64     `json:"base_score_100"`
	TrustScore    float64     `json:"trust_score"`
	Grade         string      `json:"grade"`
	GradeColor    string      `json:"grade_color"`
	Confidence    float64     `json:"confidence"`
	Breakdown     []Breakdown `json:"criteria_breakdown"`
	CriteriaCount int         `json:"criteria_count"`
	FilledCount   int         `json:"filled_count"`
}

// gradeBase maps a 0-100 base to the trust scale. The grade is taken from the
// unrounded trust score so 749.6 stays Good while displaying as 750.
func gradeBase(base100 float64) (trust float64, grade, color string) {
	raw := scoring.ToTrustScore(base100)
	grade, color = scoring.Grade(raw)
	return numeric.RoundScore(raw), grade, color
}

// Criterion returns the breakdown entry for c.
func (r *Result) Criterion(c Criterion) (CriterionResult, bool) {
	for _, b := range r.Breakdown {
		if b.Criterion == c {
			return b.CriterionResult, true
		}
	}
	return CriterionResult{}, false
}

// Score computes the persona credit score for the given inputs. Missing
// inputs fall back to each criterion's defaults; only an unknown persona is
// an error.
func Score(key string, in Input) (*Result, error) {
	profile, err := Lookup(key)
	if err != nil {
		return nil, err
	}
	if in == nil {
		in = Input{}
	}

	res := &Result{
		Persona:       profile.Key,
		Label:         profile.Label,
		Breakdown:     make([]Breakdown, 0, len(profile.Weights)),
		CriteriaCount: len(profile.Weights),
	}

	var weighted, total float64
	for _, w := range profile.Weights {
		scorer, ok := ScorerFor(w.Criterion)
		if !ok {
			continue
		}
		cr := scorer.Score(in)
		res.Breakdown = append(res.Breakdown, Breakdown{Criterion: w.Criterion, Weight: w.Weight, CriterionResult: cr})
		weighted += cr.Score * w.Weight
		total += w.Weight
		if cr.Score > filledThreshold {
			res.FilledCount++
		}
	}

	base := float64(emptyBase100)
	if total > 0 {
		base = weighted / total * 100
	}
	res.BaseScore100 = numeric.Round(base, 2)
	res.TrustScore, res.Grade, res.GradeColor = gradeBase(base)

	if res.CriteriaCount > 0 {
		ratio := float64(res.FilledCount) / float64(res.CriteriaCount)
		res.Confidence = numeric.Round(numeric.Clamp(ratio, minConfidence, maxConfidence), 2)
	} else {
		res.Confidence = minConfidence
	}
	return res, nil
}

// Tip is an improvement suggestion for a weak criterion.
type Tip struct {
	Criterion    Criterion `json:"criterion"`
	CurrentScore float64   `json:"current_score"`
	Action       string    `json:"action"`
	Impact       string    `json:"impact"`
	Description  string    `json:"description"`
}

type tipText struct {
	action, impact, description string
}

var tipTexts = map[Criterion]tipText{
	LandAsset: {"Secure formal land records or lease agreements", "high",
		"Documented land tenure significantly boosts your profile. Register lease if renting."},
	CropConsistency: {"Diversify crops and maintain yield records", "high",
		"Growing 2-3 crops per year with documented yield history improves consistency score."},
	SubsidyLinkage: {"Enroll in PM-KISAN and get Kisan Credit Card", "medium",
		"Government scheme linkage signals stability. Apply at nearest CSC or bank."},
	MarketEngagement: {"Register on e-NAM and use mandi receipts", "medium",
		"Formal market participation with receipts creates a documentable trading history."},
	AcademicPerformance: {"Clear backlogs and improve current semester grades", "high",
		"Each backlog cleared adds +10% to your academic score."},
	ScholarshipHistory: {"Apply for merit and need-based scholarships", "medium",
		"Even small scholarships signal merit. Check NSP (National Scholarship Portal)."},
	SkillCertifications: {"Complete free NPTEL/Coursera/NSDC certifications", "medium",
		"Government-recognized certifications (NSDC, PMKVY) carry extra weight."},
	AttendanceDiscipline: {"Maintain 90%+ attendance", "low",
		"Regular attendance signals discipline. Aim for 90%+ for full score."},
	PartTimeIncome: {"Start tutoring, freelancing, or campus work", "medium",
		"Even ₹5,000/month earned consistently for 6 months significantly boosts this score."},
	DailyIncomeConsistency: {"Work more days per month and reduce seasonal gaps", "high",
		"26+ working days/month with low seasonal variation scores highest."},
	RentalDiscipline: {"Pay rent on time and keep receipts", "medium",
		"On-time rent payments with 12+ months history strongly boost your score."},
	UtilityDiscipline: {"Pay all utility bills on time", "medium",
		"Consistent bill payments across electricity, water, gas show financial discipline."},
	SavingsHabit: {"Join an SHG or start systematic savings", "high",
		"Even ₹500/month saved consistently in SHG or post office scores well."},
	CommunityTrust: {"Join a community group and get references", "medium",
		"3+ character references and group membership signal social trustworthiness."},
	MobileBehaviour: {"Use monthly recharge plans and try UPI payments", "low",
		"Regular monthly recharges on a smartphone with basic UPI usage improves this score."},
	YearsInTrade: {"Stay at same location and get a vendor license", "medium",
		"Stability in location and formal licensing show commitment to the trade."},
	HouseholdBudgeting: {"Track income vs expenses and reduce deficit", "high",
		"Keeping household expenses below 60% of income scores highest."},
	MicroEnterprise: {"Start a small home business or formalize existing one", "medium",
		"Even a small tiffin or tailoring service active for 12+ months adds to your profile."},
	IDVerification: {"Get Aadhaar and at least one more government ID", "high",
		"Aadhaar linkage is essential. PAN and Voter ID further strengthen your identity score."},
	Psychometric: {"Improve financial awareness and planning", "low",
		"Understanding borrowing costs and planning expenses wisely improves this assessment."},
}

// Tips returns up to five suggestions for the weakest criteria of a result,
// lowest score first.
func Tips(r *Result) []Tip {
	if r == nil {
		return nil
	}
	var tips []Tip
	for _, b := range r.Breakdown {
		if b.Score >= tipThreshold {
			continue
		}
		text, ok := tipTexts[b.Criterion]
		if !ok {
			continue
		}
		tips = append(tips, Tip{
			Criterion:    b.Criterion,
			CurrentScore: b.Score,
			Action:       text.action,
			Impact:       text.impact,
			Description:  text.description,
		})
	}
	sort.SliceStable(tips, func(i, j int) bool { return tips[i].CurrentScore < tips[j].CurrentScore })
	if len(tips) > maxTips {
		tips = tips[:maxTips]
	}
	return tips
}
