package loan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opensource-finance/credivist/internal/numeric"
	"github.com/opensource-finance/credivist/internal/persona"
)

// Bundle sources.
const (
	BundleTransaction = "transaction"
	BundlePersona     = "alternative_profile"
)

const (
	transactionRecommendShare = 0.8
	personaRecommendShare     = 0.6
	transactionSubsidyMarkup  = 4.0
	personaSubsidyMarkup      = 5.0
	fallbackIncome            = 10000
)

// Recommendation is one product sized for one applicant.
type Recommendation struct {
	Key                string   `json:"key"`
	Name               string   `json:"name"`
	Icon               string   `json:"icon"`
	Category           string   `json:"category"`
	Eligible           bool     `json:"eligible"`
	Reasons            []string `json:"reasons"`
	CriteriaMet        []string `json:"criteria_met,omitempty"`
	CriteriaNotMet     []string `json:"criteria_not_met,omitempty"`
	EffectiveRate      float64  `json:"effective_rate"`
	MaxLoanAmount      float64  `json:"max_loan_amount"`
	RecommendedAmount  float64  `json:"recommended_amount"`
	MinAmount          float64  `json:"min_amount"`
	EMI                float64  `json:"emi"`
	SuggestedTenure    int      `json:"suggested_tenure"`
	TenureRange        IntRange `json:"tenure_range"`
	TotalInterest      float64  `json:"total_interest"`
	TotalPayable       float64  `json:"total_payable"`
	InterestSaved      float64  `json:"interest_saved_via_subsidy"`
	CollateralRequired bool     `json:"collateral_required"`
	ProcessingFee      string   `json:"processing_fee"`
	Description        string   `json:"description"`
	Lenders            []string `json:"lenders"`
	Documents          []string `json:"documents"`
	Subsidy            string   `json:"subsidy,omitempty"`
}

// Bundle is the full recommendation package for one applicant.
type Bundle struct {
	Score                  float64          `json:"score"`
	Persona                string           `json:"persona,omitempty"`
	Tier                   Tier             `json:"tier"`
	Repayment              Capacity         `json:"repayment_capacity"`
	EligibleLoans          []Recommendation `json:"eligible_loans"`
	IneligibleLoans        []Recommendation `json:"ineligible_loans"`
	MaxSimultaneousLoans   int              `json:"max_simultaneous_loans"`
	TotalEligible          int              `json:"total_eligible"`
	MaxTotalExposure       float64          `json:"max_total_exposure"`
	EstimatedMonthlyIncome float64          `json:"estimated_monthly_income,omitempty"`
	PreApprovalStatus      string           `json:"pre_approval_status"`
	ImprovementPath        []Improvement    `json:"improvement_path"`
	Source                 string           `json:"source"`
}

// TransactionRequest carries verified figures from a transaction history.
type TransactionRequest struct {
	Score           float64 `json:"score"`
	MonthlyIncome   float64 `json:"monthly_income"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	ExistingEMI     float64 `json:"existing_emi"`
}

// PersonaRequest carries a persona score and its questionnaire data.
// MonthlyIncome is estimated from Data when not positive.
type PersonaRequest struct {
	Persona       string        `json:"persona"`
	Score         float64       `json:"score"`
	Data          persona.Input `json:"persona_data"`
	MonthlyIncome float64       `json:"monthly_income"`
}

// RecommendTransaction sizes every transaction product against verified
// income and FOIR capacity.
func RecommendTransaction(req TransactionRequest) *Bundle {
	tier := TierFor(req.Score)
	capacity := AnalyzeRepayment(req.MonthlyIncome, req.MonthlyExpenses, req.ExistingEMI, tier.FOIRCap)

	b := &Bundle{
		Score:                req.Score,
		Tier:                 tier,
		Repayment:            capacity,
		EligibleLoans:        []Recommendation{},
		IneligibleLoans:      []Recommendation{},
		MaxSimultaneousLoans: tier.MaxSimultaneousLoans,
		MaxTotalExposure:     numeric.Round(req.MonthlyIncome*tier.MaxExposureMultiplier, 2),
		PreApprovalStatus:    tier.PreApproval,
		ImprovementPath:      ImprovementPath(req.Score, tier, capacity),
		Source:               BundleTransaction,
	}
	for _, p := range transactionProducts {
		reasons := transactionGate(p, req.Score, req.MonthlyIncome, tier, capacity)
		rec := transactionDetail(p, req.Score, req.MonthlyIncome, tier, capacity)
		rec.Eligible = len(reasons) == 0
		rec.Reasons = reasons
		b.add(rec)
	}
	b.finish()
	return b
}

// RecommendPersona sizes a persona's products. Persona criteria are soft:
// missing data is reported but never blocks a product on its own.
func RecommendPersona(req PersonaRequest) (*Bundle, error) {
	products, ok := personaProducts[req.Persona]
	if !ok {
		return nil, fmt.Errorf("%w: %q", persona.ErrUnknownPersona, req.Persona)
	}
	if req.Data == nil {
		req.Data = persona.Input{}
	}

	tier := TierFor(req.Score)
	income := req.MonthlyIncome
	if income <= 0 {
		income = EstimateIncome(req.Persona, req.Data)
	}
	capacity := AnalyzeRepayment(income, 0, 0, tier.FOIRCap)

	b := &Bundle{
		Score:                  req.Score,
		Persona:                req.Persona,
		Tier:                   tier,
		Repayment:              capacity,
		EligibleLoans:          []Recommendation{},
		IneligibleLoans:        []Recommendation{},
		MaxSimultaneousLoans:   tier.MaxSimultaneousLoans,
		MaxTotalExposure:       numeric.Round(income*tier.MaxExposureMultiplier, 2),
		EstimatedMonthlyIncome: numeric.Round(income, 0),
		PreApprovalStatus:      tier.PreApproval,
		ImprovementPath:        ImprovementPath(req.Score, tier, capacity),
		Source:                 BundlePersona,
	}
	for _, p := range products {
		reasons := baseGate(p, req.Score, tier, capacity)
		eligible := len(reasons) == 0

		met, notMet := splitCriteria(p.EligibilityCriteria, req.Data)
		if len(notMet) > 0 {
			labels := make([]string, len(notMet))
			for i, c := range notMet {
				labels[i] = strings.ReplaceAll(c, "_", " ")
			}
			reasons = append(reasons, "Missing data for: "+strings.Join(labels, ", "))
		}

		rec := personaDetail(p, req.Score, income, tier)
		rec.Eligible = eligible
		rec.Reasons = reasons
		rec.CriteriaMet = met
		rec.CriteriaNotMet = notMet
		b.add(rec)
	}
	b.finish()
	return b, nil
}

func (b *Bundle) add(rec Recommendation) {
	if rec.Eligible {
		b.EligibleLoans = append(b.EligibleLoans, rec)
	} else {
		b.IneligibleLoans = append(b.IneligibleLoans, rec)
	}
}

func (b *Bundle) finish() {
	sort.SliceStable(b.EligibleLoans, func(i, j int) bool {
		return b.EligibleLoans[i].MaxLoanAmount > b.EligibleLoans[j].MaxLoanAmount
	})
	b.TotalEligible = len(b.EligibleLoans)
}

// baseGate applies the hard gates shared by both paths.
func baseGate(p Product, score float64, tier Tier, capacity Capacity) []string {
	reasons := []string{}
	if score < p.MinScore {
		reasons = append(reasons, fmt.Sprintf("Score %.0f below minimum %.0f", score, p.MinScore))
	}
	if tier.MaxSimultaneousLoans == 0 {
		reasons = append(reasons, "Score too low for any loans")
	}
	if capacity.Verdict == VerdictNotEligible {
		reasons = append(reasons, "Repayment capacity insufficient")
	}
	return reasons
}

func transactionGate(p Product, score, income float64, tier Tier, capacity Capacity) []string {
	reasons := baseGate(p, score, tier, capacity)
	if income < p.MinIncome {
		reasons = append(reasons, fmt.Sprintf("Income ₹%s below minimum ₹%s",
			numeric.Grouped(income), numeric.Grouped(p.MinIncome)))
	}
	return reasons
}

// TransactionRate picks a rate inside the product range by score.
func TransactionRate(score float64, r Range) float64 {
	switch {
	case score >= 750:
		return r.Low()
	case score >= 650:
		return r.Low() + r.Span()*0.3
	case score >= 500:
		return r.Low() + r.Span()*0.6
	default:
		return r.High()
	}
}

// PersonaRate picks a rate for persona products, which are often
// subsidized and use wider score buckets.
func PersonaRate(score float64, r Range) float64 {
	switch {
	case score >= 700:
		return r.Low()
	case score >= 550:
		return r.Low() + r.Span()*0.4
	default:
		return r.High()
	}
}

func transactionDetail(p Product, score, income float64, tier Tier, capacity Capacity) Recommendation {
	rate := TransactionRate(score, p.InterestRange)
	productMax := p.AmountRange.High()

	byEMI := 0.0
	if capacity.MaxNewEMI > 0 {
		byEMI = MaxLoanFromEMI(capacity.MaxNewEMI, rate, p.TenureRange.Mid())
	}
	maxLoan := max(min(income*tier.MaxExposureMultiplier, productMax, byEMI), 0)
	recommended := max(min(maxLoan*transactionRecommendShare, productMax), 0)

	tenure := min(p.TenureRange.High(), tier.MaxTenureMonths)
	if tenure == 0 && p.TenureRange.High() > 0 {
		tenure = p.TenureRange.Low()
	}
	return sized(p, rate, maxLoan, recommended, tenure, transactionSubsidyMarkup)
}

func personaDetail(p Product, score, income float64, tier Tier) Recommendation {
	rate := PersonaRate(score, p.InterestRange)
	productMax := p.AmountRange.High()

	maxLoan := productMax
	if income > 0 {
		if incomeCap := income * tier.MaxExposureMultiplier; incomeCap > 0 && incomeCap < maxLoan {
			maxLoan = incomeCap
		}
	}
	recommended := max(min(maxLoan*personaRecommendShare, productMax), p.AmountRange.Low())

	tenure := p.TenureRange.High()
	if tier.MaxTenureMonths > 0 {
		tenure = min(tenure, tier.MaxTenureMonths)
	}
	if tenure == 0 {
		tenure = p.TenureRange.Low()
	}
	return sized(p, rate, maxLoan, recommended, tenure, personaSubsidyMarkup)
}

func sized(p Product, rate, maxLoan, recommended float64, tenure int, subsidyMarkup float64) Recommendation {
	interest := TotalInterest(recommended, rate, tenure)
	saved := 0.0
	if p.Subsidy != "" {
		saved = max(TotalInterest(recommended, rate+subsidyMarkup, tenure)-interest, 0)
	}
	return Recommendation{
		Key:                p.Key,
		Name:               p.Name,
		Icon:               p.Icon,
		Category:           p.Category,
		EffectiveRate:      numeric.Round(rate, 2),
		MaxLoanAmount:      numeric.Round(maxLoan, 0),
		RecommendedAmount:  numeric.Round(recommended, 0),
		MinAmount:          p.AmountRange.Low(),
		EMI:                EMI(recommended, rate, tenure),
		SuggestedTenure:    tenure,
		TenureRange:        p.TenureRange,
		TotalInterest:      interest,
		TotalPayable:       numeric.Round(recommended+interest, 2),
		InterestSaved:      numeric.Round(saved, 0),
		CollateralRequired: p.Collateral,
		ProcessingFee:      p.ProcessingFee,
		Description:        p.Description,
		Lenders:            append([]string(nil), p.Lenders...),
		Documents:          append([]string(nil), p.Documents...),
		Subsidy:            p.Subsidy,
	}
}

// EstimateIncome derives a monthly income from persona data for applicants
// who could not state one.
func EstimateIncome(key string, in persona.Input) float64 {
	switch key {
	case persona.Farmer:
		return in.Float("land_acres", 2) * 18000 * float64(in.Int("crops_per_year", 2)) / 12
	case persona.Student:
		return max(in.Float("monthly_earnings", 0)+in.Float("total_scholarship_value", 0)/12, 5000)
	case persona.StreetVendor:
		return in.Float("avg_daily_income", 500) * float64(in.Int("working_days_per_month", 25))
	case persona.Homemaker:
		return in.Float("household_income", 15000) + in.Float("monthly_revenue", 0)
	case persona.GeneralNoBank:
		return max(in.Float("rent_amount", 2000)*3.5, 8000)
	}
	return fallbackIncome
}

// criterionMet treats absent, false, zero, empty, "0" and "none" as unmet.
func criterionMet(in persona.Input, key string) bool {
	switch v := in[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "0" && v != "none"
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	}
	return in.Float(key, 0) != 0
}

func splitCriteria(criteria []string, in persona.Input) (met, notMet []string) {
	for _, c := range criteria {
		if criterionMet(in, c) {
			met = append(met, c)
		} else {
			notMet = append(notMet, c)
		}
	}
	return met, notMet
}
