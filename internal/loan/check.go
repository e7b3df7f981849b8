package loan

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/credivist/internal/numeric"
	"github.com/opensource-finance/credivist/internal/persona"
)

// CheckRequest asks whether one product fits one applicant.
type CheckRequest struct {
	Key             string        `json:"loan_key"`
	Source          Source        `json:"source"`
	Persona         string        `json:"persona,omitempty"`
	Score           float64       `json:"score"`
	MonthlyIncome   float64       `json:"monthly_income"`
	MonthlyExpenses float64       `json:"monthly_expenses"`
	ExistingEMI     float64       `json:"existing_emi"`
	PersonaData     persona.Input `json:"persona_data,omitempty"`
	DesiredAmount   float64       `json:"desired_amount"`
	DesiredTenure   int           `json:"desired_tenure"`
}

// Gap is one shortfall between the applicant and a product requirement.
type Gap struct {
	Check      string `json:"check"`
	Current    string `json:"current"`
	Required   string `json:"required"`
	Gap        string `json:"gap"`
	Difficulty string `json:"difficulty"`
}

// Gap checks.
const (
	CheckScore      = "Credit Score"
	CheckIncome     = "Monthly Income"
	CheckTier       = "Loan Tier Access"
	CheckRepayment  = "Repayment Capacity"
	CheckAmount     = "Loan Amount"
	CheckAffordable = "EMI Affordability"
)

// LoanDetails is the sized offer attached to a passing check.
type LoanDetails struct {
	EffectiveRate      float64  `json:"effective_rate"`
	MaxEligibleAmount  float64  `json:"max_eligible_amount"`
	ActualAmount       float64  `json:"actual_amount"`
	ActualTenureMonths int      `json:"actual_tenure_months"`
	EMI                float64  `json:"emi"`
	TotalInterest      float64  `json:"total_interest"`
	TotalPayable       float64  `json:"total_payable"`
	ProcessingFee      string   `json:"processing_fee"`
	CollateralRequired bool     `json:"collateral_required"`
	Subsidy            string   `json:"subsidy,omitempty"`
	DocumentsNeeded    []string `json:"documents_needed"`
	Lenders            []string `json:"lenders"`
	AmountOK           bool     `json:"amount_ok"`
}

// CheckResult is the verdict for a single product.
type CheckResult struct {
	Eligible          bool         `json:"eligible"`
	Verdict           Verdict      `json:"verdict"`
	LoanName          string       `json:"loan_name"`
	LoanIcon          string       `json:"loan_icon,omitempty"`
	Category          string       `json:"category,omitempty"`
	Description       string       `json:"description,omitempty"`
	Source            Source       `json:"source"`
	Persona           string       `json:"persona,omitempty"`
	ScoreUsed         float64      `json:"score_used"`
	Tier              string       `json:"tier,omitempty"`
	ReasonsPass       []string     `json:"reasons_pass"`
	ReasonsFail       []string     `json:"reasons_fail"`
	GapAnalysis       []Gap        `json:"gap_analysis"`
	LoanDetails       *LoanDetails `json:"loan_details,omitempty"`
	ImprovementSteps  []string     `json:"improvement_steps"`
	RepaymentCapacity *Capacity    `json:"repayment_capacity,omitempty"`
}

func rs(v float64) string { return "Rs." + numeric.Grouped(v) }

// CheckEligibility runs every gate for one product. For an unknown product
// it returns a LOAN_NOT_FOUND result together with an error wrapping
// ErrLoanNotFound.
func CheckEligibility(req CheckRequest) (*CheckResult, error) {
	p, err := Find(req.Source, req.Persona, req.Key)
	if err != nil {
		return &CheckResult{
			Verdict:          VerdictNotFound,
			LoanName:         req.Key,
			Source:           req.Source,
			Persona:          req.Persona,
			ScoreUsed:        req.Score,
			ReasonsPass:      []string{},
			ReasonsFail:      []string{fmt.Sprintf("Loan '%s' not found in %s/%s catalog", req.Key, req.Source, req.Persona)},
			GapAnalysis:      []Gap{},
			ImprovementSteps: []string{},
		}, err
	}
	if req.PersonaData == nil {
		req.PersonaData = persona.Input{}
	}

	score := req.Score
	tier := TierFor(score)
	income := req.MonthlyIncome
	if income <= 0 && req.Source == SourcePersona && req.Persona != "" {
		income = EstimateIncome(req.Persona, req.PersonaData)
	}
	capacity := AnalyzeRepayment(income, req.MonthlyExpenses, req.ExistingEMI, tier.FOIRCap)

	res := &CheckResult{
		LoanName:          p.Name,
		LoanIcon:          p.Icon,
		Category:          p.Category,
		Description:       p.Description,
		Source:            req.Source,
		Persona:           req.Persona,
		ScoreUsed:         score,
		Tier:              tier.Grade,
		ReasonsPass:       []string{},
		ReasonsFail:       []string{},
		GapAnalysis:       []Gap{},
		RepaymentCapacity: &capacity,
	}

	scoreFail := score < p.MinScore
	if !scoreFail {
		res.pass("Score %.0f meets minimum requirement of %.0f", score, p.MinScore)
	} else {
		gap := p.MinScore - score
		res.fail("Score %.0f is below minimum %.0f (need +%.0f points)", score, p.MinScore, gap)
		difficulty := "Hard"
		if gap <= 50 {
			difficulty = "Medium"
		}
		res.gap(Gap{CheckScore, fmt.Sprintf("%.0f", score), fmt.Sprintf("%.0f", p.MinScore),
			fmt.Sprintf("+%.0f points needed", gap), difficulty})
	}

	incomeFail := false
	if req.Source == SourceTransaction && p.MinIncome > 0 {
		if income >= p.MinIncome {
			res.pass("Monthly income %s meets minimum %s", rs(income), rs(p.MinIncome))
		} else {
			incomeFail = true
			gap := p.MinIncome - income
			res.fail("Monthly income %s below minimum %s (need +%s)", rs(income), rs(p.MinIncome), rs(gap))
			res.gap(Gap{CheckIncome, rs(income), rs(p.MinIncome), "+" + rs(gap) + "/month needed", "Hard"})
		}
	}

	tierFail := tier.MaxSimultaneousLoans == 0
	if !tierFail {
		res.pass("Score tier '%s' allows up to %d loan(s)", tier.Grade, tier.MaxSimultaneousLoans)
	} else {
		res.fail("Score tier 'Very Poor' does not allow any loans. Improve score to 400+ first.")
		res.gap(Gap{CheckTier, tier.Grade, "Poor (400+)",
			fmt.Sprintf("+%.0f points to unlock loan access", 400-score), "Hard"})
	}

	switch capacity.Verdict {
	case VerdictNotEligible:
		res.fail("Repayment capacity insufficient: income is zero or FOIR exceeded")
		res.gap(Gap{CheckRepayment, "Max new EMI: " + rs(capacity.MaxNewEMI), "Positive EMI capacity",
			"Reduce existing EMIs or increase income", "Hard"})
	case VerdictMicroOnly:
		res.pass("Limited repayment capacity: max new EMI %s", rs(capacity.MaxNewEMI))
	default:
		res.pass("Repayment capacity healthy: max new EMI %s", rs(capacity.MaxNewEMI))
	}

	for _, c := range p.EligibilityCriteria {
		label := titleCase(strings.ReplaceAll(c, "_", " "))
		if criterionMet(req.PersonaData, c) {
			res.pass("Criteria '%s' is met", label)
		} else {
			res.fail("Criteria '%s' not verified: provide proof/data to strengthen application", label)
		}
	}

	res.Eligible = len(res.ReasonsFail) == 0
	switch {
	case tierFail, scoreFail, incomeFail:
		res.Verdict = VerdictNotEligible
	case capacity.Verdict == VerdictNotEligible:
		res.Verdict = VerdictNotEligible
	case capacity.Verdict == VerdictMicroOnly:
		res.Verdict = VerdictMicroOnly
	case len(res.ReasonsFail) > 0:
		res.Verdict = VerdictCaution
	default:
		res.Verdict = VerdictEligible
	}

	if res.Verdict != VerdictNotEligible {
		res.LoanDetails = res.size(p, req, tier, capacity, income)
	}
	res.ImprovementSteps = improvementSteps(res)
	return res, nil
}

func (r *CheckResult) size(p Product, req CheckRequest, tier Tier, capacity Capacity, income float64) *LoanDetails {
	rate := TransactionRate(req.Score, p.InterestRange)
	productMax := p.AmountRange.High()
	byIncome := productMax
	if income > 0 {
		byIncome = income * tier.MaxExposureMultiplier
	}

	byEMI := 0.0
	if capacity.MaxNewEMI > 0 {
		tenure := p.TenureRange.Mid()
		if req.DesiredTenure > 0 {
			tenure = req.DesiredTenure
		}
		byEMI = MaxLoanFromEMI(capacity.MaxNewEMI, rate, tenure)
	}
	maxAmount := min(productMax, byIncome)
	if byEMI > 0 {
		maxAmount = min(maxAmount, byEMI)
	}
	maxAmount = max(maxAmount, 0)

	amount := req.DesiredAmount
	if amount <= 0 || amount > maxAmount {
		amount = min(maxAmount*transactionRecommendShare, productMax)
	}
	amount = max(amount, 0)

	tenure := p.TenureRange.High()
	if req.DesiredTenure > 0 {
		tenure = req.DesiredTenure
	}
	if tier.MaxTenureMonths > 0 {
		tenure = min(tenure, tier.MaxTenureMonths)
	}
	tenure = min(max(tenure, p.TenureRange.Low()), p.TenureRange.High())

	emi := EMI(amount, rate, tenure)
	interest := TotalInterest(amount, rate, tenure)

	amountOK := true
	if req.DesiredAmount > 0 && req.DesiredAmount > maxAmount {
		amountOK = false
		r.fail("Desired amount %s exceeds maximum eligible %s", rs(req.DesiredAmount), rs(maxAmount))
		r.gap(Gap{CheckAmount, "Max eligible: " + rs(maxAmount), rs(req.DesiredAmount),
			"Exceeds by " + rs(req.DesiredAmount-maxAmount), "Medium"})
		r.Eligible = false
		if r.Verdict == VerdictEligible {
			r.Verdict = VerdictCaution
		}
	}
	if emi > capacity.MaxNewEMI && capacity.MaxNewEMI > 0 {
		r.fail("EMI %s exceeds affordable EMI %s", rs(emi), rs(capacity.MaxNewEMI))
		r.gap(Gap{CheckAffordable, "Affordable: " + rs(capacity.MaxNewEMI) + "/mo", rs(emi) + "/mo",
			"Reduce amount or extend tenure", "Medium"})
	}

	return &LoanDetails{
		EffectiveRate:      numeric.Round(rate, 2),
		MaxEligibleAmount:  numeric.Round(maxAmount, 0),
		ActualAmount:       numeric.Round(amount, 0),
		ActualTenureMonths: tenure,
		EMI:                emi,
		TotalInterest:      interest,
		TotalPayable:       numeric.Round(amount+interest, 2),
		ProcessingFee:      p.ProcessingFee,
		CollateralRequired: p.Collateral,
		Subsidy:            p.Subsidy,
		DocumentsNeeded:    append([]string(nil), p.Documents...),
		Lenders:            append([]string(nil), p.Lenders...),
		AmountOK:           amountOK,
	}
}

func (r *CheckResult) pass(format string, args ...any) {
	r.ReasonsPass = append(r.ReasonsPass, fmt.Sprintf(format, args...))
}

func (r *CheckResult) fail(format string, args ...any) {
	r.ReasonsFail = append(r.ReasonsFail, fmt.Sprintf(format, args...))
}

func (r *CheckResult) gap(g Gap) {
	r.GapAnalysis = append(r.GapAnalysis, g)
}

func improvementSteps(r *CheckResult) []string {
	if r.Eligible && r.Verdict == VerdictEligible {
		return []string{
			"You are fully eligible! Gather the required documents and apply.",
			"Compare rates across multiple lenders for the best deal.",
		}
	}

	steps := []string{}
	for _, g := range r.GapAnalysis {
		switch g.Check {
		case CheckScore:
			steps = append(steps,
				"Improve score by "+g.Gap+": pay bills on time, maintain consistent income records",
				"Use the score builder to see exactly which criteria to improve")
		case CheckIncome:
			steps = append(steps,
				"Increase income by "+g.Gap+": consider supplementary income sources",
				"After income improves, upload 6-month bank statement to verify")
		case CheckTier:
			steps = append(steps,
				"Focus on consistently paying utility bills on time",
				"Get registered with Aadhaar + PAN for identity verification",
				"Join an SHG or JLG group for initial credit access")
		case CheckRepayment:
			steps = append(steps,
				"Pay off or reduce existing loan EMIs first",
				"Reduce monthly fixed expenses",
				"Consider increasing income before applying")
		case CheckAmount:
			maxEligible := "N/A"
			if r.LoanDetails != nil {
				maxEligible = numeric.Grouped(r.LoanDetails.MaxEligibleAmount)
			}
			steps = append(steps,
				"Apply for a lower amount (max eligible: "+maxEligible+")",
				"Improve score / income to increase eligibility limit")
		case CheckAffordable:
			steps = append(steps,
				"Choose a longer tenure to reduce monthly EMI",
				"Apply for a smaller amount to bring EMI within budget",
				"Pay off existing EMIs to free up capacity")
		}
	}
	if len(steps) == 0 && !r.Eligible {
		steps = append(steps, "Improve your credit score and income to become eligible for this loan.")
	}
	return steps
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
