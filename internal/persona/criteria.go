package persona

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/opensource-finance/credivist/internal/numeric"
)

// Criterion identifies one alternative-data scoring criterion.
type Criterion int

const (
	LandAsset Criterion = iota
	CropConsistency
	SubsidyLinkage
	MarketEngagement
	AcademicPerformance
	ScholarshipHistory
	SkillCertifications
	AttendanceDiscipline
	PartTimeIncome
	FuturePotential
	DailyIncomeConsistency
	RentalDiscipline
	UtilityDiscipline
	SavingsHabit
	CommunityTrust
	MobileBehaviour
	YearsInTrade
	HouseholdBudgeting
	MicroEnterprise
	IDVerification
	Psychometric

	numCriteria
)

var criterionKeys = [numCriteria]string{
	LandAsset:              "land_asset",
	CropConsistency:        "crop_consistency",
	SubsidyLinkage:         "subsidy_linkage",
	MarketEngagement:       "market_engagement",
	AcademicPerformance:    "academic_performance",
	ScholarshipHistory:     "scholarship_history",
	SkillCertifications:    "skill_certifications",
	AttendanceDiscipline:   "attendance_discipline",
	PartTimeIncome:         "part_time_income",
	FuturePotential:        "future_potential",
	DailyIncomeConsistency: "daily_income_consistency",
	RentalDiscipline:       "rental_discipline",
	UtilityDiscipline:      "utility_discipline",
	SavingsHabit:           "savings_habit",
	CommunityTrust:         "community_trust",
	MobileBehaviour:        "mobile_behaviour",
	YearsInTrade:           "years_in_trade",
	HouseholdBudgeting:     "household_budgeting",
	MicroEnterprise:        "micro_enterprise",
	IDVerification:         "id_verification",
	Psychometric:           "psychometric",
}

// String returns the wire key of the criterion.
func (c Criterion) String() string {
	if c < 0 || c >= numCriteria {
		return "criterion(" + strconv.Itoa(int(c)) + ")"
	}
	return criterionKeys[c]
}

// MarshalText encodes the criterion as its key.
func (c Criterion) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCriterion resolves a wire key.
func ParseCriterion(key string) (Criterion, bool) {
	for c, k := range criterionKeys {
		if k == key {
			return Criterion(c), true
		}
	}
	return 0, false
}

// CriterionResult is one criterion's score in [0,1] with a display label and
// a short description of the inputs behind it.
type CriterionResult struct {
	Score  float64 `json:"score"`
	Label  string  `json:"label"`
	Detail string  `json:"detail"`
}

// CriterionScorer scores one criterion. Every scorer is total: an empty
// Input yields a valid result.
type CriterionScorer interface {
	Score(in Input) CriterionResult
}

// ScorerFunc adapts a function to CriterionScorer.
type ScorerFunc func(Input) CriterionResult

func (f ScorerFunc) Score(in Input) CriterionResult { return f(in) }

var scorers = [numCriteria]CriterionScorer{
	LandAsset:              ScorerFunc(scoreLandAsset),
	CropConsistency:        ScorerFunc(scoreCropConsistency),
	SubsidyLinkage:         ScorerFunc(scoreSubsidyLinkage),
	MarketEngagement:       ScorerFunc(scoreMarketEngagement),
	AcademicPerformance:    ScorerFunc(scoreAcademicPerformance),
	ScholarshipHistory:     ScorerFunc(scoreScholarshipHistory),
	SkillCertifications:    ScorerFunc(scoreSkillCertifications),
	AttendanceDiscipline:   ScorerFunc(scoreAttendanceDiscipline),
	PartTimeIncome:         ScorerFunc(scorePartTimeIncome),
	FuturePotential:        ScorerFunc(scoreFuturePotential),
	DailyIncomeConsistency: ScorerFunc(scoreDailyIncomeConsistency),
	RentalDiscipline:       ScorerFunc(scoreRentalDiscipline),
	UtilityDiscipline:      ScorerFunc(scoreUtilityDiscipline),
	SavingsHabit:           ScorerFunc(scoreSavingsHabit),
	CommunityTrust:         ScorerFunc(scoreCommunityTrust),
	MobileBehaviour:        ScorerFunc(scoreMobileBehaviour),
	YearsInTrade:           ScorerFunc(scoreYearsInTrade),
	HouseholdBudgeting:     ScorerFunc(scoreHouseholdBudgeting),
	MicroEnterprise:        ScorerFunc(scoreMicroEnterprise),
	IDVerification:         ScorerFunc(scoreIDVerification),
	Psychometric:           ScorerFunc(scorePsychometric),
}

// ScorerFor returns the scorer registered for c.
func ScorerFor(c Criterion) (CriterionScorer, bool) {
	if c < 0 || c >= numCriteria {
		return nil, false
	}
	return scorers[c], true
}

func result(score float64, label, detail string) CriterionResult {
	return CriterionResult{Score: numeric.Round(numeric.Clamp01(score), 4), Label: label, Detail: detail}
}

func capped(v, limit float64) float64 { return math.Min(v/limit, 1) }

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func rupees(v float64) string { return "₹" + numeric.Grouped(v) }

func lookup(table map[string]float64, key string, def float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return def
}

// Farmer

func scoreLandAsset(in Input) CriterionResult {
	owns := in.Bool("owns_land")
	acres := in.Float("land_acres", 0)
	years := in.Int("years_on_land", 0)

	ownership := 0.3
	verb := "Leases"
	if owns {
		ownership, verb = 0.6, "Owns"
	}
	score := ownership*0.40 + capped(acres, 5)*0.30 + capped(float64(years), 10)*0.30
	return result(score, "Land / Asset Ownership", fmt.Sprintf("%s %.1f acres, %d yrs", verb, acres, years))
}

func scoreCropConsistency(in Input) CriterionResult {
	seasons := in.Int("seasons_active", 0)
	crops := in.Int("crops_per_year", 0)
	trend := in.String("yield_trend", "stable")
	trendScore := lookup(map[string]float64{"up": 1.0, "stable": 0.7, "down": 0.3}, trend, 0.5)

	score := capped(float64(seasons), 6)*0.35 + capped(float64(crops), 3)*0.30 + trendScore*0.35
	return result(score, "Crop / Yield Consistency",
		fmt.Sprintf("%d seasons, %d crops/yr, trend: %s", seasons, crops, trend))
}

func scoreSubsidyLinkage(in Input) CriterionResult {
	schemes := []struct{ key, name string }{
		{"has_pm_kisan", "PM-KISAN"},
		{"has_crop_insurance", "Crop Ins."},
		{"has_soil_health_card", "Soil Card"},
		{"kcc_holder", "KCC"},
	}
	var active []string
	for _, s := range schemes {
		if in.Bool(s.key) {
			active = append(active, s.name)
		}
	}
	names := strings.Join(active, ", ")
	if names == "" {
		names = "None"
	}
	return result(capped(float64(len(active)), 3), "Government Subsidy Linkage",
		fmt.Sprintf("%d/4 schemes linked: %s", len(active), names))
}

func scoreMarketEngagement(in Input) CriterionResult {
	var score float64
	if in.Bool("sells_at_mandi") {
		score += 0.3
	}
	if in.Bool("has_warehouse_receipt") {
		score += 0.25
	}
	if in.Bool("uses_enam") {
		score += 0.2
	}
	score += capped(float64(in.Int("avg_trips_per_month", 0)), 4) * 0.25
	return result(score, "Market Engagement", fmt.Sprintf("Mandi: %s, Warehouse: %s, e-NAM: %s",
		mark(in.Bool("sells_at_mandi")), mark(in.Bool("has_warehouse_receipt")), mark(in.Bool("uses_enam"))))
}

// Student

func scoreAcademicPerformance(in Input) CriterionResult {
	stype := in.String("score_type", "percentage")
	val := in.Float("score_value", 0)

	normalized := capped(val, 100)
	unit := "%"
	if stype == "cgpa" {
		normalized, unit = capped(val, 10), "CGPA"
	}
	backlogs := in.Int("backlog_count", 0)
	penalty := math.Min(float64(backlogs)*0.1, 0.4)
	level := in.String("education_level", "school")
	bonus := lookup(map[string]float64{"school": 0, "ug": 0.05, "pg": 0.10}, level, 0)

	return result(normalized-penalty+bonus, "Academic Performance",
		fmt.Sprintf("%g %s (%s), %d backlogs", val, unit, strings.ToUpper(level), backlogs))
}

func scoreScholarshipHistory(in Input) CriterionResult {
	count := in.Int("scholarships_received", 0)
	value := in.Float("total_scholarship_value", 0)
	merit := in.Bool("merit_based")

	score := capped(float64(count), 3)*0.40 + capped(value, 50000)*0.45
	if merit {
		score += 0.15
	}
	return result(score, "Scholarship History",
		fmt.Sprintf("%d scholarships, %s total, Merit: %s", count, rupees(value), mark(merit)))
}

func scoreSkillCertifications(in Input) CriterionResult {
	count := in.Int("cert_count", 0)
	govt := in.Bool("has_govt_certification")
	platforms := in.List("platform_certs")

	score := capped(float64(count), 5)*0.50 + capped(float64(len(platforms)), 3)*0.3
	if govt {
		score += 0.20
	}
	names := strings.Join(platforms, ", ")
	if names == "" {
		names = "None"
	}
	return result(score, "Skill Certifications",
		fmt.Sprintf("%d certs, Govt: %s, Platforms: %s", count, mark(govt), names))
}

func scoreAttendanceDiscipline(in Input) CriterionResult {
	pct := in.Float("attendance_pct", 0)
	return result(capped(pct, 90), "Attendance Discipline", fmt.Sprintf("%.0f%% attendance", pct))
}

func scorePartTimeIncome(in Input) CriterionResult {
	const label = "Part-time / Freelance Income"
	if !in.Bool("has_part_time") {
		return result(0.30, label, "No part-time income")
	}
	earnings := in.Float("monthly_earnings", 0)
	months := in.Int("months_active", 0)
	score := capped(earnings, 10000)*0.50 + capped(float64(months), 6)*0.50
	return result(score, label, fmt.Sprintf("%s/month for %d months", rupees(earnings), months))
}

func scoreFuturePotential(in Input) CriterionResult {
	tier := in.Int("institution_tier", 4)
	tierScore := map[int]float64{1: 1.0, 2: 0.75, 3: 0.50, 4: 0.30}[tier]
	if tierScore == 0 {
		tierScore = 0.30
	}
	demand := in.String("branch_demand", "medium")
	demandScore := lookup(map[string]float64{"high": 1.0, "medium": 0.6, "low": 0.3}, demand, 0.5)
	internship := in.Bool("has_internship")

	score := tierScore*0.45 + demandScore*0.40
	if internship {
		score += 0.15
	}
	return result(score, "Future Earning Potential",
		fmt.Sprintf("Tier %d, Demand: %s, Internship: %s", tier, demand, mark(internship)))
}

// Street vendor

func scoreDailyIncomeConsistency(in Input) CriterionResult {
	daily := in.Float("avg_daily_income", 0)
	days := in.Int("working_days_per_month", 0)
	variation := in.String("seasonal_variation", "medium")
	stability := lookup(map[string]float64{"low": 1.0, "medium": 0.6, "high": 0.3}, variation, 0.5)

	score := capped(daily*float64(days), 15000)*0.35 + capped(float64(days), 26)*0.35 + stability*0.30
	return result(score, "Daily Income Consistency",
		fmt.Sprintf("%s/day × %d days, Seasonal var: %s", rupees(daily), days, variation))
}

func scoreRentalDiscipline(in Input) CriterionResult {
	const label = "Rental Payment Discipline"
	if !in.Bool("pays_rent") {
		return result(0.40, label, "No rent data available")
	}
	rent := in.Float("rent_amount", 0)
	onTime := in.Float("on_time_pct", 0) / 100
	months := in.Int("months_of_history", 0)

	score := capped(rent, 5000)*0.15 + onTime*0.55 + capped(float64(months), 12)*0.30
	return result(score, label,
		fmt.Sprintf("%s/month, %.0f%% on-time, %d months", rupees(rent), onTime*100, months))
}

// Universal

func scoreUtilityDiscipline(in Input) CriterionResult {
	bills := in.Int("bills_per_year", 0)
	onTime := in.Float("on_time_pct", 80) / 100
	services := 0
	for _, key := range []string{"has_electricity", "has_water", "has_gas"} {
		if in.Bool(key) {
			services++
		}
	}

	score := capped(float64(bills), 12)*0.30 + onTime*0.45 + capped(float64(services), 2)*0.25
	return result(score, "Utility Bill Discipline",
		fmt.Sprintf("%d bills/yr, %.0f%% on-time, %d/3 services", bills, onTime*100, services))
}

var savingsMethods = map[string]float64{
	"shg": 0.9, "chit_fund": 0.8, "post_office": 0.85,
	"cash_at_home": 0.5, "gold": 0.6, "bank": 0.9, "none": 0.1,
}

func scoreSavingsHabit(in Input) CriterionResult {
	method := in.String("savings_method", "none")
	monthly := in.Float("monthly_savings", 0)
	months := in.Int("months_saving", 0)
	shg := in.Bool("is_shg_member")

	score := lookup(savingsMethods, method, 0.3)*0.30 + capped(monthly, 3000)*0.30 + capped(float64(months), 12)*0.30
	if shg {
		score += 0.10
	}
	return result(score, "Savings Discipline",
		fmt.Sprintf("%s/month via %s, %d months, SHG: %s", rupees(monthly), method, months, mark(shg)))
}

func scoreCommunityTrust(in Input) CriterionResult {
	refs := in.Int("references_count", 0)
	group := in.Bool("is_group_member")
	years := in.Int("years_in_community", 0)

	score := capped(float64(refs), 3)*0.35 + capped(float64(years), 5)*0.30
	if group {
		score += 0.25
	}
	if in.Bool("has_local_business_reference") {
		score += 0.10
	}
	return result(score, "Community Trust Network",
		fmt.Sprintf("%d references, Group: %s, %d yrs in community", refs, mark(group), years))
}

func scoreMobileBehaviour(in Input) CriterionResult {
	freq := in.String("recharge_frequency", "irregular")
	freqScore := lookup(map[string]float64{"daily": 0.5, "weekly": 0.7, "monthly": 0.9, "irregular": 0.3}, freq, 0.3)
	smartphone := in.Bool("has_smartphone")
	upi := in.Bool("uses_upi_basic")

	score := freqScore*0.40 + capped(in.Float("avg_monthly_recharge", 0), 500)*0.25
	if smartphone {
		score += 0.20
	}
	if upi {
		score += 0.15
	}
	return result(score, "Mobile Behaviour & Digital Footprint",
		fmt.Sprintf("Recharge: %s, Smartphone: %s, UPI: %s", freq, mark(smartphone), mark(upi)))
}

func scoreYearsInTrade(in Input) CriterionResult {
	years := in.Int("years_in_trade", 0)
	sameLoc := in.Bool("same_location")
	license := in.Bool("has_license")

	score := capped(float64(years), 10) * 0.75
	if sameLoc {
		score += 0.15
	}
	if license {
		score += 0.10
	}
	return result(score, "Years in Trade",
		fmt.Sprintf("%d years, Same location: %s, License: %s", years, mark(sameLoc), mark(license)))
}

// Homemaker

func scoreHouseholdBudgeting(in Input) CriterionResult {
	income := in.Float("household_income", 0)
	expenses := in.Float("household_expenses", 0)
	manages := in.Bool("manages_budget")
	dependents := in.Int("dependents", 0)

	ratio := 0.2
	if income > 0 {
		ratio = numeric.Clamp01((income - expenses) / income)
	}
	score := ratio * 0.65
	if manages {
		score += 0.20 + capped(float64(dependents), 5)*0.15
	}
	return result(score, "Household Budget Management",
		fmt.Sprintf("Income: %s, Expenses: %s, Manages: %s, %d dependents",
			rupees(income), rupees(expenses), mark(manages), dependents))
}

func scoreMicroEnterprise(in Input) CriterionResult {
	const label = "Micro Enterprise"
	if !in.Bool("has_enterprise") {
		return result(0.25, label, "No micro-enterprise")
	}
	revenue := in.Float("monthly_revenue", 0)
	months := in.Int("months_active", 0)

	score := capped(revenue, 10000)*0.50 + capped(float64(months), 12)*0.40 + 0.10
	return result(score, label, fmt.Sprintf("%s, %s/month, %d months",
		in.String("enterprise_type", "N/A"), rupees(revenue), months))
}

// General (no bank account)

func scoreIDVerification(in Input) CriterionResult {
	ids := []struct{ key, name string }{
		{"has_aadhaar", "Aadhaar"},
		{"has_pan", "PAN"},
		{"has_voter_id", "Voter ID"},
		{"has_ration_card", "Ration Card"},
	}
	var verified []string
	for _, id := range ids {
		if in.Bool(id.key) {
			verified = append(verified, id.name)
		}
	}

	score := capped(float64(len(verified)), 3) * 0.80
	if in.Bool("has_aadhaar") {
		score += 0.20
	}
	names := strings.Join(verified, ", ")
	if names == "" {
		names = "None"
	}
	return result(score, "Identity Verification", fmt.Sprintf("%d/4 IDs: %s", len(verified), names))
}

var psychometricQuestions = []string{
	"q1_financial_planning",
	"q2_risk_awareness",
	"q3_goal_orientation",
	"q4_repayment_intent",
	"q5_responsibility",
}

func scorePsychometric(in Input) CriterionResult {
	var sum float64
	for _, q := range psychometricQuestions {
		sum += float64(in.Int(q, 3))
	}
	avg := sum / float64(len(psychometricQuestions))
	return result((avg-1)/4, "Psychometric Assessment", fmt.Sprintf("Avg response: %.1f/5", avg))
}
