package persona

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidData is returned when persona inputs fail their form schema.
var ErrInvalidData = errors.New("invalid persona data")

// Field types.
const (
	FieldBoolean = "boolean"
	FieldNumber  = "number"
	FieldSelect  = "select"
	FieldText    = "text"
)

// Field is one input of a persona form.
type Field struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Options []string `json:"options,omitempty"`
	Default any      `json:"default,omitempty"`
}

// Section groups the fields of one criterion.
type Section struct {
	Criterion Criterion `json:"criterion"`
	Label     string    `json:"label"`
	Fields    []Field   `json:"fields"`
}

func boolean(key, label string) Field {
	return Field{Key: key, Label: label, Type: FieldBoolean}
}

func boolDefault(key, label string, def bool) Field {
	return Field{Key: key, Label: label, Type: FieldBoolean, Default: def}
}

func number(key, label string, lo, hi, def float64) Field {
	return Field{Key: key, Label: label, Type: FieldNumber, Min: &lo, Max: &hi, Default: def}
}

func choice(key, label, def string, options ...string) Field {
	return Field{Key: key, Label: label, Type: FieldSelect, Options: options, Default: def}
}

func text(key, label string) Field {
	return Field{Key: key, Label: label, Type: FieldText, Default: ""}
}

var fieldDefinitions = map[Criterion][]Field{
	LandAsset: {
		boolean("owns_land", "Do you own agricultural land?"),
		number("land_acres", "Land area (acres)", 0, 100, 1),
		number("years_on_land", "Years on this land", 0, 50, 5),
	},
	CropConsistency: {
		number("seasons_active", "Seasons actively farmed", 0, 30, 4),
		number("crops_per_year", "Number of crop cycles per year", 0, 4, 2),
		choice("yield_trend", "Recent yield trend", "stable", "up", "stable", "down"),
	},
	SubsidyLinkage: {
		boolean("has_pm_kisan", "Enrolled in PM-KISAN?"),
		boolean("has_crop_insurance", "Have Crop Insurance (PMFBY)?"),
		boolean("has_soil_health_card", "Have Soil Health Card?"),
		boolean("kcc_holder", "Kisan Credit Card (KCC) holder?"),
	},
	MarketEngagement: {
		boolean("sells_at_mandi", "Sell produce at Mandi?"),
		boolean("has_warehouse_receipt", "Have warehouse receipts?"),
		boolean("uses_enam", "Use e-NAM (online mandi)?"),
		number("avg_trips_per_month", "Average mandi trips per month", 0, 30, 2),
	},
	AcademicPerformance: {
		choice("score_type", "Score type", "percentage", "percentage", "cgpa"),
		number("score_value", "Your score / CGPA", 0, 100, 70),
		choice("education_level", "Education level", "ug", "school", "ug", "pg"),
		number("backlog_count", "Number of backlogs", 0, 20, 0),
	},
	ScholarshipHistory: {
		number("scholarships_received", "Scholarships received", 0, 20, 0),
		number("total_scholarship_value", "Total scholarship value (₹)", 0, 1000000, 0),
		boolean("merit_based", "Merit-based scholarship?"),
	},
	SkillCertifications: {
		number("cert_count", "Number of certifications", 0, 50, 0),
		boolean("has_govt_certification", "Government certification (NSDC, etc.)?"),
		text("platform_certs", "Certification platforms (comma-separated)"),
	},
	AttendanceDiscipline: {
		number("attendance_pct", "Attendance percentage", 0, 100, 75),
	},
	PartTimeIncome: {
		boolean("has_part_time", "Have part-time / freelance work?"),
		number("monthly_earnings", "Monthly earnings (₹)", 0, 100000, 0),
		number("months_active", "Months active", 0, 60, 0),
	},
	FuturePotential: {
		choice("institution_tier", "Institution tier", "3", "1", "2", "3", "4"),
		choice("branch_demand", "Branch/course demand", "medium", "high", "medium", "low"),
		boolean("has_internship", "Completed internship?"),
	},
	DailyIncomeConsistency: {
		number("avg_daily_income", "Average daily income (₹)", 0, 50000, 500),
		number("working_days_per_month", "Working days per month", 0, 31, 25),
		choice("seasonal_variation", "Seasonal income variation", "medium", "low", "medium", "high"),
	},
	RentalDiscipline: {
		boolean("pays_rent", "Do you pay rent / stall fee?"),
		number("rent_amount", "Monthly rent (₹)", 0, 50000, 2000),
		number("on_time_pct", "% of rent paid on time", 0, 100, 80),
		number("months_of_history", "Months of rental history", 0, 240, 12),
	},
	UtilityDiscipline: {
		number("bills_per_year", "Utility bills paid per year", 0, 36, 12),
		number("on_time_pct", "% paid on time", 0, 100, 80),
		boolDefault("has_electricity", "Electricity connection?", true),
		boolean("has_water", "Water bill?"),
		boolean("has_gas", "Gas connection?"),
	},
	SavingsHabit: {
		choice("savings_method", "Primary savings method", "cash_at_home",
			"shg", "chit_fund", "post_office", "cash_at_home", "gold", "bank", "none"),
		number("monthly_savings", "Monthly savings (₹)", 0, 100000, 500),
		number("months_saving", "Months saving consistently", 0, 120, 6),
		boolean("is_shg_member", "Self Help Group (SHG) member?"),
	},
	CommunityTrust: {
		number("references_count", "Number of character references", 0, 10, 2),
		boolean("is_group_member", "Member of community group?"),
		text("group_type", "Group type"),
		number("years_in_community", "Years in current community", 0, 50, 5),
		boolean("has_local_business_reference", "Have local business reference?"),
	},
	MobileBehaviour: {
		choice("recharge_frequency", "Mobile recharge frequency", "monthly", "daily", "weekly", "monthly", "irregular"),
		boolean("has_smartphone", "Have smartphone?"),
		boolean("uses_upi_basic", "Use any UPI / digital payment?"),
		number("avg_monthly_recharge", "Monthly recharge amount (₹)", 0, 5000, 299),
	},
	YearsInTrade: {
		number("years_in_trade", "Years in current trade/work", 0, 50, 5),
		boolean("same_location", "Same location throughout?"),
		boolean("has_license", "Have trade/vendor license?"),
	},
	HouseholdBudgeting: {
		number("household_income", "Total household income (₹/month)", 0, 500000, 20000),
		number("household_expenses", "Total household expenses (₹/month)", 0, 500000, 15000),
		boolDefault("manages_budget", "Do you manage household budget?", true),
		number("dependents", "Number of dependents", 0, 15, 3),
	},
	MicroEnterprise: {
		boolean("has_enterprise", "Run any home-based business?"),
		text("enterprise_type", "Business type (tiffin, tailoring, etc.)"),
		number("monthly_revenue", "Monthly revenue (₹)", 0, 500000, 0),
		number("months_active", "Months business active", 0, 120, 0),
	},
	IDVerification: {
		boolDefault("has_aadhaar", "Have Aadhaar card?", true),
		boolean("has_pan", "Have PAN card?"),
		boolean("has_voter_id", "Have Voter ID?"),
		boolean("has_ration_card", "Have Ration Card?"),
	},
	Psychometric: {
		number("q1_financial_planning", "I plan my expenses before spending (1-5)", 1, 5, 3),
		number("q2_risk_awareness", "I understand borrowing has costs (1-5)", 1, 5, 3),
		number("q3_goal_orientation", "I save for future goals (1-5)", 1, 5, 3),
		number("q4_repayment_intent", "I always repay what I owe (1-5)", 1, 5, 3),
		number("q5_responsibility", "I feel responsible for my family's finances (1-5)", 1, 5, 3),
	},
}

// Form returns the input sections of a persona in weight order.
func Form(key string) ([]Section, error) {
	profile, err := Lookup(key)
	if err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(profile.Weights))
	for _, w := range profile.Weights {
		scorer, _ := ScorerFor(w.Criterion)
		sections = append(sections, Section{
			Criterion: w.Criterion,
			Label:     scorer.Score(Input{}).Label,
			Fields:    append([]Field(nil), fieldDefinitions[w.Criterion]...),
		})
	}
	return sections, nil
}

// Schema builds the JSON schema for a persona's inputs. Every field is
// optional; keys shared by several criteria appear once.
func Schema(key string) (map[string]any, error) {
	sections, err := Form(key)
	if err != nil {
		return nil, err
	}
	props := map[string]any{}
	for _, s := range sections {
		for _, f := range s.Fields {
			if _, seen := props[f.Key]; seen {
				continue
			}
			props[f.Key] = fieldSchema(f)
		}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      key,
		"type":       "object",
		"properties": props,
	}, nil
}

func fieldSchema(f Field) map[string]any {
	s := map[string]any{"description": f.Label}
	switch f.Type {
	case FieldBoolean:
		s["type"] = "boolean"
	case FieldNumber:
		s["type"] = "number"
		if f.Min != nil {
			s["minimum"] = *f.Min
		}
		if f.Max != nil {
			s["maximum"] = *f.Max
		}
	case FieldSelect:
		enum := make([]any, 0, len(f.Options))
		for _, o := range f.Options {
			enum = append(enum, o)
		}
		// numeric options are also accepted as JSON numbers
		for _, o := range f.Options {
			if n, err := strconv.Atoi(o); err == nil {
				enum = append(enum, n)
			}
		}
		s["enum"] = enum
	case FieldText:
		s["type"] = []any{"string", "array"}
	}
	return s
}

// Validate checks persona inputs against the persona's schema.
func Validate(key string, in Input) error {
	schema, err := Schema(key)
	if err != nil {
		return err
	}
	if in == nil {
		in = Input{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(map[string]any(in)))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidData, strings.Join(errs, "; "))
	}
	return nil
}
