package domain

// RiskRule is a CEL expression scored over an applicant's model features.
// Rule scores feed the rule-based risk oracle as a weighted average, so
// expressions should produce values in [0,1] (bool maps to 0 or 1).
type RiskRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression to evaluate
	Expression string `json:"expression"`

	// Outcome bands for score-to-outcome mapping
	Bands []RuleBand `json:"bands"`

	// Weight of the rule in the aggregated risk probability
	Weight float64 `json:"weight"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// RuleBand maps a score range to an outcome.
type RuleBand struct {
	LowerLimit *float64 `json:"lowerLimit,omitempty"`
	UpperLimit *float64 `json:"upperLimit,omitempty"`
	SubRuleRef string   `json:"subRuleRef"` // e.g., ".pass", ".fail", ".review"
	Reason     string   `json:"reason"`
}

// RuleResult is the output of a rule evaluation.
type RuleResult struct {
	RuleID      string  `json:"ruleId"`
	TenantID    string  `json:"tenantId"`
	ApplicantID string  `json:"applicantId"`
	SubRuleRef  string  `json:"subRuleRef"` // ".pass", ".fail", ".err"
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Weight      float64 `json:"weight"`
	ProcessMs   int64   `json:"processMs"`
}

// Predefined rule outcomes
const (
	RuleOutcomePass   = ".pass"
	RuleOutcomeFail   = ".fail"
	RuleOutcomeReview = ".review"
	RuleOutcomeError  = ".err"
)

// GlobalTenantID owns risk rules shared by every tenant.
const GlobalTenantID = "*"
