package domain

import (
	"encoding/json"
	"time"
)

// AssessmentSource tells which scoring path produced an assessment.
type AssessmentSource string

const (
	SourceTransaction AssessmentSource = "transaction"
	SourcePersona     AssessmentSource = "persona"
)

// Assessment is one persisted scoring outcome for an applicant.
type Assessment struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenantId"`
	ApplicantID string           `json:"applicantId"`
	Source      AssessmentSource `json:"source"`
	Persona     string           `json:"persona,omitempty"`

	BaseScore       float64 `json:"baseScore"`
	FinalScore      float64 `json:"finalScore"`
	RiskProbability float64 `json:"riskProbability"`
	Grade           string  `json:"grade"`
	Confidence      float64 `json:"confidence"`
	Oracle          string  `json:"oracle,omitempty"`

	// Detail is the feature vector (transaction) or criterion breakdown (persona).
	Detail json.RawMessage `json:"detail,omitempty"`

	// Rule results from the CEL risk oracle, when it ran
	RuleResults []RuleResult `json:"ruleResults,omitempty"`

	Timestamp time.Time          `json:"timestamp"`
	Metadata  AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId,omitempty"`
	EnquiryCount   int64  `json:"enquiryCount"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	FeaturesMs     int64  `json:"featuresMs"`
	OracleMs       int64  `json:"oracleMs"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
}

// EngineVersion is stamped on every assessment.
const EngineVersion = "credivist-1.0"

// AssessmentRequest is the event-bus payload asking for an async assessment.
type AssessmentRequest struct {
	RequestID   string          `json:"requestId"`
	ApplicantID string          `json:"applicantId"`
	Record      json.RawMessage `json:"record"`
}

// AssessmentEvent is published once an async assessment is stored.
type AssessmentEvent struct {
	RequestID    string  `json:"requestId,omitempty"`
	AssessmentID string  `json:"assessmentId"`
	ApplicantID  string  `json:"applicantId"`
	FinalScore   float64 `json:"finalScore"`
	Grade        string  `json:"grade"`
	Error        string  `json:"error,omitempty"`
}
