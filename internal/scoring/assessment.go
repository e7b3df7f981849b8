package scoring

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/credivist/internal/domain"
)

// Assessment converts a pipeline result into its stored form. The feature
// vector and sub-scores are kept as the detail payload.
func (r *Result) Assessment(tenantID string) (*domain.Assessment, error) {
	detail, err := json.Marshal(struct {
		Features  any `json:"features"`
		SubScores any `json:"sub_scores"`
	}{r.Features, r.SubScores})
	if err != nil {
		return nil, fmt.Errorf("encode assessment detail: %w", err)
	}

	a := &domain.Assessment{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		ApplicantID:     r.ApplicantID,
		Source:          domain.SourceTransaction,
		BaseScore:       r.Score.BaseTrustScore,
		FinalScore:      r.Score.FinalTrustScore,
		RiskProbability: r.Score.RiskProbability,
		Grade:           r.Score.Grade,
		Confidence:      r.Score.Confidence,
		Oracle:          r.Oracle,
		Detail:          detail,
		Timestamp:       time.Now().UTC(),
		Metadata: domain.AssessmentMetadata{
			FeaturesMs:    r.Timing.Features.Milliseconds(),
			OracleMs:      r.Timing.Oracle.Milliseconds(),
			TotalMs:       r.Timing.Total.Milliseconds(),
			EngineVersion: domain.EngineVersion,
		},
	}
	if r.Risk != nil {
		a.RuleResults = r.Risk.Results
		a.Metadata.EnquiryCount = r.Risk.EnquiryCount
		a.Metadata.RulesEvaluated = len(r.Risk.Results)
	}
	return a, nil
}
