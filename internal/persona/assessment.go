package persona

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/credivist/internal/domain"
)

// Assessment converts a persona score into its stored form. Persona scores
// carry no risk probability.
func (r *Result) Assessment(tenantID, applicantID string) (*domain.Assessment, error) {
	detail, err := json.Marshal(r.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode persona breakdown: %w", err)
	}

	return &domain.Assessment{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		ApplicantID: applicantID,
		Source:      domain.SourcePersona,
		Persona:     r.Persona,
		BaseScore:   r.TrustScore,
		FinalScore:  r.TrustScore,
		Grade:       r.Grade,
		Confidence:  r.Confidence,
		Detail:      detail,
		Timestamp:   time.Now().UTC(),
		Metadata: domain.AssessmentMetadata{
			EngineVersion: domain.EngineVersion,
		},
	}, nil
}
