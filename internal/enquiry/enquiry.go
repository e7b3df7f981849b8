// Package enquiry counts how often an applicant was scored recently.
package enquiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/credivist/internal/domain"
)

// Service counts scoring enquiries per applicant.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates an enquiry counter. Either dependency may be nil.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Count returns the number of earlier enquiries for an applicant within
// window. Stored assessments are the source of truth; when the repository is
// unavailable the cache counter is used, and that counter records this
// enquiry too.
func (s *Service) Count(ctx context.Context, tenantID, applicantID string, window time.Duration) (int64, error) {
	if tenantID == "" || applicantID == "" {
		return 0, fmt.Errorf("tenantID and applicantID are required")
	}

	if s.repo != nil {
		count, err := s.repo.CountAssessmentsByApplicant(ctx, tenantID, applicantID, time.Now().Add(-window))
		if err == nil {
			return count, nil
		}
		if s.cache == nil {
			return 0, fmt.Errorf("failed to count assessments: %w", err)
		}
		slog.Warn("enquiry count falling back to cache", "tenant_id", tenantID, "error", err)
	}

	if s.cache != nil {
		n, err := s.cache.IncrementCounter(ctx, tenantID, counterKey(applicantID), window)
		if err != nil {
			return 0, fmt.Errorf("failed to count enquiries: %w", err)
		}
		return n - 1, nil
	}

	return 0, fmt.Errorf("no data source available")
}

// Getter adapts Count to the risk rule oracle.
func (s *Service) Getter() func(ctx context.Context, tenantID, applicantID string, window time.Duration) (int64, error) {
	return s.Count
}

func counterKey(applicantID string) string {
	return "enquiry:" + applicantID
}
