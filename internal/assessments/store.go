// Package assessments persists scored assessments and serves cached reads.
package assessments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/metrics"
	"github.com/opensource-finance/credivist/internal/repository"
)

// ErrNotFound is returned when no assessment matches.
var ErrNotFound = repository.ErrNotFound

// ErrUnavailable is returned when no repository is configured.
var ErrUnavailable = errors.New("assessment store not available")

// Store writes assessments to the repository and keeps a read-through copy
// in the cache. Both dependencies are optional.
type Store struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewStore creates a store caching reads for ttl.
func NewStore(repo domain.Repository, cache domain.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{repo: repo, cache: cache, ttl: ttl}
}

// Save persists a and counts it. Cache failures are logged, not returned.
func (s *Store) Save(ctx context.Context, tenantID string, a *domain.Assessment) error {
	a.TenantID = tenantID
	metrics.AssessmentsTotal.WithLabelValues(string(a.Source), a.Grade).Inc()

	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveAssessment(ctx, tenantID, a); err != nil {
		return fmt.Errorf("save assessment %s: %w", a.ID, err)
	}

	if s.cache != nil {
		if err := s.cache.SetAssessment(ctx, tenantID, a, s.ttl); err != nil {
			slog.Warn("failed to cache assessment",
				"tenant_id", tenantID,
				"assessment_id", a.ID,
				"error", err,
			)
		}
	}
	return nil
}

// Get returns an assessment, preferring the cache.
func (s *Store) Get(ctx context.Context, tenantID, id string) (*domain.Assessment, error) {
	if s.cache != nil {
		a, err := s.cache.GetAssessment(ctx, tenantID, id)
		if err != nil {
			slog.Warn("assessment cache read failed", "tenant_id", tenantID, "assessment_id", id, "error", err)
		} else if a != nil {
			return a, nil
		}
	}

	if s.repo == nil {
		return nil, ErrUnavailable
	}
	a, err := s.repo.GetAssessment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetAssessment(ctx, tenantID, a, s.ttl)
	}
	return a, nil
}

// History lists an applicant's assessments since a point in time.
func (s *Store) History(ctx context.Context, tenantID, applicantID string, since time.Time) ([]*domain.Assessment, error) {
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	return s.repo.ListAssessmentsByApplicant(ctx, tenantID, applicantID, since)
}
