package enquiry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/credivist/internal/cache"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/repository"
)

func newRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "enquiry.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCountFromRepository(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, age := range []time.Duration{time.Hour, 2 * time.Hour, 40 * 24 * time.Hour} {
		require.NoError(t, repo.SaveAssessment(ctx, "t1", &domain.Assessment{
			ID:          "a" + string(rune('0'+i)),
			ApplicantID: "user-1",
			Source:      domain.SourceTransaction,
			Grade:       "Good",
			Timestamp:   now.Add(-age),
		}))
	}

	svc := NewService(repo, cache.NewLRUCache(100))

	n, err := svc.Count(ctx, "t1", "user-1", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.Count(ctx, "t2", "user-1", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "other tenants see nothing")
}

type failingRepo struct {
	domain.Repository
}

func (failingRepo) CountAssessmentsByApplicant(context.Context, string, string, time.Time) (int64, error) {
	return 0, errors.New("database unavailable")
}

func TestCountFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingRepo{}, cache.NewLRUCache(100))

	for want := int64(0); want < 3; want++ {
		n, err := svc.Count(ctx, "t1", "user-1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestCountWithoutSources(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(nil, nil).Count(ctx, "t1", "user-1", time.Hour)
	assert.Error(t, err)

	_, err = NewService(failingRepo{}, nil).Count(ctx, "t1", "user-1", time.Hour)
	assert.Error(t, err)

	_, err = NewService(nil, cache.NewLRUCache(10)).Count(ctx, "", "user-1", time.Hour)
	assert.Error(t, err)
}

func TestGetter(t *testing.T) {
	svc := NewService(nil, cache.NewLRUCache(10))
	get := svc.Getter()

	n, err := get(context.Background(), "t1", "user-9", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}
