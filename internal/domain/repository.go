// Package domain defines the core interfaces and types for CrediVist.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Assessment operations
	SaveAssessment(ctx context.Context, tenantID string, a *Assessment) error
	GetAssessment(ctx context.Context, tenantID string, id string) (*Assessment, error)
	ListAssessmentsByApplicant(ctx context.Context, tenantID string, applicantID string, since time.Time) ([]*Assessment, error)
	CountAssessmentsByApplicant(ctx context.Context, tenantID string, applicantID string, since time.Time) (int64, error)

	// Risk rule operations
	SaveRiskRule(ctx context.Context, tenantID string, rule *RiskRule) error
	GetRiskRule(ctx context.Context, tenantID string, ruleID string) (*RiskRule, error)
	ListRiskRules(ctx context.Context, tenantID string) ([]*RiskRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost"`
	PostgresPort     int    `json:"postgresPort"`
	PostgresUser     string `json:"postgresUser"`
	PostgresPassword string `json:"-"`
	PostgresDB       string `json:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}
