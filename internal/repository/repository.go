// Package repository stores assessments and risk rules in SQLite or
// PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/credivist/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository on database/sql.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New opens the configured database and runs migrations.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := NewFromDB(db, cfg.Driver)
	if err := repo.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

// NewFromDB wraps an open database without migrating it.
func NewFromDB(db *sql.DB, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

// Migrate creates missing tables and indexes.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

const assessmentColumns = `id, tenant_id, applicant_id, source, persona,
	base_score, final_score, risk_probability, grade, confidence, oracle,
	detail, rule_results, timestamp, metadata`

// SaveAssessment stores an assessment with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.Assessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: assessment id is required", ErrInvalidInput)
	}

	ruleResults, err := json.Marshal(a.RuleResults)
	if err != nil {
		return fmt.Errorf("encode rule results: %w", err)
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	detail := string(a.Detail)
	if detail == "" {
		detail = "null"
	}

	query := `INSERT INTO assessments (` + assessmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.ApplicantID, string(a.Source), a.Persona,
		a.BaseScore, a.FinalScore, a.RiskProbability, a.Grade, a.Confidence, a.Oracle,
		detail, string(ruleResults), a.Timestamp.UTC(), string(metadata),
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var source, detail, ruleResults, metadata string

	if err := row.Scan(
		&a.ID, &a.TenantID, &a.ApplicantID, &source, &a.Persona,
		&a.BaseScore, &a.FinalScore, &a.RiskProbability, &a.Grade, &a.Confidence, &a.Oracle,
		&detail, &ruleResults, &a.Timestamp, &metadata,
	); err != nil {
		return nil, err
	}

	a.Source = domain.AssessmentSource(source)
	if detail != "" && detail != "null" {
		a.Detail = json.RawMessage(detail)
	}
	if err := json.Unmarshal([]byte(ruleResults), &a.RuleResults); err != nil {
		return nil, fmt.Errorf("failed to parse rule results for %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", a.ID, err)
	}
	return &a, nil
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE tenant_id = ? AND id = ?`

	a, err := scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssessmentsByApplicant returns an applicant's assessments since a
// point in time, newest first.
func (r *SQLRepository) ListAssessmentsByApplicant(ctx context.Context, tenantID string, applicantID string, since time.Time) ([]*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + assessmentColumns + ` FROM assessments
		WHERE tenant_id = ? AND applicant_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, applicantID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAssessmentsByApplicant counts an applicant's assessments since a
// point in time.
func (r *SQLRepository) CountAssessmentsByApplicant(ctx context.Context, tenantID string, applicantID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT COUNT(*) FROM assessments WHERE tenant_id = ? AND applicant_id = ? AND timestamp >= ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, applicantID, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

// SaveRiskRule upserts a risk rule version with tenant isolation.
func (r *SQLRepository) SaveRiskRule(ctx context.Context, tenantID string, rule *domain.RiskRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule == nil || rule.ID == "" || rule.Expression == "" {
		return fmt.Errorf("%w: rule id and expression are required", ErrInvalidInput)
	}

	bands, err := json.Marshal(rule.Bands)
	if err != nil {
		return fmt.Errorf("encode bands: %w", err)
	}
	enabled := 0
	if rule.Enabled {
		enabled = 1
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO risk_rules (
			id, tenant_id, name, description, version, expression, bands, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), rule.Weight, enabled,
		now, now,
	)
	return err
}

const riskRuleColumns = `id, tenant_id, name, description, version, expression, bands, weight, enabled`

func scanRiskRule(row scanner) (*domain.RiskRule, error) {
	var rule domain.RiskRule
	var bands string
	var enabled int

	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &bands, &rule.Weight, &enabled,
	); err != nil {
		return nil, err
	}
	rule.Enabled = enabled == 1
	if err := json.Unmarshal([]byte(bands), &rule.Bands); err != nil {
		return nil, fmt.Errorf("failed to parse bands for %s: %w", rule.ID, err)
	}
	return &rule, nil
}

// GetRiskRule returns the latest enabled version of a rule.
func (r *SQLRepository) GetRiskRule(ctx context.Context, tenantID string, ruleID string) (*domain.RiskRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + riskRuleColumns + ` FROM risk_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1`

	rule, err := scanRiskRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListRiskRules returns every enabled rule of a tenant, by name.
func (r *SQLRepository) ListRiskRules(ctx context.Context, tenantID string) ([]*domain.RiskRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + riskRuleColumns + ` FROM risk_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name, version`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RiskRule
	for rows.Next() {
		rule, err := scanRiskRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
