package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/opensource-finance/credivist/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "credivist-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetAssessment", func(t *testing.T) {
		a := &domain.Assessment{
			ID:              "asm-001",
			ApplicantID:     "user-001",
			Source:          domain.SourceTransaction,
			BaseScore:       712,
			FinalScore:      705,
			RiskProbability: 0.12,
			Grade:           "Good",
			Confidence:      0.8,
			Oracle:          "ensemble",
			Detail:          json.RawMessage(`{"income_stability":0.9}`),
			RuleResults: []domain.RuleResult{
				{RuleID: "high-foir", SubRuleRef: domain.RuleOutcomePass, Score: 0.3, Weight: 1},
			},
			Timestamp: now,
			Metadata:  domain.AssessmentMetadata{EnquiryCount: 2, EngineVersion: domain.EngineVersion},
		}

		if err := repo.SaveAssessment(ctx, tenantID, a); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		got, err := repo.GetAssessment(ctx, tenantID, "asm-001")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if got.TenantID != tenantID {
			t.Errorf("expected tenant %s, got %s", tenantID, got.TenantID)
		}
		if got.FinalScore != 705 || got.Grade != "Good" {
			t.Errorf("unexpected score/grade: %v %s", got.FinalScore, got.Grade)
		}
		if got.Source != domain.SourceTransaction {
			t.Errorf("expected source %s, got %s", domain.SourceTransaction, got.Source)
		}
		if len(got.RuleResults) != 1 || got.RuleResults[0].RuleID != "high-foir" {
			t.Errorf("rule results not round-tripped: %+v", got.RuleResults)
		}
		if got.Metadata.EnquiryCount != 2 {
			t.Errorf("expected enquiry count 2, got %d", got.Metadata.EnquiryCount)
		}
		if string(got.Detail) != `{"income_stability":0.9}` {
			t.Errorf("unexpected detail: %s", got.Detail)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_, err := repo.GetAssessment(ctx, "tenant-002", "asm-001")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for other tenant, got %v", err)
		}
	})

	t.Run("EmptyTenantRejected", func(t *testing.T) {
		err := repo.SaveAssessment(ctx, "", &domain.Assessment{ID: "x"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListAndCountByApplicant", func(t *testing.T) {
		for i, offset := range []time.Duration{-48 * time.Hour, -2 * time.Hour, -time.Hour} {
			a := &domain.Assessment{
				ID:          "asm-hist-" + string(rune('a'+i)),
				ApplicantID: "user-002",
				Source:      domain.SourcePersona,
				Persona:     "farmer",
				FinalScore:  600,
				Grade:       "Fair",
				Timestamp:   now.Add(offset),
			}
			if err := repo.SaveAssessment(ctx, tenantID, a); err != nil {
				t.Fatalf("SaveAssessment failed: %v", err)
			}
		}

		since := now.Add(-24 * time.Hour)
		count, err := repo.CountAssessmentsByApplicant(ctx, tenantID, "user-002", since)
		if err != nil {
			t.Fatalf("CountAssessmentsByApplicant failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 assessments in window, got %d", count)
		}

		list, err := repo.ListAssessmentsByApplicant(ctx, tenantID, "user-002", since)
		if err != nil {
			t.Fatalf("ListAssessmentsByApplicant failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 assessments, got %d", len(list))
		}
		if list[0].ID != "asm-hist-c" {
			t.Errorf("expected newest first, got %s", list[0].ID)
		}
		if list[0].Persona != "farmer" {
			t.Errorf("expected persona farmer, got %s", list[0].Persona)
		}
	})

	t.Run("SaveAndGetRiskRule", func(t *testing.T) {
		lower := 0.5
		rule := &domain.RiskRule{
			ID:          "high-foir",
			Name:        "High FOIR",
			Description: "Fixed obligations above half of income",
			Version:     "1.0.0",
			Expression:  "features.foir > 0.5 ? 1.0 : 0.0",
			Bands: []domain.RuleBand{
				{LowerLimit: &lower, SubRuleRef: domain.RuleOutcomeFail, Reason: "FOIR too high"},
			},
			Weight:  1.5,
			Enabled: true,
		}
		if err := repo.SaveRiskRule(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		got, err := repo.GetRiskRule(ctx, tenantID, "high-foir")
		if err != nil {
			t.Fatalf("GetRiskRule failed: %v", err)
		}
		if got.Weight != 1.5 || !got.Enabled {
			t.Errorf("unexpected rule: %+v", got)
		}
		if len(got.Bands) != 1 || got.Bands[0].LowerLimit == nil || *got.Bands[0].LowerLimit != 0.5 {
			t.Errorf("bands not round-tripped: %+v", got.Bands)
		}

		rule.Weight = 2
		if err := repo.SaveRiskRule(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveRiskRule upsert failed: %v", err)
		}
		got, err = repo.GetRiskRule(ctx, tenantID, "high-foir")
		if err != nil {
			t.Fatalf("GetRiskRule failed: %v", err)
		}
		if got.Weight != 2 {
			t.Errorf("expected upserted weight 2, got %v", got.Weight)
		}
	})

	t.Run("ListRiskRules", func(t *testing.T) {
		disabled := &domain.RiskRule{
			ID:         "off",
			Name:       "Disabled",
			Version:    "1.0.0",
			Expression: "0.0",
			Enabled:    false,
		}
		if err := repo.SaveRiskRule(ctx, tenantID, disabled); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		rules, err := repo.ListRiskRules(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListRiskRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Errorf("expected 1 enabled rule, got %d", len(rules))
		}
	})

	t.Run("RiskRuleNotFound", func(t *testing.T) {
		_, err := repo.GetRiskRule(ctx, tenantID, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("unexpected postgres rebind: %s", got)
	}

	lite := &SQLRepository{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query should be unchanged: %s", got)
	}
}

func TestPostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewFromDB(db, "postgres")
	ctx := context.Background()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM assessments WHERE tenant_id = \$1 AND applicant_id = \$2 AND timestamp >= \$3`).
		WithArgs("tenant-001", "user-001", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountAssessmentsByApplicant(ctx, "tenant-001", "user-001", time.Now())
	if err != nil {
		t.Fatalf("CountAssessmentsByApplicant failed: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4, got %d", count)
	}

	mock.ExpectQuery(`(?s)FROM assessments WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs("tenant-001", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetAssessment(ctx, "tenant-001", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN("/tmp/data/credivist.db")
	if !strings.HasPrefix(dsn, "file:/tmp/data/credivist.db?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	q, err := url.ParseQuery(dsn[strings.Index(dsn, "?")+1:])
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	got := q["_pragma"]
	if len(got) != len(sqlitePragmas) {
		t.Fatalf("expected %d pragmas, got %v", len(sqlitePragmas), got)
	}
	for i, p := range sqlitePragmas {
		if got[i] != p {
			t.Errorf("pragma %d: expected %s, got %s", i, p, got[i])
		}
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(domain.RepositoryConfig{
		PostgresUser:     "credivist",
		PostgresPassword: "p@ss word/1",
	})
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if u.Host != "localhost:5432" {
		t.Errorf("expected default host, got %s", u.Host)
	}
	if u.Path != "/credivist" {
		t.Errorf("expected default database, got %s", u.Path)
	}
	if u.Query().Get("sslmode") != "disable" {
		t.Errorf("expected sslmode=disable, got %s", u.Query().Get("sslmode"))
	}
	if pw, _ := u.User.Password(); pw != "p@ss word/1" {
		t.Errorf("password not preserved: %q", pw)
	}

	dsn = postgresDSN(domain.RepositoryConfig{
		PostgresHost:    "db.internal",
		PostgresPort:    6432,
		PostgresDB:      "scores",
		PostgresSSLMode: "require",
	})
	u, _ = url.Parse(dsn)
	if u.Host != "db.internal:6432" || u.Path != "/scores" || u.Query().Get("sslmode") != "require" {
		t.Errorf("unexpected dsn: %s", dsn)
	}
	if u.User != nil {
		t.Errorf("expected no userinfo, got %v", u.User)
	}
}
