package repository

// Schemas run on both SQLite and PostgreSQL. Nested payloads are JSON text.

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    applicant_id TEXT NOT NULL,
    source TEXT NOT NULL,
    persona TEXT NOT NULL DEFAULT '',
    base_score REAL NOT NULL,
    final_score REAL NOT NULL,
    risk_probability REAL NOT NULL,
    grade TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    oracle TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL,
    rule_results TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_applicant ON assessments(tenant_id, applicant_id, timestamp);
`

const schemaRiskRules = `
CREATE TABLE IF NOT EXISTS risk_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_risk_rules_enabled ON risk_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
		schemaRiskRules,
	}
}
