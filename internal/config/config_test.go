package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/credivist/internal/domain"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credivist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.TierCommunity, cfg.Tier)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, domain.OracleLogistic, cfg.Scoring.Oracle)
	assert.Equal(t, 0.6, cfg.Scoring.EnsembleWeight)
	assert.Equal(t, 30*24*time.Hour, cfg.Scoring.EnquiryWindow)
	assert.Equal(t, "sqlite", cfg.Repository.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.LocalTTL)
	assert.Equal(t, "channel", cfg.EventBus.Type)
	assert.Equal(t, 5, cfg.Worker.Count)
	assert.False(t, cfg.Worker.Enabled)
}

func TestLoadProTier(t *testing.T) {
	t.Setenv("CREDIVIST_TIER", "PRO")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.TierPro, cfg.Tier)
	assert.Equal(t, domain.OracleEnsemble, cfg.Scoring.Oracle)
	assert.Equal(t, "postgres", cfg.Repository.Driver)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.True(t, cfg.Cache.EnableTwoPhase)
	assert.Equal(t, "nats", cfg.EventBus.Type)
	assert.True(t, cfg.Worker.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CREDIVIST_SERVER_PORT", "9090")
	t.Setenv("CREDIVIST_SCORING_ENSEMBLEWEIGHT", "0.7")
	t.Setenv("CREDIVIST_CACHE_LOCALTTL", "2m")
	t.Setenv("CREDIVIST_ASYNC_WORKER", "true")
	t.Setenv("CREDIVIST_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.7, cfg.Scoring.EnsembleWeight)
	assert.Equal(t, 2*time.Minute, cfg.Cache.LocalTTL)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, slog.LevelDebug, LogLevel(cfg))
}

func TestLoadFile(t *testing.T) {
	t.Run("Overrides", func(t *testing.T) {
		path := writeFile(t, `
server:
  port: 7070
scoring:
  oracle: rules
  scheduleStart: "2027-04"
repository:
  sqlitePath: /tmp/credivist-test.db
`)
		cfg, err := LoadFile(path)
		require.NoError(t, err)

		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, domain.OracleRules, cfg.Scoring.Oracle)
		assert.Equal(t, "2027-04", cfg.Scoring.ScheduleStart)
		assert.Equal(t, "/tmp/credivist-test.db", cfg.Repository.SQLitePath)
		assert.Equal(t, "sqlite", cfg.Repository.Driver)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		t.Setenv("CREDIVIST_SERVER_PORT", "6060")
		cfg, err := LoadFile(writeFile(t, "server:\n  port: 7070\n"))
		require.NoError(t, err)
		assert.Equal(t, 6060, cfg.Server.Port)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "scoring:\n  oracle: magic\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scoring.oracle")
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(domain.DefaultConfig()))
	assert.NoError(t, Validate(domain.ProConfig()))

	cfg := domain.DefaultConfig()
	cfg.Server.Port = 0
	cfg.Cache.Type = "memcached"
	cfg.Scoring.ScheduleStart = "January"
	cfg.Tracing.Enabled = true
	cfg.Tracing.ExporterType = "zipkin"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "cache.type")
	assert.Contains(t, err.Error(), "scoring.scheduleStart")
	assert.Contains(t, err.Error(), "tracing.exporterType")
}
