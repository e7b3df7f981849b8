// Package config loads the service configuration from defaults, an optional
// .env file, an optional credivist.yaml and CREDIVIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/opensource-finance/credivist/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. CREDIVIST_SERVER_PORT.
const EnvPrefix = "CREDIVIST"

// Load resolves the configuration. The tier (CREDIVIST_TIER or tier: in the
// file) picks the base defaults; every other key overrides them.
func Load() (*domain.Config, error) {
	loadEnvFile(".env")

	v := newViper()
	v.SetConfigName("credivist")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return build(v)
}

// LoadFile is Load with an explicit YAML file that must exist.
func LoadFile(path string) (*domain.Config, error) {
	loadEnvFile(".env")

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// CREDIVIST_ASYNC_WORKER is an alias of CREDIVIST_WORKER_ENABLED.
	_ = v.BindEnv("worker.enabled", EnvPrefix+"_WORKER_ENABLED", EnvPrefix+"_ASYNC_WORKER")
	return v
}

func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("failed to load env file", "path", path, "error", err)
		return
	}
	slog.Debug("loaded env file", "path", path)
}

func build(v *viper.Viper) (*domain.Config, error) {
	base := domain.DefaultConfig()
	if domain.Tier(strings.ToLower(v.GetString("tier"))) == domain.TierPro {
		base = domain.ProConfig()
	}
	setDefaults(v, base)

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Tier = domain.Tier(strings.ToLower(string(cfg.Tier)))
	if v.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("tier", string(c.Tier))

	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.readtimeout", c.Server.ReadTimeout)
	v.SetDefault("server.writetimeout", c.Server.WriteTimeout)

	v.SetDefault("scoring.oracle", string(c.Scoring.Oracle))
	v.SetDefault("scoring.constantrisk", c.Scoring.ConstantRisk)
	v.SetDefault("scoring.ensembleweight", c.Scoring.EnsembleWeight)
	v.SetDefault("scoring.maxruleworkers", c.Scoring.MaxRuleWorkers)
	v.SetDefault("scoring.batchworkers", c.Scoring.BatchWorkers)
	v.SetDefault("scoring.enquirywindow", c.Scoring.EnquiryWindow)
	v.SetDefault("scoring.assessmentttl", c.Scoring.AssessmentTTL)
	v.SetDefault("scoring.schedulestart", c.Scoring.ScheduleStart)

	v.SetDefault("worker.enabled", c.Worker.Enabled)
	v.SetDefault("worker.count", c.Worker.Count)
	v.SetDefault("worker.tenants", c.Worker.Tenants)

	v.SetDefault("repository.driver", c.Repository.Driver)
	v.SetDefault("repository.sqlitepath", c.Repository.SQLitePath)
	v.SetDefault("repository.postgreshost", c.Repository.PostgresHost)
	v.SetDefault("repository.postgresport", c.Repository.PostgresPort)
	v.SetDefault("repository.postgresuser", c.Repository.PostgresUser)
	v.SetDefault("repository.postgrespassword", c.Repository.PostgresPassword)
	v.SetDefault("repository.postgresdb", c.Repository.PostgresDB)
	v.SetDefault("repository.postgressslmode", c.Repository.PostgresSSLMode)
	v.SetDefault("repository.maxopenconns", c.Repository.MaxOpenConns)
	v.SetDefault("repository.maxidleconns", c.Repository.MaxIdleConns)
	v.SetDefault("repository.connmaxlifetime", c.Repository.ConnMaxLifetime)

	v.SetDefault("cache.type", c.Cache.Type)
	v.SetDefault("cache.localmaxsize", c.Cache.LocalMaxSize)
	v.SetDefault("cache.localttl", c.Cache.LocalTTL)
	v.SetDefault("cache.redisaddr", c.Cache.RedisAddr)
	v.SetDefault("cache.redispassword", c.Cache.RedisPassword)
	v.SetDefault("cache.redisdb", c.Cache.RedisDB)
	v.SetDefault("cache.enabletwophase", c.Cache.EnableTwoPhase)

	v.SetDefault("eventbus.type", c.EventBus.Type)
	v.SetDefault("eventbus.channelbuffersize", c.EventBus.ChannelBufferSize)
	v.SetDefault("eventbus.natsurl", c.EventBus.NATSUrl)
	v.SetDefault("eventbus.natstoken", c.EventBus.NATSToken)
	v.SetDefault("eventbus.natsmaxreconnects", c.EventBus.NATSMaxReconnects)
	v.SetDefault("eventbus.natsreconnectwait", c.EventBus.NATSReconnectWait)
	v.SetDefault("eventbus.natsqueue", c.EventBus.NATSQueue)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)

	v.SetDefault("tracing.enabled", c.Tracing.Enabled)
	v.SetDefault("tracing.servicename", c.Tracing.ServiceName)
	v.SetDefault("tracing.exportertype", c.Tracing.ExporterType)
	v.SetDefault("tracing.endpoint", c.Tracing.Endpoint)
}

// Validate rejects configurations the service cannot start with.
func Validate(c *domain.Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Tier == domain.TierCommunity || c.Tier == domain.TierPro, "tier must be community or pro, got %q", c.Tier)
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port out of range: %d", c.Server.Port)

	switch c.Scoring.Oracle {
	case domain.OracleConstant, domain.OracleLogistic, domain.OracleRules, domain.OracleEnsemble:
	default:
		errs = append(errs, fmt.Errorf("scoring.oracle must be constant, logistic, rules or ensemble, got %q", c.Scoring.Oracle))
	}
	check(c.Scoring.ConstantRisk >= 0 && c.Scoring.ConstantRisk <= 1, "scoring.constantRisk must be within 0-1")
	check(c.Scoring.EnsembleWeight >= 0 && c.Scoring.EnsembleWeight <= 1, "scoring.ensembleWeight must be within 0-1")
	check(c.Scoring.MaxRuleWorkers > 0, "scoring.maxRuleWorkers must be positive")
	check(c.Scoring.BatchWorkers > 0, "scoring.batchWorkers must be positive")
	check(c.Scoring.EnquiryWindow > 0, "scoring.enquiryWindow must be positive")
	if _, err := time.Parse("2006-01", c.Scoring.ScheduleStart); err != nil {
		errs = append(errs, fmt.Errorf("scoring.scheduleStart must look like 2026-01, got %q", c.Scoring.ScheduleStart))
	}

	check(c.Repository.Driver == "sqlite" || c.Repository.Driver == "postgres",
		"repository.driver must be sqlite or postgres, got %q", c.Repository.Driver)
	check(c.Cache.Type == "memory" || c.Cache.Type == "redis", "cache.type must be memory or redis, got %q", c.Cache.Type)
	check(c.EventBus.Type == "channel" || c.EventBus.Type == "nats", "eventBus.type must be channel or nats, got %q", c.EventBus.Type)

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	if c.Tracing.Enabled {
		switch c.Tracing.ExporterType {
		case "", "otlp", "jaeger", "stdout":
		default:
			errs = append(errs, fmt.Errorf("tracing.exporterType must be otlp, jaeger or stdout, got %q", c.Tracing.ExporterType))
		}
	}
	return errors.Join(errs...)
}

// LogLevel maps the configured level to slog.
func LogLevel(c *domain.Config) slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
