package domain

import "time"

// Config holds the complete CrediVist configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which backends are used
	Tier Tier `json:"tier"`

	// Scoring selects the risk oracle and pipeline limits
	Scoring ScoringConfig `json:"scoring"`

	// Worker controls the async assessment consumer
	Worker WorkerConfig `json:"worker"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// OracleKind names a risk oracle implementation.
type OracleKind string

const (
	OracleConstant OracleKind = "constant"
	OracleLogistic OracleKind = "logistic"
	OracleRules    OracleKind = "rules"
	OracleEnsemble OracleKind = "ensemble"
)

// ScoringConfig holds the scoring pipeline settings.
type ScoringConfig struct {
	// Oracle is the risk oracle used by the final blender.
	Oracle OracleKind `json:"oracle"`

	// ConstantRisk is the probability returned by the constant oracle.
	ConstantRisk float64 `json:"constantRisk"`

	// EnsembleWeight is the share of the primary (logistic) oracle.
	EnsembleWeight float64 `json:"ensembleWeight"`

	// MaxRuleWorkers bounds parallel CEL rule evaluation.
	MaxRuleWorkers int `json:"maxRuleWorkers"`

	// BatchWorkers bounds parallel scoring in /score/batch.
	BatchWorkers int `json:"batchWorkers"`

	// EnquiryWindow is how far back scoring enquiries are counted.
	EnquiryWindow time.Duration `json:"enquiryWindow"`

	// AssessmentTTL is how long stored assessments stay cached.
	AssessmentTTL time.Duration `json:"assessmentTtl"`

	// ScheduleStart is the first month label of amortization schedules ("2006-01").
	ScheduleStart string `json:"scheduleStart"`
}

// WorkerConfig holds async worker settings.
type WorkerConfig struct {
	Enabled bool `json:"enabled"`

	// Count is the number of concurrent message handlers.
	Count int `json:"count"`

	// Tenants lists the tenants whose request topics are consumed.
	Tenants []string `json:"tenants"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite, an in-memory cache and channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, NATS and Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Scoring: ScoringConfig{
			Oracle:         OracleLogistic,
			ConstantRisk:   0.1,
			EnsembleWeight: 0.6,
			MaxRuleWorkers: 10,
			BatchWorkers:   8,
			EnquiryWindow:  30 * 24 * time.Hour,
			AssessmentTTL:  10 * time.Minute,
			ScheduleStart:  "2026-01",
		},
		Worker: WorkerConfig{
			Count:   5,
			Tenants: []string{},
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./credivist.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "credivist",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
// Pro tier blends the logistic model with the CEL risk rules and runs the
// async worker.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Scoring.Oracle = OracleEnsemble
	cfg.Worker.Enabled = true
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "credivist",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
		NATSQueue:         "credivist-workers",
	}
	cfg.Tracing = TracingConfig{
		Enabled:      true,
		ServiceName:  "credivist",
		ExporterType: "otlp",
		Endpoint:     "localhost:4317",
	}
	return cfg
}
