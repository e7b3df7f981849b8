// CrediVist - alternative credit scoring and loan eligibility.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/credivist/internal/api"
	"github.com/opensource-finance/credivist/internal/assessments"
	"github.com/opensource-finance/credivist/internal/bus"
	"github.com/opensource-finance/credivist/internal/cache"
	"github.com/opensource-finance/credivist/internal/config"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/enquiry"
	"github.com/opensource-finance/credivist/internal/repository"
	"github.com/opensource-finance/credivist/internal/risk"
	"github.com/opensource-finance/credivist/internal/scoring"
	"github.com/opensource-finance/credivist/internal/tracing"
	"github.com/opensource-finance/credivist/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: config.LogLevel(cfg)}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting credivist",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"oracle", cfg.Scoring.Oracle,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()
	slog.Info("tracing initialized", "enabled", cfg.Tracing.Enabled, "exporter", cfg.Tracing.ExporterType)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	enquiries := enquiry.NewService(repo, cacheImpl)
	rules, err := risk.NewRuleOracle(enquiries.Getter(), cfg.Scoring.EnquiryWindow, cfg.Scoring.MaxRuleWorkers)
	if err != nil {
		slog.Error("failed to initialize rule oracle", "error", err)
		os.Exit(1)
	}
	defer rules.Close()

	if err := loadRiskRules(ctx, repo, rules); err != nil {
		slog.Error("failed to load risk rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule oracle initialized", "rules_count", rules.RulesCount())

	oracle, err := newOracle(cfg.Scoring, rules)
	if err != nil {
		slog.Error("failed to select risk oracle", "error", err)
		os.Exit(1)
	}
	scorer := scoring.NewScorer(oracle)
	store := assessments.NewStore(repo, cacheImpl, cfg.Scoring.AssessmentTTL)
	slog.Info("scorer initialized", "oracle", oracle.Name())

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, store, scorer)
		if err := asyncWorker.Start(cfg.Worker); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		} else {
			slog.Info("async worker started", "workers", cfg.Worker.Count, "tenants", cfg.Worker.Tenants)
		}
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Repo:    repo,
		Cache:   cacheImpl,
		Bus:     busImpl,
		Store:   store,
		Scorer:  scorer,
		Rules:   rules,
		Scoring: cfg.Scoring,
		Version: Version,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			cancel()
		}
	}()

	slog.Info("credivist is ready", "host", cfg.Server.Host, "port", cfg.Server.Port)
	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("credivist shutdown complete")
}

// loadRiskRules loads the stored global rules, seeding the builtin set on
// first start.
func loadRiskRules(ctx context.Context, repo domain.Repository, rules *risk.RuleOracle) error {
	stored, err := repo.ListRiskRules(ctx, domain.GlobalTenantID)
	if err != nil {
		return fmt.Errorf("list risk rules: %w", err)
	}

	if len(stored) == 0 {
		stored = risk.BuiltinRules()
		for _, rule := range stored {
			rule.TenantID = domain.GlobalTenantID
			if err := repo.SaveRiskRule(ctx, domain.GlobalTenantID, rule); err != nil {
				return fmt.Errorf("seed risk rule %s: %w", rule.ID, err)
			}
		}
		slog.Info("seeded builtin risk rules", "count", len(stored))
	}

	return rules.LoadRules(stored)
}

func newOracle(cfg domain.ScoringConfig, rules *risk.RuleOracle) (risk.Oracle, error) {
	switch cfg.Oracle {
	case domain.OracleConstant:
		return risk.Constant(cfg.ConstantRisk), nil
	case domain.OracleLogistic, "":
		return risk.DefaultLogistic(), nil
	case domain.OracleRules:
		return rules, nil
	case domain.OracleEnsemble:
		e := risk.NewEnsemble(risk.DefaultLogistic(), rules)
		if cfg.EnsembleWeight > 0 {
			e.Weight = cfg.EnsembleWeight
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown oracle %q", cfg.Oracle)
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  CrediVist: alternative credit trust scores (300-900)")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Oracle:   %s\n", cfg.Scoring.Oracle)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /score                    - Score a transaction profile")
	fmt.Println("    POST /score/batch              - Score up to 500 profiles")
	fmt.Println("    GET  /assessments/{id}         - Get a stored assessment")
	fmt.Println("    GET  /personas                 - List alternative profiles")
	fmt.Println("    POST /personas/{persona}/score - Score an alternative profile")
	fmt.Println("    POST /loans/recommend          - Recommend loans for a score")
	fmt.Println("    POST /loans/check              - Check one loan")
	fmt.Println("    GET  /loans/search             - Search the loan catalog")
	fmt.Println("    POST /emi                      - EMI and amortization schedule")
	fmt.Println("    GET  /risk-rules               - List CEL risk rules")
	fmt.Println("    POST /risk-rules/reload        - Hot-reload risk rules")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println("    GET  /metrics                  - Prometheus metrics")
	fmt.Println()
}
