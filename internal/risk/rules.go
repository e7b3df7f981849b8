package risk

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/numeric"
)

// RuleOracle scores applicants with CEL risk rules. The predicted
// probability is the weight-normalized average of the rule scores.
type RuleOracle struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	enquiryGetter EnquiryGetter
	window        time.Duration
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RiskRule
	Program cel.Program
}

// EnquiryGetter returns how many times an applicant was scored within a window.
type EnquiryGetter func(ctx context.Context, tenantID, applicantID string, window time.Duration) (int64, error)

// NewRuleOracle creates a CEL rule oracle.
func NewRuleOracle(enquiryGetter EnquiryGetter, window time.Duration, maxWorkers int) (*RuleOracle, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// Every model feature is a double variable; the same values are also
	// reachable through the features map.
	opts := []cel.EnvOption{
		cel.Variable("features", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("enquiry_count", cel.IntType),
		cel.Variable("applicant_id", cel.StringType),
		cel.Variable("cash_flow_category", cel.StringType),
		cel.Variable("expense_risk", cel.StringType),
	}
	for _, name := range features.ModelFeatures {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &RuleOracle{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		enquiryGetter: enquiryGetter,
		window:        window,
		maxWorkers:    maxWorkers,
	}, nil
}

func (o *RuleOracle) Name() string { return "rules" }

// Predict returns the aggregated rule score. With no rules loaded it is 0.
func (o *RuleOracle) Predict(ctx context.Context, in *Input) (float64, error) {
	ev, err := o.Evaluate(ctx, in)
	if err != nil {
		return 0, err
	}
	return ev.Probability, nil
}

// ValidateRule compiles a rule without changing the loaded set.
func (o *RuleOracle) ValidateRule(rule *domain.RiskRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is required", ErrInvalidRule)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	_, err := o.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule.
func (o *RuleOracle) LoadRule(rule *domain.RiskRule) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	compiled, err := o.compileRule(rule)
	if err != nil {
		return err
	}
	o.compiledRules[rule.ID] = compiled
	return nil
}

// LoadRules compiles and loads every enabled rule.
func (o *RuleOracle) LoadRules(rules []*domain.RiskRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := o.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules atomically replaces the loaded rule set. On error the previous
// set stays active.
func (o *RuleOracle) ReloadRules(rules []*domain.RiskRule) error {
	next := make(map[string]*CompiledRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		compiled, err := o.compileRule(rule)
		if err != nil {
			return err
		}
		next[rule.ID] = compiled
	}

	o.mu.Lock()
	o.compiledRules = next
	o.mu.Unlock()
	return nil
}

// RulesCount returns the number of loaded rules.
func (o *RuleOracle) RulesCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.compiledRules)
}

// LoadedRules returns the currently loaded rule configurations.
func (o *RuleOracle) LoadedRules() []*domain.RiskRule {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rules := make([]*domain.RiskRule, 0, len(o.compiledRules))
	for _, compiled := range o.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close unloads every rule.
func (o *RuleOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compiledRules = make(map[string]*CompiledRule)
	return nil
}

// Evaluate runs all loaded rules in parallel and aggregates their scores.
func (o *RuleOracle) Evaluate(ctx context.Context, in *Input) (*Evaluation, error) {
	o.mu.RLock()
	rules := make([]*CompiledRule, 0, len(o.compiledRules))
	for _, rule := range o.compiledRules {
		rules = append(rules, rule)
	}
	o.mu.RUnlock()
	slices.SortFunc(rules, func(a, b *CompiledRule) int {
		return strings.Compare(a.Config.ID, b.Config.ID)
	})

	var enquiries int64
	if o.enquiryGetter != nil && o.window > 0 && in.ApplicantID != "" {
		count, err := o.enquiryGetter(ctx, in.TenantID, in.ApplicantID, o.window)
		if err == nil {
			enquiries = count
		}
	}

	if len(rules) == 0 {
		return &Evaluation{EnquiryCount: enquiries}, nil
	}

	activation := o.activation(in, enquiries)

	results := make([]domain.RuleResult, len(rules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = o.evaluateRule(r, activation, in)
		}(i, rule)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Evaluation{
		Probability:  Aggregate(results),
		Results:      results,
		EnquiryCount: enquiries,
	}, nil
}

func (o *RuleOracle) activation(in *Input, enquiries int64) map[string]any {
	feats := make(map[string]float64, len(features.ModelFeatures))
	activation := map[string]any{
		"enquiry_count":      enquiries,
		"applicant_id":       in.ApplicantID,
		"cash_flow_category": string(in.CashFlowCategory),
		"expense_risk":       string(in.ExpenseRisk),
	}
	for _, name := range features.ModelFeatures {
		v := in.Features[name]
		feats[name] = v
		activation[name] = v
	}
	activation["features"] = feats
	return activation
}

// evaluateRule evaluates a single rule and returns the result.
func (o *RuleOracle) evaluateRule(rule *CompiledRule, activation map[string]any, in *Input) domain.RuleResult {
	start := time.Now()

	result := domain.RuleResult{
		RuleID:      rule.Config.ID,
		TenantID:    in.TenantID,
		ApplicantID: in.ApplicantID,
		Weight:      rule.Config.Weight,
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.SubRuleRef = domain.RuleOutcomeError
		result.Reason = fmt.Sprintf("evaluation error: %v", err)
		result.ProcessMs = time.Since(start).Milliseconds()
		return result
	}

	result.Score = toScore(out)
	result.SubRuleRef, result.Reason = matchBand(result.Score, rule.Config.Bands)
	result.ProcessMs = time.Since(start).Milliseconds()

	return result
}

// Aggregate is the weight-normalized mean of the rule scores, each clamped
// to [0,1]. Rules that failed to evaluate are left out; a weight ≤ 0 counts
// as 1.
func Aggregate(results []domain.RuleResult) float64 {
	var sum, total float64
	for _, r := range results {
		if r.SubRuleRef == domain.RuleOutcomeError {
			continue
		}
		weight := r.Weight
		if weight <= 0 {
			weight = 1.0
		}
		sum += numeric.Clamp01(r.Score) * weight
		total += weight
	}
	if total == 0 {
		return 0
	}
	return numeric.Clamp01(sum / total)
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// matchBand finds the matching band for a score.
// Bands are evaluated in order: lower inclusive, upper exclusive, and a nil
// upper limit means unbounded.
func matchBand(score float64, bands []domain.RuleBand) (string, string) {
	for _, band := range bands {
		lower := 0.0
		if band.LowerLimit != nil {
			lower = *band.LowerLimit
		}
		if score < lower {
			continue
		}
		if band.UpperLimit == nil || score < *band.UpperLimit {
			return band.SubRuleRef, band.Reason
		}
	}

	return domain.RuleOutcomePass, "no matching band"
}

func (o *RuleOracle) compileRule(rule *domain.RiskRule) (*CompiledRule, error) {
	ast, issues := o.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile rule %s: %v", ErrInvalidRule, rule.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("%w: rule %s must return bool, int, or double, got %s", ErrInvalidRule, rule.ID, outputType)
	}

	program, err := o.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create program for rule %s: %v", ErrInvalidRule, rule.ID, err)
	}

	return &CompiledRule{
		Config:  rule,
		Program: program,
	}, nil
}
