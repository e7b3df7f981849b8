// Package risk provides the default-risk oracles used to adjust trust scores.
package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/numeric"
)

// ErrInvalidRule is returned when a risk rule cannot be compiled.
var ErrInvalidRule = errors.New("invalid risk rule")

// Input is what an oracle sees for one applicant.
type Input struct {
	TenantID         string
	ApplicantID      string
	Features         features.ModelRow
	CashFlowCategory features.CashFlowCategory
	ExpenseRisk      features.ExpenseRisk
}

// NewInput builds the oracle input for an extracted record.
func NewInput(tenantID string, r *features.Record, ext features.Extraction) *Input {
	return &Input{
		TenantID:         tenantID,
		ApplicantID:      r.ApplicantID,
		Features:         ext.Row(r),
		CashFlowCategory: ext.Vector.CashFlowCategory,
		ExpenseRisk:      ext.Vector.ExpenseRisk,
	}
}

// Oracle estimates the probability of default in [0,1].
// Implementations must be safe for concurrent use.
type Oracle interface {
	Name() string
	Predict(ctx context.Context, in *Input) (float64, error)
}

// Evaluation is a prediction together with the per-rule results behind it.
type Evaluation struct {
	Probability  float64             `json:"probability"`
	Results      []domain.RuleResult `json:"results,omitempty"`
	EnquiryCount int64               `json:"enquiryCount"`
}

// Evaluator is implemented by oracles that can explain a prediction.
type Evaluator interface {
	Evaluate(ctx context.Context, in *Input) (*Evaluation, error)
}

// Evaluate runs o and returns its detailed evaluation when o supports it.
func Evaluate(ctx context.Context, o Oracle, in *Input) (*Evaluation, error) {
	if ev, ok := o.(Evaluator); ok {
		return ev.Evaluate(ctx, in)
	}
	p, err := o.Predict(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Probability: p}, nil
}

// Constant always predicts the same probability.
type Constant float64

func (c Constant) Name() string { return "constant" }

func (c Constant) Predict(context.Context, *Input) (float64, error) {
	return numeric.Clamp01(float64(c)), nil
}

// Ensemble blends two oracles: Weight·primary + (1−Weight)·secondary.
type Ensemble struct {
	Primary   Oracle
	Secondary Oracle
	Weight    float64
}

// NewEnsemble returns the default 60/40 blend.
func NewEnsemble(primary, secondary Oracle) *Ensemble {
	return &Ensemble{Primary: primary, Secondary: secondary, Weight: 0.6}
}

func (e *Ensemble) Name() string {
	return fmt.Sprintf("ensemble(%s+%s)", e.Primary.Name(), e.Secondary.Name())
}

func (e *Ensemble) Predict(ctx context.Context, in *Input) (float64, error) {
	ev, err := e.Evaluate(ctx, in)
	if err != nil {
		return 0, err
	}
	return ev.Probability, nil
}

// Evaluate blends both oracles and keeps whatever rule results they report.
func (e *Ensemble) Evaluate(ctx context.Context, in *Input) (*Evaluation, error) {
	first, err := Evaluate(ctx, e.Primary, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Primary.Name(), err)
	}
	second, err := Evaluate(ctx, e.Secondary, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Secondary.Name(), err)
	}

	w := numeric.Clamp01(e.Weight)
	return &Evaluation{
		Probability:  numeric.Clamp01(w*first.Probability + (1-w)*second.Probability),
		Results:      append(first.Results, second.Results...),
		EnquiryCount: max(first.EnquiryCount, second.EnquiryCount),
	}, nil
}
