package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/metrics"
	"github.com/opensource-finance/credivist/internal/risk"
)

var tracer = otel.Tracer("credivist-scoring")

// Result is the full outcome of scoring one record.
type Result struct {
	ApplicantID string           `json:"user_id,omitempty"`
	Features    features.Vector  `json:"features"`
	Details     features.Details `json:"details"`
	SubScores   SubScores        `json:"sub_scores"`
	Breakdown   []BreakdownGroup `json:"breakdown"`
	Score       ScoreResult      `json:"score"`
	Explanation Explanation      `json:"explanation"`
	Oracle      string           `json:"oracle"`
	Risk        *risk.Evaluation `json:"risk,omitempty"`

	Timing Timing `json:"-"`
}

// Timing records how long each stage took.
type Timing struct {
	Features time.Duration
	Oracle   time.Duration
	Total    time.Duration
}

// Scorer runs the full pipeline: features, sub-scores, risk oracle and the
// final blend. It is safe for concurrent use.
type Scorer struct {
	oracle risk.Oracle
}

// NewScorer creates a scorer backed by the given risk oracle.
func NewScorer(oracle risk.Oracle) *Scorer {
	if oracle == nil {
		oracle = risk.Constant(0)
	}
	return &Scorer{oracle: oracle}
}

// Oracle returns the risk oracle in use.
func (s *Scorer) Oracle() risk.Oracle { return s.oracle }

// Score runs the pipeline for one record.
func (s *Scorer) Score(ctx context.Context, tenantID string, r *features.Record) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "scoring.Score")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("applicant.id", r.ApplicantID),
	)

	ext := features.Extract(r)
	featuresDone := time.Now()

	ev, err := s.predict(ctx, risk.NewInput(tenantID, r, ext))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "risk oracle failed")
		return nil, fmt.Errorf("risk oracle %s: %w", s.oracle.Name(), err)
	}
	oracleDone := time.Now()

	subs, score := Compute(r, ext, ev.Probability)
	span.SetAttributes(
		attribute.Float64("score.final", score.FinalTrustScore),
		attribute.Float64("score.risk", score.RiskProbability),
	)

	res := &Result{
		ApplicantID: r.ApplicantID,
		Features:    ext.Vector,
		Details:     ext.Details,
		SubScores:   subs,
		Breakdown:   subs.Breakdown(),
		Score:       score,
		Explanation: Explain(ext.Row(r)),
		Oracle:      s.oracle.Name(),
		Risk:        ev,
		Timing: Timing{
			Features: featuresDone.Sub(start),
			Oracle:   oracleDone.Sub(featuresDone),
			Total:    time.Since(start),
		},
	}

	metrics.AssessmentsTotal.WithLabelValues(string(domain.SourceTransaction), score.Grade).Inc()
	metrics.AssessmentDuration.WithLabelValues(string(domain.SourceTransaction)).Observe(res.Timing.Total.Seconds())

	return res, nil
}

func (s *Scorer) predict(ctx context.Context, in *risk.Input) (*risk.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "scoring.RiskOracle")
	defer span.End()
	span.SetAttributes(attribute.String("oracle", s.oracle.Name()))

	start := time.Now()
	ev, err := risk.Evaluate(ctx, s.oracle, in)
	metrics.OracleDuration.WithLabelValues(s.oracle.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleErrors.WithLabelValues(s.oracle.Name()).Inc()
		span.RecordError(err)
		return nil, err
	}
	return ev, nil
}

// BatchItem is the outcome for one record of a batch.
type BatchItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// ScoreBatch scores records in parallel with at most workers goroutines
// in flight. Items come back in input order; invalid records carry an error.
func (s *Scorer) ScoreBatch(ctx context.Context, tenantID string, records []*features.Record, workers int) []BatchItem {
	if workers <= 0 {
		workers = 8
	}

	items := make([]BatchItem, len(records))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, r := range records {
		wg.Add(1)
		go func(idx int, rec *features.Record) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			items[idx].Index = idx
			if err := ctx.Err(); err != nil {
				items[idx].Error = err.Error()
				return
			}
			if rec == nil {
				items[idx].Error = "record is required"
				return
			}
			if err := rec.Validate(); err != nil {
				items[idx].Error = err.Error()
				return
			}
			res, err := s.Score(ctx, tenantID, rec)
			if err != nil {
				items[idx].Error = err.Error()
				return
			}
			items[idx].Result = res
		}(i, r)
	}
	wg.Wait()

	return items
}
