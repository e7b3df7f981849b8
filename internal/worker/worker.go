// Package worker scores assessment requests arriving on the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/credivist/internal/assessments"
	"github.com/opensource-finance/credivist/internal/bus"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/loan"
	"github.com/opensource-finance/credivist/internal/metrics"
	"github.com/opensource-finance/credivist/internal/scoring"
)

// Failure stages reported in metrics.
const (
	stageDecode = "decode"
	stageScore  = "score"
	stageStore  = "store"
)

// Worker consumes TopicAssessmentRequested and publishes completed or
// declined events.
type Worker struct {
	bus    domain.EventBus
	store  *assessments.Store
	scorer *scoring.Scorer

	jobs          chan job
	subscriptions []domain.Subscription
	mu            sync.Mutex
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
}

type job struct {
	ctx context.Context
	msg *domain.Message
}

// NewWorker creates a worker. Call Start to begin consuming.
func NewWorker(eventBus domain.EventBus, store *assessments.Store, scorer *scoring.Scorer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    eventBus,
		store:  store,
		scorer: scorer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes for the configured tenants, or for every tenant when
// none are listed, and launches cfg.Count handlers.
func (w *Worker) Start(cfg domain.WorkerConfig) error {
	count := cfg.Count
	if count <= 0 {
		count = 1
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.jobs != nil {
		return fmt.Errorf("worker already started")
	}
	w.jobs = make(chan job, count*4)

	tenants := cfg.Tenants
	if len(tenants) == 0 {
		tenants = []string{domain.GlobalTenantID}
	}

	for _, tenantID := range tenants {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicAssessmentRequested, w.enqueue)
		if err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		w.subscriptions = append(w.subscriptions, sub)
	}
	if len(w.subscriptions) == 0 {
		return fmt.Errorf("no tenant subscriptions could be created")
	}

	for range count {
		w.wg.Add(1)
		go w.loop()
	}

	slog.Info("workers started",
		"tenant_count", len(tenants),
		"worker_count", count,
		"topic", domain.TopicAssessmentRequested,
	)
	return nil
}

func (w *Worker) enqueue(ctx context.Context, msg *domain.Message) error {
	select {
	case w.jobs <- job{ctx: ctx, msg: msg}:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case j := <-w.jobs:
			if _, err := w.Process(j.ctx, j.msg); err != nil {
				slog.Error("assessment request failed",
					"tenant_id", j.msg.TenantID,
					"message_id", j.msg.ID,
					"error", err,
				)
			}
		}
	}
}

// Process scores one request message, stores the assessment and publishes
// the outcome. Failed requests are answered with a declined event carrying
// the error.
func (w *Worker) Process(ctx context.Context, msg *domain.Message) (*domain.AssessmentEvent, error) {
	start := time.Now()
	tenantID := msg.TenantID

	var req domain.AssessmentRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, w.fail(ctx, msg, &req, stageDecode, fmt.Errorf("invalid request payload: %w", err))
	}

	rec, err := decodeRecord(&req)
	if err != nil {
		return nil, w.fail(ctx, msg, &req, stageDecode, err)
	}

	res, err := w.scorer.Score(ctx, tenantID, rec)
	if err != nil {
		return nil, w.fail(ctx, msg, &req, stageScore, err)
	}

	a, err := res.Assessment(tenantID)
	if err != nil {
		return nil, w.fail(ctx, msg, &req, stageStore, err)
	}
	a.Metadata.TraceID = bus.TraceID(msg)
	if a.Metadata.TraceID == "" {
		a.Metadata.TraceID = msg.ID
	}

	if err := w.store.Save(ctx, tenantID, a); err != nil {
		return nil, w.fail(ctx, msg, &req, stageStore, err)
	}

	ev := &domain.AssessmentEvent{
		RequestID:    req.RequestID,
		AssessmentID: a.ID,
		ApplicantID:  a.ApplicantID,
		FinalScore:   a.FinalScore,
		Grade:        a.Grade,
	}

	topic, outcome := domain.TopicAssessmentCompleted, "completed"
	if loan.TierFor(a.FinalScore).Key == loan.TierVeryPoor {
		topic, outcome = domain.TopicAssessmentDeclined, "declined"
	}
	w.publish(ctx, msg, topic, ev)

	w.processed.Add(1)
	metrics.WorkerJobsCompleted.WithLabelValues(outcome).Inc()

	slog.Info("assessment processed",
		"assessment_id", a.ID,
		"request_id", req.RequestID,
		"tenant_id", tenantID,
		"final_score", a.FinalScore,
		"grade", a.Grade,
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ev, nil
}

var errNoRecord = errors.New("record is required")

func decodeRecord(req *domain.AssessmentRequest) (*features.Record, error) {
	if len(req.Record) == 0 {
		return nil, errNoRecord
	}
	var rec features.Record
	if err := json.Unmarshal(req.Record, &rec); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	if rec.ApplicantID == "" {
		rec.ApplicantID = req.ApplicantID
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (w *Worker) fail(ctx context.Context, msg *domain.Message, req *domain.AssessmentRequest, stage string, err error) error {
	w.failed.Add(1)
	metrics.WorkerJobsFailed.WithLabelValues(stage).Inc()

	w.publish(ctx, msg, domain.TopicAssessmentDeclined, &domain.AssessmentEvent{
		RequestID:   req.RequestID,
		ApplicantID: req.ApplicantID,
		Error:       err.Error(),
	})
	return err
}

func (w *Worker) publish(ctx context.Context, msg *domain.Message, topic string, ev *domain.AssessmentEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode assessment event", "error", err)
		return
	}
	if err := w.bus.Publish(ctx, msg.TenantID, topic, payload); err != nil {
		slog.Error("failed to publish assessment event",
			"topic", topic,
			"tenant_id", msg.TenantID,
			"error", err,
		)
	}
	if err := bus.Reply(ctx, w.bus, msg, payload); err != nil {
		slog.Error("failed to reply to assessment request", "message_id", msg.ID, "error", err)
	}
}

// Stop unsubscribes and waits for in-flight jobs.
func (w *Worker) Stop() error {
	w.mu.Lock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()

	slog.Info("workers stopped", "processed", w.processed.Load(), "failed", w.failed.Load())
	return nil
}

// Stats describes the worker's subscriptions and throughput.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
