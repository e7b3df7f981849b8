package worker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/credivist/internal/assessments"
	"github.com/opensource-finance/credivist/internal/bus"
	"github.com/opensource-finance/credivist/internal/cache"
	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/features"
	"github.com/opensource-finance/credivist/internal/repository"
	"github.com/opensource-finance/credivist/internal/risk"
	"github.com/opensource-finance/credivist/internal/scoring"
)

func steadyRecord() features.Record {
	return features.Record{
		MonthlyIncomes:            features.IncomeHistory{20000, 20000, 20000, 20000, 20000, 20000},
		MeanIncome:                20000,
		FixedExpenses:             8000,
		NumIncomeSources:          2,
		OnTimePayments:            12,
		TotalBills:                12,
		RecurringPaymentsDetected: 3,
		EMIConsistencyScore:       0.9,
		TxnRegularityScore:        0.8,
		TotalTransactions:         120,
		EssentialRatio:            0.7,
		HasRecurringSavings:       true,
		MinBalanceMaintained:      true,
		AvgMonthlySavings:         3000,
		TenureMonths:              24,
		PlatformRating:            4.6,
		ActiveDaysPerMonth:        25,
		RechargeRegularity:        0.9,
	}
}

func newTestWorker(t *testing.T, oracle risk.Oracle) (*Worker, *bus.ChannelBus, domain.Repository) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "worker.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	store := assessments.NewStore(repo, cache.NewLRUCache(100), time.Minute)
	return NewWorker(eventBus, store, scoring.NewScorer(oracle)), eventBus, repo
}

func requestMessage(t *testing.T, tenantID string, rec any) *domain.Message {
	t.Helper()
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	payload, _ := json.Marshal(domain.AssessmentRequest{
		RequestID:   "req-1",
		ApplicantID: "user-1",
		Record:      raw,
	})
	return &domain.Message{ID: "msg-1", TenantID: tenantID, Topic: domain.TopicAssessmentRequested, Payload: payload}
}

func TestWorkerStartAndStop(t *testing.T) {
	w, _, _ := newTestWorker(t, risk.Constant(0))

	if err := w.Start(domain.WorkerConfig{Count: 2, Tenants: []string{"tenant-001", "tenant-002"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(domain.WorkerConfig{Count: 1}); err == nil {
		t.Error("expected error when starting twice")
	}

	stats := w.GetStats()
	if stats.SubscriptionCount != 2 {
		t.Errorf("expected 2 subscriptions, got %d", stats.SubscriptionCount)
	}
	for _, topic := range stats.Topics {
		if topic != domain.TopicAssessmentRequested {
			t.Errorf("unexpected topic %s", topic)
		}
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if got := w.GetStats().SubscriptionCount; got != 0 {
		t.Errorf("expected 0 subscriptions after stop, got %d", got)
	}
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("Completed", func(t *testing.T) {
		w, _, repo := newTestWorker(t, risk.Constant(0))

		ev, err := w.Process(ctx, requestMessage(t, "tenant-001", steadyRecord()))
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		if ev.RequestID != "req-1" || ev.ApplicantID != "user-1" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.FinalScore < 400 {
			t.Errorf("expected a score above the very poor tier, got %v", ev.FinalScore)
		}

		stored, err := repo.GetAssessment(ctx, "tenant-001", ev.AssessmentID)
		if err != nil {
			t.Fatalf("assessment not stored: %v", err)
		}
		if stored.Metadata.TraceID != "msg-1" {
			t.Errorf("expected trace id to fall back to message id, got %q", stored.Metadata.TraceID)
		}
		if w.GetStats().Processed != 1 {
			t.Errorf("expected processed count 1, got %d", w.GetStats().Processed)
		}
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		w, _, _ := newTestWorker(t, risk.Constant(0))

		msg := &domain.Message{ID: "bad", TenantID: "tenant-001", Payload: []byte("{not json")}
		if _, err := w.Process(ctx, msg); err == nil {
			t.Fatal("expected error for invalid payload")
		}
		if w.GetStats().Failed != 1 {
			t.Errorf("expected failed count 1, got %d", w.GetStats().Failed)
		}
	})

	t.Run("InvalidRecord", func(t *testing.T) {
		w, _, _ := newTestWorker(t, risk.Constant(0))

		rec := steadyRecord()
		rec.MonthlyIncomes = features.IncomeHistory{1000}
		if _, err := w.Process(ctx, requestMessage(t, "tenant-001", rec)); err == nil {
			t.Fatal("expected validation error for short income history")
		}
	})
}

func TestWorkerEndToEnd(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		oracle risk.Oracle
		topic  string
	}{
		{"Completed", risk.Constant(0), domain.TopicAssessmentCompleted},
		{"DeclinedVeryPoor", risk.Constant(1), domain.TopicAssessmentDeclined},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, eventBus, _ := newTestWorker(t, tc.oracle)

			events := make(chan domain.AssessmentEvent, 1)
			_, err := eventBus.Subscribe(ctx, "tenant-001", tc.topic, func(ctx context.Context, msg *domain.Message) error {
				var ev domain.AssessmentEvent
				if err := json.Unmarshal(msg.Payload, &ev); err != nil {
					return err
				}
				events <- ev
				return nil
			})
			if err != nil {
				t.Fatalf("subscribe failed: %v", err)
			}

			if err := w.Start(domain.WorkerConfig{Count: 1}); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			defer w.Stop()

			raw, _ := json.Marshal(steadyRecord())
			req := domain.AssessmentRequest{RequestID: "req-e2e", ApplicantID: "user-9", Record: raw}
			if err := bus.PublishJSON(ctx, eventBus, "tenant-001", domain.TopicAssessmentRequested, req); err != nil {
				t.Fatalf("publish failed: %v", err)
			}

			select {
			case ev := <-events:
				if ev.RequestID != "req-e2e" {
					t.Errorf("expected request id req-e2e, got %s", ev.RequestID)
				}
				if ev.AssessmentID == "" {
					t.Error("expected an assessment id")
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timeout waiting for %s", tc.topic)
			}
		})
	}
}

func TestWorkerRequestReply(t *testing.T) {
	ctx := context.Background()
	w, eventBus, _ := newTestWorker(t, risk.Constant(0))

	if err := w.Start(domain.WorkerConfig{Count: 1, Tenants: []string{"tenant-001"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	raw, _ := json.Marshal(steadyRecord())
	payload, _ := json.Marshal(domain.AssessmentRequest{RequestID: "req-sync", ApplicantID: "user-2", Record: raw})

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	reply, err := eventBus.Request(reqCtx, "tenant-001", domain.TopicAssessmentRequested, payload)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var ev domain.AssessmentEvent
	if err := json.Unmarshal(reply, &ev); err != nil {
		t.Fatalf("bad reply: %v", err)
	}
	if ev.RequestID != "req-sync" || ev.Grade == "" {
		t.Errorf("unexpected reply %+v", ev)
	}
}
