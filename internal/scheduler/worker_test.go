package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/clock"
	invoicedomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

type fakeRepository struct {
	due []snowflake.ID
}

func (f *fakeRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]snowflake.ID, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeRepository) CountDuePending(ctx context.Context, now time.Time) (int64, error) {
	return int64(len(f.due)), nil
}

type fakeLedger struct {
	invoicedomain.Service

	marked []snowflake.ID
	errs   map[snowflake.ID]error
}

func (f *fakeLedger) MarkAsOverdue(ctx context.Context, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	if err, ok := f.errs[invoiceID]; ok {
		return nil, err
	}
	f.marked = append(f.marked, invoiceID)
	return &invoicedomain.Invoice{ID: invoiceID, Status: invoicedomain.StatusOverdue}, nil
}

func newTestWorker(repo Repository, ledger invoicedomain.Service) *Worker {
	return NewWorker(Params{
		Log:    zap.NewNop(),
		Clock:  clock.FixedClock{At: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		Repo:   repo,
		Ledger: ledger,
	})
}

func TestRunOnceMarksDueInvoices(t *testing.T) {
	repo := &fakeRepository{due: []snowflake.ID{1, 2, 3}}
	ledger := &fakeLedger{}
	worker := newTestWorker(repo, ledger)

	marked, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if marked != 3 {
		t.Fatalf("marked = %d, want 3", marked)
	}
	if len(ledger.marked) != 3 {
		t.Fatalf("ledger calls = %d, want 3", len(ledger.marked))
	}
}

func TestRunOnceSkipsAlreadyTerminal(t *testing.T) {
	repo := &fakeRepository{due: []snowflake.ID{1, 2}}
	ledger := &fakeLedger{errs: map[snowflake.ID]error{
		1: invoicedomain.ErrInvoiceNotPending,
	}}
	worker := newTestWorker(repo, ledger)

	marked, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("lost race must not be an error, got %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}
}

func TestRunOnceReportsFirstError(t *testing.T) {
	boom := errors.New("boom")
	repo := &fakeRepository{due: []snowflake.ID{1, 2, 3}}
	ledger := &fakeLedger{errs: map[snowflake.ID]error{2: boom}}
	worker := newTestWorker(repo, ledger)

	marked, err := worker.RunOnce(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	// One failure does not stop the rest of the batch.
	if marked != 2 {
		t.Fatalf("marked = %d, want 2", marked)
	}
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	repo := &fakeRepository{due: []snowflake.ID{1, 2, 3, 4, 5}}
	ledger := &fakeLedger{}
	worker := NewWorker(Params{
		Log:    zap.NewNop(),
		Clock:  clock.SystemClock{},
		Repo:   repo,
		Ledger: ledger,
		Config: Config{BatchSize: 2},
	})

	marked, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if marked != 2 {
		t.Fatalf("marked = %d, want 2", marked)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.BatchSize != 100 {
		t.Errorf("batch size = %d, want 100", cfg.BatchSize)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("poll interval = %v, want 1m", cfg.PollInterval)
	}
}
