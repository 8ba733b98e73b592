package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/clock"
	invoicedomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Repo   Repository
	Ledger invoicedomain.Service
	Config Config `optional:"true"`
}

// Worker sweeps PENDING invoices past their due date into OVERDUE.
type Worker struct {
	log    *zap.Logger
	clock  clock.Clock
	repo   Repository
	ledger invoicedomain.Service
	cfg    Config
	sweep  *metrics.SweepMetrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:    p.Log.Named("scheduler.overdue"),
		clock:  p.Clock,
		repo:   p.Repo,
		ledger: p.Ledger,
		cfg:    p.Config.withDefaults(),
		sweep:  metrics.Sweep(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("overdue sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of due invoices and transitions each through
// the ledger. Returns the number of invoices marked OVERDUE.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	now := w.clock.Now()

	ids, err := w.repo.DuePending(ctx, now, w.cfg.BatchSize)
	if err != nil {
		w.sweep.ObserveRun("error", 0, time.Since(started))
		return 0, err
	}

	marked := 0
	var firstErr error
	for _, id := range ids {
		if _, err := w.ledger.MarkAsOverdue(ctx, id); err != nil {
			// Another writer beat the sweep to a terminal state; not a
			// failure, the invoice just no longer needs sweeping.
			if errors.Is(err, invoicedomain.ErrInvoiceNotPending) || errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
				continue
			}
			w.log.Warn("mark invoice overdue",
				zap.Int64("invoice_id", int64(id)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		marked++
	}

	if backlog, err := w.repo.CountDuePending(ctx, now); err == nil {
		w.sweep.SetBacklog(backlog)
	}

	outcome := "ok"
	if firstErr != nil {
		outcome = "partial"
	}
	w.sweep.ObserveRun(outcome, marked, time.Since(started))

	if marked > 0 {
		w.log.Info("overdue sweep complete",
			zap.Int("marked", marked),
			zap.Int("claimed", len(ids)),
		)
	}
	return marked, firstErr
}
