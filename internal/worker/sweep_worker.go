package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/service"
)

// SweepWorker periodically resolves tickets stuck in pending past the
// configured age.
type SweepWorker struct {
	tickets  *service.TicketService
	interval time.Duration
	logger   *zap.Logger
}

// NewSweepWorker builds the worker.
func NewSweepWorker(cfg config.WorkerConfig, tickets *service.TicketService, logger *zap.Logger) *SweepWorker {
	interval := time.Duration(cfg.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweepWorker{tickets: tickets, interval: interval, logger: logger}
}

// Run sweeps on a ticker until the context is canceled. One sweep runs
// immediately at startup so a restart does not defer overdue tickets a
// full interval.
func (w *SweepWorker) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	resolved, err := w.tickets.AutoResolvePending(ctx, time.Now())
	if err != nil {
		w.logger.Error("pending auto-resolve sweep failed", zap.Error(err))
		return
	}
	if resolved > 0 {
		w.logger.Info("pending tickets auto-resolved", zap.Int("count", resolved))
	}
}
