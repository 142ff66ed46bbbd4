package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/paytab/backend/domain"
)

// DivergenceSource lists sessions whose latest mirror failed.
type DivergenceSource interface {
	Diverged(ctx context.Context) ([]domain.Session, error)
}

// ReporterConfig controls how often the sweep runs.
type ReporterConfig struct {
	Interval time.Duration
}

// DivergenceReporter periodically sweeps the ledger for sessions whose
// local state has run ahead of the vault and keeps the count visible. It
// only reports: reconciling a failed mirror is an operator decision, never
// an automatic retry.
type DivergenceReporter struct {
	source DivergenceSource
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ReporterConfig
	count  atomic.Int64
}

func NewDivergenceReporter(source DivergenceSource, logger *zap.Logger, cfg ReporterConfig) *DivergenceReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &DivergenceReporter{
		source: source,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	// time.Duration's String form ("30s", "500ms") is what @every parses,
	// so sub-second intervals schedule correctly too.
	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		r.Sweep(ctx)
	}); err != nil {
		r.logger.Error("failed to schedule divergence sweep",
			zap.String("schedule", schedule),
			zap.Error(err))
	}

	return r
}

// Start launches the cron scheduler.
func (r *DivergenceReporter) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("divergence reporter started", zap.Duration("interval", r.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (r *DivergenceReporter) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("divergence reporter stopped")
}

// Sweep samples the diverged sessions once and logs each of them.
func (r *DivergenceReporter) Sweep(ctx context.Context) {
	sessions, err := r.source.Diverged(ctx)
	if err != nil {
		r.logger.Error("divergence sweep failed", zap.Error(err))
		return
	}
	r.count.Store(int64(len(sessions)))

	for _, s := range sessions {
		r.logger.Warn("session ahead of settlement vault",
			zap.String("session_id", s.ID),
			zap.String("state", string(s.State)),
			zap.Int64("spent", s.Spent),
			zap.Time("updated_at", s.UpdatedAt))
	}
}

// Count returns the diverged-session count from the latest sweep.
func (r *DivergenceReporter) Count() int {
	if r == nil {
		return 0
	}
	return int(r.count.Load())
}
