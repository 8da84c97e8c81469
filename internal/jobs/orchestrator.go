package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/observability/metrics"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// ClinicDirectory lists the clinics a tick walks.
type ClinicDirectory interface {
	List(ctx context.Context) ([]clinic.Clinic, error)
}

// JobRunner is what a tick triggers per clinic.
type JobRunner interface {
	RunConfirmRequest(ctx context.Context, c *clinic.Clinic, now time.Time) error
	RunAutoCancel(ctx context.Context, c *clinic.Clinic, now time.Time) error
}

// Orchestrator fires the minute tick and matches each clinic's local
// wall clock against its trigger minutes. The confirm-request pass runs
// at export_hour:05, five minutes after the clinic's feed lands; the
// auto-cancel pass runs at deadline_hour:01, just past the cutoff.
type Orchestrator struct {
	clinics  ClinicDirectory
	runner   JobRunner
	logger   *logging.Logger
	metrics  *metrics.ConfirmationMetrics
	interval time.Duration
	now      func() time.Time

	// Guards against overlapping ticks on this instance when a tick
	// outlives the interval.
	running atomic.Bool
}

func NewOrchestrator(clinics ClinicDirectory, runner JobRunner, logger *logging.Logger, m *metrics.ConfirmationMetrics) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		clinics:  clinics,
		runner:   runner,
		logger:   logger,
		metrics:  m,
		interval: time.Minute,
		now:      time.Now,
	}
}

func (o *Orchestrator) WithInterval(d time.Duration) *Orchestrator {
	if d > 0 {
		o.interval = d
	}
	return o
}

// Run ticks until the context is canceled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("scheduler started", "interval", o.interval.String())
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick walks all clinics once. A tick that finds the previous one still
// running returns immediately instead of stacking up.
func (o *Orchestrator) Tick(ctx context.Context) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn("scheduler tick skipped, previous tick still running")
		return
	}
	defer o.running.Store(false)

	o.metrics.ObserveTick()
	now := o.now()

	clinics, err := o.clinics.List(ctx)
	if err != nil {
		o.logger.Error("scheduler tick failed to list clinics", "error", err)
		return
	}

	for _, c := range clinics {
		o.dispatch(ctx, &c, now)
	}
}

// dispatch runs at most both jobs for one clinic; a failure in one
// clinic never blocks the others.
func (o *Orchestrator) dispatch(ctx context.Context, c *clinic.Clinic, now time.Time) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		o.logger.Error("clinic has invalid timezone", "clinic_id", c.ID, "timezone", c.Timezone)
		return
	}
	nowLocal := now.In(loc)

	if nowLocal.Hour() == c.ExportHour && nowLocal.Minute() == 5 {
		o.logger.Info("running confirm request job", "clinic_id", c.ID)
		if err := o.runner.RunConfirmRequest(ctx, c, now); err != nil {
			o.logger.Error("confirm request job failed", "error", err, "clinic_id", c.ID)
			o.metrics.ObserveJobRun("confirm_request", "error")
		} else {
			o.metrics.ObserveJobRun("confirm_request", "ok")
		}
	}

	if nowLocal.Hour() == c.DeadlineHour && nowLocal.Minute() == 1 {
		o.logger.Info("running auto cancel job", "clinic_id", c.ID)
		if err := o.runner.RunAutoCancel(ctx, c, now); err != nil {
			o.logger.Error("auto cancel job failed", "error", err, "clinic_id", c.ID)
			o.metrics.ObserveJobRun("auto_cancel", "error")
		} else {
			o.metrics.ObserveJobRun("auto_cancel", "ok")
		}
	}
}
