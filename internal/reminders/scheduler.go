package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/medcare-assistant/internal/observability/metrics"
	"github.com/wolfman30/medcare-assistant/internal/prescriptions"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// DueSource lists active reminders whose time has come and records sends.
type DueSource interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]prescriptions.DueReminder, error)
	MarkSent(ctx context.Context, reminderID string, at time.Time) error
}

const defaultScanBatch = 100

// Scheduler publishes a job for every due reminder on each tick. A published
// reminder is marked sent right away so the next tick skips it.
type Scheduler struct {
	source   DueSource
	queue    Queue
	interval time.Duration
	batch    int
	location *time.Location
	metrics  *metrics.ReminderMetrics
	logger   *logging.Logger
	now      func() time.Time
}

type SchedulerOption func(*Scheduler)

func WithScanInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithScanBatch(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithLocation sets the zone reminder times of day are read in.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithSchedulerMetrics(m *metrics.ReminderMetrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

func NewScheduler(source DueSource, queue Queue, logger *logging.Logger, opts ...SchedulerOption) *Scheduler {
	if source == nil {
		panic("reminders: due source cannot be nil")
	}
	if queue == nil {
		panic("reminders: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Scheduler{
		source:   source,
		queue:    queue,
		interval: time.Minute,
		batch:    defaultScanBatch,
		location: time.UTC,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans on every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", "interval", s.interval.String(), "location", s.location.String())
	for {
		if _, err := s.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("reminder scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopping")
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue publishes every reminder due now and returns how many were
// published.
func (s *Scheduler) ProcessDue(ctx context.Context) (int, error) {
	now := s.now().In(s.location)
	due, err := s.source.DueReminders(ctx, now, s.batch)
	if err != nil {
		return 0, fmt.Errorf("reminders: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	published := 0
	for _, d := range due {
		job, body, err := encodeJob(jobFor(d, now))
		if err == nil {
			err = s.queue.Send(ctx, body)
		}
		s.metrics.ObserveEnqueued(err)
		if err != nil {
			s.logger.Error("failed to publish reminder", "reminder_id", d.ReminderID, "error", err)
			continue
		}
		if err := s.source.MarkSent(ctx, d.ReminderID, now); err != nil {
			s.logger.Warn("failed to mark reminder sent", "reminder_id", d.ReminderID, "error", err)
		}
		s.logger.Debug("reminder published", "job_id", job.ID, "reminder_id", d.ReminderID, "patient_id", d.PatientID)
		published++
	}
	s.logger.Info("reminder scan complete", "due", len(due), "published", published)
	return published, nil
}
