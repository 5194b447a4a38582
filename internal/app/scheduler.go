package app

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/interfaces/httpapi"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
	"github.com/robfig/cron/v3"
)

const (
	jobSync          = "sync"
	jobFinalizeReady = "finalize_ready"
)

// Scheduler drives the periodic sync and finalize-ready passes for the worker process.
// A run that is still in progress when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// JobFunc is one scheduled pass. It reports an error only when the whole pass failed.
type JobFunc func(ctx context.Context) error

// ScheduledJob binds a cron expression to a pass.
type ScheduledJob struct {
	Name     string
	Schedule string
	Run      JobFunc
}

func NewScheduler(jobs []ScheduledJob, timeout time.Duration, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}

	cronLog := cronLogger{logger: logger.Named("cron")}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	), cron.WithLogger(cronLog))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, logger: logger, ctx: ctx, cancel: cancel}

	for _, job := range jobs {
		if _, err := c.AddFunc(job.Schedule, s.wrap(job, timeout)); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule job %s (%q): %w", job.Name, job.Schedule, err)
		}
		logger.Info("job scheduled", "job", job.Name, "schedule", job.Schedule)
	}
	return s, nil
}

// JobEnqueuer hands a job to an external queue that calls back into the api.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, path string, payload any, deduplicationID string) error
}

// WorkerJobs returns the sync and finalize-ready passes using the configured schedules.
// With a non-nil enqueuer each tick is published for the api to run instead of running in-process.
func (a *App) WorkerJobs(enqueuer JobEnqueuer) []ScheduledJob {
	if enqueuer != nil {
		return []ScheduledJob{
			{Name: jobSync, Schedule: a.cfg.JobSyncSchedule, Run: enqueueJob(enqueuer, jobSync, httpapi.SyncJobPath)},
			{Name: jobFinalizeReady, Schedule: a.cfg.JobFinalizeSchedule, Run: enqueueJob(enqueuer, jobFinalizeReady, httpapi.FinalizeReadyJobPath)},
		}
	}

	return []ScheduledJob{
		{
			Name:     jobSync,
			Schedule: a.cfg.JobSyncSchedule,
			Run: func(ctx context.Context) error {
				result, err := a.Activation.Run(ctx)
				if err != nil {
					return err
				}
				a.logger.InfoContext(ctx, "sync pass finished",
					"contests_activated", result.ContestsActivated,
					"contests_synced", result.ContestsSynced,
					"entries_updated", result.EntriesUpdated,
					"errors", len(result.Errors),
				)
				return nil
			},
		},
		{
			Name:     jobFinalizeReady,
			Schedule: a.cfg.JobFinalizeSchedule,
			Run: func(ctx context.Context) error {
				result, err := a.Finalization.FinalizeReady(ctx)
				if err != nil {
					return err
				}
				a.logger.InfoContext(ctx, "finalize-ready pass finished",
					"attempted", result.Attempted,
					"finalized", len(result.Finalized),
					"rejected", len(result.Rejected),
					"errors", len(result.Errors),
				)
				return nil
			},
		},
	}
}

// enqueueJob dedupes on the minute so overlapping workers publish one message per tick.
func enqueueJob(enqueuer JobEnqueuer, name, path string) JobFunc {
	return func(ctx context.Context) error {
		dispatchID := fmt.Sprintf("%s-%s", name, time.Now().UTC().Format("200601021504"))
		payload := map[string]string{"dispatch_id": dispatchID, "trigger": "qstash"}
		return enqueuer.Enqueue(ctx, path, payload, dispatchID)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running passes and waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) wrap(job ScheduledJob, timeout time.Duration) func() {
	return func() {
		ctx := s.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		started := time.Now()
		if err := job.Run(ctx); err != nil {
			metrics.ScheduledJobsTotal.WithLabelValues(job.Name, "error").Inc()
			s.logger.ErrorContext(ctx, "scheduled job failed", "job", job.Name, "duration_ms", time.Since(started).Milliseconds(), "error", err)
			return
		}
		metrics.ScheduledJobsTotal.WithLabelValues(job.Name, "ok").Inc()
		s.logger.DebugContext(ctx, "scheduled job done", "job", job.Name, "duration_ms", time.Since(started).Milliseconds())
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
