// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"formlens/internal/shared/biztime"
	"formlens/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance. All cron
// expressions run in UTC, matching billing period arithmetic.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterBillingJobs registers subscription maintenance jobs:
// - Enact deferred cancellations whose billing period has ended
// The sweep runs immediately on startup to catch cancellations that came due
// while the service was down.
func (m *SchedulerManager) RegisterBillingJobs(
	sweepCancellationsJob BatchJob,
	sweepInterval time.Duration,
) error {
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.processDeferredCancellations(ctx, sweepCancellationsJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "cancellation-sweep"),
		gocron.WithName("cancellation-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered billing jobs", "sweep_interval", sweepInterval)
	return nil
}

func (m *SchedulerManager) processDeferredCancellations(ctx context.Context, job BatchJob) {
	m.logger.Debugw("deferred cancellation sweep started")

	startTime := biztime.NowUTC()

	canceledCount, err := job.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("deferred cancellation sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if canceledCount > 0 {
		m.logger.Infow("deferred cancellations enacted",
			"count", canceledCount,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("no deferred cancellations due",
			"duration", time.Since(startTime),
		)
	}
}

// RegisterRetentionJobs registers data retention jobs:
// - Purge processed webhook event records past the retention window, daily at 05:00 UTC
func (m *SchedulerManager) RegisterRetentionJobs(
	purgeWebhookEventsJob BatchJob,
) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob("0 5 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.processWebhookRetention(ctx, purgeWebhookEventsJob)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("retention", "webhook-events"),
		gocron.WithName("webhook-event-purge"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered retention jobs", "webhook_purge", "05:00 UTC")
	return nil
}

func (m *SchedulerManager) processWebhookRetention(ctx context.Context, job BatchJob) {
	m.logger.Debugw("webhook event purge started")

	startTime := biztime.NowUTC()

	purgedCount, err := job.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("webhook event purge failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if purgedCount > 0 {
		m.logger.Infow("webhook events purged",
			"count", purgedCount,
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler. Safe to call more than once.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
