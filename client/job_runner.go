package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ali123/ali123/internal/fulfillment"
	"github.com/ali123/ali123/internal/logger"
	"github.com/ali123/ali123/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultProcessSchedule   = "@every 5m"
	DefaultTrackingSyncDelay = time.Minute

	processQueueKey = "process_queue"
)

// QueueProcessor runs one process_queue pass.
type QueueProcessor interface {
	ProcessQueue(ctx context.Context) (types.ProcessStats, error)
}

// TrackingSyncer runs one tracking synchronization.
type TrackingSyncer interface {
	Sync(ctx context.Context) (types.TrackingSyncStats, error)
}

// JobRunner owns the recurring queue trigger and the one-shot tracking sync.
type JobRunner struct {
	cron      *cron.Cron
	processor QueueProcessor
	tracking  TrackingSyncer
	schedule  string
	syncDelay time.Duration
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	group singleflight.Group

	mu          sync.Mutex
	scheduled   bool
	entryID     cron.EntryID
	syncTimer   *time.Timer
	syncPending bool
	wg          sync.WaitGroup
}

func NewJobRunner(processor QueueProcessor, tracking TrackingSyncer, schedule string, syncDelay time.Duration, log *zap.Logger) *JobRunner {
	if schedule == "" {
		schedule = DefaultProcessSchedule
	}
	if syncDelay <= 0 {
		syncDelay = DefaultTrackingSyncDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	cronLogger := logger.NewCronLogger(log)
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRunner{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		processor: processor,
		tracking:  tracking,
		schedule:  schedule,
		syncDelay: syncDelay,
		logger:    log.Named("runner"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// EnsureSchedule registers the recurring process_queue job once. Later calls
// are no-ops.
func (r *JobRunner) EnsureSchedule() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduled {
		return nil
	}
	id, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.RunNow(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("scheduled process_queue failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid process schedule %q: %w", r.schedule, err)
	}
	r.entryID = id
	r.scheduled = true
	r.logger.Info("process_queue scheduled", zap.String("schedule", r.schedule))
	return nil
}

// Scheduled reports whether the recurring job is registered and its next run.
func (r *JobRunner) Scheduled() (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.scheduled {
		return false, time.Time{}
	}
	return true, r.cron.Entry(r.entryID).Next
}

// RunNow runs process_queue immediately. Callers arriving while a run is in
// flight share its result.
func (r *JobRunner) RunNow(ctx context.Context) (types.ProcessStats, error) {
	v, err, _ := r.group.Do(processQueueKey, func() (interface{}, error) {
		return r.processor.ProcessQueue(ctx)
	})
	stats, _ := v.(types.ProcessStats)
	return stats, err
}

// ScheduleImmediateSync arms a tracking sync after the configured delay.
// It returns false when one is already pending.
func (r *JobRunner) ScheduleImmediateSync() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.syncPending || r.tracking == nil || r.ctx.Err() != nil {
		return false
	}
	r.syncPending = true
	r.wg.Add(1)
	r.syncTimer = time.AfterFunc(r.syncDelay, func() {
		defer r.wg.Done()
		r.mu.Lock()
		r.syncPending = false
		r.mu.Unlock()

		if _, err := r.tracking.Sync(r.ctx); err != nil {
			if errors.Is(err, fulfillment.ErrSyncRunning) {
				r.logger.Info("tracking sync skipped, another run holds the lock")
				return
			}
			r.logger.Error("tracking sync failed", zap.Error(err))
		}
	})
	return true
}

func (r *JobRunner) Start() {
	r.cron.Start()
}

// Stop halts the scheduler, cancels a pending tracking sync and waits for
// running jobs until ctx is done.
func (r *JobRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.syncTimer != nil && r.syncTimer.Stop() {
		r.syncPending = false
		r.wg.Done()
	}
	r.mu.Unlock()

	stopped := r.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
