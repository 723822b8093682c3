package test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ali123/ali123/client"
	"github.com/ali123/ali123/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingProcessor struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (p *blockingProcessor) ProcessQueue(ctx context.Context) (types.ProcessStats, error) {
	p.calls.Add(1)
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	return types.ProcessStats{Claimed: 2, Completed: 2, Rounds: 1}, nil
}

type recordingSyncer struct {
	calls chan struct{}
}

func (s *recordingSyncer) Sync(ctx context.Context) (types.TrackingSyncStats, error) {
	s.calls <- struct{}{}
	return types.TrackingSyncStats{Synced: 1}, nil
}

func TestJobRunner_EnsureScheduleIsIdempotent(t *testing.T) {
	runner := client.NewJobRunner(&blockingProcessor{}, nil, "", 0, nil)

	ok, _ := runner.Scheduled()
	assert.False(t, ok)

	require.NoError(t, runner.EnsureSchedule())
	require.NoError(t, runner.EnsureSchedule())

	runner.Start()
	defer func() { _ = runner.Stop(context.Background()) }()

	ok, next := runner.Scheduled()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), next, 5*time.Second)
}

func TestJobRunner_EnsureSchedule_InvalidSpec(t *testing.T) {
	runner := client.NewJobRunner(&blockingProcessor{}, nil, "every now and then", 0, nil)
	assert.Error(t, runner.EnsureSchedule())
}

func TestJobRunner_RunNowCoalescesConcurrentCallers(t *testing.T) {
	processor := &blockingProcessor{started: make(chan struct{}, 1), release: make(chan struct{})}
	runner := client.NewJobRunner(processor, nil, "", 0, nil)

	var wg sync.WaitGroup
	results := make([]types.ProcessStats, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = runner.RunNow(context.Background())
	}()
	<-processor.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = runner.RunNow(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(processor.release)
	wg.Wait()

	assert.Equal(t, int32(1), processor.calls.Load())
	assert.Equal(t, 2, results[0].Completed)
	assert.Equal(t, results[0], results[1])
}

func TestJobRunner_ScheduleImmediateSync(t *testing.T) {
	syncer := &recordingSyncer{calls: make(chan struct{}, 1)}
	runner := client.NewJobRunner(&blockingProcessor{}, syncer, "", 20*time.Millisecond, nil)

	assert.True(t, runner.ScheduleImmediateSync())
	assert.False(t, runner.ScheduleImmediateSync(), "a sync is already pending")

	select {
	case <-syncer.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("tracking sync did not run")
	}

	assert.Eventually(t, runner.ScheduleImmediateSync, time.Second, 10*time.Millisecond)
	<-syncer.calls
	require.NoError(t, runner.Stop(context.Background()))
}

func TestJobRunner_StopCancelsPendingSync(t *testing.T) {
	syncer := &recordingSyncer{calls: make(chan struct{}, 1)}
	runner := client.NewJobRunner(&blockingProcessor{}, syncer, "", time.Hour, nil)
	runner.Start()

	assert.True(t, runner.ScheduleImmediateSync())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, runner.Stop(ctx))

	assert.False(t, runner.ScheduleImmediateSync(), "a stopped runner arms nothing")
	assert.Empty(t, syncer.calls)
}

func TestJobRunner_NoTrackingSyncer(t *testing.T) {
	runner := client.NewJobRunner(&blockingProcessor{}, nil, "", time.Millisecond, nil)
	assert.False(t, runner.ScheduleImmediateSync())
}
