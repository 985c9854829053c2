package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	feedsync "github.com/tomokif/linkvault/app/sync"
)

type countingRunner struct {
	calls atomic.Int64
}

func (r *countingRunner) SyncAll(ctx context.Context) (*feedsync.Result, error) {
	r.calls.Add(1)
	return &feedsync.Result{}, nil
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 20*time.Millisecond)

	s.Start()
	time.Sleep(110 * time.Millisecond)
	s.Stop()

	if got := runner.calls.Load(); got < 3 {
		t.Errorf("sync runs = %d, want at least 3", got)
	}
}

func TestScheduler_StopsCleanly(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour)

	s.Start()
	s.Stop()

	// Stop returns only after the loop goroutine has exited; a second
	// Stop-era sync must not happen.
	before := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if runner.calls.Load() != before {
		t.Error("scheduler ran after Stop")
	}
}
