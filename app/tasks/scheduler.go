// Package tasks runs the periodic background feed sync.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	feedsync "github.com/tomokif/linkvault/app/sync"
)

// SyncRunner is the batch sync operation the scheduler drives.
type SyncRunner interface {
	SyncAll(ctx context.Context) (*feedsync.Result, error)
}

// Scheduler invokes the batch feed sync on a fixed interval until stopped.
type Scheduler struct {
	runner   SyncRunner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(runner SyncRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("Feed sync scheduler started", "interval", s.interval.String())

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runSync()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Feed sync scheduler stopped")
}

func (s *Scheduler) runSync() {
	result, err := s.runner.SyncAll(s.ctx)
	if err != nil {
		slog.Error("Scheduled feed sync failed", "error", err)
		return
	}

	slog.Info("Scheduled feed sync completed", "synced", result.Synced, "errors", result.Errors)
}
