// Package watcher runs the background reconciliation loops under a cron
// scheduler. Every job is wrapped with panic recovery so a bad tick cannot
// silently kill its loop.
package watcher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// slogCronAdapter bridges the cron logger interface onto slog.
type slogCronAdapter struct {
	logger *slog.Logger
}

func (a slogCronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a slogCronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	a.logger.Error(msg, args...)
}

// Supervisor owns the cron instance shared by all watchers.
type Supervisor struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewSupervisor(logger *slog.Logger) *Supervisor {
	adapter := slogCronAdapter{logger: logger}
	return &Supervisor{
		cron:   cron.New(cron.WithChain(cron.Recover(adapter))),
		logger: logger,
	}
}

// AddEvery schedules job at a fixed interval.
func (s *Supervisor) AddEvery(name string, interval time.Duration, job func()) error {
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("watcher scheduled", "name", name, "interval", interval.String())
	return nil
}

func (s *Supervisor) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Supervisor) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
