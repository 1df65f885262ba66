package server

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	applogger "ChartCrime/pkg/logger"
)

// Scheduler runs jobs on six-field cron schedules. A job still running when
// its next tick fires is skipped.
type Scheduler struct {
	cron *cron.Cron
	l    *applogger.Logger
}

func NewScheduler(l *applogger.Logger) *Scheduler {
	l = l.With("component", "scheduler")
	cl := cronLogger{l: l}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		l: l,
	}
}

// Add registers fn under name. ctx is passed to every run.
func (s *Scheduler) Add(ctx context.Context, spec, name string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.l.Info("job started", applogger.String("job", name))
		if err := fn(ctx); err != nil {
			s.l.Error("job failed", applogger.String("job", name), applogger.Error(err))
			return
		}
		s.l.Info("job completed", applogger.String("job", name))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.l.Info("job registered", applogger.String("job", name), applogger.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
