// Package scheduler wires up the cron job that periodically triggers
// ingestion for all active search configs.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Maintenance is run once at startup.
type Maintenance func(ctx context.Context) error

// Scheduler wraps robfig/cron. Each tick spawns the ingest command in a
// child process so a crashing run cannot take the server down.
type Scheduler struct {
	cron        *cron.Cron
	spec        string // cron spec, e.g. "@every 6h"
	command     []string
	run         Runner
	maintenance Maintenance
	log         *zap.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option { return func(s *Scheduler) { s.run = r } }

// WithCommand replaces the "<self> ingest --all" command.
func WithCommand(name string, args ...string) Option {
	return func(s *Scheduler) { s.command = append([]string{name}, args...) }
}

// New creates a Scheduler that fires every intervalHours hours.
func New(intervalHours int, maintenance Maintenance, log *zap.Logger, opts ...Option) (*Scheduler, error) {
	if intervalHours < 1 {
		return nil, fmt.Errorf("scheduler: interval must be at least 1h, got %d", intervalHours)
	}
	log = log.With(zap.String("component", "scheduler"))

	s := &Scheduler{
		cron:        cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		spec:        fmt.Sprintf("@every %dh", intervalHours),
		run:         execRunner,
		maintenance: maintenance,
		log:         log,
	}
	for _, o := range opts {
		o(s)
	}
	if s.command == nil {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("scheduler: resolve executable: %w", err)
		}
		s.command = []string{self, "ingest", "--all"}
	}
	return s, nil
}

// Start registers the job and starts the scheduler. Maintenance runs once
// in the background so the server starts without waiting on it.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", zap.String("spec", s.spec))

	if s.maintenance != nil {
		go func() {
			if err := s.maintenance(ctx); err != nil {
				s.log.Error("startup maintenance failed", zap.Error(err))
			}
		}()
	}
	return nil
}

// Stop halts the cron and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// Tick spawns one ingest child. A non-zero exit is logged, never fatal.
func (s *Scheduler) Tick(ctx context.Context) {
	s.log.Info("ingest cycle started", zap.String("command", strings.Join(s.command, " ")))

	out, err := s.run(ctx, s.command[0], s.command[1:]...)
	if err != nil {
		s.log.Error("ingest cycle failed",
			zap.Error(err),
			zap.String("output", tail(string(out), 2000)),
		)
		return
	}
	s.log.Info("ingest cycle complete")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
