// Package scheduler provides cron-based maintenance scheduling for valsync.
//
// It lets the daemon run recurring engine maintenance, such as the nightly
// automatic retry of failed requests, from cron expressions.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based maintenance job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler. Panicking jobs are
// recovered so a maintenance task cannot take the daemon down.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow).
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a named maintenance task using the provided cron
// expression. It returns a removal handle and an error if the expression is
// invalid.
func (s *Scheduler) AddJob(name, expr string, task func()) (func(), error) {
	id, err := s.cron.AddFunc(expr, func() {
		slog.Debug("Scheduler: running maintenance job", "name", name)
		task()
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Scheduler.AddJob: maintenance job scheduled", "name", name, "expr", expr)
	return func() { s.cron.Remove(id) }, nil
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Scheduler.Stop: maintenance scheduler stopped")
}
