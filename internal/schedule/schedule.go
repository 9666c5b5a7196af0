// Package schedule creates upcoming occurrences for every active group on a
// daily cadence.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/logger"

	"matchday-backend/internal/model"
)

// GroupSource lists the groups to schedule.
type GroupSource interface {
	ActiveGroups(ctx context.Context) ([]model.Group, error)
}

// Scheduler creates one occurrence, reporting whether it was new.
type Scheduler interface {
	Schedule(ctx context.Context, group model.Group, date string) (bool, error)
}

// Config controls when the daily run happens and how far ahead it looks.
type Config struct {
	Location      *time.Location
	Hour          uint
	Minute        uint
	LookaheadDays int
}

// Runner owns the gocron scheduler.
type Runner struct {
	cfg    Config
	groups GroupSource
	target Scheduler
	sched  gocron.Scheduler
	now    func() time.Time
}

// NewRunner creates a Runner. Nothing runs until Start.
func NewRunner(cfg Config, groups GroupSource, target Scheduler) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = 7
	}
	return &Runner{cfg: cfg, groups: groups, target: target, now: time.Now}
}

// Start runs one pass immediately and then registers the daily job.
func (r *Runner) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(r.cfg.Location))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(r.cfg.Hour, r.cfg.Minute, 0))),
		gocron.NewTask(func() {
			if _, err := r.RunOnce(ctx); err != nil {
				logger.Errorf("[Scheduler] run failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register scheduling job: %w", err)
	}

	r.sched = sched
	sched.Start()
	logger.Infof("[Scheduler] daily run at %02d:%02d %s, %d days ahead", r.cfg.Hour, r.cfg.Minute, r.cfg.Location, r.cfg.LookaheadDays)

	if _, err := r.RunOnce(ctx); err != nil {
		logger.Errorf("[Scheduler] initial run failed: %v", err)
	}
	return nil
}

// Stop shuts the scheduler down.
func (r *Runner) Stop() error {
	if r.sched == nil {
		return nil
	}
	return r.sched.Shutdown()
}

// RunOnce creates the missing occurrences in the lookahead window and returns
// how many were created. A failing group does not stop the others.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	groups, err := r.groups.ActiveGroups(ctx)
	if err != nil {
		return 0, err
	}

	today := r.now().In(r.cfg.Location)
	created := 0
	for _, g := range groups {
		for _, date := range UpcomingDates(g.Weekday, today, r.cfg.LookaheadDays) {
			isNew, err := r.target.Schedule(ctx, g, date)
			if err != nil {
				logger.Errorf("[Scheduler] group %s on %s: %v", g.ID, date, err)
				continue
			}
			if isNew {
				created++
				logger.Infof("[Scheduler] created occurrence %s/%s", g.ID, date)
			}
		}
	}
	return created, nil
}

// UpcomingDates returns the dates falling on weekday within days days from
// from, inclusive of from's own date.
func UpcomingDates(weekday time.Weekday, from time.Time, days int) []string {
	var dates []string
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == weekday {
			dates = append(dates, d.Format(model.DateLayout))
		}
	}
	return dates
}
