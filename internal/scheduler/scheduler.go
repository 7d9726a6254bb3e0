package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/attendance-management/internal/observability"
)

var ErrUnknownJob = errors.New("unknown job")

// Schedule matches wall-clock minutes in the scheduler's location.
// Empty Weekdays means every day; DayOfMonth zero means any day.
type Schedule struct {
	Hour       int
	Minute     int
	Weekdays   []time.Weekday
	DayOfMonth int
}

func Daily(hour, minute int) Schedule {
	return Schedule{Hour: hour, Minute: minute}
}

func Workdays(hour, minute int) Schedule {
	return Schedule{
		Hour:     hour,
		Minute:   minute,
		Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
}

func Weekly(day time.Weekday, hour, minute int) Schedule {
	return Schedule{Hour: hour, Minute: minute, Weekdays: []time.Weekday{day}}
}

func Monthly(day, hour, minute int) Schedule {
	return Schedule{Hour: hour, Minute: minute, DayOfMonth: day}
}

func (s Schedule) Due(t time.Time) bool {
	if t.Hour() != s.Hour || t.Minute() != s.Minute {
		return false
	}
	if s.DayOfMonth > 0 && t.Day() != s.DayOfMonth {
		return false
	}
	if len(s.Weekdays) == 0 {
		return true
	}
	for _, d := range s.Weekdays {
		if t.Weekday() == d {
			return true
		}
	}
	return false
}

func (s Schedule) String() string {
	out := fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
	if s.DayOfMonth > 0 {
		out += fmt.Sprintf(" day %d", s.DayOfMonth)
	}
	for _, d := range s.Weekdays {
		out += " " + d.String()[:3]
	}
	return out
}

// Job receives the evaluation instant in the scheduler's location.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context, now time.Time) error
}

type Scheduler struct {
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	interval time.Duration

	mu       sync.Mutex
	jobs     map[string]Job
	lastTick time.Time
}

type Option func(*Scheduler)

func WithClock(fn func() time.Time) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.now = fn
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPollInterval controls how often Start checks the clock. Each minute is evaluated once.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func New(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
		interval: 15 * time.Second,
		jobs:     make(map[string]Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Register(jobs ...Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		if j.Name == "" || j.Run == nil {
			return fmt.Errorf("job %q is incomplete", j.Name)
		}
		if _, exists := s.jobs[j.Name]; exists {
			return fmt.Errorf("job %q already registered", j.Name)
		}
		s.jobs[j.Name] = j
	}
	return nil
}

// Jobs lists registered job names in alphabetical order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Start polls the clock until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "jobs", s.Jobs(), "timezone", s.loc.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick runs every job due at t's minute, concurrently, and returns their names.
// A minute already evaluated is skipped.
func (s *Scheduler) Tick(ctx context.Context, t time.Time) []string {
	minute := t.In(s.loc).Truncate(time.Minute)

	s.mu.Lock()
	if !minute.After(s.lastTick) {
		s.mu.Unlock()
		return nil
	}
	s.lastTick = minute
	var due []Job
	for _, j := range s.jobs {
		if j.Schedule.Due(minute) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, k int) bool { return due[i].Name < due[k].Name })

	// a plain group: one failing job must not cancel the others due this minute
	var g errgroup.Group
	names := make([]string, len(due))
	errs := make([]error, len(due))
	for i, j := range due {
		names[i] = j.Name
		g.Go(func() error {
			errs[i] = s.run(ctx, j, minute)
			return errs[i]
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("scheduled jobs failed", "minute", minute.Format("15:04"), "error", errors.Join(errs...))
	}
	return names
}

// RunNow executes the named job immediately at the current clock.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, j, s.now().In(s.loc))
}

func (s *Scheduler) run(ctx context.Context, j Job, now time.Time) error {
	start := time.Now()
	err := j.Run(ctx, now)
	observability.RecordJobRun(j.Name, err)
	if err != nil {
		s.logger.Error("job failed", "job", j.Name, "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Info("job completed", "job", j.Name, "duration", time.Since(start))
	return nil
}
