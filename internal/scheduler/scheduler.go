// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/drcal/pkg/logger"
	"github.com/okian/drcal/pkg/metrics"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type job struct {
	id   cron.EntryID
	name string
	spec string
}

// Scheduler wraps a cron runner. Jobs run with the context given to Start
// and never overlap with themselves.
type Scheduler struct {
	mu         sync.Mutex
	cron       *cron.Cron
	jobs       []job
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	stopped    bool
	location   *time.Location
	jobTimeout time.Duration
	logger     logger.Logger
}

// New creates a stopped Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return s
}

// Add registers fn under name using a standard five-field spec or a
// descriptor such as @daily.
func (s *Scheduler) Add(name, spec string, fn Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}
	s.jobs = append(s.jobs, job{id: id, name: name, spec: spec})
	return nil
}

func (s *Scheduler) run(name string, fn Job) {
	ctx := s.ctx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		metrics.RecordAutoScheduleRun("error")
		metrics.RecordErrorByComponent("scheduler", name)
		s.logger.Error(ctx, "scheduled job failed", logger.String("job", name), logger.Error(err))
		return
	}
	metrics.RecordAutoScheduleRun("ok")
	s.logger.Debug(ctx, "scheduled job finished", logger.String("job", name), logger.Duration("took", time.Since(start)))
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) bool {
	s.mu.Lock()
	var found *job
	for i := range s.jobs {
		if s.jobs[i].name == name {
			found = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return false
	}
	s.cron.Entry(found.id).Job.Run()
	return true
}

// Start begins firing jobs. Jobs observe ctx cancellation. A stopped
// Scheduler does not restart.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	go func() {
		select {
		case <-ctx.Done():
			s.cancel()
		case <-s.ctx.Done():
		}
	}()
	s.cron.Start()
	for _, j := range s.jobs {
		s.logger.Info(ctx, "job scheduled", logger.String("job", j.name), logger.String("spec", j.spec),
			logger.String("next", s.cron.Entry(j.id).Next.Format(time.RFC3339)))
	}
}

// Stop halts the runner and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
}

// Entries lists registered jobs with their next and previous run times.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		e := s.cron.Entry(j.id)
		out = append(out, Entry{Name: j.name, Spec: j.spec, Next: e.Next, Prev: e.Prev})
	}
	return out
}
