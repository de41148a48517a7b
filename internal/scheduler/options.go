package scheduler

import (
	"time"

	"github.com/okian/drcal/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for job runs.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation evaluates cron specs in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithJobTimeout bounds a single job run; zero means no bound.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.jobTimeout = d
		}
	}
}
