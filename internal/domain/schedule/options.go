package schedule

import "time"

// Option applies a configuration option to the Planner.
type Option func(*Planner)

// WithClock sets the source of the current instant. Validation and
// auto-scheduling read it once per call.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// WithAutoLeadTime sets how far ahead auto-scheduled tests are placed.
func WithAutoLeadTime(d time.Duration) Option {
	return func(p *Planner) {
		if d > 0 {
			p.autoLeadDays = int(d / (24 * time.Hour))
		}
	}
}

// WithAutoStartHour sets the local hour at which auto-scheduled tests begin.
func WithAutoStartHour(hour int) Option {
	return func(p *Planner) {
		if hour >= 0 && hour < 24 {
			p.autoStartHour = hour
		}
	}
}

// WithAutoDuration sets the length of auto-scheduled tests.
func WithAutoDuration(d time.Duration) Option {
	return func(p *Planner) {
		if d > 0 {
			p.autoDuration = d
		}
	}
}
