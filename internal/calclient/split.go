package calclient

import (
	"slices"
	"time"

	"github.com/okian/drcal/internal/domain/model"
)

// Upcoming is a future event with whole days left until it starts.
type Upcoming struct {
	model.Event
	DaysUntil int
}

// Split partitions events around now. Upcoming events start strictly after
// now and are sorted soonest first; the rest are sorted most recent first.
func Split(events []model.Event, now time.Time) ([]Upcoming, []model.Event) {
	upcoming := make([]Upcoming, 0, len(events))
	past := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Start.After(now) {
			days := int(ev.Start.Sub(now) / (24 * time.Hour))
			upcoming = append(upcoming, Upcoming{Event: ev, DaysUntil: days})
			continue
		}
		past = append(past, ev)
	}
	slices.SortStableFunc(upcoming, func(a, b Upcoming) int { return a.Start.Compare(b.Start.Time) })
	slices.SortStableFunc(past, func(a, b model.Event) int { return b.Start.Compare(a.Start.Time) })
	return upcoming, past
}
