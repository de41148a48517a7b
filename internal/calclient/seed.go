package calclient

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/drcal/pkg/logger"
)

// Seeding constants.
const (
	seedMinLeadDays = 1
	seedMaxLeadDays = 180
	seedMinHours    = 1
	seedMaxHours    = 8
)

var seedSystems = []string{"Database", "Payments", "Identity", "Storage", "Messaging", "Search", "Billing", "Edge"}

// SeedStats counts the outcome of a Seed run.
type SeedStats struct {
	Submitted int
	Created   int
	Rejected  int
	Failed    int
	Duration  time.Duration
}

// Seed creates n manual DR tests spread over the next six months using up
// to workers concurrent requests.
func Seed(ctx context.Context, c *Client, n, workers int) (SeedStats, error) {
	if workers < 1 {
		workers = 1
	}
	started := time.Now()
	var created, rejected, failed, submitted int64

	c.logger.Info(ctx, "seeding calendar", logger.Int("events", n), logger.Int("workers", workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	base := c.now()
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			system := seedSystems[rand.IntN(len(seedSystems))]
			start := base.Truncate(time.Hour).Add(time.Duration(seedMinLeadDays+rand.IntN(seedMaxLeadDays)) * 24 * time.Hour)
			hours := time.Duration(seedMinHours+rand.IntN(seedMaxHours)) * time.Hour
			title := fmt.Sprintf("%s DR test #%d", system, i+1)

			atomic.AddInt64(&submitted, 1)
			_, err := c.ScheduleDRTest(gctx, title, start, hours, "")
			switch {
			case err == nil:
				atomic.AddInt64(&created, 1)
			case ValidationErrors(err) != nil:
				atomic.AddInt64(&rejected, 1)
			default:
				atomic.AddInt64(&failed, 1)
				c.logger.Debug(gctx, "seed request failed", logger.String("title", title), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := SeedStats{
		Submitted: int(submitted),
		Created:   int(created),
		Rejected:  int(rejected),
		Failed:    int(failed),
		Duration:  time.Since(started),
	}
	c.logger.Info(ctx, "seeding completed",
		logger.Int("created", stats.Created),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
