package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs right after the weekly quotas reset.
const DefaultPurgeSchedule = "5 0 * * 1"

// StartReaper purges ended holds on schedule, in the store's time zone.
// Stop the returned cron to end it.
func (db *DB) StartReaper(schedule string) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(db.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := db.PurgeHolds(ctx, time.Now())
		if err != nil {
			log.Printf("error purging holds: %s", err)
			return
		}
		log.Printf("%d holds purged", n)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}
