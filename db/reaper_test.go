package db

import (
	"testing"
	"time"
)

func TestStartReaper(t *testing.T) {
	db := newTestDB(t)

	for _, tt := range []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "Weekly", schedule: DefaultPurgeSchedule},
		{name: "Hourly", schedule: "@hourly"},
		{name: "Garbage", schedule: "every monday", wantErr: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, err := db.StartReaper(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				return
			}
			defer c.Stop()

			entries := c.Entries()
			if len(entries) != 1 {
				t.Fatalf("unexpected entries: %d", len(entries))
			}
			if next := entries[0].Next; !next.After(time.Now()) {
				t.Errorf("unexpected next run: %s", next)
			}
		})
	}
}

func TestReaperRunsInStoreZone(t *testing.T) {
	db := newTestDB(t)
	c, err := db.StartReaper(DefaultPurgeSchedule)
	if err != nil {
		t.Fatalf("error starting reaper: %s", err)
	}
	defer c.Stop()

	next := c.Entries()[0].Next.In(db.Loc())
	if next.Weekday() != time.Monday || next.Hour() != 0 || next.Minute() != 5 {
		t.Errorf("unexpected next run: %s", next)
	}
}
