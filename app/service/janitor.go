// Package service runs background maintenance of the analysis history on a cron schedule
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
)

//go:generate moq -out mocks/cleaner.go -pkg mocks -skip-ensure -fmt goimports . Cleaner

// Cron interface defines basic robfig/cron methods used by janitor
type Cron interface {
	Start()
	Stop() context.Context
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Entries() []cron.Entry
}

// Cleaner removes history records created before the given time
type Cleaner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Janitor removes expired history records on schedule
type Janitor struct {
	Cron      Cron
	Cleaner   Cleaner
	Repeater  Repeater      // optional, retries failed cleanups (sqlite busy)
	Schedule  string        // cron spec, @hourly by default
	Retention time.Duration // records older than this are removed
	Timeout   time.Duration // single cleanup timeout
}

// Do runs blocking janitor. Cleanup runs once on start and then on schedule until ctx is done.
func (j *Janitor) Do(ctx context.Context) error {
	if j.Retention <= 0 {
		return errors.New("retention must be positive")
	}
	if j.Schedule == "" {
		j.Schedule = "@hourly"
	}
	id, err := j.Cron.AddFunc(j.Schedule, func() {
		if _, err := j.Run(ctx); err != nil {
			log.Printf("[WARN] history cleanup failed, %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("can't schedule cleanup %q: %w", j.Schedule, err)
	}
	log.Printf("[INFO] history cleanup scheduled %q (%v), retention %v", j.Schedule, id, j.Retention)

	if _, err := j.Run(ctx); err != nil {
		log.Printf("[WARN] initial history cleanup failed, %v", err)
	}

	j.Cron.Start()
	<-ctx.Done()
	log.Print("[DEBUG] terminate janitor")
	<-j.Cron.Stop().Done()
	return nil
}

// Run removes records older than retention, returns number of removed records
func (j *Janitor) Run(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	before := time.Now().Add(-j.Retention)
	var removed int64
	fn := func() error {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		n, err := j.Cleaner.Cleanup(cctx, before)
		if err != nil {
			return err
		}
		removed = n
		return nil
	}

	var err error
	if j.Repeater != nil {
		err = j.Repeater.Do(ctx, fn)
	} else {
		err = fn()
	}
	if err != nil {
		return 0, fmt.Errorf("cleanup before %s: %w", before.Format(time.RFC3339), err)
	}
	if removed > 0 {
		log.Printf("[INFO] removed %d history records older than %s", removed, before.Format(time.RFC3339))
	}
	return removed, nil
}
