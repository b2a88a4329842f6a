package session

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner periodically removes expired sessions from a Store.
// Backends with native TTL expiry (CacheStore) don't need one; the
// Postgres and memory stores do.
type Cleaner struct {
	store    Store
	cron     *cron.Cron
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithCleanerSchedule sets the cron schedule.
// Defaults to hourly ("0 * * * *").
func WithCleanerSchedule(spec string) CleanerOption {
	return func(c *Cleaner) {
		if spec != "" {
			c.schedule = spec
		}
	}
}

// WithCleanerLogger sets the logger for purge failures.
func WithCleanerLogger(l *slog.Logger) CleanerOption {
	return func(c *Cleaner) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCleanerTimeout bounds each purge run.
// Defaults to one minute.
func WithCleanerTimeout(d time.Duration) CleanerOption {
	return func(c *Cleaner) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCleaner creates a Cleaner for the given store.
func NewCleaner(store Store, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		store:    store,
		cron:     cron.New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		schedule: "0 * * * *",
		timeout:  time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start schedules the purge job and begins running it.
func (c *Cleaner) Start() error {
	_, err := c.cron.AddFunc(c.schedule, c.purge)
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (c *Cleaner) Stop(ctx context.Context) error {
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cleaner) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.store.DeleteExpired(ctx); err != nil {
		c.logger.ErrorContext(ctx, "expired session purge failed", slog.Any("error", err))
	}
}
