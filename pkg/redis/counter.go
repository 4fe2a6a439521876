package redis

import (
	"context"
	"fmt"
	"time"
)

// DailyCounter is an atomic per-day counter, keyed by calendar date.
// Used to cap external API usage (e.g. daily AI call budget).
type DailyCounter struct {
	client *Client
	prefix string
}

// NewDailyCounter creates a new daily counter helper
func NewDailyCounter(client *Client, prefix string) *DailyCounter {
	return &DailyCounter{
		client: client,
		prefix: prefix,
	}
}

func (d *DailyCounter) key(name string, day time.Time) string {
	return fmt.Sprintf("%s:counter:%s:%s", d.prefix, name, day.Format("2006-01-02"))
}

// Incr increments the counter for today and returns the new value.
// The key expires 48h after first increment so stale days clean themselves up.
func (d *DailyCounter) Incr(ctx context.Context, name string) (int64, error) {
	if !d.client.Enabled() {
		return 0, nil
	}

	key := d.key(name, time.Now())
	rdb := d.client.Redis()

	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("counter incr failed: %w", err)
	}
	if n == 1 {
		_ = rdb.Expire(ctx, key, 48*time.Hour).Err()
	}

	return n, nil
}

// Get returns the current counter value for today
func (d *DailyCounter) Get(ctx context.Context, name string) (int64, error) {
	if !d.client.Enabled() {
		return 0, nil
	}

	n, err := d.client.Redis().Get(ctx, d.key(name, time.Now())).Int64()
	if err != nil {
		// Missing key means zero usage
		return 0, nil
	}

	return n, nil
}
