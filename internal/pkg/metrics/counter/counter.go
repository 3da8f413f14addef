package counter

import (
	"context"
	"strconv"
	"time"

	"github.com/AshleyDunne/PayDesk/internal/pkg/cache"
)

// Daily webhook counters, kept as Redis hashes keyed by outcome with one
// field per day. They are operational telemetry, not financial state, so a
// Redis outage only loses counts.
const (
	eventsReceivedKey  = "payments:counters:events:received"
	eventsProcessedKey = "payments:counters:events:processed"
	eventsFailedKey    = "payments:counters:events:failed"
	eventsIgnoredKey   = "payments:counters:events:ignored"

	dayFormat = "2006-01-02"
)

// EventStats aggregates one day's webhook outcomes.
type EventStats struct {
	Day       string `json:"day"`
	Received  int64  `json:"received"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Ignored   int64  `json:"ignored"`
}

// AddEventReceived increments today's received-events counter.
func AddEventReceived() error {
	return incrToday(eventsReceivedKey)
}

// AddEventProcessed increments today's processed-events counter.
func AddEventProcessed() error {
	return incrToday(eventsProcessedKey)
}

// AddEventFailed increments today's failed-events counter.
func AddEventFailed() error {
	return incrToday(eventsFailedKey)
}

// AddEventIgnored increments today's ignored-events counter.
func AddEventIgnored() error {
	return incrToday(eventsIgnoredKey)
}

func incrToday(key string) error {
	ctx := context.Background()
	field := time.Now().Format(dayFormat)
	return cache.GetClient().HIncrBy(ctx, key, field, 1).Err()
}

// Snapshot returns per-day stats for the last n days, most recent first.
func Snapshot(days int) ([]EventStats, error) {
	if days <= 0 {
		days = 7
	}
	ctx := context.Background()
	rdb := cache.GetClient()

	keys := map[string]map[string]string{}
	for _, key := range []string{eventsReceivedKey, eventsProcessedKey, eventsFailedKey, eventsIgnoredKey} {
		data, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		keys[key] = data
	}

	out := make([]EventStats, 0, days)
	for i := 0; i < days; i++ {
		day := time.Now().AddDate(0, 0, -i).Format(dayFormat)
		out = append(out, EventStats{
			Day:       day,
			Received:  parseCount(keys[eventsReceivedKey][day]),
			Processed: parseCount(keys[eventsProcessedKey][day]),
			Failed:    parseCount(keys[eventsFailedKey][day]),
			Ignored:   parseCount(keys[eventsIgnoredKey][day]),
		})
	}
	return out, nil
}

func parseCount(raw string) int64 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
