package cache

import (
	"time"
)

// TimeUntilNextDailyClose は次の日足確定（UTC 0時）までの期間を返します。
func TimeUntilNextDailyClose(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}

// ttlUntilClose は ttl を次の日足確定までに切り詰めます。
func ttlUntilClose(ttl time.Duration, now time.Time) time.Duration {
	return min(ttl, TimeUntilNextDailyClose(now))
}
