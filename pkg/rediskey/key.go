package rediskey

import (
	"fmt"
	"time"
)

const (
	LeaderboardPrefix        = "leaderboard"
	LeaderboardVersionPrefix = "leaderboard:ver"
	PeriodLockPrefix         = "period:close:lock"
	SequencePrefix           = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildLeaderboardKey returns "leaderboard:{periodType}:{unixStart}"
func BuildLeaderboardKey(periodType string, start time.Time) string {
	return NamespaceKey(LeaderboardPrefix, fmt.Sprintf("%s:%d", periodType, start.Unix()))
}

// LeaderboardVersionTTL outlives the longest leaderboard period so a cached
// board never meets a counter that expired and restarted at its version.
const LeaderboardVersionTTL = 8 * 24 * time.Hour

// BuildLeaderboardVersionKey returns "leaderboard:ver:{periodType}:{unixStart}"
func BuildLeaderboardVersionKey(periodType string, start time.Time) string {
	return NamespaceKey(LeaderboardVersionPrefix, fmt.Sprintf("%s:%d", periodType, start.Unix()))
}

// BuildPeriodLockKey returns "period:close:lock:{periodType}:{unixStart}"
func BuildPeriodLockKey(periodType string, start time.Time) string {
	return NamespaceKey(PeriodLockPrefix, fmt.Sprintf("%s:%d", periodType, start.Unix()))
}

// BuildSequenceKey returns "seq:{prefix}:{yymmdd}"
func BuildSequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, prefix+":"+day)
}
