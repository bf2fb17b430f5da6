package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ContributionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_contributions_total",
		Help: "Contributions applied to campaign funds.",
	}, []string{"currency"})

	ContributedAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_contributed_minor_units_total",
		Help: "Sum of contributed amounts in minor units.",
	}, []string{"currency", "bucket"})

	ActivitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_activities_total",
		Help: "Supporter activities recorded.",
	}, []string{"type"})

	LeaderboardCacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_leaderboard_cache_hits_total"})
	LeaderboardCacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_leaderboard_cache_miss_total"})

	GrantsIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_grants_issued_total",
		Help: "Reward grants issued at period close.",
	}, []string{"period_type"})

	GrantsClaimed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_grants_claimed_total",
		Help: "Claim attempts by outcome.",
	}, []string{"result"})

	PeriodCloses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_period_closes_total",
		Help: "Period close attempts by outcome.",
	}, []string{"period_type", "result"})
)

func init() {
	prometheus.MustRegister(
		ContributionsTotal,
		ContributedAmount,
		ActivitiesTotal,
		LeaderboardCacheHits,
		LeaderboardCacheMiss,
		GrantsIssued,
		GrantsClaimed,
		PeriodCloses,
	)
}
