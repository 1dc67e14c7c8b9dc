// Package metrics exposes prometheus collectors for stake validation and
// chain storage.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Kernel check paths.
const (
	PathUncached = "uncached"
	PathCached   = "cached"
)

var (
	kernelChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingnet",
		Subsystem: "stake",
		Name:      "kernel_checks_total",
		Help:      "Count of stake kernel checks.",
	}, []string{"path", "status"})
	kernelCheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klingnet",
		Subsystem: "stake",
		Name:      "kernel_check_duration_seconds",
		Help:      "Duration of stake kernel checks.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8), // 10us..164ms
	}, []string{"path", "status"})
	stakeCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingnet",
		Subsystem: "stake",
		Name:      "cache_lookups_total",
		Help:      "Count of stake cache lookups by outcome.",
	}, []string{"result"})
	proofOfStakeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingnet",
		Subsystem: "stake",
		Name:      "proof_of_stake_checks_total",
		Help:      "Count of coinstake validations by verdict.",
	}, []string{"verdict"})
)

func status(err error) string {
	if err != nil {
		return "rejected"
	}
	return "accepted"
}

// ObserveKernelCheck records one kernel check on the given path.
func ObserveKernelCheck(path string, err error, started time.Time) {
	s := status(err)
	kernelChecksTotal.WithLabelValues(path, s).Inc()
	kernelCheckDuration.WithLabelValues(path, s).Observe(time.Since(started).Seconds())
}

// ObserveStakeCache records a stake cache lookup.
func ObserveStakeCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	stakeCacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveProofOfStake records a coinstake verdict. An empty verdict counts
// as accepted.
func ObserveProofOfStake(verdict string) {
	if verdict == "" {
		verdict = "accepted"
	}
	proofOfStakeTotal.WithLabelValues(verdict).Inc()
}
