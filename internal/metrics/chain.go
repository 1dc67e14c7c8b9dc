package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blockCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingnet",
		Subsystem: "chain",
		Name:      "block_cache_lookups_total",
		Help:      "Count of block cache lookups by outcome.",
	}, []string{"result"})
	blockConnectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingnet",
		Subsystem: "chain",
		Name:      "block_connect_total",
		Help:      "Count of block connect attempts.",
	}, []string{"status"})
	blockConnectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klingnet",
		Subsystem: "chain",
		Name:      "block_connect_duration_seconds",
		Help:      "Duration of block connect attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
	chainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "klingnet",
		Subsystem: "chain",
		Name:      "height",
		Help:      "Height of the current chain tip.",
	})
)

// ObserveBlockCache records a block cache lookup.
func ObserveBlockCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	blockCacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveBlockConnect records a block connect attempt.
func ObserveBlockConnect(err error, started time.Time) {
	s := status(err)
	blockConnectTotal.WithLabelValues(s).Inc()
	blockConnectDuration.WithLabelValues(s).Observe(time.Since(started).Seconds())
}

// SetChainHeight records the height of the chain tip.
func SetChainHeight(height uint64) {
	chainHeight.Set(float64(height))
}
