// Package metrics exposes prometheus collectors for the mining race.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "demochain",
		Subsystem: "race",
		Name:      "rounds_total",
		Help:      "Count of mining rounds by outcome.",
	}, []string{"outcome"})

	roundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "demochain",
		Subsystem: "race",
		Name:      "round_duration_seconds",
		Help:      "Duration of a mining round from start to its outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"outcome"})

	hashAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "demochain",
		Subsystem: "race",
		Name:      "hash_attempts_total",
		Help:      "Count of nonces hashed per miner.",
	}, []string{"miner"})

	blocksAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "demochain",
		Subsystem: "chain",
		Name:      "blocks_appended_total",
		Help:      "Count of blocks offered to the chain by status.",
	}, []string{"status"})

	chainResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demochain",
		Subsystem: "chain",
		Name:      "resets_total",
		Help:      "Count of chain resets back to genesis.",
	})
)

// Race tracks metrics for the mining race and the chain it feeds.
type Race struct{}

// NewRace constructs a Race metrics recorder.
func NewRace() *Race {
	return &Race{}
}

// ObserveRound records the outcome and duration of a round.
func (Race) ObserveRound(outcome string, started time.Time) {
	if outcome == "" {
		outcome = "unknown"
	}
	roundsTotal.WithLabelValues(outcome).Inc()
	roundDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

// ObserveAttempts records the number of nonces a miner hashed in a round.
func (Race) ObserveAttempts(miner string, attempts uint64) {
	hashAttemptsTotal.WithLabelValues(miner).Add(float64(attempts))
}

// ObserveAppend records an attempt to append a mined block.
func (Race) ObserveAppend(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	blocksAppendedTotal.WithLabelValues(status).Inc()
}

// ObserveReset records a chain reset.
func (Race) ObserveReset() {
	chainResetsTotal.Inc()
}
