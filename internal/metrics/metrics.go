// Package metrics provides Prometheus collectors for the ranking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRankingRequestsTotal = "ranking_requests_total"
	MetricRankingDuration      = "ranking_compute_duration_seconds"
	MetricRankingCacheTotal    = "ranking_cache_lookups_total"
	MetricOracleBatchesTotal   = "oracle_batches_total"
	MetricDecisionsTotal       = "decisions_total"
	MetricMatchesCreatedTotal  = "matches_created_total"
)

// Label values.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusFallback = "fallback"

	CacheHit  = "hit"
	CacheMiss = "miss"

	DecisionLike   = "like"
	DecisionPass   = "pass"
	DecisionUnlike = "unlike"
)

// Metrics contains Prometheus collectors for the ranking core. All
// operations are safe for concurrent use. Collectors are not registered
// on construction; call Register.
type Metrics struct {
	rankingRequests *prometheus.CounterVec
	rankingDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	oracleBatches   *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	matchesCreated  prometheus.Counter
}

// New creates a Metrics instance with all collectors initialized.
func New() *Metrics {
	return &Metrics{
		rankingRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingRequestsTotal,
				Help: "Total number of ranking requests by outcome",
			},
			[]string{"status"},
		),
		rankingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRankingDuration,
				Help:    "Histogram of full ranking recompute duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingCacheTotal,
				Help: "Total number of ranking cache lookups by result",
			},
			[]string{"result"},
		),
		oracleBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricOracleBatchesTotal,
				Help: "Total number of oracle batch calls by outcome",
			},
			[]string{"status"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDecisionsTotal,
				Help: "Total number of swipe decisions by kind",
			},
			[]string{"kind"},
		),
		matchesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricMatchesCreatedTotal,
				Help: "Total number of matches created",
			},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.rankingRequests,
		m.rankingDuration,
		m.cacheLookups,
		m.oracleBatches,
		m.decisions,
		m.matchesCreated,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) RankingRequest(status string)   { m.rankingRequests.WithLabelValues(status).Inc() }
func (m *Metrics) RankingComputed(seconds float64) { m.rankingDuration.Observe(seconds) }
func (m *Metrics) CacheLookup(result string)      { m.cacheLookups.WithLabelValues(result).Inc() }
func (m *Metrics) OracleBatch(status string)      { m.oracleBatches.WithLabelValues(status).Inc() }
func (m *Metrics) Decision(kind string)           { m.decisions.WithLabelValues(kind).Inc() }
func (m *Metrics) MatchCreated()                  { m.matchesCreated.Inc() }
