// Package metrics provides Prometheus metrics for the rulematch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconciliationsTotal tracks reconcile runs by status
	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rulematch",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by status",
		},
		[]string{"status"},
	)

	// ReconciliationDuration tracks reconcile run duration in seconds
	ReconciliationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rulematch",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
	)

	// GroupsTotal tracks rule groups seen by pairing outcome
	GroupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rulematch",
			Subsystem: "reconcile",
			Name:      "groups_total",
			Help:      "Total number of rule groups by pairing outcome",
		},
		[]string{"outcome"},
	)

	// RuleMatchesTotal tracks rule matches by the tier that decided them
	RuleMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rulematch",
			Subsystem: "matching",
			Name:      "rules_total",
			Help:      "Total number of rules matched by deciding tier",
		},
		[]string{"tier"},
	)

	// UnmatchedRulesTotal tracks rules left without a counterpart
	UnmatchedRulesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rulematch",
			Subsystem: "matching",
			Name:      "unmatched_rules_total",
			Help:      "Total number of rules without a counterpart by source",
		},
		[]string{"source"},
	)

	// DriftedRulesTotal tracks matched rules whose content differs
	DriftedRulesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rulematch",
			Subsystem: "matching",
			Name:      "drifted_rules_total",
			Help:      "Total number of matched rules with drift by field",
		},
		[]string{"field"},
	)

	// FetchDuration tracks rule document fetches
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rulematch",
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of rule document fetches in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source", "status"},
	)

	// FingerprintCacheLookups tracks fingerprint cache hits and misses
	FingerprintCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rulematch",
			Subsystem: "fingerprint_cache",
			Name:      "lookups_total",
			Help:      "Total number of fingerprint cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordReconciliation records a reconcile run
func RecordReconciliation(status string, durationSeconds float64) {
	ReconciliationsTotal.WithLabelValues(status).Inc()
	ReconciliationDuration.Observe(durationSeconds)
}

// RecordGroups records how many groups ended with an outcome
func RecordGroups(outcome string, count int) {
	if count > 0 {
		GroupsTotal.WithLabelValues(outcome).Add(float64(count))
	}
}

// RecordRuleMatch records one matched rule
func RecordRuleMatch(tier string) {
	RuleMatchesTotal.WithLabelValues(tier).Inc()
}

// RecordUnmatched records rules without counterpart
func RecordUnmatched(source string, count int) {
	if count > 0 {
		UnmatchedRulesTotal.WithLabelValues(source).Add(float64(count))
	}
}

// RecordDrift records a drifted field on a matched rule
func RecordDrift(field string) {
	DriftedRulesTotal.WithLabelValues(field).Inc()
}

// RecordFetch records a rule document fetch
func RecordFetch(source, status string, durationSeconds float64) {
	FetchDuration.WithLabelValues(source, status).Observe(durationSeconds)
}

// RecordCacheLookup records a fingerprint cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	FingerprintCacheLookups.WithLabelValues(result).Inc()
}
