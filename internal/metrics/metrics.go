// SPDX-License-Identifier: MIT

// Package metrics exposes the orchestrator's Prometheus instrumentation.
// Counters are append-only and safe for concurrent use; gauges for queue
// depth and lease status are registered once with callback functions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	articlesInTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_articles_in_total",
		Help: "Total articles accepted by intake.",
	})

	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_duplicates_total",
		Help: "Total articles dropped as fingerprint duplicates.",
	})

	intakeDeadLetterTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_intake_dead_letter_total",
		Help: "Total intake items dropped after exhausting persistence retries.",
	})

	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgen_reviews_total",
		Help: "Total completed reviews by tier.",
	}, []string{"tier"}) // light, heavy, failed

	reviewDeadLetterTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_review_dead_letter_total",
		Help: "Total review tasks dropped after exhausting attempts.",
	})

	reviewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podgen_review_duration_seconds",
		Help:    "Reviewer call latency by tier.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"tier"})

	episodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgen_episodes_total",
		Help: "Total finished episode generations by result and reason.",
	}, []string{"result", "reason"})

	episodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "podgen_episode_duration_seconds",
		Help:    "End-to-end episode generation latency.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	episodeStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podgen_episode_step_duration_seconds",
		Help:    "Per-step latency inside episode generation.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 15, 30, 60, 180},
	}, []string{"step"}) // brief, script, edit, metadata, audio

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgen_state_transitions_total",
		Help: "Episode state machine transitions.",
	}, []string{"state_from", "state_to"})

	leaseRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_lease_rejected_total",
		Help: "Total generation attempts rejected because the group lease was held.",
	})

	reapedEpisodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_reaped_episodes_total",
		Help: "Total stuck GENERATING episodes transitioned to FAILED by the reaper.",
	})

	pauseWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podgen_review_pause_waits_total",
		Help: "Total times the review worker backed off because a lease was active.",
	})

	busDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgen_bus_drops_total",
		Help: "Total bus publishes dropped by topic and reason.",
	}, []string{"topic", "reason"})

	probeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgen_capability_probe_failures_total",
		Help: "Total failed capability health probes.",
	}, []string{"capability"})

	capabilityRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgen_capability_retries_total",
		Help: "Total transport-level retries against external capabilities.",
	}, []string{"capability"})
)

// IncArticlesIn counts an article accepted by intake.
func IncArticlesIn() { articlesInTotal.Inc() }

// IncDuplicate counts a fingerprint-duplicate drop.
func IncDuplicate() { duplicatesTotal.Inc() }

// IncIntakeDeadLetter counts a terminally failed intake item.
func IncIntakeDeadLetter() { intakeDeadLetterTotal.Inc() }

// IncReview counts a completed review; tier is light, heavy or failed.
func IncReview(tier string) { reviewsTotal.WithLabelValues(tier).Inc() }

// IncReviewDeadLetter counts a review task dropped after max attempts.
func IncReviewDeadLetter() { reviewDeadLetterTotal.Inc() }

// ObserveReview records reviewer call latency for the given tier.
func ObserveReview(tier string, start time.Time) {
	reviewDuration.WithLabelValues(tier).Observe(time.Since(start).Seconds())
}

// IncEpisode counts a finished generation run.
func IncEpisode(result, reason string) { episodesTotal.WithLabelValues(result, reason).Inc() }

// ObserveEpisode records end-to-end generation latency.
func ObserveEpisode(start time.Time) { episodeDuration.Observe(time.Since(start).Seconds()) }

// ObserveEpisodeStep records one generation step's latency.
func ObserveEpisodeStep(step string, start time.Time) {
	episodeStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// IncTransition records an episode state transition.
func IncTransition(from, to string) { stateTransitions.WithLabelValues(from, to).Inc() }

// IncLeaseRejected counts a HELD_BY_OTHER acquisition outcome.
func IncLeaseRejected() { leaseRejectedTotal.Inc() }

// IncReaped counts an episode failed by the reaper sweep.
func IncReaped() { reapedEpisodesTotal.Inc() }

// IncPauseWait counts one production-pause backoff cycle.
func IncPauseWait() { pauseWaitsTotal.Inc() }

// IncBusDrop counts a dropped bus publish.
func IncBusDrop(topic, reason string) { busDropsTotal.WithLabelValues(topic, reason).Inc() }

// IncProbeFailure counts a failed capability health probe.
func IncProbeFailure(capability string) { probeFailuresTotal.WithLabelValues(capability).Inc() }

// IncCapabilityRetry counts a transport retry against a capability.
func IncCapabilityRetry(capability string) { capabilityRetriesTotal.WithLabelValues(capability).Inc() }

// RegisterQueueDepth registers a gauge sourcing the review queue depth.
func RegisterQueueDepth(fn func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "podgen_review_queue_depth",
		Help: "Current number of queued review tasks.",
	}, fn)
}

// RegisterActiveLeases registers a gauge sourcing the active lease count.
func RegisterActiveLeases(fn func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "podgen_active_leases",
		Help: "Current number of held group leases.",
	}, fn)
}

// RegisterCollectionsReady registers a gauge sourcing the READY collection count.
func RegisterCollectionsReady(fn func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "podgen_collections_ready",
		Help: "Current number of READY collections across all groups.",
	}, fn)
}
