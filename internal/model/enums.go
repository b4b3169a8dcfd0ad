// SPDX-License-Identifier: MIT

package model

import "time"

// FeedKind identifies the syndication format of an upstream feed.
type FeedKind string

const (
	FeedRSS  FeedKind = "RSS"
	FeedAtom FeedKind = "ATOM"
	FeedJSON FeedKind = "JSON"
)

// ReviewTier records which reviewer produced the accepted result.
type ReviewTier string

const (
	TierNone  ReviewTier = "NONE"
	TierLight ReviewTier = "LIGHT"
	TierHeavy ReviewTier = "HEAVY"
)

// CollectionStatus is the lifecycle of a group-scoped article collection.
// BUILDING -> READY -> CONSUMED; BUILDING/READY -> EXPIRED after max age.
type CollectionStatus string

const (
	CollectionBuilding CollectionStatus = "BUILDING"
	CollectionReady    CollectionStatus = "READY"
	CollectionConsumed CollectionStatus = "CONSUMED"
	CollectionExpired  CollectionStatus = "EXPIRED"
)

// EpisodeStatus transitions strictly forward except GENERATING -> FAILED.
type EpisodeStatus string

const (
	EpisodeQueued     EpisodeStatus = "QUEUED"
	EpisodeGenerating EpisodeStatus = "GENERATING"
	EpisodeCompleted  EpisodeStatus = "COMPLETED"
	EpisodeFailed     EpisodeStatus = "FAILED"
)

// IsTerminal returns true if the status is a final state.
func (s EpisodeStatus) IsTerminal() bool {
	switch s {
	case EpisodeCompleted, EpisodeFailed:
		return true
	}
	return false
}

// CadenceBucket is a coarse classification of how often a group publishes.
type CadenceBucket string

const (
	CadenceHigh   CadenceBucket = "HIGH"
	CadenceMedium CadenceBucket = "MEDIUM"
	CadenceLow    CadenceBucket = "LOW"
	CadenceManual CadenceBucket = "MANUAL"
)

// Interval maps a cadence bucket to its minimum inter-episode interval.
// MANUAL groups never become eligible automatically.
func (b CadenceBucket) Interval() (time.Duration, bool) {
	switch b {
	case CadenceHigh:
		return 15 * time.Minute, true
	case CadenceMedium:
		return time.Hour, true
	case CadenceLow:
		return 6 * time.Hour, true
	case CadenceManual:
		return 0, false
	default:
		return time.Hour, true
	}
}

// ReasonCode is a compact, typed failure/decision signal.
// Keep these stable: metrics + operator tooling depend on them.
type ReasonCode string

const (
	RNone                ReasonCode = "R_NONE"
	RUnknown             ReasonCode = "R_UNKNOWN"
	RBadRequest          ReasonCode = "R_BAD_REQUEST"
	RNotFound            ReasonCode = "R_NOT_FOUND"
	RLeaseBusy           ReasonCode = "R_LEASE_BUSY" // Capacity rejection, retry later.
	RLeaseExpired        ReasonCode = "R_LEASE_EXPIRED"
	RInsufficientContent ReasonCode = "R_INSUFFICIENT_CONTENT"
	RScriptFailed        ReasonCode = "R_SCRIPT_FAILED"
	RAudioFailed         ReasonCode = "R_AUDIO_FAILED"
	RPersistFailed       ReasonCode = "R_PERSIST_FAILED"
	RCancelled           ReasonCode = "R_CANCELLED"
	RTimeout             ReasonCode = "R_TIMEOUT"
	RInvariantViolation  ReasonCode = "R_INVARIANT_VIOLATION"
)

// ReviewState is the per-article review state machine.
// NONE -> LIGHT_PENDING -> (ACCEPTED_LIGHT | HEAVY_PENDING) -> (ACCEPTED_HEAVY | FAILED_FALLBACK)
type ReviewState string

const (
	ReviewNone           ReviewState = "NONE"
	ReviewLightPending   ReviewState = "LIGHT_PENDING"
	ReviewHeavyPending   ReviewState = "HEAVY_PENDING"
	ReviewAcceptedLight  ReviewState = "ACCEPTED_LIGHT"
	ReviewAcceptedHeavy  ReviewState = "ACCEPTED_HEAVY"
	ReviewFailedFallback ReviewState = "FAILED_FALLBACK"
)
