// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldJobID         = "job_id"
	FieldArticleID     = "article_id"
	FieldFeedID        = "feed_id"
	FieldGroupID       = "group_id"
	FieldCollectionID  = "collection_id"
	FieldEpisodeID     = "episode_id"
	FieldOwner         = "owner"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"
	FieldTier      = "tier"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
