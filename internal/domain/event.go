package domain

import "time"

// MarketEvent is the message the indexer publishes whenever market activity
// touches a collection. The stats worker only needs to know which collection
// went stale; the action log is the source of truth for the numbers.
type MarketEvent struct {
	// CollectionID is the serialized composite id of the affected collection
	CollectionID string `json:"collection_id"`
	// Type is the action that triggered the event
	Type ActionType `json:"type"`
	// OccurredAt is when the action settled on chain
	OccurredAt time.Time `json:"occurred_at"`
}
