package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Action represents the actions table - the append-only domain event log
// written by the indexer. Rows are never mutated after creation; volume and
// price statistics are derived from them.
type Action struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Type identifies the event (minted, transferred, listing_accepted, ...)
	Type domain.ActionType `gorm:"column:type;not null;type:text;index:idx_actions_collection_type,priority:3"`
	// CollectionID / CollectionVersion reference the collection, when the event has one
	CollectionID      *int64               `gorm:"column:collection_id;index:idx_actions_collection_type,priority:1"`
	CollectionVersion *domain.TokenVersion `gorm:"column:collection_version;type:text;index:idx_actions_collection_type,priority:2"`
	// IterationID / IterationVersion reference the iteration, when the event has one
	IterationID      *int64               `gorm:"column:iteration_id;index:idx_actions_iteration,priority:1"`
	IterationVersion *domain.TokenVersion `gorm:"column:iteration_version;type:text;index:idx_actions_iteration,priority:2"`
	// IssuerID is the account that triggered the event
	IssuerID *string `gorm:"column:issuer_id;type:text;index"`
	// TargetID is the counterparty account, when the event has one
	TargetID *string `gorm:"column:target_id;type:text"`
	// NumericValue is the monetary amount in mutez, when the event carries one
	NumericValue *int64 `gorm:"column:numeric_value"`
	// Data is the event's free-form payload
	Data datatypes.JSON `gorm:"column:data;type:jsonb"`
	// CreatedAt is the on-chain event timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz;index"`
}

// TableName specifies the table name for the Action model
func (Action) TableName() string {
	return "actions"
}
