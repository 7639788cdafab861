package schema

import (
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// MintTicket represents the mint_tickets table - a pre-paid right to mint
// one iteration of a collection at a later time
type MintTicket struct {
	// ID is the on-chain ticket id
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// CollectionID / CollectionVersion reference the collection the ticket mints into
	CollectionID      int64               `gorm:"column:collection_id;not null;index:idx_mint_tickets_collection,priority:1"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;not null;type:text;index:idx_mint_tickets_collection,priority:2"`
	// OwnerID is the current holder's account address
	OwnerID string `gorm:"column:owner_id;not null;type:text;index"`
	// Price is the claim price in mutez under the ticket's harberger taxation
	Price int64 `gorm:"column:price;not null"`
	// TaxationLockedUntil is how long the current tax coverage lasts
	TaxationLockedUntil time.Time `gorm:"column:taxation_locked_until;not null;type:timestamptz"`
	// ConsumedAt is set once the ticket has been exchanged for an iteration
	ConsumedAt *time.Time `gorm:"column:consumed_at;type:timestamptz"`
	// CreatedAt is the on-chain mint timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz"`

	// Associations
	Collection *Collection `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	Owner      *User       `gorm:"foreignKey:OwnerID;references:ID"`
}

// TableName specifies the table name for the MintTicket model
func (MintTicket) TableName() string {
	return "mint_tickets"
}
