package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// PricingFixed represents the pricing_fixeds table - the constant-price
// strategy record. A collection has exactly one of PricingFixed or
// PricingDutchAuction attached, never both.
type PricingFixed struct {
	CollectionID      int64               `gorm:"column:collection_id;primaryKey;autoIncrement:false"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;primaryKey;type:text"`
	// Price is the mint price in mutez
	Price int64 `gorm:"column:price;not null"`
	// OpensAt is when minting at this price opens, nil for immediately
	OpensAt *time.Time `gorm:"column:opens_at;type:timestamptz"`
}

// TableName specifies the table name for the PricingFixed model
func (PricingFixed) TableName() string {
	return "pricing_fixeds"
}

// PricingDutchAuction represents the pricing_dutch_auctions table - the
// decaying-price strategy record
type PricingDutchAuction struct {
	CollectionID      int64               `gorm:"column:collection_id;primaryKey;autoIncrement:false"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;primaryKey;type:text"`
	// Levels are the successive prices in mutez, highest first
	Levels datatypes.JSONSlice[int64] `gorm:"column:levels;not null;type:jsonb"`
	// DecrementSeconds is the time spent on each level
	DecrementSeconds int64 `gorm:"column:decrement_seconds;not null"`
	// OpensAt is when the auction opens
	OpensAt time.Time `gorm:"column:opens_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the PricingDutchAuction model
func (PricingDutchAuction) TableName() string {
	return "pricing_dutch_auctions"
}
