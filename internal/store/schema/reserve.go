package schema

import (
	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Reserve represents the reserves table - a decrementing allotment that
// restricts part of a collection's mintable supply to a distribution method.
// A collection's effectively mintable balance excludes the sum of its active
// reserve amounts.
type Reserve struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CollectionID / CollectionVersion reference the reserved collection
	CollectionID      int64               `gorm:"column:collection_id;not null;index:idx_reserves_collection,priority:1"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;not null;type:text;index:idx_reserves_collection,priority:2"`
	// Method is the distribution method (whitelist, mint_pass, airdrop)
	Method domain.ReserveMethod `gorm:"column:method;not null;type:text"`
	// Amount is the number of slots still reserved; decremented by the indexer
	Amount int64 `gorm:"column:amount;not null"`
	// Data is the method-specific payload (e.g. the whitelist itself)
	Data datatypes.JSON `gorm:"column:data;type:jsonb"`
}

// TableName specifies the table name for the Reserve model
func (Reserve) TableName() string {
	return "reserves"
}
