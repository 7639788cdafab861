package schema

import (
	"github.com/gen-art/marketplace-api/internal/domain"
)

// RoyaltySplit represents the royalty_splits table - one recipient's share
// of a collection's secondary-sale royalties, in per-mille
type RoyaltySplit struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CollectionID / CollectionVersion reference the collection
	CollectionID      int64               `gorm:"column:collection_id;not null;index:idx_royalty_splits_collection,priority:1"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;not null;type:text;index:idx_royalty_splits_collection,priority:2"`
	// UserID is the recipient's account address
	UserID string `gorm:"column:user_id;not null;type:text;index"`
	// Pct is the recipient's share in per-mille of the royalty amount
	Pct int64 `gorm:"column:pct;not null"`

	// Associations
	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for the RoyaltySplit model
func (RoyaltySplit) TableName() string {
	return "royalty_splits"
}
