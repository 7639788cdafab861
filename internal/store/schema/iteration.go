package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Feature is one {name, value} pair of an iteration's feature set
type Feature struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Iteration represents the iterations table - one minted unit (gentk) of a
// collection. The version component of the key is the issuing collection's
// generation.
type Iteration struct {
	// ID is the on-chain token id within its generation
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// Version is the issuing collection's contract generation
	Version domain.TokenVersion `gorm:"column:version;primaryKey;type:text"`
	// CollectionID / CollectionVersion reference the parent collection
	CollectionID      int64               `gorm:"column:collection_id;not null;index:idx_iterations_collection,priority:1"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;not null;type:text;index:idx_iterations_collection,priority:2"`
	// Iteration is the 1-based mint index within the collection
	Iteration int64 `gorm:"column:iteration;not null"`
	// OwnerID is the current owner's account address
	OwnerID string `gorm:"column:owner_id;not null;type:text;index"`
	// Name is the display name, usually "{collection} #{iteration}"
	Name string `gorm:"column:name;not null;type:text"`
	// Assigned indicates whether metadata assignment has completed
	Assigned bool `gorm:"column:assigned;not null;default:false"`
	// Features is the ordered feature set used for rarity computation
	Features datatypes.JSONSlice[Feature] `gorm:"column:features;type:jsonb"`
	// Rarity is the computed rarity score, nil until features are assigned
	Rarity *float64 `gorm:"column:rarity"`
	// CreatedAt is the on-chain mint timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz;index"`

	// Associations
	Collection  *Collection  `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	Owner       *User        `gorm:"foreignKey:OwnerID;references:ID"`
	Listings    []Listing    `gorm:"foreignKey:IterationID,IterationVersion;references:ID,Version"`
	Offers      []Offer      `gorm:"foreignKey:IterationID,IterationVersion;references:ID,Version"`
	Redemptions []Redemption `gorm:"foreignKey:IterationID,IterationVersion;references:ID,Version"`
}

// TableName specifies the table name for the Iteration model
func (Iteration) TableName() string {
	return "iterations"
}

// EntityID returns the iteration's composite identity
func (i Iteration) EntityID() domain.EntityID {
	return domain.EntityID{ID: i.ID, Version: i.Version}
}
