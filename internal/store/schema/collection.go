package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Collection represents the collections table - one row per generative
// minting contract instance. Rows are created and updated by the external
// indexer; this layer only reads them.
//
// The primary key is composite: two contract generations coexist and their
// numeric id spaces overlap, so (id, version) is the identity.
type Collection struct {
	// ID is the on-chain collection id within its generation
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// Version is the contract generation that issued this collection
	Version domain.TokenVersion `gorm:"column:version;primaryKey;type:text"`
	// Slug is the URL-safe unique name
	Slug string `gorm:"column:slug;not null;uniqueIndex;type:text"`
	// Name is the display name
	Name string `gorm:"column:name;not null;type:text"`
	// AuthorID is the minting author's account address
	AuthorID string `gorm:"column:author_id;not null;type:text;index"`
	// Supply is the total number of iterations this collection can mint
	Supply int64 `gorm:"column:supply;not null"`
	// Balance is the number of iterations still mintable (gross of reserves)
	Balance int64 `gorm:"column:balance;not null"`
	// Enabled indicates whether the author has minting enabled
	Enabled bool `gorm:"column:enabled;not null;default:true"`
	// ModerationState is the moderation flag (none/clean/reported/auto-flagged/malicious/hidden)
	ModerationState domain.ModerationState `gorm:"column:moderation_state;not null;default:0"`
	// Metadata is the raw on-chain metadata blob
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// MintOpensAt is when minting opens, nil for immediately
	MintOpensAt *time.Time `gorm:"column:mint_opens_at;type:timestamptz"`
	// CreatedAt is the on-chain publication timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz;index"`

	// Associations
	Author              *User                `gorm:"foreignKey:AuthorID;references:ID"`
	PricingFixed        *PricingFixed        `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	PricingDutchAuction *PricingDutchAuction `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	Iterations          []Iteration          `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	Reserves            []Reserve            `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	Redeemables         []Redeemable         `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	RoyaltySplits       []RoyaltySplit       `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	Actions             []Action             `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
	MarketStats         *MarketStats         `gorm:"foreignKey:CollectionID,CollectionVersion;references:ID,Version"`
}

// TableName specifies the table name for the Collection model
func (Collection) TableName() string {
	return "collections"
}

// EntityID returns the collection's composite identity
func (c Collection) EntityID() domain.EntityID {
	return domain.EntityID{ID: c.ID, Version: c.Version}
}

// Pricing resolves the two mutually exclusive pricing records into the
// domain sum type. Returns nil when the indexer has not attached either yet.
func (c Collection) Pricing() domain.Pricing {
	switch {
	case c.PricingFixed != nil:
		return domain.FixedPricing{
			Price:   c.PricingFixed.Price,
			OpensAt: c.PricingFixed.OpensAt,
		}
	case c.PricingDutchAuction != nil:
		return domain.DutchAuctionPricing{
			Levels:            c.PricingDutchAuction.Levels,
			DecrementDuration: time.Duration(c.PricingDutchAuction.DecrementSeconds) * time.Second,
			OpensAt:           c.PricingDutchAuction.OpensAt,
		}
	default:
		return nil
	}
}
