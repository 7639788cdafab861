package schema

import (
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Listing represents the listings table - an asking price placed by an
// iteration's owner. A listing is active while neither accepted nor canceled.
type Listing struct {
	// ID is the on-chain listing id
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// IterationID / IterationVersion reference the listed iteration
	IterationID      int64               `gorm:"column:iteration_id;not null;index:idx_listings_iteration,priority:1"`
	IterationVersion domain.TokenVersion `gorm:"column:iteration_version;not null;type:text;index:idx_listings_iteration,priority:2"`
	// SellerID is the lister's account address
	SellerID string `gorm:"column:seller_id;not null;type:text;index"`
	// Price is the asking price in mutez
	Price int64 `gorm:"column:price;not null"`
	// AcceptedAt is set when the listing settles as a sale
	AcceptedAt *time.Time `gorm:"column:accepted_at;type:timestamptz"`
	// CanceledAt is set when the seller withdraws the listing
	CanceledAt *time.Time `gorm:"column:canceled_at;type:timestamptz"`
	// CreatedAt is the on-chain listing timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz;index"`

	// Associations
	Iteration *Iteration `gorm:"foreignKey:IterationID,IterationVersion;references:ID,Version"`
	Seller    *User      `gorm:"foreignKey:SellerID;references:ID"`
}

// TableName specifies the table name for the Listing model
func (Listing) TableName() string {
	return "listings"
}

// Active reports whether the listing is still open
func (l Listing) Active() bool {
	return l.AcceptedAt == nil && l.CanceledAt == nil
}
