package schema

import (
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Offer represents the offers table - a buy offer placed on an iteration by
// a prospective buyer
type Offer struct {
	// ID is the on-chain offer id
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// IterationID / IterationVersion reference the iteration the offer is on
	IterationID      int64               `gorm:"column:iteration_id;not null;index:idx_offers_iteration,priority:1"`
	IterationVersion domain.TokenVersion `gorm:"column:iteration_version;not null;type:text;index:idx_offers_iteration,priority:2"`
	// BuyerID is the offering account's address
	BuyerID string `gorm:"column:buyer_id;not null;type:text;index"`
	// Price is the offered price in mutez
	Price int64 `gorm:"column:price;not null"`
	// AcceptedAt is set when the owner accepts the offer
	AcceptedAt *time.Time `gorm:"column:accepted_at;type:timestamptz"`
	// CanceledAt is set when the buyer withdraws the offer
	CanceledAt *time.Time `gorm:"column:canceled_at;type:timestamptz"`
	// CreatedAt is the on-chain offer timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz;index"`

	// Associations
	Iteration *Iteration `gorm:"foreignKey:IterationID,IterationVersion;references:ID,Version"`
	Buyer     *User      `gorm:"foreignKey:BuyerID;references:ID"`
}

// TableName specifies the table name for the Offer model
func (Offer) TableName() string {
	return "offers"
}

// Active reports whether the offer is still open
func (o Offer) Active() bool {
	return o.AcceptedAt == nil && o.CanceledAt == nil
}
