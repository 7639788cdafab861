package schema

import (
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Redeemable represents the redeemables table - a contract attached to a
// collection that lets iteration holders redeem a physical or digital good.
// Each iteration can be redeemed against it up to MaxConsumptions times.
type Redeemable struct {
	// Address is the redeemable contract address
	Address string `gorm:"column:address;primaryKey;type:text"`
	// CollectionID / CollectionVersion reference the collection it is attached to
	CollectionID      int64               `gorm:"column:collection_id;not null;index:idx_redeemables_collection,priority:1"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;not null;type:text;index:idx_redeemables_collection,priority:2"`
	// MaxConsumptions is how many times a single iteration can redeem
	MaxConsumptions int64 `gorm:"column:max_consumptions;not null;default:1"`
	// CreatedAt is the on-chain attachment timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz"`

	// Associations
	Redemptions []Redemption `gorm:"foreignKey:RedeemableAddress;references:Address"`
}

// TableName specifies the table name for the Redeemable model
func (Redeemable) TableName() string {
	return "redeemables"
}

// Redemption represents the redemptions table - one consumption of a
// redeemable by an iteration holder
type Redemption struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// RedeemableAddress references the consumed redeemable
	RedeemableAddress string `gorm:"column:redeemable_address;not null;type:text;index"`
	// IterationID / IterationVersion reference the redeeming iteration
	IterationID      int64               `gorm:"column:iteration_id;not null;index:idx_redemptions_iteration,priority:1"`
	IterationVersion domain.TokenVersion `gorm:"column:iteration_version;not null;type:text;index:idx_redemptions_iteration,priority:2"`
	// RedeemerID is the redeeming account's address
	RedeemerID string `gorm:"column:redeemer_id;not null;type:text"`
	// CreatedAt is the on-chain redemption timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the Redemption model
func (Redemption) TableName() string {
	return "redemptions"
}
