package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// User represents the users table - one row per on-chain account that has
// interacted with the marketplace
type User struct {
	// ID is the account address
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Name is the chosen display name, empty until claimed
	Name string `gorm:"column:name;type:text;index"`
	// Description is the profile description
	Description string `gorm:"column:description;type:text"`
	// ModerationState is the moderation flag for the account
	ModerationState domain.ModerationState `gorm:"column:moderation_state;not null;default:0"`
	// Metadata is the raw profile metadata blob
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is when the account was first observed
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz"`

	// Associations
	Collections []Collection `gorm:"foreignKey:AuthorID;references:ID"`
	Articles    []Article    `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
