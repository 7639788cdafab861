package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// Article represents the articles table - long-form posts published through
// the platform
type Article struct {
	// ID is the article id
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// Slug is the URL-safe unique name
	Slug string `gorm:"column:slug;not null;uniqueIndex;type:text"`
	// AuthorID is the author's account address
	AuthorID string `gorm:"column:author_id;not null;type:text;index"`
	// Title is the display title
	Title string `gorm:"column:title;not null;type:text"`
	// Description is the short abstract
	Description string `gorm:"column:description;type:text"`
	// Body is the article body in markdown
	Body string `gorm:"column:body;not null;type:text"`
	// ModerationState is the moderation flag
	ModerationState domain.ModerationState `gorm:"column:moderation_state;not null;default:0"`
	// Metadata is the raw on-chain metadata blob
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is the publication timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz;index"`

	// Associations
	Author *User `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for the Article model
func (Article) TableName() string {
	return "articles"
}
