package schema

import (
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
)

// MarketStats represents the market_stats table - the current derived
// market snapshot of a collection. Rows are a pure function of the action
// log and the active listings, recomputed by the stats worker and safe to
// regenerate at any time.
//
// Monetary fields are in mutez. A nil field means no qualifying event
// exists, which is distinct from a zero amount.
type MarketStats struct {
	CollectionID      int64               `gorm:"column:collection_id;primaryKey;autoIncrement:false"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;primaryKey;type:text"`
	// Floor is the lowest active asking price
	Floor *int64 `gorm:"column:floor"`
	// Median is the statistical median of active asking prices
	Median *int64 `gorm:"column:median"`
	// TotalListing is the number of active listings
	TotalListing int64 `gorm:"column:total_listing;not null;default:0"`
	// HighestSold / LowestSold are the extremes among settled sales
	HighestSold *int64 `gorm:"column:highest_sold"`
	LowestSold  *int64 `gorm:"column:lowest_sold"`
	// PrimaryTotal is the sum of mint prices
	PrimaryTotal *int64 `gorm:"column:primary_total"`
	// SecondaryVolumeTz / SecondaryVolumeNb are the value and count of settled sales
	SecondaryVolumeTz *int64 `gorm:"column:secondary_volume_tz"`
	SecondaryVolumeNb *int64 `gorm:"column:secondary_volume_nb"`
	// SecondaryVolumeTz24 / SecondaryVolumeNb24 restrict to the trailing 24 hours
	SecondaryVolumeTz24 *int64 `gorm:"column:secondary_volume_tz24"`
	SecondaryVolumeNb24 *int64 `gorm:"column:secondary_volume_nb24"`
	// UpdatedAt is when this snapshot was computed
	UpdatedAt time.Time `gorm:"column:updated_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the MarketStats model
func (MarketStats) TableName() string {
	return "market_stats"
}

// EntityID returns the owning collection's composite identity
func (m MarketStats) EntityID() domain.EntityID {
	return domain.EntityID{ID: m.CollectionID, Version: m.CollectionVersion}
}

// MarketStatsHistory represents the market_stats_histories table - the
// time-bucketed history of a collection's market snapshot
type MarketStatsHistory struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CollectionID / CollectionVersion reference the collection
	CollectionID      int64               `gorm:"column:collection_id;not null;uniqueIndex:idx_stats_history_bucket,priority:1"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version;not null;type:text;uniqueIndex:idx_stats_history_bucket,priority:2"`
	// From / To bound the bucket
	From time.Time `gorm:"column:from;not null;type:timestamptz;uniqueIndex:idx_stats_history_bucket,priority:3"`
	To   time.Time `gorm:"column:to;not null;type:timestamptz"`
	// Floor / Median / TotalListing snapshot the listing state at bucket close
	Floor        *int64 `gorm:"column:floor"`
	Median       *int64 `gorm:"column:median"`
	TotalListing int64  `gorm:"column:total_listing;not null;default:0"`
	// SecondaryVolumeTz / SecondaryVolumeNb are the sales settled inside the bucket
	SecondaryVolumeTz *int64 `gorm:"column:secondary_volume_tz"`
	SecondaryVolumeNb *int64 `gorm:"column:secondary_volume_nb"`
}

// TableName specifies the table name for the MarketStatsHistory model
func (MarketStatsHistory) TableName() string {
	return "market_stats_histories"
}
