package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/stats"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// historyBucket is the granularity of market-stats history rows
const historyBucket = time.Hour

// collectionAsk is one active asking price attributed to its collection
type collectionAsk struct {
	CollectionID      int64               `gorm:"column:collection_id"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version"`
	Price             int64               `gorm:"column:price"`
}

// statsAction is the slice of an action row the aggregation needs
type statsAction struct {
	CollectionID      int64               `gorm:"column:collection_id"`
	CollectionVersion domain.TokenVersion `gorm:"column:collection_version"`
	Type              domain.ActionType   `gorm:"column:type"`
	NumericValue      *int64              `gorm:"column:numeric_value"`
	CreatedAt         time.Time           `gorm:"column:created_at"`
}

// ComputeMarketStats derives the market snapshot for a batch of collections.
// Two queries cover the whole batch regardless of its size: one for the
// active asks, one for the priced actions. A collection with no activity
// still yields a snapshot with nil fields, never a nil entry.
func (s *pgStore) ComputeMarketStats(ctx context.Context, ids []domain.EntityID) ([]*schema.MarketStats, error) {
	return s.computeMarketStats(ctx, s.db, ids)
}

func (s *pgStore) computeMarketStats(ctx context.Context, db *gorm.DB, ids []domain.EntityID) ([]*schema.MarketStats, error) {
	result := make([]*schema.MarketStats, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	now := s.clock.Now()
	tuples := entityIDTuples(ids)

	var asks []collectionAsk
	err := db.WithContext(ctx).
		Model(&schema.Listing{}).
		Select("iterations.collection_id, iterations.collection_version, listings.price").
		Joins("JOIN iterations ON iterations.id = listings.iteration_id AND iterations.version = listings.iteration_version").
		Where("listings.accepted_at IS NULL AND listings.canceled_at IS NULL").
		Where("(iterations.collection_id, iterations.collection_version) IN ?", tuples).
		Find(&asks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active asks: %w", err)
	}

	pricedTypes := append([]domain.ActionType{domain.ActionTypeMinted}, domain.SaleActionTypes...)
	var actions []statsAction
	err = db.WithContext(ctx).
		Model(&schema.Action{}).
		Select("actions.collection_id, actions.collection_version, actions.type, actions.numeric_value, actions.created_at").
		Where("actions.type IN ?", pricedTypes).
		Where("actions.numeric_value IS NOT NULL").
		Where("(actions.collection_id, actions.collection_version) IN ?", tuples).
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get priced actions: %w", err)
	}

	inputs := make(map[domain.EntityID]*stats.Inputs, len(ids))
	for _, id := range ids {
		inputs[id] = &stats.Inputs{Now: now}
	}
	for _, ask := range asks {
		key := domain.EntityID{ID: ask.CollectionID, Version: ask.CollectionVersion}
		if in, ok := inputs[key]; ok {
			in.AskPrices = append(in.AskPrices, ask.Price)
		}
	}
	for _, action := range actions {
		key := domain.EntityID{ID: action.CollectionID, Version: action.CollectionVersion}
		in, ok := inputs[key]
		if !ok {
			continue
		}
		if action.Type == domain.ActionTypeMinted {
			in.MintPrices = append(in.MintPrices, *action.NumericValue)
		} else {
			in.Sales = append(in.Sales, stats.Sale{Price: *action.NumericValue, At: action.CreatedAt})
		}
	}

	for i, id := range ids {
		snap := stats.Compute(*inputs[id])
		result[i] = &schema.MarketStats{
			CollectionID:        id.ID,
			CollectionVersion:   id.Version,
			Floor:               snap.Floor,
			Median:              snap.Median,
			TotalListing:        snap.TotalListing,
			HighestSold:         snap.HighestSold,
			LowestSold:          snap.LowestSold,
			PrimaryTotal:        snap.PrimaryTotal,
			SecondaryVolumeTz:   snap.SecondaryVolumeTz,
			SecondaryVolumeNb:   snap.SecondaryVolumeNb,
			SecondaryVolumeTz24: snap.SecondaryVolumeTz24,
			SecondaryVolumeNb24: snap.SecondaryVolumeNb24,
			UpdatedAt:           now,
		}
	}
	return result, nil
}

// RefreshMarketStats recomputes and persists the snapshot and the current
// history bucket for the given collections. The computation reads from the
// primary so a refresh never persists replica-lagged numbers.
func (s *pgStore) RefreshMarketStats(ctx context.Context, ids []domain.EntityID) error {
	if len(ids) == 0 {
		return nil
	}

	snapshots, err := s.computeMarketStats(ctx, s.readPrimary(), ids)
	if err != nil {
		return err
	}

	rows := make([]schema.MarketStats, len(snapshots))
	for i, snap := range snapshots {
		rows[i] = *snap
	}

	bucketFrom := s.clock.Now().Truncate(historyBucket)
	histories := make([]schema.MarketStatsHistory, len(snapshots))
	for i, snap := range snapshots {
		histories[i] = schema.MarketStatsHistory{
			CollectionID:      snap.CollectionID,
			CollectionVersion: snap.CollectionVersion,
			From:              bucketFrom,
			To:                bucketFrom.Add(historyBucket),
			Floor:             snap.Floor,
			Median:            snap.Median,
			TotalListing:      snap.TotalListing,
			SecondaryVolumeTz: snap.SecondaryVolumeTz24,
			SecondaryVolumeNb: snap.SecondaryVolumeNb24,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "collection_id"}, {Name: "collection_version"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"floor", "median", "total_listing", "highest_sold", "lowest_sold",
				"primary_total", "secondary_volume_tz", "secondary_volume_nb",
				"secondary_volume_tz24", "secondary_volume_nb24", "updated_at",
			}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to upsert market stats: %w", err)
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "collection_id"}, {Name: "collection_version"}, {Name: "from"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"to", "floor", "median", "total_listing",
				"secondary_volume_tz", "secondary_volume_nb",
			}),
		}).Create(&histories).Error; err != nil {
			return fmt.Errorf("failed to upsert market stats history: %w", err)
		}
		return nil
	})
}

// GetMarketStatsHistory retrieves one collection's history buckets that
// overlap [from, to), oldest first
func (s *pgStore) GetMarketStatsHistory(ctx context.Context, id domain.EntityID, from, to time.Time) ([]schema.MarketStatsHistory, error) {
	var histories []schema.MarketStatsHistory
	err := s.db.WithContext(ctx).
		Where("collection_id = ? AND collection_version = ?", id.ID, string(id.Version)).
		Where(`"from" < ? AND "to" > ?`, to, from).
		Order(`"from" ASC`).
		Find(&histories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get market stats history: %w", err)
	}
	return histories, nil
}

// ListCollectionIDs pages through every collection identity in creation
// order, for the stats worker's full sweep
func (s *pgStore) ListCollectionIDs(ctx context.Context, limit, offset int) ([]domain.EntityID, error) {
	limit, offset = normalizePage(limit, offset)

	var collections []schema.Collection
	err := s.db.WithContext(ctx).
		Select("id", "version").
		Order("created_at ASC, id ASC, version ASC").
		Limit(limit).
		Offset(offset).
		Find(&collections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collection ids: %w", err)
	}

	ids := make([]domain.EntityID, len(collections))
	for i, c := range collections {
		ids[i] = c.EntityID()
	}
	return ids, nil
}
