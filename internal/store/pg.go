package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/gen-art/marketplace-api/internal/adapter"
	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/search"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

type pgStore struct {
	db     *gorm.DB
	search search.Client
	clock  adapter.Clock
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, searchClient search.Client, clock adapter.Clock) Store {
	return &pgStore{db: db, search: searchClient, clock: clock}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. It accesses the underlying *sql.DB and sets the pool
// configuration. If any of the pool settings are 0, reasonable defaults are
// used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values.
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// GetCollectionsByIDs retrieves multiple collections by composite id. The
// result is index-aligned with ids; an id with no row maps to nil. Pricing
// records are preloaded so callers can resolve the pricing strategy without
// further queries.
func (s *pgStore) GetCollectionsByIDs(ctx context.Context, ids []domain.EntityID) ([]*schema.Collection, error) {
	result := make([]*schema.Collection, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var collections []schema.Collection
	err := s.db.WithContext(ctx).
		Preload("PricingFixed").
		Preload("PricingDutchAuction").
		Where("(id, version) IN ?", entityIDTuples(ids)).
		Find(&collections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get collections by ids: %w", err)
	}

	byID := make(map[domain.EntityID]*schema.Collection, len(collections))
	for i := range collections {
		byID[collections[i].EntityID()] = &collections[i]
	}
	for i, id := range ids {
		result[i] = byID[id]
	}
	return result, nil
}

// GetIterationsByIDs retrieves multiple iterations by composite id,
// index-aligned with ids, nil for misses
func (s *pgStore) GetIterationsByIDs(ctx context.Context, ids []domain.EntityID) ([]*schema.Iteration, error) {
	result := make([]*schema.Iteration, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var iterations []schema.Iteration
	err := s.db.WithContext(ctx).
		Where("(id, version) IN ?", entityIDTuples(ids)).
		Find(&iterations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get iterations by ids: %w", err)
	}

	byID := make(map[domain.EntityID]*schema.Iteration, len(iterations))
	for i := range iterations {
		byID[iterations[i].EntityID()] = &iterations[i]
	}
	for i, id := range ids {
		result[i] = byID[id]
	}
	return result, nil
}

// GetUsersByIDs retrieves multiple users by account address, index-aligned
// with ids, nil for misses
func (s *pgStore) GetUsersByIDs(ctx context.Context, ids []string) ([]*schema.User, error) {
	result := make([]*schema.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []schema.User
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}

	byID := make(map[string]*schema.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i, id := range ids {
		result[i] = byID[id]
	}
	return result, nil
}

// GetArticlesByIDs retrieves multiple articles by id, index-aligned with
// ids, nil for misses
func (s *pgStore) GetArticlesByIDs(ctx context.Context, ids []int64) ([]*schema.Article, error) {
	result := make([]*schema.Article, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var articles []schema.Article
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get articles by ids: %w", err)
	}

	byID := make(map[int64]*schema.Article, len(articles))
	for i := range articles {
		byID[articles[i].ID] = &articles[i]
	}
	for i, id := range ids {
		result[i] = byID[id]
	}
	return result, nil
}

// GetIterationsOfCollections retrieves each collection's iterations in one
// grouped query. Each entry's window is applied per collection through a
// ROW_NUMBER partition so that requests with different windows stay
// independent while still sharing one round trip per distinct window.
func (s *pgStore) GetIterationsOfCollections(ctx context.Context, params []IterationsOfCollectionParams) ([][]schema.Iteration, error) {
	result := make([][]schema.Iteration, len(params))
	if len(params) == 0 {
		return result, nil
	}

	// All entries of one batch share a window by construction (the batch key
	// includes it), so the first entry's window applies to the whole batch.
	limit, offset := normalizePage(params[0].Limit, params[0].Offset)

	ids := make([]domain.EntityID, len(params))
	for i, p := range params {
		ids[i] = p.Collection
	}

	var iterations []schema.Iteration
	err := s.db.WithContext(ctx).
		Table("(?) AS ranked",
			s.db.Model(&schema.Iteration{}).
				Select("iterations.*, ROW_NUMBER() OVER (PARTITION BY collection_id, collection_version ORDER BY iteration ASC) AS rn").
				Where("(collection_id, collection_version) IN ?", entityIDTuples(ids)),
		).
		Where("rn > ? AND rn <= ?", offset, offset+limit).
		Find(&iterations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get iterations of collections: %w", err)
	}

	grouped := make(map[domain.EntityID][]schema.Iteration, len(ids))
	for _, it := range iterations {
		key := domain.EntityID{ID: it.CollectionID, Version: it.CollectionVersion}
		grouped[key] = append(grouped[key], it)
	}
	for i, p := range params {
		result[i] = grouped[p.Collection]
	}
	return result, nil
}

// GetActiveListingsOfIterations retrieves each iteration's open listings in
// one grouped query, index-aligned with ids
func (s *pgStore) GetActiveListingsOfIterations(ctx context.Context, ids []domain.EntityID) ([][]schema.Listing, error) {
	result := make([][]schema.Listing, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var listings []schema.Listing
	err := s.db.WithContext(ctx).
		Where("(iteration_id, iteration_version) IN ?", entityIDTuples(ids)).
		Where("accepted_at IS NULL AND canceled_at IS NULL").
		Order("price ASC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active listings: %w", err)
	}

	grouped := make(map[domain.EntityID][]schema.Listing, len(ids))
	for _, l := range listings {
		key := domain.EntityID{ID: l.IterationID, Version: l.IterationVersion}
		grouped[key] = append(grouped[key], l)
	}
	for i, id := range ids {
		result[i] = grouped[id]
	}
	return result, nil
}

// GetActiveOffersOfIterations retrieves each iteration's open buy offers in
// one grouped query, index-aligned with ids
func (s *pgStore) GetActiveOffersOfIterations(ctx context.Context, ids []domain.EntityID) ([][]schema.Offer, error) {
	result := make([][]schema.Offer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var offers []schema.Offer
	err := s.db.WithContext(ctx).
		Where("(iteration_id, iteration_version) IN ?", entityIDTuples(ids)).
		Where("accepted_at IS NULL AND canceled_at IS NULL").
		Order("price DESC").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active offers: %w", err)
	}

	grouped := make(map[domain.EntityID][]schema.Offer, len(ids))
	for _, o := range offers {
		key := domain.EntityID{ID: o.IterationID, Version: o.IterationVersion}
		grouped[key] = append(grouped[key], o)
	}
	for i, id := range ids {
		result[i] = grouped[id]
	}
	return result, nil
}

// GetActionsOfCollections retrieves each collection's most recent actions
// in one grouped query, newest first, index-aligned with params
func (s *pgStore) GetActionsOfCollections(ctx context.Context, params []ActionsOfCollectionParams) ([][]schema.Action, error) {
	result := make([][]schema.Action, len(params))
	if len(params) == 0 {
		return result, nil
	}

	// Entries of one batch share a limit by construction of the batch key
	limit := params[0].Limit
	if limit <= 0 {
		limit = DEFAULT_PAGE_SIZE
	}
	if limit > MAX_PAGE_SIZE {
		limit = MAX_PAGE_SIZE
	}

	ids := make([]domain.EntityID, len(params))
	for i, p := range params {
		ids[i] = p.Collection
	}

	var actions []schema.Action
	err := s.db.WithContext(ctx).
		Table("(?) AS ranked",
			s.db.Model(&schema.Action{}).
				Select("actions.*, ROW_NUMBER() OVER (PARTITION BY collection_id, collection_version ORDER BY created_at DESC, id DESC) AS rn").
				Where("(collection_id, collection_version) IN ?", entityIDTuples(ids)),
		).
		Where("rn <= ?", limit).
		Order("created_at DESC, id DESC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get actions of collections: %w", err)
	}

	grouped := make(map[domain.EntityID][]schema.Action, len(ids))
	for _, a := range actions {
		if a.CollectionID == nil || a.CollectionVersion == nil {
			continue
		}
		key := domain.EntityID{ID: *a.CollectionID, Version: *a.CollectionVersion}
		grouped[key] = append(grouped[key], a)
	}
	for i, p := range params {
		result[i] = grouped[p.Collection]
	}
	return result, nil
}

// readPrimary routes a query to the primary when a read replica is
// configured, for reads that must not observe replica lag
func (s *pgStore) readPrimary() *gorm.DB {
	if hasDBResolver(s.db) {
		return s.db.Clauses(dbresolver.Write)
	}
	return s.db
}
