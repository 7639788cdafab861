package store

import (
	"context"
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// Filters is a declarative filter map as sent by clients. Keys are
// "{field}_{operator}" pairs (e.g. "price_gte", "author_in"); values are the
// JSON-decoded operands. Fields outside the entity's allow-list are
// rejected, not dropped.
type Filters map[string]any

// SortField is one requested ordering. Sorts are an ordered list, not a
// map, because they apply in caller-supplied order.
type SortField struct {
	Field string
	Desc  bool
}

// ListParams bundles filters, sorts and pagination for a filtered list query
type ListParams struct {
	Filters Filters
	Sort    []SortField
	Limit   int
	Offset  int
}

// IterationsOfCollectionParams keys a batched per-collection iterations
// fetch. Pagination is part of the key so that two resolvers asking with
// different windows never share a batch.
type IterationsOfCollectionParams struct {
	Collection domain.EntityID
	Limit      int
	Offset     int
}

// ActionsOfCollectionParams keys a batched per-collection actions fetch
type ActionsOfCollectionParams struct {
	Collection domain.EntityID
	Limit      int
}

// Store defines the interface for database operations. All reads; the only
// writes are the derived market-stats rows, which are safe to regenerate.
type Store interface {
	// GetCollectionsByIDs retrieves collections for a batch of composite ids,
	// index-aligned with ids, nil for ids with no row
	GetCollectionsByIDs(ctx context.Context, ids []domain.EntityID) ([]*schema.Collection, error)
	// GetIterationsByIDs retrieves iterations for a batch of composite ids,
	// index-aligned, nil for misses
	GetIterationsByIDs(ctx context.Context, ids []domain.EntityID) ([]*schema.Iteration, error)
	// GetUsersByIDs retrieves users by account address, index-aligned, nil for misses
	GetUsersByIDs(ctx context.Context, ids []string) ([]*schema.User, error)
	// GetArticlesByIDs retrieves articles by id, index-aligned, nil for misses
	GetArticlesByIDs(ctx context.Context, ids []int64) ([]*schema.Article, error)

	// GetIterationsOfCollections retrieves each collection's iterations in one
	// grouped query, index-aligned with params
	GetIterationsOfCollections(ctx context.Context, params []IterationsOfCollectionParams) ([][]schema.Iteration, error)
	// GetActiveListingsOfIterations retrieves each iteration's open listings
	// in one grouped query, index-aligned with ids
	GetActiveListingsOfIterations(ctx context.Context, ids []domain.EntityID) ([][]schema.Listing, error)
	// GetActiveOffersOfIterations retrieves each iteration's open buy offers
	// in one grouped query, index-aligned with ids
	GetActiveOffersOfIterations(ctx context.Context, ids []domain.EntityID) ([][]schema.Offer, error)
	// GetActionsOfCollections retrieves each collection's most recent actions
	// in one grouped query, index-aligned with params
	GetActionsOfCollections(ctx context.Context, params []ActionsOfCollectionParams) ([][]schema.Action, error)

	// GetCollections runs a filtered, sorted, paginated collection query and
	// returns the page plus the unpaginated total
	GetCollections(ctx context.Context, params ListParams) ([]schema.Collection, int64, error)
	// GetIterations runs a filtered iteration query
	GetIterations(ctx context.Context, params ListParams) ([]schema.Iteration, int64, error)
	// GetListings runs a filtered listing query
	GetListings(ctx context.Context, params ListParams) ([]schema.Listing, int64, error)
	// GetOffers runs a filtered offer query
	GetOffers(ctx context.Context, params ListParams) ([]schema.Offer, int64, error)
	// GetUsers runs a filtered user query
	GetUsers(ctx context.Context, params ListParams) ([]schema.User, int64, error)
	// GetArticles runs a filtered article query
	GetArticles(ctx context.Context, params ListParams) ([]schema.Article, int64, error)
	// GetMintTickets runs a filtered mint-ticket query
	GetMintTickets(ctx context.Context, params ListParams) ([]schema.MintTicket, int64, error)

	// ComputeMarketStats derives the market snapshot for a batch of
	// collections from the action log and active listings. One invocation
	// issues a bounded number of queries regardless of batch size. Results
	// are index-aligned with ids; a collection with no market activity still
	// yields a snapshot (with nil fields), never a nil entry.
	ComputeMarketStats(ctx context.Context, ids []domain.EntityID) ([]*schema.MarketStats, error)
	// RefreshMarketStats recomputes and persists snapshot and history rows
	// for the given collections
	RefreshMarketStats(ctx context.Context, ids []domain.EntityID) error
	// GetMarketStatsHistory retrieves the bucketed history of one collection
	GetMarketStatsHistory(ctx context.Context, id domain.EntityID, from, to time.Time) ([]schema.MarketStatsHistory, error)

	// ListCollectionIDs pages through every collection identity, for the
	// stats worker's full sweep
	ListCollectionIDs(ctx context.Context, limit, offset int) ([]domain.EntityID, error)
}
