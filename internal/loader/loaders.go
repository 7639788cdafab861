package loader

import (
	"context"
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

const (
	defaultWait     = 2 * time.Millisecond
	defaultMaxBatch = 100
)

// Loaders bundles every per-request loader. One instance is created per
// inbound request and dropped with it, so the memoization horizon is exactly
// one request: a row read twice while serving a response is fetched once,
// and no response ever observes another request's cache.
type Loaders struct {
	CollectionByID          *Loader[domain.EntityID, *schema.Collection]
	IterationByID           *Loader[domain.EntityID, *schema.Iteration]
	UserByID                *Loader[string, *schema.User]
	ArticleByID             *Loader[int64, *schema.Article]
	MarketStatsByCollection *Loader[domain.EntityID, *schema.MarketStats]

	IterationsOfCollection    *Loader[store.IterationsOfCollectionParams, []schema.Iteration]
	ActiveListingsOfIteration *Loader[domain.EntityID, []schema.Listing]
	ActiveOffersOfIteration   *Loader[domain.EntityID, []schema.Offer]
	ActionsOfCollection       *Loader[store.ActionsOfCollectionParams, []schema.Action]
}

// NewLoaders creates the loader bundle for one request
func NewLoaders(ctx context.Context, s store.Store) *Loaders {
	cfg := Config{Ctx: ctx, Wait: defaultWait, MaxBatch: defaultMaxBatch}

	return &Loaders{
		CollectionByID:          New(cfg, wrapAligned(s.GetCollectionsByIDs)),
		IterationByID:           New(cfg, wrapAligned(s.GetIterationsByIDs)),
		UserByID:                New(cfg, wrapAligned(s.GetUsersByIDs)),
		ArticleByID:             New(cfg, wrapAligned(s.GetArticlesByIDs)),
		MarketStatsByCollection: New(cfg, wrapAligned(s.ComputeMarketStats)),

		IterationsOfCollection:    New(cfg, wrapAligned(s.GetIterationsOfCollections)),
		ActiveListingsOfIteration: New(cfg, wrapAligned(s.GetActiveListingsOfIterations)),
		ActiveOffersOfIteration:   New(cfg, wrapAligned(s.GetActiveOffersOfIterations)),
		ActionsOfCollection:       New(cfg, wrapAligned(s.GetActionsOfCollections)),
	}
}

// wrapAligned adapts a store batch method, which returns an index-aligned
// slice and a single error, to the loader's batch signature where one error
// fails the whole batch
func wrapAligned[K comparable, V any](fetch func(ctx context.Context, keys []K) ([]V, error)) BatchFunc[K, V] {
	return func(ctx context.Context, keys []K) ([]V, []error) {
		values, err := fetch(ctx, keys)
		if err != nil {
			return nil, []error{err}
		}
		return values, nil
	}
}

type contextKey struct{}

// With attaches a loader bundle to a request context
func With(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, contextKey{}, loaders)
}

// For retrieves the request's loader bundle. It panics when no bundle is
// attached: that is a wiring bug, not a runtime condition.
func For(ctx context.Context) *Loaders {
	loaders, ok := ctx.Value(contextKey{}).(*Loaders)
	if !ok {
		panic("loader: context carries no loader bundle")
	}
	return loaders
}
