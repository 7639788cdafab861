package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// baseTime is the frozen "now" every test clock reports
var baseTime = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// =============================================================================
// Test Data Builders
// =============================================================================

func seedUser(t *testing.T, db *gorm.DB, id string) schema.User {
	t.Helper()
	user := schema.User{
		ID:        id,
		Name:      id,
		CreatedAt: baseTime.Add(-24 * time.Hour),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCollection(t *testing.T, db *gorm.DB, c schema.Collection) schema.Collection {
	t.Helper()
	if c.Slug == "" {
		c.Slug = fmt.Sprintf("collection-%s-%d", c.Version, c.ID)
	}
	if c.Name == "" {
		c.Name = c.Slug
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = baseTime.Add(-time.Hour)
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedIteration(t *testing.T, db *gorm.DB, i schema.Iteration) schema.Iteration {
	t.Helper()
	if i.Name == "" {
		i.Name = fmt.Sprintf("iteration #%d", i.Iteration)
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = baseTime.Add(-time.Hour)
	}
	require.NoError(t, db.Create(&i).Error)
	return i
}

func seedListing(t *testing.T, db *gorm.DB, l schema.Listing) schema.Listing {
	t.Helper()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = baseTime.Add(-time.Hour)
	}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func seedOffer(t *testing.T, db *gorm.DB, o schema.Offer) schema.Offer {
	t.Helper()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = baseTime.Add(-time.Hour)
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func seedAction(t *testing.T, db *gorm.DB, a schema.Action) schema.Action {
	t.Helper()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = baseTime.Add(-time.Hour)
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

// seedMarketFixture creates the three-collection fixture most query tests
// share:
//
//	alpha (1, current): fixed price 100, supply 100, balance 9, reserve 3
//	beta  (2, current): dutch auction resting at 150, balance 50, reserve 50
//	gamma (1, pre):     no pricing record, supply 10, balance 10
type marketFixture struct {
	alpha, beta, gamma schema.Collection
}

func seedMarketFixture(t *testing.T, db *gorm.DB) marketFixture {
	t.Helper()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")

	alpha := seedCollection(t, db, schema.Collection{
		ID: 1, Version: domain.VersionCurrent,
		Slug: "alpha", AuthorID: "alice",
		Supply: 100, Balance: 9, Enabled: true,
		CreatedAt: baseTime.Add(-3 * time.Hour),
	})
	beta := seedCollection(t, db, schema.Collection{
		ID: 2, Version: domain.VersionCurrent,
		Slug: "beta", AuthorID: "bob",
		Supply: 100, Balance: 50, Enabled: true,
		CreatedAt: baseTime.Add(-2 * time.Hour),
	})
	gamma := seedCollection(t, db, schema.Collection{
		ID: 1, Version: domain.VersionPre,
		Slug: "gamma", AuthorID: "alice",
		Supply: 10, Balance: 10, Enabled: true,
		CreatedAt: baseTime.Add(-1 * time.Hour),
	})

	require.NoError(t, db.Create(&schema.PricingFixed{
		CollectionID: alpha.ID, CollectionVersion: alpha.Version,
		Price: 100,
	}).Error)
	require.NoError(t, db.Create(&schema.PricingDutchAuction{
		CollectionID: beta.ID, CollectionVersion: beta.Version,
		Levels:           datatypes.NewJSONSlice([]int64{300, 200, 150}),
		DecrementSeconds: 600,
		OpensAt:          baseTime.Add(-time.Hour),
	}).Error)

	// alpha: 9 - 3 = 6 remaining out of 100 (almost)
	require.NoError(t, db.Create(&schema.Reserve{
		CollectionID: alpha.ID, CollectionVersion: alpha.Version,
		Method: domain.ReserveMethodWhitelist, Amount: 3,
	}).Error)
	// beta: 50 - 50 = 0 remaining (completed)
	require.NoError(t, db.Create(&schema.Reserve{
		CollectionID: beta.ID, CollectionVersion: beta.Version,
		Method: domain.ReserveMethodAirdrop, Amount: 50,
	}).Error)

	return marketFixture{alpha: alpha, beta: beta, gamma: gamma}
}

func collectionSlugs(collections []schema.Collection) []string {
	slugs := make([]string, len(collections))
	for i, c := range collections {
		slugs[i] = c.Slug
	}
	return slugs
}

// =============================================================================
// Batch Lookups
// =============================================================================

func TestGetCollectionsByIDs_AlignsWithMisses(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)

	got, err := s.GetCollectionsByIDs(ctx, []domain.EntityID{
		fx.beta.EntityID(),
		{ID: 999, Version: domain.VersionCurrent},
		fx.alpha.EntityID(),
		fx.gamma.EntityID(),
	})

	require.NoError(t, err)
	require.Len(t, got, 4)
	require.NotNil(t, got[0])
	assert.Equal(t, "beta", got[0].Slug)
	assert.Nil(t, got[1])
	require.NotNil(t, got[2])
	assert.Equal(t, "alpha", got[2].Slug)
	require.NotNil(t, got[3])
	assert.Equal(t, "gamma", got[3].Slug)

	// Pricing records come preloaded
	assert.NotNil(t, got[2].PricingFixed)
	assert.NotNil(t, got[0].PricingDutchAuction)
	assert.Nil(t, got[3].PricingFixed)
}

func TestGetCollectionsByIDs_DistinguishesVersions(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)

	// alpha and gamma share the numeric id 1 across generations
	got, err := s.GetCollectionsByIDs(ctx, []domain.EntityID{
		{ID: 1, Version: domain.VersionPre},
		{ID: 1, Version: domain.VersionCurrent},
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fx.gamma.Slug, got[0].Slug)
	assert.Equal(t, fx.alpha.Slug, got[1].Slug)
}

func TestGetIterationsByIDs_AlignsWithMisses(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedIterationFixture(t, db, fx)

	got, err := s.GetIterationsByIDs(ctx, []domain.EntityID{
		{ID: 12, Version: domain.VersionCurrent},
		{ID: 999, Version: domain.VersionCurrent},
		{ID: 10, Version: domain.VersionCurrent},
	})

	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotNil(t, got[0])
	assert.EqualValues(t, 3, got[0].Iteration)
	assert.Nil(t, got[1])
	require.NotNil(t, got[2])
	assert.EqualValues(t, 1, got[2].Iteration)
}

func TestGetUsersAndArticlesByIDs(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "alice")
	require.NoError(t, db.Create(&schema.Article{
		ID: 7, Slug: "hello", AuthorID: "alice",
		Title: "Hello", Body: "body",
		CreatedAt: baseTime.Add(-time.Hour),
	}).Error)

	users, err := s.GetUsersByIDs(ctx, []string{"nobody", "alice"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Nil(t, users[0])
	require.NotNil(t, users[1])
	assert.Equal(t, "alice", users[1].ID)

	articles, err := s.GetArticlesByIDs(ctx, []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	require.NotNil(t, articles[0])
	assert.Equal(t, "hello", articles[0].Slug)
	assert.Nil(t, articles[1])
}

// =============================================================================
// Collection Queries
// =============================================================================

func TestGetCollections_ColumnFilters(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	collections, total, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"author_eq": "alice"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	// Default order is newest first
	assert.Equal(t, []string{"gamma", "alpha"}, collectionSlugs(collections))

	collections, total, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"slug_in": []any{"alpha", "beta"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, collectionSlugs(collections))
}

func TestGetCollections_RejectsUnknownFilters(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	_, _, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"secretColumn_eq": "x"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterField)

	_, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"slug_matches": "alpha"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterField)

	// One bad key rejects the whole set even when the others are fine
	_, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"author_eq": "alice", "bogus_eq": 1},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterField)
}

func TestGetCollections_PriceAcrossStrategies(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	// A Dutch auction compares at its resting price (150 here), so both
	// alpha (100 fixed) and beta match; gamma has no pricing and never
	// matches a price predicate.
	collections, total, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"price_lte": 160},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, collectionSlugs(collections))

	collections, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"price_gt": 100},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, collectionSlugs(collections))

	// Price sort spans both strategies; unpriced rows sort last
	collections, _, err = s.GetCollections(ctx, ListParams{
		Sort: []SortField{{Field: "price"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, collectionSlugs(collections))
}

func TestGetCollections_PricingMethodFilter(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	collections, _, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"pricingMethod_eq": "dutch_auction"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, collectionSlugs(collections))

	collections, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"pricingMethod_eq": "fixed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, collectionSlugs(collections))

	_, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"pricingMethod_eq": "english_auction"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterField)
}

func TestGetCollections_MintProgress(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	// beta's balance is fully reserved, so it is completed, not ongoing
	collections, _, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"mintProgress_eq": "completed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, collectionSlugs(collections))

	collections, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"mintProgress_eq": "ongoing"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "gamma"}, collectionSlugs(collections))

	// alpha has 6 of 100 left (under 10%); gamma has all 10 of 10 left
	collections, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"mintProgress_eq": "almost"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, collectionSlugs(collections))
}

func TestGetCollections_SearchRelevance(t *testing.T) {
	db, searchClient, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	// The collaborator ranks gamma, beta, alpha; rows come back in that
	// order even though it matches neither creation nor id order
	searchClient.ids = []string{"0-1", "1-2", "1-1"}

	collections, total, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"searchQuery_eq": "generative"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"gamma", "beta", "alpha"}, collectionSlugs(collections))
	assert.Equal(t, []string{"generative"}, searchClient.queries)

	// An explicit sort overrides the ranking
	collections, _, err = s.GetCollections(ctx, ListParams{
		Filters: Filters{"searchQuery_eq": "generative"},
		Sort:    []SortField{{Field: "createdAt"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, collectionSlugs(collections))
}

func TestGetCollections_SearchEmptyShortCircuits(t *testing.T) {
	db, searchClient, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	searchClient.ids = []string{}

	collections, total, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"searchQuery_eq": "no such thing"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, collections)
}

func TestGetCollections_SearchFailureSurfaces(t *testing.T) {
	db, searchClient, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	searchClient.err = fmt.Errorf("%w: search index down", domain.ErrSearchUnavailable)

	_, _, err := s.GetCollections(ctx, ListParams{
		Filters: Filters{"searchQuery_eq": "anything"},
	})
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
}

func TestGetCollections_SortValidation(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	_, _, err := s.GetCollections(ctx, ListParams{
		Sort: []SortField{{Field: "balanceOfSecrets"}},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownSortField)

	// Relevance only means something against a search restriction
	_, _, err = s.GetCollections(ctx, ListParams{
		Sort: []SortField{{Field: "relevance"}},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownSortField)
}

func TestGetCollections_Pagination(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	seedMarketFixture(t, db)

	collections, total, err := s.GetCollections(ctx, ListParams{
		Sort:  []SortField{{Field: "createdAt"}},
		Limit: 2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"alpha", "beta"}, collectionSlugs(collections))

	collections, total, err = s.GetCollections(ctx, ListParams{
		Sort:   []SortField{{Field: "createdAt"}},
		Limit:  2,
		Offset: 2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"gamma"}, collectionSlugs(collections))
}

// =============================================================================
// Iteration Queries
// =============================================================================

// seedIterationFixture hangs three iterations with features off alpha plus
// one off beta, and a redeemable consumed by the first iteration
func seedIterationFixture(t *testing.T, db *gorm.DB, fx marketFixture) {
	t.Helper()

	seedIteration(t, db, schema.Iteration{
		ID: 10, Version: domain.VersionCurrent,
		CollectionID: fx.alpha.ID, CollectionVersion: fx.alpha.Version,
		Iteration: 1, OwnerID: "alice", Assigned: true,
		Features: datatypes.NewJSONSlice([]schema.Feature{
			{Name: "Background", Value: "blue"},
			{Name: "Eyes", Value: "green"},
		}),
		CreatedAt: baseTime.Add(-50 * time.Minute),
	})
	seedIteration(t, db, schema.Iteration{
		ID: 11, Version: domain.VersionCurrent,
		CollectionID: fx.alpha.ID, CollectionVersion: fx.alpha.Version,
		Iteration: 2, OwnerID: "bob", Assigned: true,
		Features: datatypes.NewJSONSlice([]schema.Feature{
			{Name: "Background", Value: "red"},
		}),
		CreatedAt: baseTime.Add(-40 * time.Minute),
	})
	seedIteration(t, db, schema.Iteration{
		ID: 12, Version: domain.VersionCurrent,
		CollectionID: fx.alpha.ID, CollectionVersion: fx.alpha.Version,
		Iteration: 3, OwnerID: "bob", Assigned: true,
		Features: datatypes.NewJSONSlice([]schema.Feature{
			{Name: "Background", Value: "blue"},
			{Name: "Eyes", Value: "red"},
		}),
		CreatedAt: baseTime.Add(-30 * time.Minute),
	})
	seedIteration(t, db, schema.Iteration{
		ID: 20, Version: domain.VersionCurrent,
		CollectionID: fx.beta.ID, CollectionVersion: fx.beta.Version,
		Iteration: 1, OwnerID: "alice", Assigned: true,
		CreatedAt: baseTime.Add(-20 * time.Minute),
	})

	// One redeemable on alpha, already consumed once by iteration 10
	require.NoError(t, db.Create(&schema.Redeemable{
		Address:      "KT1Redeem",
		CollectionID: fx.alpha.ID, CollectionVersion: fx.alpha.Version,
		MaxConsumptions: 1,
		CreatedAt:       baseTime.Add(-2 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&schema.Redemption{
		RedeemableAddress: "KT1Redeem",
		IterationID:       10, IterationVersion: domain.VersionCurrent,
		RedeemerID: "alice",
		CreatedAt:  baseTime.Add(-time.Hour),
	}).Error)
}

func iterationIDs(iterations []schema.Iteration) []int64 {
	ids := make([]int64, len(iterations))
	for i, it := range iterations {
		ids[i] = it.ID
	}
	return ids
}

func TestGetIterations_CollectionAndFeatureFilters(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedIterationFixture(t, db, fx)

	iterations, total, err := s.GetIterations(ctx, ListParams{
		Filters: Filters{"collection_eq": "1-1"},
		Sort:    []SortField{{Field: "iteration"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []int64{10, 11, 12}, iterationIDs(iterations))

	// Values of one feature filter combine with OR
	iterations, _, err = s.GetIterations(ctx, ListParams{
		Filters: Filters{
			"collection_eq": "1-1",
			"features_eq": []domain.FeatureFilter{
				{Name: "Background", Values: []string{"blue", "red"}},
			},
		},
		Sort: []SortField{{Field: "iteration"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, iterationIDs(iterations))

	// Several filters combine with AND
	iterations, _, err = s.GetIterations(ctx, ListParams{
		Filters: Filters{
			"collection_eq": "1-1",
			"features_eq": []domain.FeatureFilter{
				{Name: "Background", Values: []string{"blue"}},
				{Name: "Eyes", Values: []string{"green"}},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, iterationIDs(iterations))

	// The JSON-decoded shape works the same as the typed one
	iterations, _, err = s.GetIterations(ctx, ListParams{
		Filters: Filters{
			"collection_eq": "1-1",
			"features_eq": []any{
				map[string]any{"name": "Eyes", "values": []any{"red"}},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, iterationIDs(iterations))

	// A feature entry without values is a malformed filter
	_, _, err = s.GetIterations(ctx, ListParams{
		Filters: Filters{
			"features_eq": []domain.FeatureFilter{{Name: "Background"}},
		},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterField)
}

func TestGetIterations_RedeemableExist(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedIterationFixture(t, db, fx)

	// Iteration 10 already used its single redemption
	iterations, _, err := s.GetIterations(ctx, ListParams{
		Filters: Filters{"collection_eq": "1-1", "redeemable_exist": true},
		Sort:    []SortField{{Field: "iteration"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, iterationIDs(iterations))

	iterations, _, err = s.GetIterations(ctx, ListParams{
		Filters: Filters{"collection_eq": "1-1", "redeemable_exist": false},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, iterationIDs(iterations))
}

func TestGetIterations_LegacyCollectionID(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedIteration(t, db, schema.Iteration{
		ID: 30, Version: domain.VersionPre,
		CollectionID: fx.gamma.ID, CollectionVersion: fx.gamma.Version,
		Iteration: 1, OwnerID: "alice",
	})

	// A bare integer id refers to the pre-generation
	iterations, _, err := s.GetIterations(ctx, ListParams{
		Filters: Filters{"collection_eq": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{30}, iterationIDs(iterations))
}

// =============================================================================
// Listing / Offer / Mint Ticket Queries
// =============================================================================

func seedTradingFixture(t *testing.T, db *gorm.DB, fx marketFixture) {
	t.Helper()
	seedIterationFixture(t, db, fx)

	accepted := baseTime.Add(-30 * time.Minute)
	canceled := baseTime.Add(-20 * time.Minute)

	seedListing(t, db, schema.Listing{
		ID: 100, IterationID: 10, IterationVersion: domain.VersionCurrent,
		SellerID: "alice", Price: 300,
		CreatedAt: baseTime.Add(-55 * time.Minute),
	})
	seedListing(t, db, schema.Listing{
		ID: 101, IterationID: 10, IterationVersion: domain.VersionCurrent,
		SellerID: "alice", Price: 100,
		CreatedAt: baseTime.Add(-45 * time.Minute),
	})
	seedListing(t, db, schema.Listing{
		ID: 102, IterationID: 10, IterationVersion: domain.VersionCurrent,
		SellerID: "alice", Price: 200, AcceptedAt: &accepted,
		CreatedAt: baseTime.Add(-40 * time.Minute),
	})
	seedListing(t, db, schema.Listing{
		ID: 103, IterationID: 11, IterationVersion: domain.VersionCurrent,
		SellerID: "bob", Price: 200,
		CreatedAt: baseTime.Add(-35 * time.Minute),
	})

	seedOffer(t, db, schema.Offer{
		ID: 200, IterationID: 10, IterationVersion: domain.VersionCurrent,
		BuyerID: "bob", Price: 50,
		CreatedAt: baseTime.Add(-25 * time.Minute),
	})
	seedOffer(t, db, schema.Offer{
		ID: 201, IterationID: 10, IterationVersion: domain.VersionCurrent,
		BuyerID: "bob", Price: 80, CanceledAt: &canceled,
		CreatedAt: baseTime.Add(-24 * time.Minute),
	})
}

func TestGetListings_ActiveAndCollectionFilters(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedTradingFixture(t, db, fx)

	listings, total, err := s.GetListings(ctx, ListParams{
		Filters: Filters{"active_eq": true},
		Sort:    []SortField{{Field: "price"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, listings, 3)
	assert.EqualValues(t, 101, listings[0].ID)

	listings, _, err = s.GetListings(ctx, ListParams{
		Filters: Filters{"active_eq": false},
	})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.EqualValues(t, 102, listings[0].ID)

	// collection_eq reaches the collection through the iteration join
	listings, total, err = s.GetListings(ctx, ListParams{
		Filters: Filters{"collection_eq": "1-1", "active_eq": true},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	listings, total, err = s.GetListings(ctx, ListParams{
		Filters: Filters{"collection_eq": "1-2"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, listings)
}

func TestGetOffers_IterationFilter(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedTradingFixture(t, db, fx)

	offers, total, err := s.GetOffers(ctx, ListParams{
		Filters: Filters{"iteration_eq": "1-10", "active_eq": true},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, offers, 1)
	assert.EqualValues(t, 200, offers[0].ID)
}

func TestGetMintTickets(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)

	consumed := baseTime.Add(-time.Hour)
	require.NoError(t, db.Create(&schema.MintTicket{
		ID: 300, CollectionID: fx.alpha.ID, CollectionVersion: fx.alpha.Version,
		OwnerID: "bob", Price: 40,
		TaxationLockedUntil: baseTime.Add(24 * time.Hour),
		CreatedAt:           baseTime.Add(-2 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&schema.MintTicket{
		ID: 301, CollectionID: fx.alpha.ID, CollectionVersion: fx.alpha.Version,
		OwnerID: "alice", Price: 40,
		TaxationLockedUntil: baseTime.Add(24 * time.Hour),
		ConsumedAt:          &consumed,
		CreatedAt:           baseTime.Add(-2 * time.Hour),
	}).Error)

	tickets, total, err := s.GetMintTickets(ctx, ListParams{
		Filters: Filters{"collection_eq": "1-1", "consumedAt_exist": false},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tickets, 1)
	assert.EqualValues(t, 300, tickets[0].ID)
}

// =============================================================================
// Grouped Fetches
// =============================================================================

func TestGetIterationsOfCollections_Window(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedIterationFixture(t, db, fx)

	groups, err := s.GetIterationsOfCollections(ctx, []IterationsOfCollectionParams{
		{Collection: fx.alpha.EntityID(), Limit: 2},
		{Collection: fx.beta.EntityID(), Limit: 2},
		{Collection: fx.gamma.EntityID(), Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []int64{10, 11}, iterationIDs(groups[0]))
	assert.Equal(t, []int64{20}, iterationIDs(groups[1]))
	assert.Empty(t, groups[2])

	// The next window picks up where the first left off, per collection
	groups, err = s.GetIterationsOfCollections(ctx, []IterationsOfCollectionParams{
		{Collection: fx.alpha.EntityID(), Limit: 2, Offset: 2},
		{Collection: fx.beta.EntityID(), Limit: 2, Offset: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, iterationIDs(groups[0]))
	assert.Empty(t, groups[1])
}

func TestGetActiveListingsAndOffersOfIterations(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedTradingFixture(t, db, fx)

	listings, err := s.GetActiveListingsOfIterations(ctx, []domain.EntityID{
		{ID: 10, Version: domain.VersionCurrent},
		{ID: 11, Version: domain.VersionCurrent},
		{ID: 20, Version: domain.VersionCurrent},
	})
	require.NoError(t, err)
	require.Len(t, listings, 3)
	// Cheapest ask first; the accepted listing does not appear
	require.Len(t, listings[0], 2)
	assert.EqualValues(t, 101, listings[0][0].ID)
	assert.EqualValues(t, 100, listings[0][1].ID)
	require.Len(t, listings[1], 1)
	assert.Empty(t, listings[2])

	offers, err := s.GetActiveOffersOfIterations(ctx, []domain.EntityID{
		{ID: 10, Version: domain.VersionCurrent},
	})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Len(t, offers[0], 1)
	assert.EqualValues(t, 200, offers[0][0].ID)
}

func TestGetActionsOfCollections_RecentFirst(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)

	for i, offset := range []time.Duration{-3 * time.Hour, -2 * time.Hour, -time.Hour} {
		seedAction(t, db, schema.Action{
			Type:         domain.ActionTypeListed,
			CollectionID: &fx.alpha.ID, CollectionVersion: &fx.alpha.Version,
			NumericValue: ptrInt64(int64(100 + i)),
			CreatedAt:    baseTime.Add(offset),
		})
	}
	seedAction(t, db, schema.Action{
		Type:         domain.ActionTypeMinted,
		CollectionID: &fx.beta.ID, CollectionVersion: &fx.beta.Version,
		NumericValue: ptrInt64(10),
		CreatedAt:    baseTime.Add(-time.Minute),
	})

	groups, err := s.GetActionsOfCollections(ctx, []ActionsOfCollectionParams{
		{Collection: fx.alpha.EntityID(), Limit: 2},
		{Collection: fx.beta.EntityID(), Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0], 2)
	assert.Equal(t, baseTime.Add(-time.Hour), groups[0][0].CreatedAt.UTC())
	assert.Equal(t, baseTime.Add(-2*time.Hour), groups[0][1].CreatedAt.UTC())
	require.Len(t, groups[1], 1)
	assert.Equal(t, domain.ActionTypeMinted, groups[1][0].Type)
}

// =============================================================================
// Market Stats
// =============================================================================

func ptrInt64(v int64) *int64 { return &v }

// seedStatsFixture gives alpha a full market history: three active asks,
// two mints, one old sale and one recent sale, plus noise rows the
// aggregation must ignore
func seedStatsFixture(t *testing.T, db *gorm.DB, fx marketFixture) {
	t.Helper()
	seedTradingFixture(t, db, fx)

	mint := func(price int64, at time.Time) schema.Action {
		return schema.Action{
			Type:         domain.ActionTypeMinted,
			CollectionID: &fx.alpha.ID, CollectionVersion: &fx.alpha.Version,
			NumericValue: ptrInt64(price),
			CreatedAt:    at,
		}
	}
	seedAction(t, db, mint(10, baseTime.Add(-72*time.Hour)))
	seedAction(t, db, mint(20, baseTime.Add(-71*time.Hour)))

	seedAction(t, db, schema.Action{
		Type:         domain.ActionTypeListingAccepted,
		CollectionID: &fx.alpha.ID, CollectionVersion: &fx.alpha.Version,
		NumericValue: ptrInt64(150),
		CreatedAt:    baseTime.Add(-48 * time.Hour),
	})
	seedAction(t, db, schema.Action{
		Type:         domain.ActionTypeOfferAccepted,
		CollectionID: &fx.alpha.ID, CollectionVersion: &fx.alpha.Version,
		NumericValue: ptrInt64(250),
		CreatedAt:    baseTime.Add(-1 * time.Hour),
	})

	// Noise: a priced action of a non-sale type, and an unpriced sale type
	seedAction(t, db, schema.Action{
		Type:         domain.ActionTypeTransferred,
		CollectionID: &fx.alpha.ID, CollectionVersion: &fx.alpha.Version,
		NumericValue: ptrInt64(999),
		CreatedAt:    baseTime.Add(-10 * time.Minute),
	})
	seedAction(t, db, schema.Action{
		Type:         domain.ActionTypeListed,
		CollectionID: &fx.alpha.ID, CollectionVersion: &fx.alpha.Version,
		CreatedAt:    baseTime.Add(-9 * time.Minute),
	})
}

func TestComputeMarketStats(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedStatsFixture(t, db, fx)

	got, err := s.ComputeMarketStats(ctx, []domain.EntityID{
		fx.alpha.EntityID(),
		fx.gamma.EntityID(),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	alpha := got[0]
	require.NotNil(t, alpha)
	// Active asks are 100, 300 (iteration 10) and 200 (iteration 11)
	require.NotNil(t, alpha.Floor)
	assert.EqualValues(t, 100, *alpha.Floor)
	require.NotNil(t, alpha.Median)
	assert.EqualValues(t, 200, *alpha.Median)
	assert.EqualValues(t, 3, alpha.TotalListing)
	require.NotNil(t, alpha.PrimaryTotal)
	assert.EqualValues(t, 30, *alpha.PrimaryTotal)
	require.NotNil(t, alpha.SecondaryVolumeTz)
	assert.EqualValues(t, 400, *alpha.SecondaryVolumeTz)
	require.NotNil(t, alpha.SecondaryVolumeNb)
	assert.EqualValues(t, 2, *alpha.SecondaryVolumeNb)
	require.NotNil(t, alpha.LowestSold)
	assert.EqualValues(t, 150, *alpha.LowestSold)
	require.NotNil(t, alpha.HighestSold)
	assert.EqualValues(t, 250, *alpha.HighestSold)
	// Only the 250 sale falls inside the trailing 24 hours
	require.NotNil(t, alpha.SecondaryVolumeTz24)
	assert.EqualValues(t, 250, *alpha.SecondaryVolumeTz24)
	require.NotNil(t, alpha.SecondaryVolumeNb24)
	assert.EqualValues(t, 1, *alpha.SecondaryVolumeNb24)
	assert.Equal(t, baseTime, alpha.UpdatedAt.UTC())

	// No activity means nil aggregates, never a nil snapshot
	gamma := got[1]
	require.NotNil(t, gamma)
	assert.Nil(t, gamma.Floor)
	assert.Nil(t, gamma.Median)
	assert.EqualValues(t, 0, gamma.TotalListing)
	assert.Nil(t, gamma.PrimaryTotal)
	assert.Nil(t, gamma.SecondaryVolumeTz24)
}

func TestRefreshMarketStats_UpsertsSnapshotAndHistory(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)
	seedStatsFixture(t, db, fx)

	require.NoError(t, s.RefreshMarketStats(ctx, []domain.EntityID{fx.alpha.EntityID()}))
	// Refreshing twice lands on the same snapshot row and history bucket
	require.NoError(t, s.RefreshMarketStats(ctx, []domain.EntityID{fx.alpha.EntityID()}))

	var snapshots []schema.MarketStats
	require.NoError(t, db.Find(&snapshots).Error)
	require.Len(t, snapshots, 1)
	require.NotNil(t, snapshots[0].Floor)
	assert.EqualValues(t, 100, *snapshots[0].Floor)

	history, err := s.GetMarketStatsHistory(ctx, fx.alpha.EntityID(),
		baseTime.Add(-2*time.Hour), baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, baseTime.Truncate(time.Hour), history[0].From.UTC())
	assert.Equal(t, baseTime.Truncate(time.Hour).Add(time.Hour), history[0].To.UTC())
	// History carries the trailing-24h volume of the bucket
	require.NotNil(t, history[0].SecondaryVolumeTz)
	assert.EqualValues(t, 250, *history[0].SecondaryVolumeTz)

	// A range before the bucket finds nothing
	history, err = s.GetMarketStatsHistory(ctx, fx.alpha.EntityID(),
		baseTime.Add(-48*time.Hour), baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, history)
}

// =============================================================================
// User / Article Queries
// =============================================================================

func TestGetUsers_NameFilter(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")

	users, total, err := s.GetUsers(ctx, ListParams{
		Filters: Filters{"name_eq": "alice"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].ID)

	_, _, err = s.GetUsers(ctx, ListParams{
		Filters: Filters{"balance_eq": 1},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterField)
}

func TestGetArticles_AuthorFilter(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	require.NoError(t, db.Create(&schema.Article{
		ID: 1, Slug: "hello", AuthorID: "alice",
		Title: "Hello", Body: "body",
		CreatedAt: baseTime.Add(-2 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&schema.Article{
		ID: 2, Slug: "world", AuthorID: "bob",
		Title: "World", Body: "body",
		CreatedAt: baseTime.Add(-time.Hour),
	}).Error)

	articles, total, err := s.GetArticles(ctx, ListParams{
		Filters: Filters{"author_eq": "alice"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, articles, 1)
	assert.Equal(t, "hello", articles[0].Slug)
}

func TestListCollectionIDs_Pages(t *testing.T) {
	db, _, s := initPGTestDB(t)
	ctx := context.Background()
	fx := seedMarketFixture(t, db)

	ids, err := s.ListCollectionIDs(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{fx.alpha.EntityID(), fx.beta.EntityID()}, ids)

	ids, err = s.ListCollectionIDs(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{fx.gamma.EntityID()}, ids)
}
