package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// collectionFilterColumns is the filterable-field allow-list for collections
var collectionFilterColumns = map[string]string{
	"slug":            "collections.slug",
	"name":            "collections.name",
	"author":          "collections.author_id",
	"supply":          "collections.supply",
	"balance":         "collections.balance",
	"enabled":         "collections.enabled",
	"moderationState": "collections.moderation_state",
	"mintOpensAt":     "collections.mint_opens_at",
	"createdAt":       "collections.created_at",
}

// collectionSortColumns is the sortable-field allow-list for collections
var collectionSortColumns = map[string]string{
	"name":        "collections.name",
	"supply":      "collections.supply",
	"balance":     "collections.balance",
	"mintOpensAt": "collections.mint_opens_at",
	"createdAt":   "collections.created_at",
}

// collectionPriceExpr is the price a collection currently mints at, across
// both pricing strategies. A Dutch auction compares at its resting price,
// the last level, since that is the price every auction eventually reaches.
const collectionPriceExpr = "COALESCE(pricing_fixeds.price, " +
	"(pricing_dutch_auctions.levels->>(jsonb_array_length(pricing_dutch_auctions.levels)-1))::bigint)"

// collectionRemainingExpr is the effectively mintable balance: the raw
// balance minus what the active reserves still hold back
const collectionRemainingExpr = "(collections.balance - COALESCE(" +
	"(SELECT SUM(r.amount) FROM reserves r " +
	"WHERE r.collection_id = collections.id AND r.collection_version = collections.version), 0))"

// GetCollections runs a filtered, sorted, paginated collection query and
// returns the page plus the unpaginated total
func (s *pgStore) GetCollections(ctx context.Context, params ListParams) ([]schema.Collection, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.Collection{})
	handled := map[string]bool{}
	sorts := params.Sort

	// Search delegation. The collaborator returns ranked ids; the query
	// restricts to them and the relevance sort reproduces the ranking.
	var rankedIDs []string
	if raw, ok := params.Filters["searchQuery_eq"]; ok {
		handled["searchQuery_eq"] = true
		query, ok := raw.(string)
		if !ok {
			return nil, 0, fmt.Errorf("%w: searchQuery_eq operand must be a string", domain.ErrUnknownFilterField)
		}
		ids, err := s.search.SearchCollections(ctx, query, params.Limit+params.Offset)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []schema.Collection{}, 0, nil
		}
		parsed, err := domain.ParseEntityIDs(ids)
		if err != nil {
			return nil, 0, fmt.Errorf("search returned malformed ids: %w", err)
		}
		rankedIDs = ids
		q = q.Where("(collections.id, collections.version) IN ?", entityIDTuples(parsed))
	}

	if raw, ok := params.Filters["id_in"]; ok {
		handled["id_in"] = true
		ids, err := parseIDOperand(raw)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("(collections.id, collections.version) IN ?", entityIDTuples(ids))
	}

	// Pricing strategy joins. Price predicates need both strategy tables;
	// a pricingMethod filter inner-joins only the strategy it names, which
	// excludes collections using the other one.
	needPrice := hasFilterField(params.Filters, "price") || hasSort(sorts, "price")
	if raw, ok := params.Filters["pricingMethod_eq"]; ok {
		handled["pricingMethod_eq"] = true
		method, okStr := raw.(string)
		if !okStr || !domain.IsValidPricingMethod(domain.PricingMethod(method)) {
			return nil, 0, fmt.Errorf("%w: pricingMethod_eq operand %v", domain.ErrUnknownFilterField, raw)
		}
		switch domain.PricingMethod(method) {
		case domain.PricingMethodFixed:
			q = q.Joins("JOIN pricing_fixeds ON pricing_fixeds.collection_id = collections.id AND pricing_fixeds.collection_version = collections.version")
			q = q.Joins("LEFT JOIN pricing_dutch_auctions ON FALSE")
		case domain.PricingMethodDutchAuction:
			q = q.Joins("JOIN pricing_dutch_auctions ON pricing_dutch_auctions.collection_id = collections.id AND pricing_dutch_auctions.collection_version = collections.version")
			q = q.Joins("LEFT JOIN pricing_fixeds ON FALSE")
		}
		needPrice = false
	} else if needPrice {
		q = q.Joins("LEFT JOIN pricing_fixeds ON pricing_fixeds.collection_id = collections.id AND pricing_fixeds.collection_version = collections.version")
		q = q.Joins("LEFT JOIN pricing_dutch_auctions ON pricing_dutch_auctions.collection_id = collections.id AND pricing_dutch_auctions.collection_version = collections.version")
	}

	for _, op := range []string{opEq, opGt, opGte, opLt, opLte} {
		key := "price_" + op
		if raw, ok := params.Filters[key]; ok {
			handled[key] = true
			var err error
			q, err = applyOperator(q, collectionPriceExpr, op, raw)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %q", err, key)
			}
		}
	}

	if raw, ok := params.Filters["mintProgress_eq"]; ok {
		handled["mintProgress_eq"] = true
		progress, okStr := raw.(string)
		if !okStr || !domain.IsValidMintProgress(domain.MintProgress(progress)) {
			return nil, 0, fmt.Errorf("%w: mintProgress_eq operand %v", domain.ErrUnknownFilterField, raw)
		}
		switch domain.MintProgress(progress) {
		case domain.MintProgressCompleted:
			q = q.Where(collectionRemainingExpr + " <= 0")
		case domain.MintProgressOngoing:
			q = q.Where(collectionRemainingExpr + " > 0")
		case domain.MintProgressAlmost:
			q = q.Where(collectionRemainingExpr + " > 0").
				Where(collectionRemainingExpr + " * 10 < collections.supply")
		}
	}

	q, err := applyColumnFilters(q, params.Filters, collectionFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count collections: %w", err)
	}

	q, err = orderCollections(q, sorts, rankedIDs)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(params.Limit, params.Offset)
	var collections []schema.Collection
	err = q.
		Preload("PricingFixed").
		Preload("PricingDutchAuction").
		Limit(limit).
		Offset(offset).
		Find(&collections).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get collections: %w", err)
	}
	return collections, total, nil
}

// orderCollections applies the requested sorts plus the stable identity
// tie-break. With a search restriction and no explicit sort, relevance
// order applies: rows come back in the collaborator's ranking. The whole
// ORDER BY is built as a single expression because gorm does not merge an
// expression order with later column orders.
func orderCollections(q *gorm.DB, sorts []SortField, rankedIDs []string) (*gorm.DB, error) {
	var parts []string
	var vars []any

	if rankedIDs != nil && (len(sorts) == 0 || hasSort(sorts, "relevance")) {
		parts = append(parts, "array_position(ARRAY[?]::text[], collections.version || '-' || collections.id::text)")
		vars = append(vars, rankedIDs)
		sorts = removeSort(sorts, "relevance")
	} else if hasSort(sorts, "relevance") {
		return nil, fmt.Errorf("%w: relevance sort requires a search query", domain.ErrUnknownSortField)
	}

	for _, sort := range sorts {
		if sort.Field == "price" {
			parts = append(parts, collectionPriceExpr+" "+sortDirection(sort.Desc))
			continue
		}
		column, ok := collectionSortColumns[sort.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		parts = append(parts, column+" "+sortDirection(sort.Desc))
	}
	if len(parts) == 0 {
		parts = append(parts, "collections.created_at DESC")
	}

	// Stable tie-break so pagination never straddles equal sort keys
	parts = append(parts, "collections.id ASC", "collections.version ASC")

	return q.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                strings.Join(parts, ", "),
		Vars:               vars,
		WithoutParentheses: true,
	}}), nil
}

// hasFilterField reports whether any filter key targets a field
func hasFilterField(filters Filters, field string) bool {
	for key := range filters {
		if f, _, ok := splitFilterKey(key); ok && f == field {
			return true
		}
	}
	return false
}
