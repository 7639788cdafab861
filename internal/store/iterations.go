package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// iterationFilterColumns is the filterable-field allow-list for iterations
var iterationFilterColumns = map[string]string{
	"owner":     "iterations.owner_id",
	"name":      "iterations.name",
	"assigned":  "iterations.assigned",
	"iteration": "iterations.iteration",
	"rarity":    "iterations.rarity",
	"createdAt": "iterations.created_at",
}

// iterationSortColumns is the sortable-field allow-list for iterations
var iterationSortColumns = map[string]string{
	"iteration": "iterations.iteration",
	"rarity":    "iterations.rarity",
	"createdAt": "iterations.created_at",
}

// redeemableExistsExpr matches iterations that can still redeem against at
// least one redeemable attached to their collection
const redeemableExistsExpr = "EXISTS (" +
	"SELECT 1 FROM redeemables rd " +
	"WHERE rd.collection_id = iterations.collection_id " +
	"AND rd.collection_version = iterations.collection_version " +
	"AND (SELECT COUNT(*) FROM redemptions rn " +
	"WHERE rn.redeemable_address = rd.address " +
	"AND rn.iteration_id = iterations.id " +
	"AND rn.iteration_version = iterations.version) < rd.max_consumptions)"

// GetIterations runs a filtered, sorted, paginated iteration query
func (s *pgStore) GetIterations(ctx context.Context, params ListParams) ([]schema.Iteration, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.Iteration{})
	handled := map[string]bool{}
	sorts := params.Sort

	var rankedIDs []string
	if raw, ok := params.Filters["searchQuery_eq"]; ok {
		handled["searchQuery_eq"] = true
		query, ok := raw.(string)
		if !ok {
			return nil, 0, fmt.Errorf("%w: searchQuery_eq operand must be a string", domain.ErrUnknownFilterField)
		}
		ids, err := s.search.SearchIterations(ctx, query, params.Limit+params.Offset)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []schema.Iteration{}, 0, nil
		}
		parsed, err := domain.ParseEntityIDs(ids)
		if err != nil {
			return nil, 0, fmt.Errorf("search returned malformed ids: %w", err)
		}
		rankedIDs = ids
		q = q.Where("(iterations.id, iterations.version) IN ?", entityIDTuples(parsed))
	}

	if raw, ok := params.Filters["id_in"]; ok {
		handled["id_in"] = true
		ids, err := parseIDOperand(raw)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("(iterations.id, iterations.version) IN ?", entityIDTuples(ids))
	}

	if raw, ok := params.Filters["collection_eq"]; ok {
		handled["collection_eq"] = true
		serialized, okStr := raw.(string)
		if !okStr {
			return nil, 0, fmt.Errorf("%w: collection_eq operand must be a string", domain.ErrInvalidEntityID)
		}
		id, err := domain.ParseEntityID(serialized)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("iterations.collection_id = ? AND iterations.collection_version = ?", id.ID, string(id.Version))
	}

	if raw, ok := params.Filters["collection_in"]; ok {
		handled["collection_in"] = true
		ids, err := parseIDOperand(raw)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("(iterations.collection_id, iterations.collection_version) IN ?", entityIDTuples(ids))
	}

	if raw, ok := params.Filters["features_eq"]; ok {
		handled["features_eq"] = true
		featureFilters, err := parseFeatureOperand(raw)
		if err != nil {
			return nil, 0, err
		}
		q, err = applyFeatureFilters(q, featureFilters)
		if err != nil {
			return nil, 0, err
		}
	}

	if raw, ok := params.Filters["redeemable_exist"]; ok {
		handled["redeemable_exist"] = true
		if truthy(raw) {
			q = q.Where(redeemableExistsExpr)
		} else {
			q = q.Where("NOT " + redeemableExistsExpr)
		}
	}

	q, err := applyColumnFilters(q, params.Filters, iterationFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count iterations: %w", err)
	}

	q, err = orderIterations(q, sorts, rankedIDs)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(params.Limit, params.Offset)
	var iterations []schema.Iteration
	err = q.Limit(limit).Offset(offset).Find(&iterations).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get iterations: %w", err)
	}
	return iterations, total, nil
}

// parseFeatureOperand decodes a JSON-shaped feature filter operand. It
// accepts both typed filters (internal callers) and the []any form a JSON
// body decodes to.
func parseFeatureOperand(raw any) ([]domain.FeatureFilter, error) {
	if typed, ok := raw.([]domain.FeatureFilter); ok {
		return typed, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: features_eq operand: %v", domain.ErrUnknownFilterField, err)
	}
	var filters []domain.FeatureFilter
	if err := json.Unmarshal(encoded, &filters); err != nil {
		return nil, fmt.Errorf("%w: features_eq operand: %v", domain.ErrUnknownFilterField, err)
	}
	return filters, nil
}

// applyFeatureFilters restricts to iterations matching every named feature,
// where a feature matches if its value is any of the filter's values.
// Each value test is a JSONB containment on the features document, which
// rides the GIN index instead of unnesting the array.
func applyFeatureFilters(q *gorm.DB, filters []domain.FeatureFilter) (*gorm.DB, error) {
	for _, f := range filters {
		if f.Name == "" || len(f.Values) == 0 {
			return nil, fmt.Errorf("%w: features_eq entries need a name and at least one value", domain.ErrUnknownFilterField)
		}

		conds := make([]string, len(f.Values))
		vars := make([]any, len(f.Values))
		for i, value := range f.Values {
			doc, err := json.Marshal([]schema.Feature{{Name: f.Name, Value: value}})
			if err != nil {
				return nil, fmt.Errorf("failed to encode feature filter: %w", err)
			}
			conds[i] = "iterations.features @> ?::jsonb"
			vars[i] = string(doc)
		}
		q = q.Where("("+strings.Join(conds, " OR ")+")", vars...)
	}
	return q, nil
}

// orderIterations mirrors orderCollections for the iteration family
func orderIterations(q *gorm.DB, sorts []SortField, rankedIDs []string) (*gorm.DB, error) {
	var parts []string
	var vars []any

	if rankedIDs != nil && (len(sorts) == 0 || hasSort(sorts, "relevance")) {
		parts = append(parts, "array_position(ARRAY[?]::text[], iterations.version || '-' || iterations.id::text)")
		vars = append(vars, rankedIDs)
		sorts = removeSort(sorts, "relevance")
	} else if hasSort(sorts, "relevance") {
		return nil, fmt.Errorf("%w: relevance sort requires a search query", domain.ErrUnknownSortField)
	}

	for _, sort := range sorts {
		column, ok := iterationSortColumns[sort.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		parts = append(parts, column+" "+sortDirection(sort.Desc))
	}
	if len(parts) == 0 {
		parts = append(parts, "iterations.created_at DESC")
	}

	parts = append(parts, "iterations.id ASC", "iterations.version ASC")

	return q.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                strings.Join(parts, ", "),
		Vars:               vars,
		WithoutParentheses: true,
	}}), nil
}
