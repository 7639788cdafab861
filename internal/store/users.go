package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// userFilterColumns is the filterable-field allow-list for users
var userFilterColumns = map[string]string{
	"id":              "users.id",
	"name":            "users.name",
	"moderationState": "users.moderation_state",
	"createdAt":       "users.created_at",
}

// userSortColumns is the sortable-field allow-list for users
var userSortColumns = map[string]string{
	"name":      "users.name",
	"createdAt": "users.created_at",
}

// GetUsers runs a filtered, sorted, paginated user query
func (s *pgStore) GetUsers(ctx context.Context, params ListParams) ([]schema.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.User{})
	handled := map[string]bool{}
	sorts := params.Sort

	var rankedIDs []string
	if raw, ok := params.Filters["searchQuery_eq"]; ok {
		handled["searchQuery_eq"] = true
		query, ok := raw.(string)
		if !ok {
			return nil, 0, fmt.Errorf("%w: searchQuery_eq operand must be a string", domain.ErrUnknownFilterField)
		}
		ids, err := s.search.SearchUsers(ctx, query, params.Limit+params.Offset)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []schema.User{}, 0, nil
		}
		rankedIDs = ids
		q = q.Where("users.id IN ?", ids)
	}

	q, err := applyColumnFilters(q, params.Filters, userFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var parts []string
	var vars []any
	if rankedIDs != nil && (len(sorts) == 0 || hasSort(sorts, "relevance")) {
		parts = append(parts, "array_position(ARRAY[?]::text[], users.id)")
		vars = append(vars, rankedIDs)
		sorts = removeSort(sorts, "relevance")
	} else if hasSort(sorts, "relevance") {
		return nil, 0, fmt.Errorf("%w: relevance sort requires a search query", domain.ErrUnknownSortField)
	}
	for _, sort := range sorts {
		column, ok := userSortColumns[sort.Field]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		parts = append(parts, column+" "+sortDirection(sort.Desc))
	}
	if len(parts) == 0 {
		parts = append(parts, "users.created_at DESC")
	}
	parts = append(parts, "users.id ASC")
	q = q.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                strings.Join(parts, ", "),
		Vars:               vars,
		WithoutParentheses: true,
	}})

	limit, offset := normalizePage(params.Limit, params.Offset)
	var users []schema.User
	err = q.Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get users: %w", err)
	}
	return users, total, nil
}
