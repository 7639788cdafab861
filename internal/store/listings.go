package store

import (
	"context"
	"fmt"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// listingFilterColumns is the filterable-field allow-list for listings
var listingFilterColumns = map[string]string{
	"seller":     "listings.seller_id",
	"price":      "listings.price",
	"acceptedAt": "listings.accepted_at",
	"canceledAt": "listings.canceled_at",
	"createdAt":  "listings.created_at",
}

// listingSortColumns is the sortable-field allow-list for listings
var listingSortColumns = map[string]string{
	"price":     "listings.price",
	"createdAt": "listings.created_at",
}

// GetListings runs a filtered, sorted, paginated listing query
func (s *pgStore) GetListings(ctx context.Context, params ListParams) ([]schema.Listing, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.Listing{})
	handled := map[string]bool{}

	if raw, ok := params.Filters["active_eq"]; ok {
		handled["active_eq"] = true
		if truthy(raw) {
			q = q.Where("listings.accepted_at IS NULL AND listings.canceled_at IS NULL")
		} else {
			q = q.Where("listings.accepted_at IS NOT NULL OR listings.canceled_at IS NOT NULL")
		}
	}

	if raw, ok := params.Filters["iteration_eq"]; ok {
		handled["iteration_eq"] = true
		serialized, okStr := raw.(string)
		if !okStr {
			return nil, 0, fmt.Errorf("%w: iteration_eq operand must be a string", domain.ErrInvalidEntityID)
		}
		id, err := domain.ParseEntityID(serialized)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("listings.iteration_id = ? AND listings.iteration_version = ?", id.ID, string(id.Version))
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
		q = q.Joins("JOIN iterations ON iterations.id = listings.iteration_id AND iterations.version = listings.iteration_version").
			Where("iterations.collection_id = ? AND iterations.collection_version = ?", id.ID, string(id.Version))
	}

	q, err := applyColumnFilters(q, params.Filters, listingFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	for _, sort := range params.Sort {
		column, ok := listingSortColumns[sort.Field]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		q = q.Order(column + " " + sortDirection(sort.Desc))
	}
	if len(params.Sort) == 0 {
		q = q.Order("listings.created_at DESC")
	}
	q = q.Order("listings.id ASC")

	limit, offset := normalizePage(params.Limit, params.Offset)
	var listings []schema.Listing
	err = q.Limit(limit).Offset(offset).Find(&listings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get listings: %w", err)
	}
	return listings, total, nil
}
