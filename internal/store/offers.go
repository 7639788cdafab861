package store

import (
	"context"
	"fmt"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// offerFilterColumns is the filterable-field allow-list for offers
var offerFilterColumns = map[string]string{
	"buyer":      "offers.buyer_id",
	"price":      "offers.price",
	"acceptedAt": "offers.accepted_at",
	"canceledAt": "offers.canceled_at",
	"createdAt":  "offers.created_at",
}

// offerSortColumns is the sortable-field allow-list for offers
var offerSortColumns = map[string]string{
	"price":     "offers.price",
	"createdAt": "offers.created_at",
}

// GetOffers runs a filtered, sorted, paginated offer query
func (s *pgStore) GetOffers(ctx context.Context, params ListParams) ([]schema.Offer, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.Offer{})
	handled := map[string]bool{}

	if raw, ok := params.Filters["active_eq"]; ok {
		handled["active_eq"] = true
		if truthy(raw) {
			q = q.Where("offers.accepted_at IS NULL AND offers.canceled_at IS NULL")
		} else {
			q = q.Where("offers.accepted_at IS NOT NULL OR offers.canceled_at IS NOT NULL")
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
		q = q.Where("offers.iteration_id = ? AND offers.iteration_version = ?", id.ID, string(id.Version))
	}

	q, err := applyColumnFilters(q, params.Filters, offerFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}

	for _, sort := range params.Sort {
		column, ok := offerSortColumns[sort.Field]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		q = q.Order(column + " " + sortDirection(sort.Desc))
	}
	if len(params.Sort) == 0 {
		q = q.Order("offers.created_at DESC")
	}
	q = q.Order("offers.id ASC")

	limit, offset := normalizePage(params.Limit, params.Offset)
	var offers []schema.Offer
	err = q.Limit(limit).Offset(offset).Find(&offers).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get offers: %w", err)
	}
	return offers, total, nil
}
