package store

import (
	"context"
	"fmt"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// mintTicketFilterColumns is the filterable-field allow-list for mint tickets
var mintTicketFilterColumns = map[string]string{
	"owner":               "mint_tickets.owner_id",
	"price":               "mint_tickets.price",
	"taxationLockedUntil": "mint_tickets.taxation_locked_until",
	"consumedAt":          "mint_tickets.consumed_at",
	"createdAt":           "mint_tickets.created_at",
}

// mintTicketSortColumns is the sortable-field allow-list for mint tickets
var mintTicketSortColumns = map[string]string{
	"price":               "mint_tickets.price",
	"taxationLockedUntil": "mint_tickets.taxation_locked_until",
	"createdAt":           "mint_tickets.created_at",
}

// GetMintTickets runs a filtered, sorted, paginated mint-ticket query
func (s *pgStore) GetMintTickets(ctx context.Context, params ListParams) ([]schema.MintTicket, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.MintTicket{})
	handled := map[string]bool{}

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
		q = q.Where("mint_tickets.collection_id = ? AND mint_tickets.collection_version = ?", id.ID, string(id.Version))
	}

	q, err := applyColumnFilters(q, params.Filters, mintTicketFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count mint tickets: %w", err)
	}

	for _, sort := range params.Sort {
		column, ok := mintTicketSortColumns[sort.Field]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		q = q.Order(column + " " + sortDirection(sort.Desc))
	}
	if len(params.Sort) == 0 {
		q = q.Order("mint_tickets.created_at DESC")
	}
	q = q.Order("mint_tickets.id ASC")

	limit, offset := normalizePage(params.Limit, params.Offset)
	var tickets []schema.MintTicket
	err = q.Limit(limit).Offset(offset).Find(&tickets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get mint tickets: %w", err)
	}
	return tickets, total, nil
}
