package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/gen-art/marketplace-api/internal/domain"
)

const (
	// DEFAULT_PAGE_SIZE applies when a list query has no limit
	DEFAULT_PAGE_SIZE = 20
	// MAX_PAGE_SIZE caps any list query's page
	MAX_PAGE_SIZE = 100
)

// filter operators; the suffix of a "{field}_{operator}" filter key
const (
	opEq    = "eq"
	opNe    = "ne"
	opGt    = "gt"
	opGte   = "gte"
	opLt    = "lt"
	opLte   = "lte"
	opIn    = "in"
	opExist = "exist"
)

// splitFilterKey splits "price_gte" into ("price", "gte"). The operator is
// the part after the last underscore so camelCase field names pass through.
func splitFilterKey(key string) (field string, op string, ok bool) {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// applyColumnFilters maps every remaining filter key onto its column through
// the family's allow-list. Keys already consumed by special-case handling
// are listed in handled. A key whose field is not on the allow-list rejects
// the whole filter set; arbitrary field names never reach the SQL layer.
func applyColumnFilters(q *gorm.DB, filters Filters, allowed map[string]string, handled map[string]bool) (*gorm.DB, error) {
	for key, value := range filters {
		if handled[key] {
			continue
		}

		field, op, ok := splitFilterKey(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFilterField, key)
		}

		column, ok := allowed[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFilterField, field)
		}

		var err error
		q, err = applyOperator(q, column, op, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, key)
		}
	}
	return q, nil
}

// applyOperator appends one predicate for a column
func applyOperator(q *gorm.DB, column, op string, value any) (*gorm.DB, error) {
	switch op {
	case opEq:
		return q.Where(column+" = ?", value), nil
	case opNe:
		return q.Where(column+" <> ?", value), nil
	case opGt:
		return q.Where(column+" > ?", value), nil
	case opGte:
		return q.Where(column+" >= ?", value), nil
	case opLt:
		return q.Where(column+" < ?", value), nil
	case opLte:
		return q.Where(column+" <= ?", value), nil
	case opIn:
		return q.Where(column+" IN ?", value), nil
	case opExist:
		if truthy(value) {
			return q.Where(column + " IS NOT NULL"), nil
		}
		return q.Where(column + " IS NULL"), nil
	default:
		return nil, domain.ErrUnknownFilterField
	}
}

// truthy interprets a JSON-decoded operand as a boolean
func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	case float64:
		return v != 0
	default:
		return false
	}
}

// stringSlice coerces a JSON-decoded array operand into strings
func stringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// parseIDOperand parses a JSON-decoded array of serialized composite ids.
// One malformed id fails the whole filter set, per the boundary contract.
func parseIDOperand(value any) ([]domain.EntityID, error) {
	ss, ok := stringSlice(value)
	if !ok {
		return nil, fmt.Errorf("%w: id filter operand must be a string list", domain.ErrInvalidEntityID)
	}
	return domain.ParseEntityIDs(ss)
}

// entityIDTuples renders composite ids as (id, version) tuples for a
// composite IN predicate
func entityIDTuples(ids []domain.EntityID) [][]any {
	tuples := make([][]any, len(ids))
	for i, id := range ids {
		tuples[i] = []any{id.ID, string(id.Version)}
	}
	return tuples
}

// serializeIDs renders composite ids in their canonical string form
func serializeIDs(ids []domain.EntityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// normalizePage clamps pagination to sane bounds
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DEFAULT_PAGE_SIZE
	}
	if limit > MAX_PAGE_SIZE {
		limit = MAX_PAGE_SIZE
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// sortDirection renders a SortField's direction
func sortDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// hasSort reports whether a sort list contains a field
func hasSort(sorts []SortField, field string) bool {
	for _, s := range sorts {
		if s.Field == field {
			return true
		}
	}
	return false
}

// removeSort drops a field from a sort list, preserving order
func removeSort(sorts []SortField, field string) []SortField {
	out := make([]SortField, 0, len(sorts))
	for _, s := range sorts {
		if s.Field != field {
			out = append(out, s)
		}
	}
	return out
}
