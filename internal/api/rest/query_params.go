package rest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gen-art/marketplace-api/internal/store"
)

const (
	// DEFAULT_PAGE_SIZE is the page size used when the client omits a limit
	DEFAULT_PAGE_SIZE = 20
	// MAX_PAGE_SIZE caps the page size a client may request
	MAX_PAGE_SIZE = 100
)

// parseListParams extracts filters, sorts and pagination from the request
// query string.
//
// Filters arrive as a single JSON object in the "filters" parameter so that
// operand types survive the trip (numbers stay numbers, arrays stay arrays).
// Sorts arrive as "sort=field:asc,other:desc"; pagination as integer "limit"
// and "offset".
func parseListParams(c *gin.Context) (store.ListParams, error) {
	params := store.ListParams{
		Filters: store.Filters{},
	}

	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Filters); err != nil {
			return params, fmt.Errorf("malformed filters parameter: %w", err)
		}
	}

	sorts, err := parseSorts(c.Query("sort"))
	if err != nil {
		return params, err
	}
	params.Sort = sorts

	params.Limit, params.Offset, err = parsePagination(c)
	return params, err
}

func parseSorts(raw string) ([]store.SortField, error) {
	if raw == "" {
		return nil, nil
	}

	var sorts []store.SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field, direction, found := strings.Cut(part, ":")
		sort := store.SortField{Field: field}
		if found {
			switch strings.ToLower(direction) {
			case "asc":
			case "desc":
				sort.Desc = true
			default:
				return nil, fmt.Errorf("invalid sort direction %q", direction)
			}
		}
		sorts = append(sorts, sort)
	}
	return sorts, nil
}

func parsePagination(c *gin.Context) (limit, offset int, err error) {
	limit = DEFAULT_PAGE_SIZE
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("invalid limit parameter %q", raw)
		}
		if limit == 0 {
			limit = DEFAULT_PAGE_SIZE
		}
		if limit > MAX_PAGE_SIZE {
			limit = MAX_PAGE_SIZE
		}
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter %q", raw)
		}
	}
	return limit, offset, nil
}

// parseExpand returns the requested expansion set. Unknown expansion names
// are rejected so typos fail loudly instead of silently returning a bare
// resource.
func parseExpand(c *gin.Context, allowed ...string) (map[string]bool, error) {
	expand := map[string]bool{}
	raw := c.Query("expand")
	if raw == "" {
		return expand, nil
	}

	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		valid := false
		for _, a := range allowed {
			if name == a {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unknown expansion %q", name)
		}
		expand[name] = true
	}
	return expand, nil
}

// parseTimeRange reads the "from" and "to" RFC 3339 parameters of the stats
// history endpoint. Both are required; an empty range is rejected.
func parseTimeRange(c *gin.Context) (from, to time.Time, err error) {
	from, err = time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from parameter: %w", err)
	}
	to, err = time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to parameter: %w", err)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must be after from")
	}
	return from, to, nil
}
