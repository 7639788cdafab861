package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// articleFilterColumns is the filterable-field allow-list for articles
var articleFilterColumns = map[string]string{
	"id":              "articles.id",
	"slug":            "articles.slug",
	"author":          "articles.author_id",
	"title":           "articles.title",
	"moderationState": "articles.moderation_state",
	"createdAt":       "articles.created_at",
}

// articleSortColumns is the sortable-field allow-list for articles
var articleSortColumns = map[string]string{
	"title":     "articles.title",
	"createdAt": "articles.created_at",
}

// GetArticles runs a filtered, sorted, paginated article query
func (s *pgStore) GetArticles(ctx context.Context, params ListParams) ([]schema.Article, int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.Article{})
	handled := map[string]bool{}
	sorts := params.Sort

	var rankedIDs []string
	if raw, ok := params.Filters["searchQuery_eq"]; ok {
		handled["searchQuery_eq"] = true
		query, ok := raw.(string)
		if !ok {
			return nil, 0, fmt.Errorf("%w: searchQuery_eq operand must be a string", domain.ErrUnknownFilterField)
		}
		ids, err := s.search.SearchArticles(ctx, query, params.Limit+params.Offset)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []schema.Article{}, 0, nil
		}
		numeric := make([]int64, len(ids))
		for i, id := range ids {
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("search returned malformed article id %q", id)
			}
			numeric[i] = n
		}
		rankedIDs = ids
		q = q.Where("articles.id IN ?", numeric)
	}

	q, err := applyColumnFilters(q, params.Filters, articleFilterColumns, handled)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	var parts []string
	var vars []any
	if rankedIDs != nil && (len(sorts) == 0 || hasSort(sorts, "relevance")) {
		parts = append(parts, "array_position(ARRAY[?]::text[], articles.id::text)")
		vars = append(vars, rankedIDs)
		sorts = removeSort(sorts, "relevance")
	} else if hasSort(sorts, "relevance") {
		return nil, 0, fmt.Errorf("%w: relevance sort requires a search query", domain.ErrUnknownSortField)
	}
	for _, sort := range sorts {
		column, ok := articleSortColumns[sort.Field]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownSortField, sort.Field)
		}
		parts = append(parts, column+" "+sortDirection(sort.Desc))
	}
	if len(parts) == 0 {
		parts = append(parts, "articles.created_at DESC")
	}
	parts = append(parts, "articles.id ASC")
	q = q.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                strings.Join(parts, ", "),
		Vars:               vars,
		WithoutParentheses: true,
	}})

	limit, offset := normalizePage(params.Limit, params.Offset)
	var articles []schema.Article
	err = q.Limit(limit).Offset(offset).Find(&articles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get articles: %w", err)
	}
	return articles, total, nil
}
