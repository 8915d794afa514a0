package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
)

// Ordering enumerates the result orderings. Relevance is only meaningful
// when a text predicate is present.
type Ordering string

const (
	OrderRelevance   Ordering = "relevance"
	OrderCreatedAsc  Ordering = "created_asc"
	OrderCreatedDesc Ordering = "created_desc"
	OrderUpdatedAsc  Ordering = "updated_asc"
	OrderUpdatedDesc Ordering = "updated_desc"
	OrderRandom      Ordering = "random"
)

// TagPredicate combines the four tag-set quantifiers, each operating on the
// union of its base set with a caller-supplied "prefix" default set (A ∪ P).
type TagPredicate struct {
	All    []string
	Any    []string
	NotAll []string
	NotAny []string
	Exact  []string
}

// IsZero reports whether the predicate carries no constraints at all.
func (p TagPredicate) IsZero() bool {
	return len(p.All) == 0 && len(p.Any) == 0 && len(p.NotAll) == 0 && len(p.NotAny) == 0 && len(p.Exact) == 0
}

// Filter describes one List() query: an optional FTS match expression
// (already expanded from the column-qualified DSL by the query package),
// an optional tag predicate, an ordering, and an optional limit.
type Filter struct {
	FTSQuery string // empty means "match all items"
	Tags     TagPredicate
	Order    Ordering
	Limit    int // 0 means "no limit"; callers wanting zero results pass HasLimit with Limit 0
	HasLimit bool
}

// List returns items matching filter, combining an independent text
// predicate, tag predicate, ordering, and limit.
func (s *Store) List(ctx context.Context, filter Filter) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.HasLimit && filter.Limit == 0 {
		return []*model.Item{}, nil
	}

	var (
		selectCols = QualifiedItemColumns("items")
		joins      []string
		wheres     []string
		args       []any
		orderBy    string
	)

	if strings.TrimSpace(filter.FTSQuery) != "" {
		joins = append(joins, `JOIN items_fts ON items_fts.rowid = items.id`)
		wheres = append(wheres, `items_fts MATCH ?`)
		args = append(args, filter.FTSQuery)
		if filter.Order == "" || filter.Order == OrderRelevance {
			orderBy = "bm25(items_fts)"
		}
	}

	tagWhere, tagArgs, err := buildTagWhere(filter.Tags)
	if err != nil {
		return nil, err
	}
	if tagWhere != "" {
		wheres = append(wheres, tagWhere)
		args = append(args, tagArgs...)
	}

	if orderBy == "" {
		switch filter.Order {
		case OrderCreatedAsc:
			orderBy = "items.created_ts ASC"
		case OrderCreatedDesc:
			orderBy = "items.created_ts DESC"
		case OrderUpdatedAsc:
			orderBy = "items.last_update_ts ASC"
		case OrderUpdatedDesc:
			orderBy = "items.last_update_ts DESC"
		case OrderRandom:
			orderBy = "RANDOM()"
		default:
			orderBy = "items.id ASC"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM items", selectCols)
	for _, j := range joins {
		query += " " + j
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY " + orderBy
	if filter.HasLimit {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, apperr.New(apperr.CodeBadQuery, fmt.Sprintf("invalid search query: %s", filter.FTSQuery), err)
		}
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while listing items", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while listing items", err)
	}
	return items, nil
}

// buildTagWhere renders the tag predicate as SQL substring-match clauses
// over the canonical delimited tags column, honoring the invariant that
// ",token," substring match is safe for a correctly-canonicalised set.
func buildTagWhere(p TagPredicate) (string, []any, error) {
	if p.IsZero() {
		return "", nil, nil
	}

	var clauses []string
	var args []any

	for _, tok := range p.All {
		clauses = append(clauses, "items.tags LIKE ?")
		args = append(args, "%,"+tok+",%")
	}

	if len(p.Any) > 0 {
		var any []string
		for _, tok := range p.Any {
			any = append(any, "items.tags LIKE ?")
			args = append(args, "%,"+tok+",%")
		}
		clauses = append(clauses, "("+strings.Join(any, " OR ")+")")
	}

	if len(p.NotAll) > 0 {
		var all []string
		for _, tok := range p.NotAll {
			all = append(all, "items.tags LIKE ?")
			args = append(args, "%,"+tok+",%")
		}
		clauses = append(clauses, "NOT ("+strings.Join(all, " AND ")+")")
	}

	for _, tok := range p.NotAny {
		clauses = append(clauses, "items.tags NOT LIKE ?")
		args = append(args, "%,"+tok+",%")
	}

	if len(p.Exact) > 0 {
		canonical, err := model.CanonicalizeTags(p.Exact)
		if err != nil {
			return "", nil, apperr.Wrap(apperr.CodeBadTagToken, "while building tag filter", err)
		}
		clauses = append(clauses, "items.tags = ?")
		args = append(args, canonical)
	}

	return strings.Join(clauses, " AND "), args, nil
}
