// Package query turns the user-facing search surface (a text DSL plus
// tag-set quantifiers, an ordering, and a limit) into the store.Filter the
// persistence layer understands, and drives the semantic (vector) query
// mode over the same tag pre-filter.
package query

import (
	"regexp"
	"strings"

	"github.com/bkmr/bkmr/internal/apperr"
)

// ftsColumns maps the DSL's short column names onto the items_fts column names.
var ftsColumns = map[string]string{
	"url":         "url",
	"metadata":    "metadata",
	"desc":        "description",
	"description": "description",
	"tags":        "tags",
}

// columnPrefixRe matches a candidate column-qualifier at the start of a
// term: a bare word immediately followed by ':' and then a non-slash
// character, so a quoted URL value like "http://example.com" is never
// mistaken for a col:term qualifier.
var columnPrefixRe = regexp.MustCompile(`(?i)(^|[\s(])([a-z]+):([^/]|$)`)

// Translate passes a DSL query string through to the FTS grammar
// unchanged except for expanding column-qualified terms (col:term) to the
// underlying FTS column name. An empty string means "match all items" and
// is returned unchanged. Unknown column names are rejected early as
// BadQuery rather than left to surface a raw FTS5 parse error.
func Translate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	var badCol string
	out := columnPrefixRe.ReplaceAllStringFunc(raw, func(match string) string {
		sub := columnPrefixRe.FindStringSubmatch(match)
		lead, col, tail := sub[1], strings.ToLower(sub[2]), sub[3]
		mapped, ok := ftsColumns[col]
		if !ok {
			badCol = col
			return match
		}
		return lead + mapped + ":" + tail
	})
	if badCol != "" {
		return "", apperr.New(apperr.CodeBadQuery, "unknown search column: "+badCol, nil)
	}
	return out, nil
}
