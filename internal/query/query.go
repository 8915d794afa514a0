package query

import (
	"github.com/bkmr/bkmr/internal/store"
)

// TagArgs mirrors the CLI's four quantifier flags plus their "-prefix"
// counterparts: the effective set for each quantifier is the union of the
// base set with its prefix default, before being handed to the store.
type TagArgs struct {
	All, AllPrefix       []string
	Any, AnyPrefix       []string
	NotAll, NotAllPrefix []string
	NotAny, NotAnyPrefix []string
	Exact                []string
}

// Request describes one search invocation before it is compiled into a
// store.Filter.
type Request struct {
	Text     string
	Tags     TagArgs
	Order    store.Ordering
	Limit    int
	HasLimit bool
}

// Compile translates a Request into a store.Filter, expanding the DSL and
// unioning each tag quantifier with its prefix default.
func Compile(req Request) (store.Filter, error) {
	ftsExpr, err := Translate(req.Text)
	if err != nil {
		return store.Filter{}, err
	}

	return store.Filter{
		FTSQuery: ftsExpr,
		Tags: store.TagPredicate{
			All:    union(req.Tags.All, req.Tags.AllPrefix),
			Any:    union(req.Tags.Any, req.Tags.AnyPrefix),
			NotAll: union(req.Tags.NotAll, req.Tags.NotAllPrefix),
			NotAny: union(req.Tags.NotAny, req.Tags.NotAnyPrefix),
			Exact:  req.Tags.Exact,
		},
		Order:    req.Order,
		Limit:    req.Limit,
		HasLimit: req.HasLimit,
	}, nil
}

func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, set := range [][]string{a, b} {
		for _, tok := range set {
			if tok == "" {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
