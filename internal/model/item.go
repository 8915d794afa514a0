// Package model defines the Item entity that bkmr stores, searches, and
// dispatches actions against, along with the reserved system-tag vocabulary
// that the action resolver consumes.
package model

import (
	"sort"
	"strings"
	"time"
)

// SystemTag is a reserved token, always wrapped in underscores, that the
// action resolver inspects to pick a content-type-specific action. The set
// is closed: new content types are added as new constants here, never as
// arbitrary data.
type SystemTag string

const (
	// SystemTagSnippet marks content that is copied to the clipboard.
	SystemTagSnippet SystemTag = "_snip_"
	// SystemTagShell marks content executed by a shell.
	SystemTagShell SystemTag = "_shell_"
	// SystemTagMarkdown marks content rendered to HTML and opened in a browser.
	SystemTagMarkdown SystemTag = "_md_"
	// SystemTagEnv marks content printed to stdout for shell sourcing.
	SystemTagEnv SystemTag = "_env_"
	// SystemTagImported marks plain imported text copied to the clipboard.
	SystemTagImported SystemTag = "_imported_"
)

// systemTagPrecedence is the fixed resolution order: the first system tag
// present on an item wins.
var systemTagPrecedence = []SystemTag{
	SystemTagSnippet,
	SystemTagShell,
	SystemTagMarkdown,
	SystemTagEnv,
	SystemTagImported,
}

// AllSystemTags returns the closed set of reserved tags, in precedence order.
func AllSystemTags() []SystemTag {
	out := make([]SystemTag, len(systemTagPrecedence))
	copy(out, systemTagPrecedence)
	return out
}

// IsSystemTag reports whether token is one of the reserved system tags.
func IsSystemTag(token string) bool {
	for _, st := range systemTagPrecedence {
		if string(st) == token {
			return true
		}
	}
	return false
}

// Item is the single store entity: a tagged, searchable, executable record
// that may represent a URL, a snippet, a script, a markdown note, an env
// bundle, or a file reference.
type Item struct {
	ID           int64
	URL          string
	Metadata     string
	Description  string
	Tags         string // canonical form, see CanonicalizeTags
	Flags        int64
	LastUpdateTS time.Time
	CreatedTS    *time.Time
	Embeddable   bool
	Embedding    []byte
	ContentHash  []byte
	FilePath     *string
	FileMtime    *int64
	FileHash     *string
	AccessCount  int64
}

// TagSet returns the item's tags as a sorted, deduplicated token slice,
// decoded from the canonical on-disk string.
func (it *Item) TagSet() []string {
	return DecodeTags(it.Tags)
}

// NonSystemTags returns the item's tags with reserved system tags filtered
// out, the form most user-facing tag listings display.
func (it *Item) NonSystemTags() []string {
	all := it.TagSet()
	out := make([]string, 0, len(all))
	for _, t := range all {
		if !IsSystemTag(t) {
			out = append(out, t)
		}
	}
	return out
}

// ResolvedSystemTag returns the system tag that applies to this item under
// the fixed precedence order, or "" if none of the reserved tags are present
// (meaning the default URI action applies).
func (it *Item) ResolvedSystemTag() SystemTag {
	present := make(map[string]bool)
	for _, t := range it.TagSet() {
		present[t] = true
	}
	for _, st := range systemTagPrecedence {
		if present[string(st)] {
			return st
		}
	}
	return ""
}

// CanonicalizeTags normalizes a free-form list of tag tokens into the
// on-disk canonical form: lowercased, deduplicated, sorted lexicographically,
// comma-delimited with a leading and trailing comma. An empty token set
// canonicalizes to the empty string. CanonicalizeTags is idempotent:
// canonicalizing an already-canonical string yields the same string.
func CanonicalizeTags(tokens []string) (string, error) {
	seen := make(map[string]struct{}, len(tokens))
	clean := make([]string, 0, len(tokens))
	for _, raw := range tokens {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		if strings.ContainsAny(tok, ", \t\n\r") {
			return "", &BadTagTokenError{Token: raw}
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		clean = append(clean, tok)
	}
	if len(clean) == 0 {
		return "", nil
	}
	sort.Strings(clean)
	return "," + strings.Join(clean, ",") + ",", nil
}

// DecodeTags splits a canonical tag string back into its sorted token slice.
// It tolerates the empty string (no tags) and is forgiving of malformed
// input so callers can decode legacy rows without panicking.
func DecodeTags(canonical string) []string {
	trimmed := strings.Trim(canonical, ",")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MergeTags combines a primary token set with a caller-supplied "prefix" set
// (the effective set is their union) and returns the canonical form of the
// union.
func MergeTags(primary, prefix []string) (string, error) {
	union := make([]string, 0, len(primary)+len(prefix))
	union = append(union, primary...)
	union = append(union, prefix...)
	return CanonicalizeTags(union)
}

// BadTagTokenError reports a tag token that cannot be stored because it
// contains a comma or whitespace, which would break the delimiter invariant
// the canonical form relies on for safe substring matching.
type BadTagTokenError struct {
	Token string
}

func (e *BadTagTokenError) Error() string {
	return "bad tag token: " + e.Token
}

// ContainsToken reports whether the canonical tag string contains token as
// an exact member of the token set. It relies on the leading/trailing comma
// invariant: a token is present iff ",token," is a substring.
func ContainsToken(canonical, token string) bool {
	return strings.Contains(canonical, ","+token+",")
}

// EmbeddingInput returns the fixed concatenation of user-visible fields that
// feeds the embedding content-hash. The field order and delimiter are
// frozen: changing them silently invalidates every stored hash.
func (it *Item) EmbeddingInput() string {
	const sep = "\x1f"
	return it.Metadata + sep + it.Description + sep + it.URL + sep + it.Tags
}
