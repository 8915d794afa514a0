package render

import (
	"os"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/bkmr/bkmr/internal/model"
)

// itemContext builds the per-item render context: the item's scalar fields,
// current_date, and the env_* / env() surface.
func itemContext(it *model.Item, now time.Time) pongo2.Context {
	var createdAt time.Time
	if it.CreatedTS != nil {
		createdAt = *it.CreatedTS
	}

	ctx := pongo2.Context{
		"id":           it.ID,
		"title":        it.Metadata,
		"description":  it.Description,
		"access_count": it.AccessCount,
		"created_at":   createdAt,
		"updated_at":   it.LastUpdateTS,
		"tags":         it.TagSet(),
		"current_date": now,
		"env": func(name string, fallback string) string {
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			return fallback
		},
	}

	for _, kv := range os.Environ() {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		ctx["env_"+kv[:idx]] = kv[idx+1:]
	}

	return ctx
}
