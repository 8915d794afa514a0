package cmd

import (
	"strconv"
	"strings"
)

// parseIDList splits a comma-separated id list into int64 ids, trimming
// whitespace around each token.
func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, badQuery("not a valid item id: " + p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, badQuery("no item ids given")
	}
	return ids, nil
}
