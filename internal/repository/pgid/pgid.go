// Package pgid normalizes caller-supplied ids before they reach uuid columns,
// so queries compare against the primary key index instead of casting it.
package pgid

import "github.com/google/uuid"

// Parse reports whether id is a uuid. A malformed id cannot match any row.
func Parse(id string) (uuid.UUID, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

// ParseAll keeps the well-formed ids and drops the rest.
func ParseAll(ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, ok := Parse(id); ok {
			out = append(out, u)
		}
	}
	return out
}
