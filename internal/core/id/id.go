// Package id provides the identifier type shared by customers, products,
// sales and their side records.
package id

import (
	"sort"

	"github.com/google/uuid"
)

// ID is a UUID. New values are UUIDv7 so they sort by creation time.
type ID = uuid.UUID

// New generates a UUIDv7, falling back to v4 if the clock source fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts a string to an ID.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse panics on malformed input. Tests and constants only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks for the zero value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// SortedUnique returns the distinct ids in byte order.
// Row locks are always taken in this order.
func SortedUnique(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, v := range ids {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
