package querycache

import (
	"encoding/json"
	"strings"
)

// Key identifies a cached query result as an ordered tuple of primitives,
// e.g. K("products", filtersHash) or K("users", id, "products", filtersHash).
// Equality is structural.
type Key []string

// K builds a key from its tuple parts.
func K(parts ...string) Key {
	return Key(parts)
}

// Equal reports structural equality of two keys.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// canonical returns an unambiguous string encoding used for map addressing.
// JSON encoding keeps ["a","b c"] and ["a","b","c"] distinct.
func (k Key) canonical() string {
	data, err := json.Marshal([]string(k))
	if err != nil {
		return strings.Join(k, "\x1f")
	}
	return string(data)
}

func (k Key) String() string {
	return k.canonical()
}

// clone returns an independent copy so stored keys never alias caller slices.
func (k Key) clone() Key {
	dup := make(Key, len(k))
	copy(dup, k)
	return dup
}
