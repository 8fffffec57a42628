package query

import (
	"net/url"
	"strings"
)

// Key identifies a cached query: a resource type followed by its parameters,
// for example K("userConversation", "u42").
type Key []string

// K builds a Key from its parts.
func K(parts ...string) Key {
	return Key(parts)
}

// String renders the key for logs. Distinct keys may render alike when an
// element contains a slash; use id for lookups.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// id is the map identity of k. Elements are escaped so "/" inside an id
// cannot merge two elements.
func (k Key) id() string {
	parts := make([]string, len(k))
	for i, part := range k {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// HasPrefix reports whether prefix matches the leading elements of k.
// Matching is element-wise, so "post" does not match "posts".
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) clone() Key {
	dup := make(Key, len(k))
	copy(dup, k)
	return dup
}
