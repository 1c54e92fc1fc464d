package querycache

// Any is the wildcard shape element: it matches every tuple value in its
// position. It lets a mutation invalidate "every per-user product list"
// without enumerating user IDs.
const Any = "*"

// Predicate decides, from a key's shape alone, whether the entry it
// addresses is stale after some mutation.
type Predicate func(Key) bool

// First matches keys whose first element equals v.
func First(v string) Predicate {
	return func(k Key) bool {
		return len(k) > 0 && k[0] == v
	}
}

// Shape matches keys that start with the given tuple pattern, where Any
// matches any single element. Shape("users", Any, "products") matches
// ["users", "42", "products", "h1"] but not ["users", "42", "favorites"].
func Shape(pattern ...string) Predicate {
	parts := make([]string, len(pattern))
	copy(parts, pattern)
	return func(k Key) bool {
		if len(k) < len(parts) {
			return false
		}
		for i, p := range parts {
			if p != Any && k[i] != p {
				return false
			}
		}
		return true
	}
}

// Exact matches a single key structurally.
func Exact(key Key) Predicate {
	match := key.clone()
	return func(k Key) bool {
		return k.Equal(match)
	}
}

// Or combines predicates; the result matches when any of them does.
func Or(preds ...Predicate) Predicate {
	return func(k Key) bool {
		for _, p := range preds {
			if p != nil && p(k) {
				return true
			}
		}
		return false
	}
}
