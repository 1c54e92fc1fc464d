// Package querycache implements the normalized query cache behind the
// storefront services. Results are addressed by structured tuple keys,
// concurrent reads of one key share a single in-flight fetch, and mutations
// mark dependent entries stale through shape predicates over the key tuple
// (for example "every per-user product list") instead of enumerating the
// affected keys.
package querycache
