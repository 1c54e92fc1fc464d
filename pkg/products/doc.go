// Package products is the resource service for marketplace listings: the
// filtered/paginated list, single-listing reads, the create/update/delete
// and status mutations, and similar-listing lookups. Reads are cached under
// structured keys derived from the filter hash; every successful mutation
// runs the shared product invalidation predicate before returning so
// dependent lists (global and per-user) are marked refetchable in order.
package products
