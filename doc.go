// Package ecs implements a data-oriented Entity-Component-System runtime:
// versioned entity handles, dense per-type component pools with reference
// counting for same-as aliasing, an incrementally-maintained bitset of
// component membership per entity, a typed synchronous publish/subscribe
// bus, and the query-set machinery (EntitySet, EntitySortedSet, EntityMap,
// EntityMultiMap) that reacts to lifecycle events.
//
// The core is single-threaded and cooperative: every mutating call and
// every publisher dispatch runs on the caller's goroutine. External callers
// may parallelize read-only iteration over a query set's snapshot (see
// internal/parallel), but writes and dispatch must come from one goroutine.
package ecs
