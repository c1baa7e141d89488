// Package scheduler implements the shard fetch scheduler: a request cache
// keyed by shard key in front of a FIFO dispatch queue with a fixed
// concurrency ceiling.
//
// # Overview
//
// Resolving one aircraft touches one to a handful of shard documents, and a
// busy map view resolves many aircraft at once. Most of those lookups hit
// the same few shards. The scheduler makes sure each shard is fetched once
// and that fetches go out one at a time:
//
//	Fetch("A") ─┐
//	Fetch("A") ─┼─► cache ─► queue ─► dispatch (≤ ceiling) ─► transport
//	Fetch("3C")─┘    │                     │
//	                 └──── settle ◄────────┘
//
// # Request Lifecycle
//
//  1. Fetch looks up the shard key in the cache. An existing entry, pending
//     or settled, is returned to the caller as-is.
//  2. A missing entry is created, stored in the cache immediately so later
//     callers share it, and appended to the dispatch queue.
//  3. Dispatch runs after every enqueue and every completion. It starts
//     queued fetches in FIFO order while fewer than the ceiling are in
//     flight.
//  4. The fetch settles the entry with the parsed document or a
//     *transport.FetchError.
//
// # Failure Handling
//
//   - timeout: the cache entry is removed before the waiters are released,
//     so the next Fetch for that key issues a fresh request
//   - any other failure: the entry stays cached and later callers receive
//     the same error without a new request
//
// Nothing else ever removes an entry. The database is read-only.
//
// # Cancellation
//
// The context passed to Fetch bounds only the caller's wait. A fetch that
// has started is never aborted; it runs until it settles or its own
// timeout expires.
package scheduler
