// Package storage provides the in-memory table that backs the shard request
// cache.
//
// # Overview
//
// MemoryStore is a generic, thread-safe map from string keys to values. The
// scheduler keeps one entry per shard key, pending or settled, and relies
// on two operations being atomic:
//
//   - GetOrCreate: look up a key and insert a new value if it is missing,
//     under a single lock, so concurrent callers never create two entries
//     for the same key
//   - CompareAndDelete: remove a key only while it still holds a given
//     value, so a late eviction cannot remove a newer entry
//
// # Concurrency and Thread Safety
//
// Locking Strategy:
//   - Read operations use shared locks (RLock)
//   - Write operations use exclusive locks (Lock)
//   - GetOrCreate runs its create callback under the write lock; the
//     callback must not call back into the store
//
// Values are stored by reference. The store never copies them, which is
// what lets every caller observe the same pending request.
//
// # Lifetime
//
// Entries live until they are deleted. There is no expiry, capacity bound
// or eviction policy: the database is read-only and small enough per
// process that a fetched shard stays cached for the process lifetime.
package storage
