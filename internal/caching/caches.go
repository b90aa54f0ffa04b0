package caching

import "time"

// Caches contains a set of references to caches. They may be the same
// underlying cache with different partitions, or may be distinct caches.
type Caches struct {
	// ReconciledReplies remembers bot reply event IDs that have already been
	// applied to the state store, so redelivered replies stay no-ops without
	// touching storage.
	ReconciledReplies CachePartition[string, time.Time]
}

// CachePartition is the interface satisfied by a single cache partition.
type CachePartition[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Set(key K, value V)
	Unset(key K)
}

// CacheSize is a budget in bytes.
type CacheSize int64

const (
	SizeKB CacheSize = 1024
	SizeMB           = SizeKB * 1024
)
