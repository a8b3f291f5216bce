// Package cache provides a keyed byte cache with per-key TTL.
//
// Backends:
//   - memory (in-process, dev/testing)
//   - redis (shared, survives process restarts; required when callbacks
//     may land on a different instance than the one that started the flow)
package cache

import "time"

// Cache is the minimal keyed store the broker needs. Set is an atomic
// per-key upsert in every backend.
type Cache interface {
	// Get returns the value and true, or nil and false when the key is
	// absent or expired.
	Get(k string) ([]byte, bool)

	// Set stores a value with a TTL. A ttl of 0 means no expiry.
	Set(k string, v []byte, ttl time.Duration)

	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(k string)
}

// Config selects and configures a backend.
type Config struct {
	Kind       string // "memory" | "redis"
	Addr       string // redis host:port
	DB         int
	Password   string
	Prefix     string // prepended to every key
	DefaultTTL time.Duration
}
