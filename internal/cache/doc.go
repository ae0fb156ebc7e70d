// Package cache stores analysis outcomes keyed by path and validated by
// content fingerprint. An in-memory LRU serves lookups; an optional SQLite
// store makes entries survive restarts. A cached entry is only served when
// the caller's fingerprint matches exactly, so stale results are impossible
// by construction.
package cache
