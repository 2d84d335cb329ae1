// Package status aggregates per-platform audit tails, catalog counts, and an
// externally pushed summary into point-in-time snapshots. Snapshots are built
// fresh on every call so consumers tolerate eventual consistency explicitly
// rather than reading a stale cache.
package status
