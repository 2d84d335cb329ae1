// Package catalog persists assets and dispatch attempts in SQLite.
//
// The catalog is deliberately secondary: the per-platform audit logs remain
// the source of truth for "last known status", while the catalog provides the
// advisory counts surfaced in status snapshots. A failure to record here never
// changes a dispatch outcome.
package catalog
