// Package reconcile retries an aggregated status read until it matches an
// expected per-platform state, tolerating the lag between a dispatch landing
// and its audit tail becoming visible.
package reconcile
