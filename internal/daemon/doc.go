// Package daemon hosts the long-running airlift services: the HTTP API,
// the dispatcher, and the status aggregator, guarded by a single-instance
// lockfile.
package daemon
