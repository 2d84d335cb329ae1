// Package services defines shared utilities consumed by the dispatcher and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, platform names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform across components. ErrUnavailable versus
//     ErrNotFound is load-bearing for the secret store: callers remediate the
//     two differently.
package services
