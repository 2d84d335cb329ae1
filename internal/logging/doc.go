// Package logging builds the slog loggers used across Airlift.
//
// Two formats are supported: a JSON handler with ts/level/msg key remapping
// for machine consumption, and a console handler that prints a compact header
// line followed by indented structured fields. Context helpers stamp
// asset/platform/correlation identifiers so dispatch logs stay greppable.
//
// Note the per-platform audit logs are not written through this package; they
// are an independent durable record owned by internal/auditlog.
package logging
