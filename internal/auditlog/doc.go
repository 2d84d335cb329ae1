// Package auditlog is the durable, replayable record of every dispatch
// decision and outcome.
//
// One newline-delimited JSON file exists per platform. Appends never rewrite
// or truncate prior lines, and the final valid line is authoritative for
// "last known status per platform". Readers treat a missing file, an empty
// file, and a malformed last line as the statuses no_logs, empty, and
// parse_error; consumers render them like any other outcome.
package auditlog
