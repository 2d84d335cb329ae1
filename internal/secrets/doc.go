// Package secrets resolves (scope, key) credential pairs from a pluggable
// store.
//
// Two interchangeable backends exist: a local one keeping a JSON object per
// scope under the credentials directory, and a Vault KV v2 backend addressed
// over HTTP. Callers see identical behaviour from both: Get reports absence
// via the found flag, and only transport-level failures surface as errors
// (tagged services.ErrUnavailable so they are never mistaken for a missing
// credential).
//
// Credential values are never cached; the dispatcher re-reads them on every
// attempt.
package secrets
