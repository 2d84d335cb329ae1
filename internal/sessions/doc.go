// Package sessions persists reusable authenticated browser sessions.
//
// A descriptor exists per (platform, account) pair and is consulted before
// every dispatch: when present, the interactive login sequence is skipped
// entirely. Descriptors are refreshed after every successful upload so cookie
// rotation by the platform does not invalidate future runs. Replacement is
// atomic (temp file + rename); a torn descriptor on disk is impossible.
package sessions
