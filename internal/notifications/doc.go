// Package notifications delivers dispatch events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The BestEffort helper is the one sanctioned way to invoke the
// service from dispatch paths: transport failures are logged and swallowed so
// they can never mask the outcome being recorded.
package notifications
