// Package config loads, validates, and normalizes Airlift configuration.
//
// Configuration is a TOML file resolved from an explicit path, then
// ~/.config/airlift/config.toml, then ./airlift.toml. Defaults are applied
// before decoding so a missing file yields a usable demo-mode configuration.
// All path fields are tilde-expanded and made absolute during normalization,
// and a handful of secrets fall back to environment variables (VAULT_ADDR,
// VAULT_TOKEN, AIRLIFT_ADMIN_TOKEN).
//
// Components receive the resolved *Config at construction; nothing reads
// process-wide state at call time, which keeps tests free to inject distinct
// configurations.
package config
