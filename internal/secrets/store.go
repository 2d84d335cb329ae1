package secrets

import (
	"context"
	"fmt"
	"regexp"

	"airlift/internal/config"
	"airlift/internal/services"
)

// Store resolves per-account platform credentials. Implementations must be
// byte-identical to callers regardless of backend: a missing secret is
// reported as absent, never as an error, and transport failures carry the
// services.ErrUnavailable marker so callers can tell the two apart.
type Store interface {
	// Get returns the value for (scope, key), or found=false when the scope
	// or key does not exist.
	Get(ctx context.Context, scope, key string) (value string, found bool, err error)
	// Set writes a single key into scope, preserving unrelated keys.
	Set(ctx context.Context, scope, key, value string) error
	// Keys lists the key names stored under scope. Only the local backend
	// supports listing.
	Keys(ctx context.Context, scope string) ([]string, error)
	// Health reports which backend is active and whether it is reachable.
	Health(ctx context.Context) Health
}

// Health describes the state of the active secret backend.
type Health struct {
	Backend   string `json:"backend"`
	Reachable bool   `json:"reachable"`
	Detail    string `json:"detail,omitempty"`
}

var scopePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// NewStore builds the secret store selected by configuration.
func NewStore(cfg *config.Config) Store {
	if cfg.Secrets.Backend == config.BackendVault {
		return newVaultStore(cfg)
	}
	return newLocalStore(cfg.Paths.CredentialsDir)
}

func validateScope(scope string) error {
	if !scopePattern.MatchString(scope) {
		return services.Wrap(services.ErrValidation, "secrets", "scope",
			fmt.Sprintf("invalid scope %q", scope), nil)
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return services.Wrap(services.ErrValidation, "secrets", "key", "empty key", nil)
	}
	return nil
}
