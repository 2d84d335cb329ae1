package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"airlift/internal/config"
	"airlift/internal/services"
)

// vaultStore talks to a HashiCorp Vault KV v2 mount over HTTP. Secrets for a
// scope live under secret/data/<scope> and are merged read-modify-write on
// Set, mirroring the local backend's semantics.
type vaultStore struct {
	address string
	token   string
	client  *http.Client
}

func newVaultStore(cfg *config.Config) *vaultStore {
	timeout := time.Duration(cfg.Secrets.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &vaultStore{
		address: cfg.Secrets.VaultAddress,
		token:   cfg.Secrets.VaultToken,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *vaultStore) dataURL(scope string) string {
	return s.address + "/v1/secret/data/" + scope
}

type vaultDataEnvelope struct {
	Data struct {
		Data map[string]string `json:"data"`
	} `json:"data"`
}

// readScope fetches the full key/value map for scope. A 404 means the path has
// never been written and yields an empty map, not an error.
func (s *vaultStore) readScope(ctx context.Context, scope string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.dataURL(scope), nil)
	if err != nil {
		return nil, fmt.Errorf("build vault request: %w", err)
	}
	req.Header.Set("X-Vault-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "secrets", "vault read", scope, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return map[string]string{}, nil
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrUnavailable, "secrets", "vault read",
			fmt.Sprintf("%s: status %d: %s", scope, resp.StatusCode, bytes.TrimSpace(body)), nil)
	}

	var envelope vaultDataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "secrets", "vault decode", scope, err)
	}
	if envelope.Data.Data == nil {
		return map[string]string{}, nil
	}
	return envelope.Data.Data, nil
}

func (s *vaultStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	if err := validateScope(scope); err != nil {
		return "", false, err
	}
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	values, err := s.readScope(ctx, scope)
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (s *vaultStore) Set(ctx context.Context, scope, key, value string) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	current, err := s.readScope(ctx, scope)
	if err != nil {
		return err
	}
	current[key] = value

	payload, err := json.Marshal(map[string]any{"data": current})
	if err != nil {
		return fmt.Errorf("marshal vault payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.dataURL(scope), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build vault request: %w", err)
	}
	req.Header.Set("X-Vault-Token", s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "secrets", "vault write", scope, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrUnavailable, "secrets", "vault write",
			fmt.Sprintf("%s: status %d: %s", scope, resp.StatusCode, bytes.TrimSpace(body)), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *vaultStore) Keys(_ context.Context, scope string) ([]string, error) {
	return nil, services.Wrap(services.ErrValidation, "secrets", "list scope",
		"key listing is only supported by the local backend", nil)
}

func (s *vaultStore) Health(ctx context.Context) Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.address+"/v1/sys/health", nil)
	if err != nil {
		return Health{Backend: "vault", Reachable: false, Detail: err.Error()}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Health{Backend: "vault", Reachable: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	// Vault reports sealed/standby states via non-200 codes; any response at
	// all means the backend is reachable.
	detail := ""
	if resp.StatusCode != http.StatusOK {
		detail = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return Health{Backend: "vault", Reachable: true, Detail: detail}
}
