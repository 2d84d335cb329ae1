package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"airlift/internal/fileutil"
	"airlift/internal/services"
)

// localStore keeps one JSON object per scope under the credentials directory.
// Writes are read-merge-write so sibling keys in the same scope survive.
type localStore struct {
	dir string
	mu  sync.Mutex
}

func newLocalStore(dir string) *localStore {
	return &localStore{dir: dir}
}

func (s *localStore) scopePath(scope string) string {
	return filepath.Join(s.dir, scope+".json")
}

func (s *localStore) readScope(scope string) (map[string]string, error) {
	data, err := os.ReadFile(s.scopePath(scope))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, services.Wrap(services.ErrUnavailable, "secrets", "read scope", scope, err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, services.Wrap(services.ErrValidation, "secrets", "parse scope", scope, err)
	}
	return values, nil
}

func (s *localStore) Get(_ context.Context, scope, key string) (string, bool, error) {
	if err := validateScope(scope); err != nil {
		return "", false, err
	}
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	values, err := s.readScope(scope)
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (s *localStore) Set(_ context.Context, scope, key, value string) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readScope(scope)
	if err != nil {
		return err
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scope %s: %w", scope, err)
	}

	if err := fileutil.ReplaceAtomic(s.scopePath(scope), append(data, '\n'), 0o600, 0o700); err != nil {
		return services.Wrap(services.ErrUnavailable, "secrets", "write scope", scope, err)
	}
	return nil
}

func (s *localStore) Keys(_ context.Context, scope string) ([]string, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	values, err := s.readScope(scope)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "secrets", "list scope", scope, nil)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *localStore) Health(context.Context) Health {
	if info, err := os.Stat(s.dir); err == nil && info.IsDir() {
		return Health{Backend: "local", Reachable: true}
	}
	// The directory is created lazily on first write, so its absence is not
	// an unhealthy state.
	return Health{Backend: "local", Reachable: true, Detail: "credentials directory not yet created"}
}
