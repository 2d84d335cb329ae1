package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"airlift/internal/fileutil"
)

// Descriptor is the serialized proof of a prior authenticated browser session
// for one (platform, account) pair. State is opaque to this package; the
// browser driver produces and consumes it.
type Descriptor struct {
	Platform string          `json:"platform"`
	Account  int64           `json:"account"`
	State    json.RawMessage `json:"state"`
	SavedAt  time.Time       `json:"saved_at"`
}

// Store persists session descriptors as one JSON file per (platform, account)
// key. Descriptors are replaced atomically or not at all; readers never see a
// partial write. A per-key mutex serializes writers for the same key, which is
// the only contention the dispatcher can produce.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore builds a session store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func sessionKey(platform string, account int64) string {
	return fmt.Sprintf("session_%s_%d", platform, account)
}

func (s *Store) path(platform string, account int64) string {
	return filepath.Join(s.dir, sessionKey(platform, account)+".json")
}

func (s *Store) lockFor(platform string, account int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(platform, account)
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Load returns the descriptor for (platform, account), or found=false when no
// session has been persisted yet. A corrupt descriptor is treated as absent
// and removed so the next dispatch performs a fresh login.
func (s *Store) Load(platform string, account int64) (*Descriptor, bool, error) {
	data, err := os.ReadFile(s.path(platform, account))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read session %s: %w", sessionKey(platform, account), err)
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		_ = os.Remove(s.path(platform, account))
		return nil, false, nil
	}
	return &desc, true, nil
}

// Save atomically replaces the descriptor for (platform, account) with the
// provided browser state.
func (s *Store) Save(platform string, account int64, state json.RawMessage) error {
	lock := s.lockFor(platform, account)
	lock.Lock()
	defer lock.Unlock()

	desc := Descriptor{
		Platform: platform,
		Account:  account,
		State:    state,
		SavedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionKey(platform, account), err)
	}

	if err := fileutil.ReplaceAtomic(s.path(platform, account), data, 0o600, 0o700); err != nil {
		return fmt.Errorf("persist session %s: %w", sessionKey(platform, account), err)
	}
	return nil
}

// Delete removes the descriptor for (platform, account). Missing descriptors
// are not an error.
func (s *Store) Delete(platform string, account int64) error {
	err := os.Remove(s.path(platform, account))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", sessionKey(platform, account), err)
	}
	return nil
}
