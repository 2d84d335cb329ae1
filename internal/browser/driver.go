package browser

import (
	"context"
	"encoding/json"
	"time"
)

// Driver launches automation sessions. Implementations must honor the
// restored state handed to Launch so a persisted session descriptor skips
// interactive login entirely.
type Driver interface {
	// Launch opens a browser session, restoring the serialized state when
	// non-empty. The caller owns the session and must Close it on every exit
	// path.
	Launch(ctx context.Context, state json.RawMessage) (Session, error)
}

// Session is one live browser context. All waits are bounded by the supplied
// timeout; blocking forever on a missing page element is never acceptable.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	SelectOption(ctx context.Context, selector, value string) error
	SetFiles(ctx context.Context, selector string, paths ...string) error
	Click(ctx context.Context, selector string) error
	// State serializes the session's cookie state for persistence.
	State(ctx context.Context) (json.RawMessage, error)
	Close() error
}
