package testsupport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"airlift/internal/browser"
)

// FakeDriver implements browser.Driver with scripted behavior and call
// counting, letting dispatcher tests assert session and login mechanics
// without a real browser.
type FakeDriver struct {
	mu sync.Mutex

	// LaunchErr, when set, fails every Launch.
	LaunchErr error
	// SessionTemplate configures the session handed out by Launch. When nil a
	// default well-behaved session is used.
	SessionTemplate *FakeSession

	launches   int
	lastStates []json.RawMessage
	sessions   []*FakeSession
}

// Launch records the restored state and returns a fake session.
func (d *FakeDriver) Launch(_ context.Context, state json.RawMessage) (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.launches++
	d.lastStates = append(d.lastStates, state)
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}

	session := &FakeSession{}
	if d.SessionTemplate != nil {
		session.FailWaitSelector = d.SessionTemplate.FailWaitSelector
		session.FailWaitErr = d.SessionTemplate.FailWaitErr
		session.NavigateErr = d.SessionTemplate.NavigateErr
		session.StateJSON = d.SessionTemplate.StateJSON
	}
	d.sessions = append(d.sessions, session)
	return session, nil
}

// Launches returns how many sessions were requested.
func (d *FakeDriver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// LastState returns the state passed to the most recent Launch.
func (d *FakeDriver) LastState() json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lastStates) == 0 {
		return nil
	}
	return d.lastStates[len(d.lastStates)-1]
}

// Sessions returns every session handed out so far.
func (d *FakeDriver) Sessions() []*FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeSession(nil), d.sessions...)
}

// FakeSession records every interaction and can be scripted to fail a
// specific wait.
type FakeSession struct {
	mu sync.Mutex

	// FailWaitSelector fails WaitVisible for one selector with FailWaitErr.
	FailWaitSelector string
	FailWaitErr      error
	// NavigateErr, when set, fails every Navigate.
	NavigateErr error
	// StateJSON is returned by State; defaults to an empty cookie jar.
	StateJSON json.RawMessage

	Navigations []string
	Waits       []string
	Fills       map[string]string
	Selections  map[string]string
	Files       map[string][]string
	Clicks      []string
	CloseCalls  int
}

func (s *FakeSession) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigations = append(s.Navigations, url)
	return s.NavigateErr
}

func (s *FakeSession) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Waits = append(s.Waits, selector)
	if s.FailWaitSelector != "" && selector == s.FailWaitSelector {
		if s.FailWaitErr != nil {
			return s.FailWaitErr
		}
		return context.DeadlineExceeded
	}
	return nil
}

func (s *FakeSession) Fill(_ context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fills == nil {
		s.Fills = make(map[string]string)
	}
	s.Fills[selector] = value
	return nil
}

func (s *FakeSession) SelectOption(_ context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Selections == nil {
		s.Selections = make(map[string]string)
	}
	s.Selections[selector] = value
	return nil
}

func (s *FakeSession) SetFiles(_ context.Context, selector string, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Files == nil {
		s.Files = make(map[string][]string)
	}
	s.Files[selector] = append([]string(nil), paths...)
	return nil
}

func (s *FakeSession) Click(_ context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clicks = append(s.Clicks, selector)
	return nil
}

func (s *FakeSession) State(context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StateJSON != nil {
		return s.StateJSON, nil
	}
	return json.RawMessage(`{"cookies":[]}`), nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return nil
}

// NavigationsTo counts how many times the session visited url.
func (s *FakeSession) NavigationsTo(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, visited := range s.Navigations {
		if visited == url {
			count++
		}
	}
	return count
}
