package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"airlift/internal/auditlog"
	"airlift/internal/config"
	"airlift/internal/dispatch"
	"airlift/internal/secrets"
	"airlift/internal/sessions"
	"airlift/internal/testsupport"
)

type countingSecrets struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
	err    error
}

func (s *countingSecrets) Get(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.err != nil {
		return "", false, s.err
	}
	value, ok := s.values[scope+"/"+key]
	return value, ok, nil
}

func (s *countingSecrets) Set(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[scope+"/"+key] = value
	return nil
}

func (s *countingSecrets) Keys(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *countingSecrets) Health(context.Context) secrets.Health {
	return secrets.Health{Backend: "fake", Reachable: true}
}

func (s *countingSecrets) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

type fixture struct {
	cfg     *config.Config
	secrets *countingSecrets
	driver  *testsupport.FakeDriver
	audit   *auditlog.Log
	store   *sessions.Store
	d       *dispatch.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Distribution.Mode = config.ModeLive

	fx := &fixture{
		cfg:     cfg,
		secrets: &countingSecrets{},
		driver:  &testsupport.FakeDriver{},
		audit:   auditlog.New(cfg.Paths.LogDir),
		store:   sessions.NewStore(cfg.Paths.SessionsDir),
	}
	fx.d = dispatch.New(cfg, dispatch.Deps{
		Secrets:  fx.secrets,
		Sessions: fx.store,
		Driver:   fx.driver,
		Audit:    fx.audit,
	})
	return fx
}

func (fx *fixture) seedBrowserCredentials(t *testing.T, platform string, account int64) {
	t.Helper()
	scope := platform + "_account_1"
	if account != 1 {
		t.Fatalf("fixture only seeds account 1")
	}
	ctx := context.Background()
	if err := fx.secrets.Set(ctx, scope, "EMAIL", "studio@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := fx.secrets.Set(ctx, scope, "PASSWORD", "hunter2"); err != nil {
		t.Fatal(err)
	}
}

func auditLines(t *testing.T, log *auditlog.Log, platform string) []auditlog.Record {
	t.Helper()
	data, err := os.ReadFile(log.Path(platform))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatalf("read audit log: %v", err)
	}
	var records []auditlog.Record
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var record auditlog.Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("parse audit line %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestDisabledPlatformSkipsCredentialLookup(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Distribution.Platforms["audiomack"] = false

	outcome := fx.d.Dispatch(context.Background(), "audiomack", dispatch.Request{
		AssetID: "ep1", FilePath: "/nope.mp3", AccountID: 1,
	})

	if outcome.Status != dispatch.StatusDisabledInConfig {
		t.Fatalf("status = %q, want disabled_in_config", outcome.Status)
	}
	if fx.secrets.getCount() != 0 {
		t.Fatalf("disabled platform performed %d credential lookups", fx.secrets.getCount())
	}
	if fx.driver.Launches() != 0 {
		t.Fatalf("disabled platform launched %d browsers", fx.driver.Launches())
	}
	if records := auditLines(t, fx.audit, "audiomack"); len(records) != 1 {
		t.Fatalf("expected one audit line, got %d", len(records))
	}
}

func TestDemoModeNeverTouchesDriver(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Distribution.Mode = config.ModeDemo

	for _, platform := range config.KnownPlatforms {
		outcome := fx.d.Dispatch(context.Background(), platform, dispatch.Request{
			AssetID: "ep1", FilePath: "/nope.mp3", AccountID: 1,
		})
		if outcome.Status != dispatch.StatusDemoSimulated {
			t.Fatalf("%s status = %q, want demo_simulated", platform, outcome.Status)
		}
		if outcome.TrackID != "ep1" {
			t.Fatalf("%s demo outcome missing synthetic track id", platform)
		}
	}

	if fx.secrets.getCount() != 0 {
		t.Fatalf("demo mode performed %d credential lookups", fx.secrets.getCount())
	}
	if fx.driver.Launches() != 0 {
		t.Fatalf("demo mode launched %d browsers", fx.driver.Launches())
	}
}

func TestMissingCredentialsGate(t *testing.T) {
	fx := newFixture(t)

	cases := map[string]string{
		"spotify":    dispatch.StatusPendingAuth,
		"apple":      dispatch.StatusPendingAuth,
		"soundcloud": dispatch.StatusMissingCredentials,
		"audiomack":  dispatch.StatusMissingCredentials,
	}
	for platform, want := range cases {
		outcome := fx.d.Dispatch(context.Background(), platform, dispatch.Request{
			AssetID: "ep1", FilePath: "/nope.mp3", AccountID: 7,
		})
		if outcome.Status != want {
			t.Fatalf("%s status = %q, want %q", platform, outcome.Status, want)
		}
	}
	if fx.driver.Launches() != 0 {
		t.Fatalf("credential gate launched %d browsers", fx.driver.Launches())
	}
}

func TestSecretBackendFailureIsErrorNotGate(t *testing.T) {
	fx := newFixture(t)
	fx.secrets.err = errors.New("vault sealed")

	outcome := fx.d.Dispatch(context.Background(), "audiomack", dispatch.Request{
		AssetID: "ep1", FilePath: "/nope.mp3", AccountID: 1,
	})

	if outcome.Status != dispatch.StatusError {
		t.Fatalf("status = %q, want error for unreachable backend", outcome.Status)
	}
	if !strings.Contains(outcome.Error, "vault sealed") {
		t.Fatalf("error message lost: %q", outcome.Error)
	}
}

func TestFileNotFoundAppendsExactlyOneAuditLine(t *testing.T) {
	fx := newFixture(t)
	fx.seedBrowserCredentials(t, "audiomack", 1)

	outcome := fx.d.Dispatch(context.Background(), "audiomack", dispatch.Request{
		AssetID: "ep1", FilePath: filepath.Join(t.TempDir(), "missing.mp3"), AccountID: 1,
	})

	if outcome.Status != dispatch.StatusFileNotFound {
		t.Fatalf("status = %q, want file_not_found", outcome.Status)
	}
	records := auditLines(t, fx.audit, "audiomack")
	if len(records) != 1 {
		t.Fatalf("expected exactly one audit line, got %d", len(records))
	}
	if records[0].Status != dispatch.StatusFileNotFound {
		t.Fatalf("audit status = %q", records[0].Status)
	}
	if records[0].AttemptID == "" {
		t.Fatal("audit record missing attempt id")
	}
	if fx.driver.Launches() != 0 {
		t.Fatalf("file gate launched %d browsers", fx.driver.Launches())
	}
}

func TestFirstDispatchLogsInAndPersistsSession(t *testing.T) {
	fx := newFixture(t)
	fx.seedBrowserCredentials(t, "audiomack", 1)
	media := testsupport.MediaFile(t, "ep1.mp3")

	outcome := fx.d.Dispatch(context.Background(), "audiomack", dispatch.Request{
		AssetID:   "ep1",
		FilePath:  media,
		Metadata:  dispatch.Metadata{Title: "Episode 1", Tags: []string{"tech", "go"}},
		AccountID: 1,
	})

	if outcome.Status != dispatch.StatusSuccess {
		t.Fatalf("status = %q (error %q), want success", outcome.Status, outcome.Error)
	}

	sessionList := fx.driver.Sessions()
	if len(sessionList) != 1 {
		t.Fatalf("expected one browser session, got %d", len(sessionList))
	}
	session := sessionList[0]
	if session.NavigationsTo("https://www.audiomack.com/login") != 1 {
		t.Fatalf("expected one login navigation, got %v", session.Navigations)
	}
	if got := session.Fills[`input[name="title"]`]; got != "Episode 1" {
		t.Fatalf("title fill = %q", got)
	}
	if got := session.Fills[`input[name="tags"]`]; got != "tech, go" {
		t.Fatalf("tags fill = %q", got)
	}
	if session.CloseCalls != 1 {
		t.Fatalf("browser closed %d times", session.CloseCalls)
	}

	if _, found, err := fx.store.Load("audiomack", 1); err != nil || !found {
		t.Fatalf("session descriptor not persisted (found=%v err=%v)", found, err)
	}
}

func TestExistingSessionSkipsLoginAndRefreshesDescriptor(t *testing.T) {
	fx := newFixture(t)
	fx.seedBrowserCredentials(t, "audiomack", 1)
	media := testsupport.MediaFile(t, "ep1.mp3")

	if err := fx.store.Save("audiomack", 1, json.RawMessage(`{"cookies":[{"name":"ak"}]}`)); err != nil {
		t.Fatal(err)
	}
	before, _, err := fx.store.Load("audiomack", 1)
	if err != nil {
		t.Fatal(err)
	}

	outcome := fx.d.Dispatch(context.Background(), "audiomack", dispatch.Request{
		AssetID: "ep2", FilePath: media, AccountID: 1,
	})
	if outcome.Status != dispatch.StatusSuccess {
		t.Fatalf("status = %q (error %q)", outcome.Status, outcome.Error)
	}

	session := fx.driver.Sessions()[0]
	if n := session.NavigationsTo("https://www.audiomack.com/login"); n != 0 {
		t.Fatalf("login navigation count = %d, want 0", n)
	}
	if string(fx.driver.LastState()) != `{"cookies":[{"name":"ak"}]}` {
		t.Fatalf("persisted state not restored into launch: %s", fx.driver.LastState())
	}

	after, _, err := fx.store.Load("audiomack", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !after.SavedAt.After(before.SavedAt) {
		t.Fatal("descriptor not refreshed after successful dispatch")
	}
}

func TestLoginFailureIsErrorAndClosesBrowser(t *testing.T) {
	fx := newFixture(t)
	fx.seedBrowserCredentials(t, "audiomack", 1)
	media := testsupport.MediaFile(t, "ep1.mp3")
	fx.driver.SessionTemplate = &testsupport.FakeSession{
		FailWaitSelector: `a[href="/upload"]`,
	}

	outcome := fx.d.Dispatch(context.Background(), "audiomack", dispatch.Request{
		AssetID: "ep1", FilePath: media, AccountID: 1,
	})

	if outcome.Status != dispatch.StatusError {
		t.Fatalf("status = %q, want error", outcome.Status)
	}
	session := fx.driver.Sessions()[0]
	if session.CloseCalls != 1 {
		t.Fatalf("browser closed %d times on error path", session.CloseCalls)
	}
	// Failed attempt must not leave a session descriptor behind.
	if _, found, _ := fx.store.Load("audiomack", 1); found {
		t.Fatal("failed login persisted a session descriptor")
	}
}

func TestMissingCompletionMarkerDoesNotDowngradeOutcome(t *testing.T) {
	fx := newFixture(t)
	fx.seedBrowserCredentials(t, "soundcloud", 1)
	media := testsupport.MediaFile(t, "ep1.mp3")
	fx.driver.SessionTemplate = &testsupport.FakeSession{
		FailWaitSelector: `.upload-success`,
	}

	outcome := fx.d.Dispatch(context.Background(), "soundcloud", dispatch.Request{
		AssetID: "ep1", FilePath: media, AccountID: 1,
	})

	if outcome.Status != dispatch.StatusSuccess {
		t.Fatalf("status = %q (error %q), want success despite missing marker", outcome.Status, outcome.Error)
	}
}

func TestSoundcloudDefaultDescription(t *testing.T) {
	fx := newFixture(t)
	fx.seedBrowserCredentials(t, "soundcloud", 1)
	media := testsupport.MediaFile(t, "ep1.mp3")

	outcome := fx.d.Dispatch(context.Background(), "soundcloud", dispatch.Request{
		AssetID: "ep1", FilePath: media, AccountID: 1,
	})
	if outcome.Status != dispatch.StatusSuccess {
		t.Fatalf("status = %q (error %q)", outcome.Status, outcome.Error)
	}

	session := fx.driver.Sessions()[0]
	if got := session.Fills[`textarea[name="description"]`]; got != "Uploaded via pipeline" {
		t.Fatalf("description fill = %q, want default", got)
	}
}

func TestBrowserlessPlatformSucceedsWithoutDriver(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if err := fx.secrets.Set(ctx, "spotify_account_1", "CLIENT_ID", "abc"); err != nil {
		t.Fatal(err)
	}
	if err := fx.secrets.Set(ctx, "spotify_account_1", "CLIENT_SECRET", "shh"); err != nil {
		t.Fatal(err)
	}
	media := testsupport.MediaFile(t, "ep1.mp3")

	outcome := fx.d.Dispatch(ctx, "spotify", dispatch.Request{
		AssetID: "ep1", FilePath: media, AccountID: 1,
	})

	if outcome.Status != dispatch.StatusSuccess {
		t.Fatalf("status = %q, want success", outcome.Status)
	}
	if fx.driver.Launches() != 0 {
		t.Fatalf("browserless platform launched %d browsers", fx.driver.Launches())
	}
}

func TestDispatchAllCoversEveryPlatform(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Distribution.Mode = config.ModeDemo

	outcomes := fx.d.DispatchAll(context.Background(), dispatch.Request{
		AssetID: "ep1", FilePath: "/nope.mp3", AccountID: 1,
	})

	if len(outcomes) != len(config.KnownPlatforms) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(config.KnownPlatforms))
	}
	for i, platform := range config.KnownPlatforms {
		if outcomes[i].Platform != platform {
			t.Fatalf("outcome %d platform = %q, want %q", i, outcomes[i].Platform, platform)
		}
		if outcomes[i].Status != dispatch.StatusDemoSimulated {
			t.Fatalf("%s status = %q", platform, outcomes[i].Status)
		}
	}
}

func TestUnknownPlatformRecordsError(t *testing.T) {
	fx := newFixture(t)

	outcome := fx.d.Dispatch(context.Background(), "myspace", dispatch.Request{
		AssetID: "ep1", FilePath: "/nope.mp3", AccountID: 1,
	})

	if outcome.Status != dispatch.StatusError {
		t.Fatalf("status = %q, want error", outcome.Status)
	}
	if !strings.Contains(outcome.Error, "myspace") {
		t.Fatalf("error should name the platform: %q", outcome.Error)
	}
}
