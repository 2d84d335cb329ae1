package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"airlift/internal/auditlog"
	"airlift/internal/browser"
	"airlift/internal/catalog"
	"airlift/internal/config"
	"airlift/internal/logging"
	"airlift/internal/notifications"
	"airlift/internal/secrets"
	"airlift/internal/services"
	"airlift/internal/sessions"
)

// Outcome status vocabulary. The set is fixed; callers switch on these
// strings and the audit log records them verbatim.
const (
	StatusDisabledInConfig   = "disabled_in_config"
	StatusDemoSimulated      = "demo_simulated"
	StatusMissingCredentials = "missing_credentials"
	StatusPendingAuth        = "pending_auth"
	StatusFileNotFound       = "file_not_found"
	StatusSuccess            = "success"
	StatusError              = "error"
)

// Metadata carries the optional form fields for an upload. Absent fields are
// simply not filled.
type Metadata struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Genre       string   `json:"genre,omitempty"`
}

// Request identifies one asset to distribute on behalf of one account.
type Request struct {
	AssetID   string   `json:"assetId"`
	FilePath  string   `json:"filePath"`
	Metadata  Metadata `json:"metadata"`
	AccountID int64    `json:"accountId"`
}

// Outcome is the terminal result of one platform dispatch attempt.
type Outcome struct {
	Platform  string `json:"platform"`
	Status    string `json:"status"`
	TrackID   string `json:"track_id,omitempty"`
	Error     string `json:"error,omitempty"`
	AttemptID string `json:"attemptId"`
}

// Succeeded reports whether the outcome counts as a delivery for summary
// purposes. Demo simulations count; skips and failures do not.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess || o.Status == StatusDemoSimulated
}

// Deps collects the collaborators a Dispatcher needs. Catalog may be nil;
// recording there is advisory.
type Deps struct {
	Secrets  secrets.Store
	Sessions *sessions.Store
	Driver   browser.Driver
	Audit    *auditlog.Log
	Catalog  *catalog.Store
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Dispatcher runs the per-platform upload state machine. Configuration is
// bound at construction so concurrent dispatchers with different settings
// never share mutable state.
type Dispatcher struct {
	cfg      *config.Config
	secrets  secrets.Store
	sessions *sessions.Store
	driver   browser.Driver
	audit    *auditlog.Log
	catalog  *catalog.Store
	notifier notifications.Service
	logger   *slog.Logger
	pushes   *http.Client
}

// New builds a Dispatcher.
func New(cfg *config.Config, deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Dispatcher{
		cfg:      cfg,
		secrets:  deps.Secrets,
		sessions: deps.Sessions,
		driver:   deps.Driver,
		audit:    deps.Audit,
		catalog:  deps.Catalog,
		notifier: notifier,
		logger:   logger.With(slog.String(logging.FieldComponent, "dispatch")),
		pushes:   &http.Client{Timeout: 5 * time.Second},
	}
}

// DispatchAll runs the state machine for every known platform in order and
// sends one best-effort completion summary. Outcomes are returned in platform
// order regardless of individual failures.
func (d *Dispatcher) DispatchAll(ctx context.Context, req Request) []Outcome {
	if d.catalog != nil {
		if err := d.catalog.RecordAsset(ctx, req.AssetID, req.Metadata.Title, req.FilePath); err != nil {
			d.logger.Warn("catalog asset record failed", slog.Any("error", err))
		}
	}

	outcomes := make([]Outcome, 0, len(config.KnownPlatforms))
	succeeded, failed := 0, 0
	for _, name := range config.KnownPlatforms {
		outcome := d.Dispatch(ctx, name, req)
		outcomes = append(outcomes, outcome)
		switch {
		case outcome.Succeeded():
			succeeded++
		case outcome.Status == StatusError:
			failed++
		}
	}

	notifications.BestEffort(ctx, d.logger, "dispatch completed notification", func(ctx context.Context) error {
		return d.notifier.NotifyDispatchCompleted(ctx, req.AssetID, succeeded, failed)
	})
	return outcomes
}

// Dispatch runs the upload state machine for one platform. Every terminal
// state appends exactly one audit record; only the error state alerts.
//
// Gate ordering is deliberate: the config and demo checks are free and run
// before any credential lookup, and the credential and file gates run before
// any browser launch, so a precondition failure is recorded as itself rather
// than as a generic error from a doomed browser session.
func (d *Dispatcher) Dispatch(ctx context.Context, platformName string, req Request) Outcome {
	ctx = services.WithPlatform(services.WithAssetID(ctx, req.AssetID), platformName)
	logger := logging.WithContext(ctx, d.logger).With(slog.Int64(logging.FieldAccountID, req.AccountID))

	platform, ok := Lookup(platformName)
	if !ok {
		outcome := Outcome{
			Platform:  platformName,
			Status:    StatusError,
			Error:     fmt.Sprintf("unknown platform %q", platformName),
			AttemptID: uuid.NewString(),
		}
		d.record(ctx, logger, req, outcome)
		return outcome
	}

	outcome := Outcome{Platform: platform.Name, AttemptID: uuid.NewString()}

	if !d.cfg.PlatformEnabled(platform.Name) {
		outcome.Status = StatusDisabledInConfig
		d.record(ctx, logger, req, outcome)
		return outcome
	}

	if d.cfg.DemoMode() {
		outcome.Status = StatusDemoSimulated
		outcome.TrackID = req.AssetID
		d.record(ctx, logger, req, outcome)
		d.pushSummary(outcome, req)
		return outcome
	}

	missing, err := d.credentialGate(ctx, platform, req.AccountID)
	if err != nil {
		outcome.Status = StatusError
		outcome.Error = err.Error()
		d.record(ctx, logger, req, outcome)
		d.alert(ctx, logger, platform.Name, req, outcome.Error)
		return outcome
	}
	if missing {
		outcome.Status = platform.GateStatus
		d.record(ctx, logger, req, outcome)
		return outcome
	}

	if _, err := os.Stat(req.FilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			outcome.Status = StatusFileNotFound
			d.record(ctx, logger, req, outcome)
			return outcome
		}
		outcome.Status = StatusError
		outcome.Error = fmt.Sprintf("stat media file: %v", err)
		d.record(ctx, logger, req, outcome)
		d.alert(ctx, logger, platform.Name, req, outcome.Error)
		return outcome
	}

	if platform.Browserless {
		outcome.Status = StatusSuccess
		outcome.TrackID = req.AssetID
		d.record(ctx, logger, req, outcome)
		return outcome
	}

	if err := d.runBrowserFlow(ctx, platform, req); err != nil {
		outcome.Status = StatusError
		outcome.Error = err.Error()
		d.record(ctx, logger, req, outcome)
		d.alert(ctx, logger, platform.Name, req, outcome.Error)
		return outcome
	}

	outcome.Status = StatusSuccess
	outcome.TrackID = req.AssetID
	d.record(ctx, logger, req, outcome)
	return outcome
}

// credentialGate resolves every required key for the platform account.
// missing=true means at least one key is absent; err is reserved for backend
// failures (unreachable store), which must surface as error, not as a gate
// status.
func (d *Dispatcher) credentialGate(ctx context.Context, platform Platform, accountID int64) (missing bool, err error) {
	scope := platform.CredentialScope(accountID)
	for _, key := range platform.CredentialKeys {
		value, found, err := d.secrets.Get(ctx, scope, key)
		if err != nil {
			return false, services.Wrap(services.ErrUnavailable, "dispatch", "credential gate",
				fmt.Sprintf("resolve %s/%s", scope, key), err)
		}
		if !found || strings.TrimSpace(value) == "" {
			return true, nil
		}
	}
	return false, nil
}

func (d *Dispatcher) runBrowserFlow(ctx context.Context, platform Platform, req Request) error {
	loginTimeout := time.Duration(d.cfg.Distribution.LoginTimeout) * time.Second
	uploadTimeout := time.Duration(d.cfg.Distribution.UploadTimeout) * time.Second

	descriptor, hasSession, err := d.sessions.Load(platform.Name, req.AccountID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var state json.RawMessage
	if hasSession {
		state = descriptor.State
	}
	session, err := d.driver.Launch(ctx, state)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			d.logger.Warn("browser close failed",
				slog.String(logging.FieldPlatform, platform.Name), slog.Any("error", closeErr))
		}
	}()

	if !hasSession {
		if err := d.login(ctx, session, platform, req.AccountID, loginTimeout); err != nil {
			return err
		}
	}

	if err := session.Navigate(ctx, platform.UploadURL); err != nil {
		return fmt.Errorf("open upload page: %w", err)
	}
	if err := session.WaitVisible(ctx, platform.FileInput, uploadTimeout); err != nil {
		return fmt.Errorf("wait for file input: %w", err)
	}
	if err := session.SetFiles(ctx, platform.FileInput, req.FilePath); err != nil {
		return fmt.Errorf("attach media file: %w", err)
	}

	if err := d.fillMetadata(ctx, session, platform, req.Metadata); err != nil {
		return err
	}

	if err := session.Click(ctx, platform.UploadSubmit); err != nil {
		return fmt.Errorf("submit upload: %w", err)
	}
	// A missing completion marker is tolerated: some platforms redirect
	// before the marker renders, and the submission already happened.
	if err := session.WaitVisible(ctx, platform.CompletionMarker, uploadTimeout); err != nil {
		d.logger.Debug("completion marker not observed",
			slog.String(logging.FieldPlatform, platform.Name), slog.Any("error", err))
	}

	// Refresh the descriptor after every clean attempt so cookie rotation
	// by the platform does not invalidate the next run.
	return d.saveSession(ctx, session, platform.Name, req.AccountID)
}

func (d *Dispatcher) login(ctx context.Context, session browser.Session, platform Platform, accountID int64, timeout time.Duration) error {
	scope := platform.CredentialScope(accountID)
	email, _, err := d.secrets.Get(ctx, scope, "EMAIL")
	if err != nil {
		return fmt.Errorf("resolve login email: %w", err)
	}
	password, _, err := d.secrets.Get(ctx, scope, "PASSWORD")
	if err != nil {
		return fmt.Errorf("resolve login password: %w", err)
	}

	if err := session.Navigate(ctx, platform.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := session.WaitVisible(ctx, platform.LoginReadyField, timeout); err != nil {
		return fmt.Errorf("wait for login form: %w", err)
	}
	if err := session.Fill(ctx, platform.EmailField, email); err != nil {
		return fmt.Errorf("fill login email: %w", err)
	}
	if err := session.Fill(ctx, platform.PasswordField, password); err != nil {
		return fmt.Errorf("fill login password: %w", err)
	}
	if err := session.Click(ctx, platform.LoginSubmit); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := session.WaitVisible(ctx, platform.LoggedInMarker, timeout); err != nil {
		return fmt.Errorf("confirm login: %w", err)
	}
	return d.saveSession(ctx, session, platform.Name, accountID)
}

func (d *Dispatcher) fillMetadata(ctx context.Context, session browser.Session, platform Platform, meta Metadata) error {
	if meta.Title != "" && platform.TitleField != "" {
		if err := session.Fill(ctx, platform.TitleField, meta.Title); err != nil {
			return fmt.Errorf("fill title: %w", err)
		}
	}

	description := meta.Description
	if description == "" {
		description = platform.DefaultDescription
	}
	if description != "" && platform.DescriptionField != "" {
		if err := session.Fill(ctx, platform.DescriptionField, description); err != nil {
			return fmt.Errorf("fill description: %w", err)
		}
	}

	if len(meta.Tags) > 0 && platform.TagsField != "" {
		if err := session.Fill(ctx, platform.TagsField, strings.Join(meta.Tags, ", ")); err != nil {
			return fmt.Errorf("fill tags: %w", err)
		}
	}

	if meta.Genre != "" && platform.GenreField != "" {
		// Genre dropdowns vary per platform; a select miss should not sink
		// an otherwise complete upload.
		if err := session.SelectOption(ctx, platform.GenreField, meta.Genre); err != nil {
			d.logger.Debug("genre selection failed",
				slog.String(logging.FieldPlatform, platform.Name), slog.Any("error", err))
		}
	}
	return nil
}

func (d *Dispatcher) saveSession(ctx context.Context, session browser.Session, platform string, accountID int64) error {
	state, err := session.State(ctx)
	if err != nil {
		return fmt.Errorf("capture session state: %w", err)
	}
	if err := d.sessions.Save(platform, accountID, state); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// record appends the attempt to the audit log and the catalog. Both are
// side channels: failures are logged and never change the outcome.
func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, req Request, outcome Outcome) {
	logger.Info("dispatch outcome",
		slog.String("status", outcome.Status),
		slog.String("attempt_id", outcome.AttemptID))

	if err := d.audit.Append(outcome.Platform, auditlog.Record{
		Platform:  outcome.Platform,
		AssetID:   req.AssetID,
		AccountID: req.AccountID,
		Status:    outcome.Status,
		AttemptID: outcome.AttemptID,
		TrackID:   outcome.TrackID,
		Error:     outcome.Error,
	}); err != nil {
		logger.Warn("audit append failed", slog.Any("error", err))
	}

	if d.catalog != nil {
		if err := d.catalog.RecordDispatch(ctx, outcome.AttemptID, outcome.Platform,
			req.AssetID, req.AccountID, outcome.Status, outcome.Error); err != nil {
			logger.Warn("catalog dispatch record failed", slog.Any("error", err))
		}
	}
}

func (d *Dispatcher) alert(ctx context.Context, logger *slog.Logger, platform string, req Request, message string) {
	notifications.BestEffort(ctx, logger, "upload failure alert", func(ctx context.Context) error {
		return d.notifier.NotifyUploadFailed(ctx, platform, req.AccountID, req.AssetID, message)
	})
}

// pushSummary posts a simulated-success summary to the aggregator ingestion
// endpoint. Fire-and-forget: the dispatch outcome never waits on it.
func (d *Dispatcher) pushSummary(outcome Outcome, req Request) {
	endpoint := d.cfg.Distribution.StatusEndpoint
	if endpoint == "" {
		return
	}

	body, err := json.Marshal(map[string]string{
		"status":    outcome.Status,
		"details":   fmt.Sprintf("%s asset %s account %d", outcome.Platform, req.AssetID, req.AccountID),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return
		}
		request.Header.Set("Content-Type", "application/json")
		resp, err := d.pushes.Do(request)
		if err != nil {
			d.logger.Debug("status push failed", slog.Any("error", err))
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
}
