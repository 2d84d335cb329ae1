package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"airlift/internal/auditlog"
	"airlift/internal/browser"
	"airlift/internal/catalog"
	"airlift/internal/config"
	"airlift/internal/dispatch"
	"airlift/internal/logging"
	"airlift/internal/notifications"
	"airlift/internal/secrets"
	"airlift/internal/sessions"
	"airlift/internal/status"
)

// Daemon owns the long-running distribution services and enforces
// single-instance execution through a lockfile.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	secrets    secrets.Store
	audit      *auditlog.Log
	catalog    *catalog.Store
	aggregator *status.Aggregator
	dispatcher *dispatch.Dispatcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	api     *apiServer
	cancel  context.CancelFunc
}

// Status is the daemon's runtime view: process state plus the current
// aggregated platform snapshot.
type Status struct {
	Running       bool            `json:"running"`
	LockFilePath  string          `json:"lockFilePath"`
	CatalogDBPath string          `json:"catalogDbPath"`
	SecretBackend string          `json:"secretBackend"`
	Snapshot      status.Snapshot `json:"snapshot"`
}

// New wires the daemon's collaborators. driver may be nil when the daemon
// only ever runs in demo mode; live dispatches then fail at launch.
func New(cfg *config.Config, logger *slog.Logger, driver browser.Driver) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	secretStore := secrets.NewStore(cfg)
	audit := auditlog.New(cfg.Paths.LogDir)
	aggregator := status.NewAggregator(cfg, audit, store, logger)
	dispatcher := dispatch.New(cfg, dispatch.Deps{
		Secrets:  secretStore,
		Sessions: sessions.NewStore(cfg.Paths.SessionsDir),
		Driver:   driver,
		Audit:    audit,
		Catalog:  store,
		Logger:   logger,
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "airlift.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger.With(slog.String(logging.FieldComponent, "daemon")),
		secrets:    secretStore,
		audit:      audit,
		catalog:    store,
		aggregator: aggregator,
		dispatcher: dispatcher,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and brings the HTTP API up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another airlift daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("airlift daemon started", slog.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", slog.Any("error", err))
	}
	d.running.Store(false)
	d.logger.Info("airlift daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// APIAddr returns the bound API address once Start has succeeded.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status builds the daemon's runtime view with a fresh snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		LockFilePath:  d.lockPath,
		CatalogDBPath: d.catalog.Path(),
		SecretBackend: d.cfg.Secrets.Backend,
		Snapshot:      d.aggregator.Snapshot(ctx),
	}
}

// Dispatch runs the full platform fan-out for one request.
func (d *Daemon) Dispatch(ctx context.Context, req dispatch.Request) []dispatch.Outcome {
	return d.dispatcher.DispatchAll(ctx, req)
}

// RecordSummary persists an externally observed status summary.
func (d *Daemon) RecordSummary(summary status.Summary) error {
	return d.aggregator.RecordSummary(summary)
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
