package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"airlift/internal/auditlog"
	"airlift/internal/catalog"
	"airlift/internal/config"
	"airlift/internal/fileutil"
	"airlift/internal/logging"
)

// PlatformStatus is the last known state of one platform, derived from the
// final valid line of its audit log.
type PlatformStatus struct {
	Platform  string `json:"platform"`
	Status    string `json:"status"`
	AssetID   string `json:"assetId,omitempty"`
	AccountID int64  `json:"accountId,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Summary is an externally observed status record pushed by a caller, kept
// alongside (never merged into) the per-platform audit truth.
type Summary struct {
	Status    string `json:"status"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

// Snapshot is one merged read of the whole system. Built fresh on every
// request; nothing here is cached.
type Snapshot struct {
	Platforms   map[string]PlatformStatus `json:"platforms"`
	Counts      *catalog.Counts           `json:"counts,omitempty"`
	External    *Summary                  `json:"external,omitempty"`
	LastUpdated string                    `json:"lastUpdated"`
}

// Statuses flattens the snapshot to platform → status, the shape the
// reconciliation loop compares against.
func (s Snapshot) Statuses() map[string]string {
	out := make(map[string]string, len(s.Platforms))
	for name, platform := range s.Platforms {
		out[name] = platform.Status
	}
	return out
}

// Aggregator merges audit logs, catalog counts, and the external summary into
// snapshots. Counts are advisory: a catalog failure degrades the snapshot
// instead of failing it.
type Aggregator struct {
	audit   *auditlog.Log
	catalog *catalog.Store
	logger  *slog.Logger

	summaryMu   sync.Mutex
	summaryPath string
}

// NewAggregator builds an aggregator. store may be nil.
func NewAggregator(cfg *config.Config, audit *auditlog.Log, store *catalog.Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{
		audit:       audit,
		catalog:     store,
		logger:      logger.With(slog.String(logging.FieldComponent, "status")),
		summaryPath: filepath.Join(cfg.Paths.LogDir, "status_summary.json"),
	}
}

// Snapshot reads every platform's audit tail plus catalog counts and the
// persisted external summary.
func (a *Aggregator) Snapshot(ctx context.Context) Snapshot {
	snapshot := Snapshot{
		Platforms:   make(map[string]PlatformStatus, len(config.KnownPlatforms)),
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}

	for _, name := range config.KnownPlatforms {
		entry := PlatformStatus{Platform: name, Status: a.audit.LastStatus(name)}
		if record, ok := a.audit.LastRecord(name); ok {
			entry.AssetID = record.AssetID
			entry.AccountID = record.AccountID
			entry.Error = record.Error
			entry.Timestamp = record.Timestamp
		}
		snapshot.Platforms[name] = entry
	}

	if a.catalog != nil {
		counts, err := a.catalog.Counts(ctx)
		if err != nil {
			a.logger.Warn("catalog counts unavailable", slog.Any("error", err))
		} else {
			snapshot.Counts = &counts
		}
	}

	if summary, ok := a.loadSummary(); ok {
		snapshot.External = summary
	}
	return snapshot
}

// RecordSummary persists an externally observed summary so later snapshots
// surface it. The write is atomic; a torn summary file never exists.
func (a *Aggregator) RecordSummary(summary Summary) error {
	if summary.Status == "" {
		return fmt.Errorf("summary status is required")
	}
	if summary.Timestamp == "" {
		summary.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	a.summaryMu.Lock()
	defer a.summaryMu.Unlock()

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return fileutil.ReplaceAtomic(a.summaryPath, data, 0o644, 0o755)
}

func (a *Aggregator) loadSummary() (*Summary, bool) {
	a.summaryMu.Lock()
	defer a.summaryMu.Unlock()

	data, err := os.ReadFile(a.summaryPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("external summary unreadable", slog.Any("error", err))
		}
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		a.logger.Warn("external summary corrupt", slog.Any("error", err))
		return nil, false
	}
	return &summary, true
}
