package auditlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Reader status values for platforms whose log cannot yield a real outcome.
// These are first-class states, not reader failures.
const (
	StatusNoLogs     = "no_logs"
	StatusEmpty      = "empty"
	StatusParseError = "parse_error"
	StatusUnknown    = "unknown"
)

// Record is one audit log entry: the outcome of a single dispatch attempt.
type Record struct {
	Platform  string `json:"platform"`
	AssetID   string `json:"assetId"`
	AccountID int64  `json:"accountId"`
	Status    string `json:"status"`
	AttemptID string `json:"attemptId,omitempty"`
	TrackID   string `json:"trackId,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Log is the append-only, one-JSON-object-per-line audit trail, one file per
// platform. Existing lines are never rewritten or truncated; the last line of
// a file is the platform's current status.
type Log struct {
	dir string
}

// New builds an audit log rooted at dir.
func New(dir string) *Log {
	return &Log{dir: dir}
}

// Path returns the log file path for platform.
func (l *Log) Path(platform string) string {
	return filepath.Join(l.dir, platform+".log")
}

// Append writes one record to the platform's log file, stamping the timestamp
// when the caller left it empty.
func (l *Log) Append(platform string, record Record) error {
	if record.Timestamp == "" {
		record.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create audit log dir: %w", err)
	}
	file, err := os.OpenFile(l.Path(platform), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log %s: %w", platform, err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit record %s: %w", platform, err)
	}
	return file.Close()
}

// LastStatus reads the status carried by the final valid line of the
// platform's log. A missing file, an empty file, and an unparsable last line
// map to no_logs, empty, and parse_error respectively.
func (l *Log) LastStatus(platform string) string {
	record, status := l.lastRecord(platform)
	if record == nil {
		return status
	}
	if record.Status == "" {
		return StatusUnknown
	}
	return record.Status
}

// LastRecord returns the final parsed record for platform when one exists.
func (l *Log) LastRecord(platform string) (*Record, bool) {
	record, _ := l.lastRecord(platform)
	return record, record != nil
}

func (l *Log) lastRecord(platform string) (*Record, string) {
	data, err := os.ReadFile(l.Path(platform))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, StatusNoLogs
		}
		return nil, StatusNoLogs
	}

	lines := strings.Split(string(data), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			last = trimmed
			break
		}
	}
	if last == "" {
		return nil, StatusEmpty
	}

	var record Record
	if err := json.Unmarshal([]byte(last), &record); err != nil {
		return nil, StatusParseError
	}
	return &record, ""
}
