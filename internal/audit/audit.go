// Package audit appends one immutable JSON Lines record per transfer
// attempt to a shared, append-only log file.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Record documents one attempted file transfer. Records are never mutated
// or deleted once appended. There is no foreign key back to the status
// document beyond the matching filename; consumers correlate by name and
// time window.
type Record struct {
	File       string  `json:"file"`
	LocalPath  string  `json:"local_path"`
	TargetType string  `json:"target_type"`
	TargetSpec string  `json:"target_spec"`
	Size       int64   `json:"size"`
	SHA256     string  `json:"sha256"`
	StartTS    string  `json:"start_ts"`
	EndTS      string  `json:"end_ts"`
	DurationS  float64 `json:"duration_s"`
	ExitCode   int     `json:"exit_code"`
	User       string  `json:"user"`
	Host       string  `json:"host"`
}

// Log is a concurrency-safe append-only sink. Each record is written as a
// single line under an exclusive advisory lock on the log file, so
// concurrent writers (including other invocations of this tool) never
// interleave partial lines. If the lock cannot be taken the append
// proceeds unlocked, which is a documented race under concurrent external
// writers, not a failure.
type Log struct {
	path   string
	logger *slog.Logger
}

// NewLog returns a Log writing to path, creating parent directories.
func NewLog(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating audit log directory: %w", err)
		}
	}
	return &Log{path: path, logger: logger}, nil
}

// Path returns the audit log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one record as a single atomic line. Ordering across
// records reflects append order, not start-timestamp order.
func (l *Log) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	unlock, err := lockExclusive(f)
	if err != nil {
		l.logger.Warn("audit log lock unavailable, appending unlocked", "path", l.path, "error", err)
	} else {
		defer unlock()
	}

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}
	return nil
}

// Timestamp formats t as UTC ISO-8601 at second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
