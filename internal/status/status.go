// Package status maintains the per-file status documents consumed by
// external progress frontends.
package status

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Phase is the lifecycle phase recorded in a status document.
type Phase string

const (
	PhaseStarting     Phase = "starting"
	PhaseTransferring Phase = "transferring"
	PhaseSuccess      Phase = "success"
	PhaseFailed       Phase = "failed"
	PhaseDryRun       Phase = "dry-run"
)

// Terminal reports whether p is a terminal phase.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseFailed || p == PhaseDryRun
}

// Record is one file's status document. Optional fields are pointers so
// that a present-but-zero value (exit_code 0, percent 0) still serializes.
// Fields present vary by phase: percent/transferred during transferring,
// exit_code/duration_s/sha256 at finalization.
type Record struct {
	File        string   `json:"file"`
	Status      Phase    `json:"status"`
	Percent     *int     `json:"percent,omitempty"`
	Transferred *int64   `json:"transferred,omitempty"`
	Size        int64    `json:"size"`
	Msg         string   `json:"msg,omitempty"`
	ExitCode    *int     `json:"exit_code,omitempty"`
	DurationS   *float64 `json:"duration_s,omitempty"`
	SHA256      string   `json:"sha256,omitempty"`
	TS          string   `json:"ts"`
}

// Store writes one JSON status document per file into a directory, keyed
// by basename as <name>.status.json. Each write is a full-record overwrite
// via rename, so readers see either the previous or the new record, never
// a torn one; rapid successive writes are last-writer-wins.
//
// Known limitation: two source files sharing a basename collide on the
// same status document (and audit correlation key). Not disambiguated.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the status directory if needed and returns a Store.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating status directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the status directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Init writes the starting record for a file.
func (s *Store) Init(file string, size int64) error {
	return s.write(Record{
		File:   file,
		Status: PhaseStarting,
		Size:   size,
		TS:     now(),
	})
}

// Update writes a transferring record. Callers must not assume monotonic
// percent values across rapid successive calls; the record on disk simply
// reflects the most recent write.
func (s *Store) Update(file string, percent int, transferred, size int64, msg string) error {
	return s.write(Record{
		File:        file,
		Status:      PhaseTransferring,
		Percent:     &percent,
		Transferred: &transferred,
		Size:        size,
		Msg:         msg,
		TS:          now(),
	})
}

// Finalize writes a terminal record for a file.
func (s *Store) Finalize(file string, outcome Phase, exitCode int, durationS float64, sha256, msg string, size int64) error {
	if !outcome.Terminal() {
		return fmt.Errorf("finalize with non-terminal phase %q", outcome)
	}
	return s.write(Record{
		File:      file,
		Status:    outcome,
		Size:      size,
		Msg:       msg,
		ExitCode:  &exitCode,
		DurationS: &durationS,
		SHA256:    sha256,
		TS:        now(),
	})
}

// Read loads the current status document for a file.
func (s *Store) Read(file string) (*Record, error) {
	data, err := os.ReadFile(s.path(file))
	if err != nil {
		return nil, fmt.Errorf("reading status for %s: %w", file, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing status for %s: %w", file, err)
	}
	return &rec, nil
}

func (s *Store) path(file string) string {
	return filepath.Join(s.dir, file+".status.json")
}

// write serializes the record to a temp file and renames it into place.
func (s *Store) write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling status record: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, "."+rec.File+".status-*")
	if err != nil {
		return fmt.Errorf("creating temp status file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing status record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp status file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting status file mode: %w", err)
	}

	if err := os.Rename(tmpName, s.path(rec.File)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing status record: %w", err)
	}
	return nil
}

// now returns the current UTC time in ISO-8601 at second precision.
func now() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}
