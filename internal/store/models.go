package store

import "time"

// Transfer is one completed transfer attempt in the history index. It
// carries the same facts as the JSONL audit record; the audit log remains
// the durable, append-only source of truth while this table exists so the
// CLI can query past runs.
type Transfer struct {
	ID         int64
	File       string
	LocalPath  string
	TargetType string
	TargetSpec string
	Size       int64
	SHA256     string
	StartTime  time.Time
	EndTime    time.Time
	DurationS  float64
	ExitCode   int
	User       string
	Host       string
}

// ListOptions filter ListTransfers.
type ListOptions struct {
	File       string // exact basename match, empty for all
	FailedOnly bool   // only transfers with a non-zero exit code
	Limit      int    // 0 means the default of 50
}
