// Package engine orchestrates transfers: it drives the per-file state
// machine, feeds the progress reporter, and emits audit records.
package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	osuser "os/user"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BadgerOps/uplink/internal/audit"
	"github.com/BadgerOps/uplink/internal/checksum"
	"github.com/BadgerOps/uplink/internal/config"
	"github.com/BadgerOps/uplink/internal/progress"
	"github.com/BadgerOps/uplink/internal/status"
	"github.com/BadgerOps/uplink/internal/store"
	"github.com/BadgerOps/uplink/internal/target"
	"github.com/BadgerOps/uplink/internal/transport"
)

// Options control a single run.
type Options struct {
	// DryRun short-circuits before any network action: the file's status
	// finalizes as dry-run and an audit record with exit code 0 is still
	// appended.
	DryRun bool
}

// Report aggregates outcomes across the whole file list.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64 // total size of successfully transferred files
}

// AnyFailed reports whether at least one file did not succeed.
func (r *Report) AnyFailed() bool {
	return r.Failed > 0
}

// Uploader processes files one at a time, synchronously, in enumeration
// order. Within one file the progress-sampling path runs concurrently: the
// transporter produces fraction samples, a reporter goroutine drains them
// into status updates, and the uploader joins only on the transfer itself.
type Uploader struct {
	cfg      *config.Config
	status   *status.Store
	auditLog *audit.Log
	history  *store.Store // nil disables history recording
	logger   *slog.Logger
	opts     Options

	user string
	host string

	// transporterFor is swapped out in tests.
	transporterFor func(tg *target.Target) transport.Transporter
	transporters   map[target.Kind]transport.Transporter
}

// NewUploader creates an Uploader. history may be nil.
func NewUploader(cfg *config.Config, st *status.Store, auditLog *audit.Log, history *store.Store, logger *slog.Logger, opts Options) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Uploader{
		cfg:          cfg,
		status:       st,
		auditLog:     auditLog,
		history:      history,
		logger:       logger,
		opts:         opts,
		user:         currentUser(),
		host:         hostname(),
		transporters: make(map[target.Kind]transport.Transporter),
	}
	u.transporterFor = func(tg *target.Target) transport.Transporter {
		return transport.ForTarget(tg, cfg, logger)
	}
	return u
}

// Run uploads every file in files to tg. A per-file failure never halts
// the run; every file is attempted and the report carries the aggregate.
func (u *Uploader) Run(ctx context.Context, files []string, tg *target.Target) *Report {
	report := &Report{Total: len(files)}

	for _, path := range files {
		code, size := u.uploadOne(ctx, path, tg)
		if code == transport.ExitOK {
			report.Succeeded++
			report.Bytes += size
		} else {
			report.Failed++
		}
	}

	u.logger.Info("run complete",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"bytes", report.Bytes,
		"dry_run", u.opts.DryRun,
	)
	return report
}

// uploadOne runs the state machine for a single file:
// starting -> transferring -> {success | failed | dry-run}, then exactly
// one audit record regardless of outcome.
func (u *Uploader) uploadOne(ctx context.Context, path string, tg *target.Target) (exitCode int, size int64) {
	name := filepath.Base(path)
	start := time.Now()

	fi, statErr := os.Stat(path)
	if statErr == nil {
		size = fi.Size()
	}

	if err := u.status.Init(name, size); err != nil {
		u.logger.Error("status init failed", "file", name, "error", err)
	}

	if statErr != nil {
		u.logger.Error("stat failed", "file", name, "error", statErr)
		u.finish(name, path, tg, status.PhaseFailed, transport.ExitFailure, statErr.Error(), checksum.Unknown, 0, start)
		return transport.ExitFailure, 0
	}

	digest := checksum.File(path)

	if u.opts.DryRun {
		u.finish(name, path, tg, status.PhaseDryRun, transport.ExitOK, "", digest, size, start)
		return transport.ExitOK, size
	}

	tr := u.transporter(tg)

	// Progress samples flow through a channel drained by a separate
	// goroutine, so status writes never backpressure the transfer.
	samples := make(chan float64, 64)
	reporter := progress.NewReporter(u.status, name, size, u.logger)
	reporterDone := make(chan struct{})
	go func() {
		reporter.Run(samples)
		close(reporterDone)
	}()

	// Transports may keep reading the request body from a background
	// goroutine after Upload returns (net/http does this when the server
	// responds early), so late samples must be dropped rather than sent
	// on the closed channel.
	var sampleMu sync.Mutex
	samplesClosed := false
	emit := func(f float64) {
		sampleMu.Lock()
		defer sampleMu.Unlock()
		if samplesClosed {
			return
		}
		samples <- f
	}

	err := tr.Upload(ctx, transport.Request{
		LocalPath:  path,
		Size:       size,
		SHA256:     digest,
		Target:     tg,
		OnProgress: emit,
	})

	sampleMu.Lock()
	samplesClosed = true
	close(samples)
	sampleMu.Unlock()
	<-reporterDone

	code := transport.ExitCode(err)
	outcome := status.PhaseSuccess
	msg := ""
	if code != transport.ExitOK {
		outcome = status.PhaseFailed
		if err != nil {
			msg = err.Error()
		}
		u.logger.Error("transfer failed", "file", name, "target", tg.String(), "exit_code", code, "error", err)
	} else {
		u.logger.Info("transfer complete", "file", name, "target", tg.String(), "size", size)
	}

	u.finish(name, path, tg, outcome, code, msg, digest, size, start)
	return code, size
}

// finish writes the terminal status record, then the audit record, in
// that order: the audit entry must never precede finalization.
func (u *Uploader) finish(name, path string, tg *target.Target, outcome status.Phase, code int, msg, digest string, size int64, start time.Time) {
	duration := time.Since(start).Seconds()

	if err := u.status.Finalize(name, outcome, code, duration, digest, msg, size); err != nil {
		u.logger.Error("status finalize failed", "file", name, "error", err)
	}

	end := time.Now()
	rec := audit.Record{
		File:       name,
		LocalPath:  path,
		TargetType: string(tg.Kind),
		TargetSpec: tg.Spec,
		Size:       size,
		SHA256:     digest,
		StartTS:    audit.Timestamp(start),
		EndTS:      audit.Timestamp(end),
		DurationS:  duration,
		ExitCode:   code,
		User:       u.user,
		Host:       u.host,
	}
	if err := u.auditLog.Append(rec); err != nil {
		u.logger.Error("audit append failed", "file", name, "error", err)
	}

	if u.history != nil {
		// The JSONL log is the durable record; history is a queryable
		// convenience and must never fail a transfer.
		if err := u.history.RecordTransfer(&store.Transfer{
			File:       name,
			LocalPath:  path,
			TargetType: string(tg.Kind),
			TargetSpec: tg.Spec,
			Size:       size,
			SHA256:     digest,
			StartTime:  start.UTC(),
			EndTime:    end.UTC(),
			DurationS:  duration,
			ExitCode:   code,
			User:       u.user,
			Host:       u.host,
		}); err != nil {
			u.logger.Warn("history record failed", "file", name, "error", err)
		}
	}
}

// transporter returns the per-kind transporter, constructing it once.
func (u *Uploader) transporter(tg *target.Target) transport.Transporter {
	if tr, ok := u.transporters[tg.Kind]; ok {
		return tr
	}
	tr := u.transporterFor(tg)
	u.transporters[tg.Kind] = tr
	return tr
}

// EnumerateSource resolves a source path into the flat list of files to
// upload. A regular file yields itself; a directory is walked recursively
// and yields every regular file in it, sorted.
func EnumerateSource(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving source path: %w", err)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source path: %w", err)
	}

	if fi.Mode().IsRegular() {
		return []string{abs}, nil
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("source %s is neither a regular file nor a directory", abs)
	}

	var files []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking source directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

func currentUser() string {
	if cur, err := osuser.Current(); err == nil && cur.Username != "" {
		return cur.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown"
}
