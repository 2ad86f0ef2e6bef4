// Package transport moves one local file to a remote destination and
// reports a process-style exit status.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BadgerOps/uplink/internal/config"
	"github.com/BadgerOps/uplink/internal/progress"
	"github.com/BadgerOps/uplink/internal/target"
)

// Process-style exit statuses for a single transfer.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitUnavailable mirrors the shell convention for a missing command:
	// the capability this destination kind requires could not be set up
	// (e.g. no object-storage client constructible from config/env).
	ExitUnavailable = 127
)

// Request describes one upload.
type Request struct {
	LocalPath string
	Size      int64
	SHA256    string // hex digest or checksum.Unknown
	Target    *target.Target
	// OnProgress, when non-nil, receives fractional-completion samples
	// while the file streams out. Nil disables intermediate progress and
	// the transfer becomes a single blocking operation.
	OnProgress progress.Func
}

// Transporter uploads a local file to its destination. A nil return means
// exit status 0; failures carry their status via ExitError where it is
// anything other than the generic 1.
type Transporter interface {
	Upload(ctx context.Context, req Request) error
}

// ExitError is a transfer failure with an explicit exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("transfer failed (exit %d): %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exitf builds an ExitError from a format string.
func Exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an Upload result to its exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// ForTarget returns the transporter for the destination kind.
func ForTarget(tg *target.Target, cfg *config.Config, logger *slog.Logger) Transporter {
	switch tg.Kind {
	case target.KindSSH:
		return NewSSH(cfg.SSH, logger)
	case target.KindHTTP:
		return NewHTTP(logger)
	case target.KindS3:
		return NewS3(cfg.S3, logger)
	default:
		panic(fmt.Sprintf("unhandled target kind %q", tg.Kind))
	}
}
