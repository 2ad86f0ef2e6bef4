// Package progress turns a stream of fractional-completion samples from a
// running transfer into per-file status updates.
package progress

import (
	"io"
	"log/slog"

	"github.com/BadgerOps/uplink/internal/status"
)

// Func receives one fractional-completion sample in [0.0, 1.0].
type Func func(fraction float64)

// Reporter converts fraction samples into (percent, bytes) status updates.
// It performs no batching or coalescing: every sample received yields one
// status write. It does not assume samples are monotonic and never decides
// success or failure itself; the stream just ends when the transfer closes
// its sample channel.
type Reporter struct {
	store  *status.Store
	file   string
	total  int64
	logger *slog.Logger
}

// NewReporter returns a Reporter updating the status document for file.
func NewReporter(store *status.Store, file string, totalSize int64, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		store:  store,
		file:   file,
		total:  totalSize,
		logger: logger,
	}
}

// Run drains samples until the channel is closed. Status write failures
// are logged and dropped; progress is advisory and must not disturb the
// transfer itself.
func (r *Reporter) Run(samples <-chan float64) {
	for v := range samples {
		percent := int(v * 100)
		transferred := int64(v * float64(r.total))
		if err := r.store.Update(r.file, percent, transferred, r.total, ""); err != nil {
			r.logger.Debug("status update failed", "file", r.file, "error", err)
		}
	}
}

// Reader wraps an io.Reader and emits a fraction sample to fn after every
// read. With a zero or unknown total no samples are emitted.
type Reader struct {
	reader io.Reader
	total  int64
	read   int64
	fn     Func
}

// NewReader returns a Reader reporting progress against total bytes.
func NewReader(r io.Reader, total int64, fn Func) *Reader {
	return &Reader{reader: r, total: total, fn: fn}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.fn != nil && r.total > 0 {
			r.fn(float64(r.read) / float64(r.total))
		}
	}
	return n, err
}

func (r *Reader) Close() error {
	if c, ok := r.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
