package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/BadgerOps/uplink/internal/checksum"
	"github.com/BadgerOps/uplink/internal/progress"
)

// maxErrorBody caps how much of an error response is kept for the status
// message.
const maxErrorBody = 1024

// HTTP uploads files with a PUT request, failing on any non-2xx response.
type HTTP struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
}

// NewHTTP creates an HTTP transporter.
func NewHTTP(logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
			// No overall timeout: the body write runs for as long as the
			// upload takes.
		},
		logger:    logger,
		userAgent: "uplink/1.0",
	}
}

func (t *HTTP) Upload(ctx context.Context, req Request) error {
	url := req.Target.Resolve(filepath.Base(req.LocalPath))

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", req.LocalPath, err)
	}
	defer f.Close()

	var body io.Reader = f
	if req.OnProgress != nil {
		body = progress.NewReader(f, req.Size, req.OnProgress)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	httpReq.ContentLength = req.Size
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.SHA256 != "" && req.SHA256 != checksum.Unknown {
		httpReq.Header.Set("X-Content-Sha256", req.SHA256)
	}

	t.logger.Debug("http upload", "url", url, "size", req.Size)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Exitf(ExitFailure, "http error %d: %s: %s", resp.StatusCode, resp.Status, string(errBody))
	}
	return nil
}
