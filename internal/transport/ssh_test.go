package transport

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/BadgerOps/uplink/internal/config"
	"github.com/BadgerOps/uplink/internal/target"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/srv/in/a.txt", "'/srv/in/a.txt'"},
		{"/srv/with space/a.txt", "'/srv/with space/a.txt'"},
		{"/srv/o'brien.txt", `'/srv/o'\''brien.txt'`},
		{"$HOME/a.txt", "'$HOME/a.txt'"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := shellQuote(tt.in); got != tt.want {
				t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestSSHUploadNoAuth verifies a misconfigured transporter fails with the
// generic status before touching the network
func TestSSHUploadNoAuth(t *testing.T) {
	cfg := config.DefaultConfig().SSH
	cfg.IdentityFile = ""

	tr := NewSSH(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tg, err := target.Parse("ssh:deploy@nowhere.invalid:/srv/in/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	uploadErr := tr.Upload(context.Background(), Request{
		LocalPath: "/does/not/matter",
		Size:      1,
		Target:    tg,
	})
	if uploadErr == nil {
		t.Fatal("expected error with no auth configured")
	}
	if !strings.Contains(uploadErr.Error(), "no SSH authentication") {
		t.Errorf("unexpected error: %v", uploadErr)
	}
	if code := ExitCode(uploadErr); code != ExitFailure {
		t.Errorf("ExitCode = %d, want %d", code, ExitFailure)
	}
}
