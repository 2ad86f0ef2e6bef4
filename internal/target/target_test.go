package target

import (
	"errors"
	"testing"
)

// TestParseSSH covers host/path splitting, including paths with colons
// and the optional user@ portion
func TestParseSSH(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantUser string
		wantHost string
		wantPath string
	}{
		{"plain", "ssh:backup01:/srv/incoming/file.bin", "", "backup01", "/srv/incoming/file.bin"},
		{"with user", "ssh:deploy@backup01:/srv/incoming/", "deploy", "backup01", "/srv/incoming/"},
		{"colon in path", "ssh:host:/data/a:b.txt", "", "host", "/data/a:b.txt"},
		{"relative path", "ssh:host:incoming/", "", "host", "incoming/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.spec, err)
			}
			if tg.Kind != KindSSH {
				t.Errorf("Kind = %q, want %q", tg.Kind, KindSSH)
			}
			if tg.User != tt.wantUser {
				t.Errorf("User = %q, want %q", tg.User, tt.wantUser)
			}
			if tg.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", tg.Host, tt.wantHost)
			}
			if tg.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", tg.Path, tt.wantPath)
			}
			if tg.Spec != tt.spec {
				t.Errorf("Spec = %q, want %q", tg.Spec, tt.spec)
			}
		})
	}
}

func TestParseHTTP(t *testing.T) {
	tg, err := Parse("https://host.example/up/")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if tg.Kind != KindHTTP {
		t.Errorf("Kind = %q, want %q", tg.Kind, KindHTTP)
	}
	if tg.URL != "https://host.example/up/" {
		t.Errorf("URL = %q", tg.URL)
	}
	if !tg.IsDir() {
		t.Error("expected directory-like target")
	}
}

func TestParseS3(t *testing.T) {
	tg, err := Parse("s3:bucket/prefix/sub/")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if tg.Kind != KindS3 {
		t.Errorf("Kind = %q, want %q", tg.Kind, KindS3)
	}
	if tg.Bucket != "bucket" {
		t.Errorf("Bucket = %q, want %q", tg.Bucket, "bucket")
	}
	if tg.Key != "prefix/sub/" {
		t.Errorf("Key = %q, want %q", tg.Key, "prefix/sub/")
	}
}

// TestParseErrors verifies malformed descriptors are rejected
func TestParseErrors(t *testing.T) {
	tests := []string{
		"ftp://host/path",
		"host:/path",
		"",
		"ssh:hostonly",
		"ssh::/path",
		"ssh:host:",
		"s3:bucketonly",
		"s3:/key",
		"s3:bucket/",
	}

	for _, spec := range tests {
		t.Run(spec, func(t *testing.T) {
			if _, err := Parse(spec); err == nil {
				t.Errorf("Parse(%q) = nil error, want error", spec)
			}
		})
	}
}

func TestParseUnknownScheme(t *testing.T) {
	_, err := Parse("ftp://host/path")
	if !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("expected ErrUnknownScheme, got %v", err)
	}
}

// TestResolve checks basename handling for directory vs exact targets
func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want string
	}{
		{"ssh dir", "ssh:host:/srv/in/", "/srv/in/a.txt"},
		{"ssh exact", "ssh:host:/srv/in/dest.bin", "/srv/in/dest.bin"},
		{"http dir", "http://host/up/", "http://host/up/a.txt"},
		{"http exact", "http://host/up/dest", "http://host/up/dest"},
		{"s3 dir", "s3:bucket/prefix/", "prefix/a.txt"},
		{"s3 exact", "s3:bucket/prefix/key", "prefix/key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got := tg.Resolve("a.txt"); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}
