package target

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Kind identifies the destination transport for a parsed target.
type Kind string

const (
	KindSSH  Kind = "ssh"
	KindHTTP Kind = "http"
	KindS3   Kind = "s3"
)

// ErrUnknownScheme is returned for target descriptors with an unrecognized prefix.
var ErrUnknownScheme = errors.New("unknown target scheme")

// Target is a parsed destination descriptor. Exactly one set of
// kind-specific fields is populated, matching Kind:
//
//	ssh:[user@]host:remote-path  -> Host, Path (User optional)
//	http://... | https://...     -> URL
//	s3:bucket/key-prefix         -> Bucket, Key
//
// A path, URL or key ending in "/" denotes a directory-like prefix: the
// source file's basename is appended at upload time. Anything else is an
// exact destination used verbatim.
type Target struct {
	Kind Kind
	Spec string // the original descriptor string, kept for audit records

	User string
	Host string
	Path string

	URL string

	Bucket string
	Key    string
}

// Parse parses a target descriptor string.
func Parse(spec string) (*Target, error) {
	switch {
	case strings.HasPrefix(spec, "ssh:"):
		return parseSSH(spec)
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return parseHTTP(spec)
	case strings.HasPrefix(spec, "s3:"):
		return parseS3(spec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, spec)
	}
}

func parseSSH(spec string) (*Target, error) {
	rest := strings.TrimPrefix(spec, "ssh:")

	// The user@ portion never contains a colon, so the first colon in the
	// remainder separates host from remote path.
	host := rest
	var user string
	if at := strings.Index(rest, "@"); at >= 0 {
		user = rest[:at]
		host = rest[at+1:]
	}

	colon := strings.Index(host, ":")
	if colon < 0 {
		return nil, fmt.Errorf("ssh target %q: missing remote path (expected ssh:[user@]host:path)", spec)
	}
	remotePath := host[colon+1:]
	host = host[:colon]

	if host == "" {
		return nil, fmt.Errorf("ssh target %q: empty host", spec)
	}
	if remotePath == "" {
		return nil, fmt.Errorf("ssh target %q: empty remote path", spec)
	}

	return &Target{
		Kind: KindSSH,
		Spec: spec,
		User: user,
		Host: host,
		Path: remotePath,
	}, nil
}

func parseHTTP(spec string) (*Target, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("http target %q: %w", spec, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("http target %q: empty host", spec)
	}
	return &Target{
		Kind: KindHTTP,
		Spec: spec,
		URL:  spec,
	}, nil
}

func parseS3(spec string) (*Target, error) {
	rest := strings.TrimPrefix(spec, "s3:")

	slash := strings.Index(rest, "/")
	if slash <= 0 {
		return nil, fmt.Errorf("s3 target %q: expected s3:bucket/key-prefix", spec)
	}
	bucket := rest[:slash]
	key := rest[slash+1:]
	if key == "" {
		return nil, fmt.Errorf("s3 target %q: empty key prefix", spec)
	}

	return &Target{
		Kind:   KindS3,
		Spec:   spec,
		Bucket: bucket,
		Key:    key,
	}, nil
}

// IsDir reports whether the destination denotes a directory-like prefix.
func (t *Target) IsDir() bool {
	switch t.Kind {
	case KindSSH:
		return strings.HasSuffix(t.Path, "/")
	case KindHTTP:
		return strings.HasSuffix(t.URL, "/")
	case KindS3:
		return strings.HasSuffix(t.Key, "/")
	}
	return false
}

// Resolve returns the effective remote identifier for one source file.
// Directory-like prefixes get the basename appended; exact destinations are
// used verbatim, which means multiple files overwrite the same remote
// object. That is accepted behavior, not guarded against.
func (t *Target) Resolve(basename string) string {
	switch t.Kind {
	case KindSSH:
		if t.IsDir() {
			return t.Path + basename
		}
		return t.Path
	case KindHTTP:
		if t.IsDir() {
			return t.URL + url.PathEscape(basename)
		}
		return t.URL
	case KindS3:
		if t.IsDir() {
			return t.Key + basename
		}
		return t.Key
	}
	return ""
}

// String returns a short human-readable destination for log lines.
func (t *Target) String() string {
	switch t.Kind {
	case KindSSH:
		host := t.Host
		if t.User != "" {
			host = t.User + "@" + host
		}
		return fmt.Sprintf("ssh %s:%s", host, t.Path)
	case KindHTTP:
		return t.URL
	case KindS3:
		return fmt.Sprintf("s3://%s", path.Join(t.Bucket, t.Key))
	}
	return t.Spec
}
