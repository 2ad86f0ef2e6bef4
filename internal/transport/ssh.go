package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	osuser "os/user"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/BadgerOps/uplink/internal/config"
	"github.com/BadgerOps/uplink/internal/progress"
)

// SSH uploads a file by running a remote command that writes its standard
// input to the resolved path.
type SSH struct {
	cfg    config.SSHConfig
	logger *slog.Logger
}

// NewSSH creates an SSH transporter.
func NewSSH(cfg config.SSHConfig, logger *slog.Logger) *SSH {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSH{cfg: cfg, logger: logger}
}

func (t *SSH) Upload(ctx context.Context, req Request) error {
	remotePath := req.Target.Resolve(filepath.Base(req.LocalPath))

	user := req.Target.User
	if user == "" {
		user = t.cfg.User
	}
	if user == "" {
		cur, err := osuser.Current()
		if err != nil {
			return fmt.Errorf("no SSH user configured and current user unknown: %w", err)
		}
		user = cur.Username
	}

	clientCfg, err := t.clientConfig(user)
	if err != nil {
		return err
	}

	port := t.cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(req.Target.Host, strconv.Itoa(port))

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("opening ssh session: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening ssh stdin: %w", err)
	}

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", req.LocalPath, err)
	}
	defer f.Close()

	var body io.Reader = f
	if req.OnProgress != nil {
		body = progress.NewReader(f, req.Size, req.OnProgress)
	}

	cmd := "cat > " + shellQuote(remotePath)
	t.logger.Debug("ssh upload", "addr", addr, "remote_path", remotePath, "size", req.Size)

	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("starting remote command: %w", err)
	}

	if _, err := io.Copy(stdin, body); err != nil {
		stdin.Close()
		_ = session.Wait()
		return fmt.Errorf("streaming to %s: %w", addr, err)
	}
	if err := stdin.Close(); err != nil {
		return fmt.Errorf("closing ssh stdin: %w", err)
	}

	if err := session.Wait(); err != nil {
		var ee *ssh.ExitError
		if errors.As(err, &ee) {
			return Exitf(ee.ExitStatus(), "remote command failed on %s: %v", addr, err)
		}
		return fmt.Errorf("remote command failed on %s: %w", addr, err)
	}
	return nil
}

// clientConfig builds the ssh.ClientConfig from the transporter settings.
func (t *SSH) clientConfig(user string) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if t.cfg.IdentityFile != "" {
		key, err := os.ReadFile(t.cfg.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no SSH authentication configured (set ssh.identity_file)")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if !t.cfg.InsecureIgnoreHostKey {
		if t.cfg.KnownHostsFile == "" {
			return nil, fmt.Errorf("no known_hosts file configured and host key checking enabled")
		}
		cb, err := knownhosts.New(t.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts: %w", err)
		}
		hostKey = cb
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKey,
	}, nil
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
