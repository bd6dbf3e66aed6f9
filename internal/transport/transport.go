// Package transport provides key-authenticated, host-key-verified SSH
// sessions to target hosts.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/larsvik/berth/internal/secrets"
)

const defaultDialTimeout = 10 * time.Second

// Config describes one SSH connection. The credential is only read during
// Connect; the caller keeps ownership and wipes it when the release is done.
type Config struct {
	Host           string
	Port           int
	User           string
	Credential     *secrets.Credential
	KnownHostsPath string
	DialTimeout    time.Duration
}

// RunResult carries everything a remote command reported.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Client is an authenticated session factory for a single host. It is not
// shared across concurrent releases.
type Client struct {
	sshClient *ssh.Client
	host      string
	cleanup   func()
}

// Connect dials the target and verifies its host key against known_hosts.
// There is no insecure fallback: a missing or mismatched host key fails with
// HostKeyMismatchError. Without a configured credential the SSH agent is
// used.
func Connect(config Config) (*Client, error) {
	authMethods, cleanup, err := buildAuthMethods(config)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := knownhosts.New(config.KnownHostsPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to load known_hosts file %s: %w", config.KnownHostsPath, err)
	}

	timeout := config.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	clientConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))
	sshClient, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		cleanup()
		return nil, classifyDialError(config.Host, err)
	}

	return &Client{sshClient: sshClient, host: config.Host, cleanup: cleanup}, nil
}

func buildAuthMethods(config Config) ([]ssh.AuthMethod, func(), error) {
	cleanup := func() {}

	if config.Credential != nil {
		signer, err := ssh.ParsePrivateKey(config.Credential.Bytes())
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, cleanup, nil
	}

	// SSH agent (close the socket when the client is done)
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			ag := agent.NewClient(conn)
			cleanup = func() { _ = conn.Close() }
			return []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)}, cleanup, nil
		}
	}

	return nil, cleanup, &AuthError{Host: config.Host, Err: errors.New("no key configured and no SSH agent available")}
}

// classifyDialError maps an ssh dial failure onto the transport error
// taxonomy. Host key failures are checked first since they must never be
// mistaken for a retryable connection problem.
func classifyDialError(host string, err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return &HostKeyMismatchError{Host: host, Err: err}
	}

	msg := err.Error()
	if strings.Contains(msg, "knownhosts:") || strings.Contains(msg, "key mismatch") {
		return &HostKeyMismatchError{Host: host, Err: err}
	}
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return &AuthError{Host: host, Err: err}
	}
	return &ConnectionError{Host: host, Err: err}
}

// Run executes a command on the host and captures its output. Cancellation
// closes the session; the command's fate on the remote side is then unknown,
// which is why callers treat it as a failure.
func (c *Client) Run(ctx context.Context, command string) (RunResult, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return RunResult{}, &ConnectionError{Host: c.host, Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(command); err != nil {
		return RunResult{}, &ConnectionError{Host: c.host, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return RunResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}, ctx.Err()
	case err := <-done:
		result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitStatus()
				return result, nil
			}
			return result, &ConnectionError{Host: c.host, Err: err}
		}
		return result, nil
	}
}

// Copy streams a local file to remotePath, creating parent directories.
func (c *Client) Copy(ctx context.Context, localPath, remotePath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	session, err := c.sshClient.NewSession()
	if err != nil {
		return &ConnectionError{Host: c.host, Err: err}
	}
	defer session.Close()

	session.Stdin = file
	var stderr bytes.Buffer
	session.Stderr = &stderr

	remoteDir := filepath.ToSlash(filepath.Dir(remotePath))
	command := fmt.Sprintf("mkdir -p %s && cat > %s", shellQuote(remoteDir), shellQuote(remotePath))

	if err := session.Start(command); err != nil {
		return &ConnectionError{Host: c.host, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to copy %s to %s:%s: %w (stderr: %s)",
				localPath, c.host, remotePath, err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}
}

func (c *Client) Close() error {
	err := c.sshClient.Close()
	if c.cleanup != nil {
		c.cleanup()
	}
	return err
}

// shellQuote wraps a path in single quotes for safe use in a remote command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
