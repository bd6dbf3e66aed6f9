package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/larsvik/berth/internal/secrets"
)

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want any
	}{
		{
			name: "known hosts key error",
			err:  fmt.Errorf("ssh: handshake failed: %w", &knownhosts.KeyError{}),
			want: &HostKeyMismatchError{},
		},
		{
			name: "key mismatch by message",
			err:  errors.New("ssh: handshake failed: knownhosts: key mismatch"),
			want: &HostKeyMismatchError{},
		},
		{
			name: "auth rejection",
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey], no supported methods remain"),
			want: &AuthError{},
		},
		{
			name: "unreachable host",
			err:  errors.New("dial tcp 10.0.0.1:22: connect: connection refused"),
			want: &ConnectionError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyDialError("example.com", tt.err)
			switch tt.want.(type) {
			case *HostKeyMismatchError:
				var target *HostKeyMismatchError
				assert.True(t, errors.As(classified, &target))
			case *AuthError:
				var target *AuthError
				assert.True(t, errors.As(classified, &target))
			case *ConnectionError:
				var target *ConnectionError
				assert.True(t, errors.As(classified, &target))
			}
		})
	}
}

func TestConnectRejectsBadKey(t *testing.T) {
	cred, err := secrets.NewCredential([]byte("not a private key"))
	require.NoError(t, err)
	defer cred.Destroy()

	_, err = Connect(Config{
		Host:           "example.com",
		Port:           22,
		User:           "deploy",
		Credential:     cred,
		KnownHostsPath: "/nonexistent/known_hosts",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'/var/www/app'", shellQuote("/var/www/app"))
	assert.Equal(t, `'/path/with space'`, shellQuote("/path/with space"))
	assert.Equal(t, `'/o'\''brien'`, shellQuote("/o'brien"))
}
