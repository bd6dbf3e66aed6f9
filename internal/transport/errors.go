package transport

import "fmt"

// ConnectionError means the host could not be reached.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError means the host rejected the credential.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication to %s failed: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// HostKeyMismatchError means the host presented a key that does not match the
// known_hosts entry, or no entry exists. Either way the host's identity is
// unverified and the connection must not proceed.
type HostKeyMismatchError struct {
	Host string
	Err  error
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key verification for %s failed: %v", e.Host, e.Err)
}

func (e *HostKeyMismatchError) Unwrap() error { return e.Err }
