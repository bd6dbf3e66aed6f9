package secrets

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
)

// Credential holds private key material in mlocked memory so it cannot be
// swapped to disk. The source buffer is wiped on acquisition and the locked
// buffer is wiped on Destroy, so the key only ever exists in one place.
type Credential struct {
	buf *memguard.LockedBuffer
}

// NewCredential takes ownership of keyMaterial. The slice is wiped before
// this function returns.
func NewCredential(keyMaterial []byte) (*Credential, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("credential material is empty")
	}
	return &Credential{buf: memguard.NewBufferFromBytes(keyMaterial)}, nil
}

// CredentialFromFile reads a private key file into locked memory.
func CredentialFromFile(path string) (*Credential, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}
	return NewCredential(keyBytes)
}

// Bytes exposes the key material. The returned slice is backed by locked
// memory and becomes invalid after Destroy.
func (c *Credential) Bytes() []byte {
	return c.buf.Bytes()
}

// Destroy wipes the key material. Safe to call more than once, and on a nil
// receiver.
func (c *Credential) Destroy() {
	if c != nil && c.buf != nil {
		c.buf.Destroy()
		c.buf = nil
	}
}
