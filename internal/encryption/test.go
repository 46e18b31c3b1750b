package encryption

import (
	"bytes"
	"fmt"
	"io"

	"fsnap/internal/snap"
)

// marker tags payloads produced by TestEncryptor. The embedded NULs keep it
// from colliding with real snapshot content.
var marker = []byte("fsnap-enc\x00")

// TestEncryptor is the key-less encryptor behind the "test" encryption
// type. It frames the payload with a marker instead of encrypting, so
// archive round trips can be exercised without key files or passphrases
// while still producing bytes that differ from the plaintext.
type TestEncryptor struct {
	setupCalled bool
}

var _ snap.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor returns a ready TestEncryptor; Setup is a no-op.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(marker); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("framing payload: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase.
func (e *TestEncryptor) Unlock(passphrase string) (snap.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the marker written by TestEncryptor and
// rejects payloads that do not carry it.
type TestDecryptionContext struct{}

var _ snap.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	prefix := make([]byte, len(marker))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(prefix, marker) {
		return fmt.Errorf("payload was not framed by the test encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("unframing payload: %w", err)
	}
	return nil
}
