package encryption

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fsnap/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()

	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "fsnap.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "fsnap.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	e := newTestAgeEncryptor(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup")
	}

	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup")
	}

	// The recipient file is a plaintext age recipient.
	pub, err := os.ReadFile(e.recipientPath)
	if err != nil {
		t.Fatalf("reading recipient file: %v", err)
	}
	if !strings.HasPrefix(string(pub), "age1") {
		t.Errorf("recipient file = %q, want age1... recipient", pub)
	}

	// The identity file must not hold the secret key in the clear.
	priv, err := os.ReadFile(e.identityPath)
	if err != nil {
		t.Fatalf("reading identity file: %v", err)
	}
	if strings.Contains(string(priv), "AGE-SECRET-KEY") {
		t.Error("identity stored in plaintext")
	}
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	e := newTestAgeEncryptor(t)

	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	plaintext := "the store snapshot bytes"
	var ciphertext bytes.Buffer
	if err := e.Encrypt(strings.NewReader(plaintext), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if strings.Contains(ciphertext.String(), plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	dec, err := e.Unlock("correct horse")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	var decrypted bytes.Buffer
	if err := dec.Decrypt(bytes.NewReader(ciphertext.Bytes()), &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if decrypted.String() != plaintext {
		t.Errorf("Decrypt() = %q, want %q", decrypted.String(), plaintext)
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	e := newTestAgeEncryptor(t)

	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := e.Unlock("battery staple"); err == nil {
		t.Error("Unlock() with wrong passphrase expected error, got nil")
	}
}

func TestAgeEncryptor_EncryptWithoutSetup(t *testing.T) {
	e := newTestAgeEncryptor(t)

	var out bytes.Buffer
	if err := e.Encrypt(strings.NewReader("data"), &out); err == nil {
		t.Error("Encrypt() without Setup expected error, got nil")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfgType string
		wantErr bool
		wantNil bool
	}{
		{name: "age", cfgType: "age"},
		{name: "default is age", cfgType: ""},
		{name: "test", cfgType: "test"},
		{name: "none disables encryption", cfgType: "none", wantNil: true},
		{name: "unknown", cfgType: "rot13", wantErr: true, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.cfgType})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (e == nil) != tt.wantNil {
				t.Errorf("NewEncryptorFromConfig() = %v, wantNil %v", e, tt.wantNil)
			}
		})
	}
}
