package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"fsnap/internal/config"
	"fsnap/internal/snap"
)

// AgeEncryptor protects archived store snapshots with filippo.io/age.
// A generated X25519 key pair is split across two files: the recipient
// (public key) stays in plaintext so a push can encrypt without prompting,
// while the identity (private key) is itself age-encrypted under a
// scrypt-derived passphrase and only read back when a pull needs to
// decrypt.
type AgeEncryptor struct {
	recipientPath string
	identityPath  string
}

var _ snap.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor returns an AgeEncryptor bound to the configured key
// file locations. No files are touched until Setup.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		recipientPath: cfg.PublicKeyPath,
		identityPath:  cfg.PrivateKeyPath,
	}
}

// Setup generates a fresh X25519 key pair and writes both key files,
// sealing the identity under the passphrase. Existing key files are
// overwritten; callers guard against that.
func (e *AgeEncryptor) Setup(passphrase string) error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating X25519 identity: %w", err)
	}
	if err := e.writeRecipientFile(identity.Recipient().String()); err != nil {
		return err
	}
	return e.writeIdentityFile(identity.String(), passphrase)
}

func (e *AgeEncryptor) writeRecipientFile(recipient string) error {
	if err := os.MkdirAll(filepath.Dir(e.recipientPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(e.recipientPath, []byte(recipient+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient file: %w", err)
	}
	return nil
}

func (e *AgeEncryptor) writeIdentityFile(identity, passphrase string) error {
	if err := os.MkdirAll(filepath.Dir(e.identityPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	f, err := os.OpenFile(e.identityPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	seal, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("deriving passphrase recipient: %w", err)
	}
	w, err := age.Encrypt(f, seal)
	if err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	if _, err := io.WriteString(w, identity+"\n"); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	return nil
}

// Encrypt streams plaintext from r into age ciphertext on w, addressed to
// the stored recipient. Only the recipient file is needed, so Encrypt works
// without a passphrase.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.recipient()
	if err != nil {
		return err
	}
	enc, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing encryption: %w", err)
	}
	return nil
}

func (e *AgeEncryptor) recipient() (age.Recipient, error) {
	data, err := os.ReadFile(e.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient file: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient file: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("recipient file %s holds no recipients", e.recipientPath)
	}
	return recipients[0], nil
}

// Unlock opens the sealed identity with the passphrase and returns a
// context that can decrypt snapshots addressed to this key pair. A wrong
// passphrase fails here, before any snapshot data is read.
func (e *AgeEncryptor) Unlock(passphrase string) (snap.DecryptionContext, error) {
	sealed, err := os.Open(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer sealed.Close()

	key, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase identity: %w", err)
	}
	opened, err := age.Decrypt(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("unsealing identity: %w", err)
	}
	plain, err := io.ReadAll(opened)
	if err != nil {
		return nil, fmt.Errorf("reading unsealed identity: %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("identity file %s holds no identities", e.identityPath)
	}
	return &AgeDecryptionContext{identity: identities[0]}, nil
}

// IsConfigured reports whether both key files are present.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, path := range []string{e.recipientPath, e.identityPath} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// AgeDecryptionContext wraps an unlocked identity. It stays valid for the
// rest of the process; the passphrase is not retained.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ snap.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt streams age ciphertext from r into plaintext on w.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	dec, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("starting decryption: %w", err)
	}
	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("decrypting: %w", err)
	}
	return nil
}
