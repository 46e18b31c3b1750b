package encryption

import (
	"fmt"

	"fsnap/internal/config"
	"fsnap/internal/snap"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. Type "none" yields a nil Encryptor: archived snapshots are stored
// in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (snap.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "none":
		return nil, nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
