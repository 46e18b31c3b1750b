package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fsnap/internal/archive"
	"fsnap/internal/config"
	"fsnap/internal/encryption"
	"fsnap/internal/snap"
	"fsnap/internal/store"
)

// PullStore replaces the local store file with the archived copy, decrypting
// it with the passphrase when encryption is configured. A local store that
// is not behind the archive is only overwritten with force.
func PullStore(ctx context.Context, cfg *config.Config, passphrase string, force bool) error {
	if cfg.Database.Type != "sqlite" {
		return fmt.Errorf("archive pull requires a sqlite store")
	}

	arch, err := archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	if arch == nil {
		return fmt.Errorf("no archive configured")
	}

	remoteVersion, err := arch.Version(snap.StoreItem)
	if err != nil {
		return fmt.Errorf("checking archived store version: %w", err)
	}
	if remoteVersion == 0 {
		return fmt.Errorf("archive has no store snapshot")
	}

	storePath := cfg.Database.StorePath()
	if !force {
		if err := ensureLocalBehind(storePath, remoteVersion); err != nil {
			return err
		}
	}

	// Download next to the final location so the rename is atomic.
	if err := os.MkdirAll(filepath.Dir(storePath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(storePath), ".fsnap-pull-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := arch.Get(snap.StoreItem, tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("downloading store snapshot: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing downloaded snapshot: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	finalPath := tmpPath
	if enc != nil {
		dec, err := enc.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}

		decPath := tmpPath + ".dec"
		if err := decryptFile(dec, tmpPath, decPath); err != nil {
			return err
		}
		defer os.Remove(decPath)
		finalPath = decPath
	}

	if err := os.Rename(finalPath, storePath); err != nil {
		return fmt.Errorf("installing pulled store: %w", err)
	}
	return nil
}

// ensureLocalBehind errors unless the local store is missing or strictly
// behind the archived version.
func ensureLocalBehind(storePath string, remoteVersion int64) error {
	if _, err := os.Stat(storePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking local store: %w", err)
	}

	local, err := store.NewSQLiteStore(storePath, nil, nil)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer local.Close()

	localMax, err := local.MaxImportTimestamp()
	if err != nil {
		return fmt.Errorf("reading local store version: %w", err)
	}

	if localMax >= remoteVersion {
		return fmt.Errorf("local store is not behind the archive (local=%d, archive=%d): use --force to overwrite", localMax, remoteVersion)
	}
	return nil
}

func decryptFile(dec snap.DecryptionContext, srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening downloaded snapshot: %w", err)
	}
	defer src.Close()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating decrypted snapshot: %w", err)
	}
	defer dest.Close()

	if err := dec.Decrypt(src, dest); err != nil {
		return fmt.Errorf("decrypting store snapshot: %w", err)
	}
	return nil
}
