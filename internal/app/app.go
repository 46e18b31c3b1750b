package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"fsnap/internal/archive"
	"fsnap/internal/config"
	"fsnap/internal/encryption"
	"fsnap/internal/scan"
	"fsnap/internal/snap"
	"fsnap/internal/store"
)

// App is the application layer between the CLI and the snapshot service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string arguments, and manages the store lifecycle on
// Close, including pushing a store snapshot to the archive after mutating
// runs.
type App struct {
	cfg       *config.Config
	store     snap.Store
	archive   snap.Archive
	encryptor snap.Encryptor
	service   *snap.Service
	logger    snap.Logger
	logFile   *os.File
	mutated   bool
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Store", "Diff"). The caller
// must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	st, err := store.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := st.CheckMigrations(); err != nil {
		st.Close()
		return nil, fmt.Errorf("store schema out of date: %w", err)
	}

	arch, err := archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	// Refuse to run against a store that is behind its archived copy.
	if arch != nil {
		remoteVersion, err := arch.Version(snap.StoreItem)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking archived store version: %w", err)
		}

		localMax, err := st.MaxImportTimestamp()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking local store version: %w", err)
		}

		if remoteVersion > localMax {
			st.Close()
			return nil, fmt.Errorf("local store is behind the archive (local=%d, archive=%d): run 'fsnap archive pull' or re-initialize", localMax, remoteVersion)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapted := &slogAdapter{l: logger}
	svc := snap.NewService(st, adapted)

	return &App{
		cfg:       cfg,
		store:     st,
		archive:   arch,
		encryptor: enc,
		service:   svc,
		logger:    adapted,
		logFile:   logFile,
	}, nil
}

// StoreSnapshot scans the named spec's tree and stores the result as a new
// import in the spec's lineage. extraTags are merged over the spec's
// configured tags. Returns the new import's id.
func (a *App) StoreSnapshot(ctx context.Context, specName string, extraTags map[string]string) (snap.ImportID, error) {
	spec, err := a.cfg.Spec(specName)
	if err != nil {
		return snap.ImportID{}, err
	}

	scanner, err := scan.NewScannerFromSpec(spec, a.logger)
	if err != nil {
		return snap.ImportID{}, fmt.Errorf("building scanner for spec %q: %w", specName, err)
	}

	tags := make(map[string]string, len(spec.Tags)+len(extraTags))
	for k, v := range spec.Tags {
		tags[k] = v
	}
	for k, v := range extraTags {
		tags[k] = v
	}

	a.mutated = true
	return a.service.CreateSnapshot(ctx, specName, tags, scanner)
}

// Diff reconciles the given import (hex id) against the latest import of
// the named spec's lineage. The spec's digest setting selects the content
// key used for correspondence.
func (a *App) Diff(specName string, rawID string) (*snap.DiffResult, error) {
	spec, err := a.cfg.Spec(specName)
	if err != nil {
		return nil, err
	}

	id, err := snap.ParseImportID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parsing import id: %w", err)
	}

	return a.service.Diff(id, spec.Digests)
}

// ListImports returns up to limit imports of the named spec's lineage,
// newest first.
func (a *App) ListImports(specName string, limit int) ([]*snap.ImportSummary, error) {
	if _, err := a.cfg.Spec(specName); err != nil {
		return nil, err
	}
	return a.service.ListImports(specName, limit)
}

// SetupKeys generates the age key pair used to encrypt archived store
// snapshots, protecting the private key with the passphrase.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("key pair already exists")
	}
	return a.encryptor.Setup(passphrase)
}

// ValidateArchive verifies the configured archive backend is reachable.
func (a *App) ValidateArchive() error {
	if a.archive == nil {
		return fmt.Errorf("no archive configured")
	}
	return a.archive.ValidateSetup()
}

// Close finalizes the run and closes all resources. After a mutating run
// with an archive configured, the store is snapshotted, optionally
// encrypted, and pushed to the archive with version = the greatest import
// timestamp.
func (a *App) Close() error {
	var firstErr error

	if a.mutated && a.archive != nil {
		if err := a.pushStore(); err != nil {
			firstErr = err
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// pushStore snapshots the store to a temp file and uploads it.
func (a *App) pushStore() error {
	version, err := a.store.MaxImportTimestamp()
	if err != nil {
		return fmt.Errorf("reading store version: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "fsnap-store-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for store snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := a.store.BackupTo(tmpPath); err != nil {
		return fmt.Errorf("snapshotting store: %w", err)
	}

	uploadPath := tmpPath
	if a.encryptor != nil {
		if !a.encryptor.IsConfigured() {
			return fmt.Errorf("encryption configured but keys missing: run 'fsnap keys init'")
		}

		encPath := tmpPath + ".age"
		if err := a.encryptFile(tmpPath, encPath); err != nil {
			return err
		}
		defer os.Remove(encPath)
		uploadPath = encPath
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return fmt.Errorf("opening store snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat store snapshot: %w", err)
	}

	if err := a.archive.Put(snap.StoreItem, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading store snapshot: %w", err)
	}

	a.logger.Info("store snapshot archived", "version", version, "bytes", info.Size())
	return nil
}

func (a *App) encryptFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening store snapshot: %w", err)
	}
	defer src.Close()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	defer dest.Close()

	if err := a.encryptor.Encrypt(src, dest); err != nil {
		return fmt.Errorf("encrypting store snapshot: %w", err)
	}
	return nil
}
