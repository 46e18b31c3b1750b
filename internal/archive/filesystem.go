package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fsnap/internal/snap"
)

// FileSystemArchive is a filesystem-based implementation of the Archive
// interface. Items are stored as files in a directory structure:
//
//	<root>/
//	  items/
//	    <name>          (item payload)
//	    <name>.version  (version stamp)
type FileSystemArchive struct {
	root     string
	itemsDir string
}

// NewFileSystemArchive creates a new filesystem archive rooted at the given path.
func NewFileSystemArchive(root string) (*FileSystemArchive, error) {
	itemsDir := filepath.Join(root, "items")

	if err := os.MkdirAll(itemsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create items directory: %w", err)
	}

	return &FileSystemArchive{
		root:     root,
		itemsDir: itemsDir,
	}, nil
}

// Put stores an item along with its version stamp.
func (a *FileSystemArchive) Put(name string, r io.Reader, size int64, version int64) error {
	destPath := filepath.Join(a.itemsDir, name)
	if err := a.writeFile(destPath, r, size); err != nil {
		return err
	}

	versionPath := filepath.Join(a.itemsDir, name+".version")
	versionData := strconv.FormatInt(version, 10)
	return os.WriteFile(versionPath, []byte(versionData), 0644)
}

// Get retrieves an item by name and writes it to w.
func (a *FileSystemArchive) Get(name string, w io.Writer) error {
	srcPath := filepath.Join(a.itemsDir, name)

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("archive item not found: %s", name)
		}
		return fmt.Errorf("failed to open item: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read item: %w", err)
	}

	return nil
}

// Version returns the version stamp for a named item.
// Returns 0 if no version file exists.
func (a *FileSystemArchive) Version(name string) (int64, error) {
	versionPath := filepath.Join(a.itemsDir, name+".version")
	data, err := os.ReadFile(versionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the archive directories are accessible.
func (a *FileSystemArchive) ValidateSetup() error {
	for _, dir := range []string{a.root, a.itemsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("archive directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("archive path is not a directory: %s", dir)
		}
	}

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (a *FileSystemArchive) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemArchive implements the Archive interface
var _ snap.Archive = (*FileSystemArchive)(nil)
