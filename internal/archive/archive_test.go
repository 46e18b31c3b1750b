package archive

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"fsnap/internal/config"
	"fsnap/internal/snap"
)

// backends lists the archive implementations that can be exercised without
// external services.
func backends(t *testing.T) map[string]snap.Archive {
	t.Helper()

	fs, err := NewFileSystemArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	return map[string]snap.Archive{
		"memory":     NewMemoryArchive(),
		"filesystem": fs,
	}
}

func TestArchive_PutAndGet(t *testing.T) {
	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			content := "snapshot bytes"
			err := a.Put(snap.StoreItem, strings.NewReader(content), int64(len(content)), 42)
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			var buf bytes.Buffer
			if err := a.Get(snap.StoreItem, &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if buf.String() != content {
				t.Errorf("Get() = %q, want %q", buf.String(), content)
			}
		})
	}
}

func TestArchive_Version(t *testing.T) {
	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			version, err := a.Version(snap.StoreItem)
			if err != nil {
				t.Fatalf("Version() error = %v", err)
			}
			if version != 0 {
				t.Errorf("Version() before any Put = %d, want 0", version)
			}

			if err := a.Put(snap.StoreItem, strings.NewReader("v1"), 2, 1700000000); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			version, err = a.Version(snap.StoreItem)
			if err != nil {
				t.Fatalf("Version() error = %v", err)
			}
			if version != 1700000000 {
				t.Errorf("Version() = %d, want 1700000000", version)
			}
		})
	}
}

func TestArchive_PutOverwrites(t *testing.T) {
	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := a.Put(snap.StoreItem, strings.NewReader("old"), 3, 1); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := a.Put(snap.StoreItem, strings.NewReader("newer"), 5, 2); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			var buf bytes.Buffer
			if err := a.Get(snap.StoreItem, &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if buf.String() != "newer" {
				t.Errorf("Get() = %q, want newer", buf.String())
			}

			version, err := a.Version(snap.StoreItem)
			if err != nil {
				t.Fatalf("Version() error = %v", err)
			}
			if version != 2 {
				t.Errorf("Version() = %d, want 2", version)
			}
		})
	}
}

func TestArchive_SizeMismatch(t *testing.T) {
	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := a.Put(snap.StoreItem, strings.NewReader("short"), 100, 1)
			if err == nil {
				t.Error("Put() with wrong size expected error, got nil")
			}
		})
	}
}

func TestArchive_GetMissing(t *testing.T) {
	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := a.Get("nothing-here", &buf); err == nil {
				t.Error("Get() for missing item expected error, got nil")
			}
		})
	}
}

func TestArchive_ValidateSetup(t *testing.T) {
	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := a.ValidateSetup(); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestNewArchiveFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ArchiveConfig
		wantErr bool
		wantNil bool
	}{
		{
			name:    "none disables archival",
			cfg:     config.ArchiveConfig{Type: "none"},
			wantNil: true,
		},
		{
			name:    "empty type disables archival",
			cfg:     config.ArchiveConfig{},
			wantNil: true,
		},
		{
			name: "memory archive",
			cfg:  config.ArchiveConfig{Type: "memory"},
		},
		{
			name: "filesystem archive",
			cfg:  config.ArchiveConfig{Type: "filesystem", FSArchiveRoot: t.TempDir()},
		},
		{
			name:    "filesystem archive without root",
			cfg:     config.ArchiveConfig{Type: "filesystem"},
			wantErr: true,
			wantNil: true,
		},
		{
			name:    "s3 archive without bucket",
			cfg:     config.ArchiveConfig{Type: "s3"},
			wantErr: true,
			wantNil: true,
		},
		{
			name:    "unknown type",
			cfg:     config.ArchiveConfig{Type: "tape"},
			wantErr: true,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewArchiveFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewArchiveFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (a == nil) != tt.wantNil {
				t.Errorf("NewArchiveFromConfig() = %v, wantNil %v", a, tt.wantNil)
			}
		})
	}
}
