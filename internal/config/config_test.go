package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/home/u/.local/share/fsnap")

	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q", cfg.Database.Type)
	}
	if cfg.Database.DataDir != filepath.Join("/home/u/.local/share/fsnap", "data") {
		t.Errorf("DataDir = %q", cfg.Database.DataDir)
	}
	if cfg.Archive.Type != "none" {
		t.Errorf("Archive.Type = %q", cfg.Archive.Type)
	}
	if cfg.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q", cfg.Encryption.Type)
	}
	if !strings.HasSuffix(cfg.Encryption.PublicKeyPath, "fsnap.pub") {
		t.Errorf("PublicKeyPath = %q", cfg.Encryption.PublicKeyPath)
	}
	if got := cfg.Database.StorePath(); !strings.HasSuffix(got, filepath.Join("data", "fsnap.db")) {
		t.Errorf("StorePath = %q", got)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	cfg := NewConfig("/base")
	cfg.Archive = ArchiveConfig{
		Type:     "s3",
		S3Bucket: "backups",
		S3Prefix: "fsnap/",
		S3Region: "eu-west-1",
	}
	cfg.Specs = map[string]SpecConfig{
		"music": {
			RootDir: "/data/music",
			Digests: true,
			Workers: 4,
			Tags:    map[string]string{"host": "nas"},
			Categories: []CategoryConfig{
				{Name: "flac", Patterns: []string{"{artist}/{album}/*.flac"}},
				{Name: "covers", Patterns: []string{"{artist}/{album}/cover.*"}},
			},
			ArchivedBy: &ArchivedByConfig{Type: "metadata", Key: "album", Values: []string{"vault"}},
			GroupBy:    &GroupByConfig{Type: "format", Format: "{artist}/{album}"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Archive.S3Bucket != "backups" || got.Archive.S3Region != "eu-west-1" {
		t.Errorf("archive = %+v", got.Archive)
	}

	spec := got.Specs["music"]
	if spec.RootDir != "/data/music" || !spec.Digests || spec.Workers != 4 {
		t.Errorf("spec = %+v", spec)
	}
	if spec.Tags["host"] != "nas" {
		t.Errorf("tags = %v", spec.Tags)
	}
	if len(spec.Categories) != 2 || spec.Categories[0].Name != "flac" || spec.Categories[1].Name != "covers" {
		t.Errorf("categories = %+v (order must survive)", spec.Categories)
	}
	if spec.ArchivedBy == nil || spec.ArchivedBy.Key != "album" {
		t.Errorf("archived_by = %+v", spec.ArchivedBy)
	}
	if spec.GroupBy == nil || spec.GroupBy.Format != "{artist}/{album}" {
		t.Errorf("group_by = %+v", spec.GroupBy)
	}
}

func TestReadFromFile(t *testing.T) {
	t.Run("parses a handwritten file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fsnap.toml")
		content := `
base_dir = "/base"

[database]
type = "sqlite"
data_dir = "/base/data"

[specs.docs]
root_dir = "/home/u/docs"
digests = true

[[specs.docs.categories]]
name = "sheets"
patterns = ["{year}/*.csv"]
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		cfg, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile: %v", err)
		}
		spec, err := cfg.Spec("docs")
		if err != nil {
			t.Fatalf("Spec: %v", err)
		}
		if spec.RootDir != "/home/u/docs" || len(spec.Categories) != 1 {
			t.Errorf("spec = %+v", spec)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates the file and parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "fsnap.toml")
		if err := Init(path, NewConfig("/base")); err != nil {
			t.Fatalf("Init: %v", err)
		}
		cfg, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile: %v", err)
		}
		if cfg.BaseDir != "/base" {
			t.Errorf("BaseDir = %q", cfg.BaseDir)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fsnap.toml")
		if err := Init(path, NewConfig("/base")); err != nil {
			t.Fatalf("Init: %v", err)
		}
		if err := Init(path, NewConfig("/other")); err == nil {
			t.Error("expected error for existing config")
		}
	})
}

func TestConfigSpec(t *testing.T) {
	cfg := &Config{Specs: map[string]SpecConfig{
		"docs":   {RootDir: "/docs"},
		"broken": {},
	}}

	t.Run("found", func(t *testing.T) {
		spec, err := cfg.Spec("docs")
		if err != nil {
			t.Fatalf("Spec: %v", err)
		}
		if spec.RootDir != "/docs" {
			t.Errorf("RootDir = %q", spec.RootDir)
		}
	})

	t.Run("unknown name lists configured specs", func(t *testing.T) {
		_, err := cfg.Spec("photos")
		if err == nil || !strings.Contains(err.Error(), "docs") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("rejects a spec without a root", func(t *testing.T) {
		if _, err := cfg.Spec("broken"); err == nil {
			t.Error("expected error for missing root_dir")
		}
	})
}
