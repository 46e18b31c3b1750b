package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fsnap.
type Config struct {
	BaseDir    string                `toml:"base_dir"`
	LogDir     string                `toml:"log_dir"`
	Database   DatabaseConfig        `toml:"database"`
	Archive    ArchiveConfig         `toml:"archive"`
	Encryption EncryptionConfig      `toml:"encryption"`
	Specs      map[string]SpecConfig `toml:"specs"`
}

// DatabaseConfig represents configuration for the snapshot store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StorePath returns the store file location for a sqlite-backed store.
func (c DatabaseConfig) StorePath() string {
	return filepath.Join(c.DataDir, "fsnap.db")
}

// ArchiveConfig represents configuration for the store archive backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "none", "memory", "s3", or "filesystem"

	// S3-specific fields (only used when Type == "s3"). Endpoint and the
	// static credential pair are optional; when empty the default AWS
	// endpoint and credential chain are used.
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSArchiveRoot string `toml:"fs_archive_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt archived
// store snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// SpecConfig describes one snapshot spec: the tree to scan and how to
// classify, digest, tag, and group the files found in it.
type SpecConfig struct {
	RootDir    string            `toml:"root_dir"`
	Categories []CategoryConfig  `toml:"categories"`
	Digests    bool              `toml:"digests"`
	Tags       map[string]string `toml:"tags,omitempty"`
	ArchivedBy *ArchivedByConfig `toml:"archived_by,omitempty"`
	GroupBy    *GroupByConfig    `toml:"group_by,omitempty"`
	Workers    int               `toml:"workers,omitempty"`
}

// CategoryConfig names a category and lists its path patterns. Categories
// are tried in the order they appear; the first matching pattern wins.
type CategoryConfig struct {
	Name     string   `toml:"name"`
	Patterns []string `toml:"patterns"`
}

// NewConfig creates a new Config with the provided base directory and
// default paths derived from it.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Archive: ArchiveConfig{
			Type: "none",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "fsnap.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "fsnap.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Spec returns the named spec, or an error naming the specs that do exist.
func (c *Config) Spec(name string) (SpecConfig, error) {
	spec, ok := c.Specs[name]
	if !ok {
		names := make([]string, 0, len(c.Specs))
		for n := range c.Specs {
			names = append(names, n)
		}
		return SpecConfig{}, fmt.Errorf("unknown spec %q (configured: %v)", name, names)
	}
	if spec.RootDir == "" {
		return SpecConfig{}, fmt.Errorf("spec %q has no root_dir", name)
	}
	return spec, nil
}
