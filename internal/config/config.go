package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for netback.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Retention  RetentionConfig  `toml:"retention"`
	Store      StoreConfig      `toml:"store"`
	Blobs      BlobConfig       `toml:"blobs"`
	Fetch      FetchConfig      `toml:"fetch"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// RetentionConfig bounds how many snapshots are kept per device.
type RetentionConfig struct {
	MaxVersionsPerDevice int `toml:"max_versions_per_device"`
}

// StoreConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BlobConfig represents configuration for the snapshot blob backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type BlobConfig struct {
	Type string `toml:"type"` // "filesystem", "s3", or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// FetchConfig holds settings for retrieving configurations from devices.
type FetchConfig struct {
	Command        string `toml:"command"`         // export command run on the device
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-device connect/exec timeout
}

// EncryptionConfig holds paths to the age key pair used to seal device
// credentials.
type EncryptionConfig struct {
	RecipientPath string `toml:"recipient_path"`
	IdentityPath  string `toml:"identity_path"`
}

// DefaultRetention is the number of snapshots kept per device unless
// configured otherwise.
const DefaultRetention = 10

// DefaultFetchCommand is the export command run on devices.
const DefaultFetchCommand = "/export show-sensitive=yes"

// DefaultFetchTimeoutSeconds bounds each device connection.
const DefaultFetchTimeoutSeconds = 30

// NewConfig creates a new Config with the provided base directory and
// default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Retention: RetentionConfig{
			MaxVersionsPerDevice: DefaultRetention,
		},
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Blobs: BlobConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "snapshots"),
		},
		Fetch: FetchConfig{
			Command:        DefaultFetchCommand,
			TimeoutSeconds: DefaultFetchTimeoutSeconds,
		},
		Encryption: EncryptionConfig{
			RecipientPath: filepath.Join(baseDir, "keys", "netback.pub"),
			IdentityPath:  filepath.Join(baseDir, "keys", "netback.key"),
		},
	}
}

// ApplyDefaults fills in zero values left out of an existing config file.
func (c *Config) ApplyDefaults() {
	if c.Retention.MaxVersionsPerDevice <= 0 {
		c.Retention.MaxVersionsPerDevice = DefaultRetention
	}
	if c.Fetch.Command == "" {
		c.Fetch.Command = DefaultFetchCommand
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = DefaultFetchTimeoutSeconds
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
	cfg.ApplyDefaults()
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
func writeToFile(path string, cfg *Config) error {
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

// Init initializes a new config file at the specified path with the
// provided Config. Fails if one already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
