package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fsinv.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LockDir    string           `toml:"lock_dir"` // export locks, one file per output path
	Scan       ScanConfig       `toml:"scan"`
	Database   DatabaseConfig   `toml:"database"`
	Export     ExportConfig     `toml:"export"`
	Encryption EncryptionConfig `toml:"encryption"`
	Vaults     []VaultConfig    `toml:"vaults"`
}

// ScanConfig holds the defaults for a scan. Command-line flags override them.
type ScanConfig struct {
	IncludeFiles   bool     `toml:"include_files"`
	Algorithm      string   `toml:"algorithm"`    // "", "md5", "sha1", "sha256", "sha512" or "blake2b"
	Workers        int      `toml:"workers"`      // concurrent directory reads; 0 = number of CPUs
	HashWorkers    int      `toml:"hash_workers"` // concurrent file digests; 0 = number of CPUs
	HashTimeout    string   `toml:"hash_timeout"` // per-file limit such as "2m"; empty = none
	FollowSymlinks bool     `toml:"follow_symlinks"`
	Exclude        []string `toml:"exclude"`
	AccessControl  bool     `toml:"access_control"`
}

// HashTimeoutDuration parses HashTimeout. An empty value means no limit.
func (s ScanConfig) HashTimeoutDuration() (time.Duration, error) {
	if s.HashTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.HashTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid hash_timeout %q: %w", s.HashTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid hash_timeout %q: must not be negative", s.HashTimeout)
	}
	return d, nil
}

// DatabaseConfig represents configuration for the run store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ExportConfig holds defaults for writing reports.
type ExportConfig struct {
	Format  string `toml:"format"`  // "csv", "json" or "yaml"
	Encrypt bool   `toml:"encrypt"` // age-encrypt every written report
	Upload  bool   `toml:"upload"`  // copy written reports to every configured vault
}

// EncryptionConfig holds paths to the age key pair used for report encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	// Recipients are additional age public keys ("age1...") every report is
	// also encrypted to.
	Recipients []string `toml:"recipients,omitempty"`
	// Armor writes PEM-style ASCII output instead of binary.
	Armor bool `toml:"armor"`
}

// VaultConfig represents configuration for a report vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // S3-compatible stores; path-style addressing is used
	// Static credentials; when empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// NewConfig creates a Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		LockDir: filepath.Join(baseDir, "locks"),
		Scan: ScanConfig{
			IncludeFiles: true,
			Workers:      runtime.NumCPU(),
			HashWorkers:  runtime.NumCPU(),
			Exclude:      []string{},
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Export: ExportConfig{
			Format: "csv",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "fsinv.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "fsinv.key"),
		},
	}
}

// Validate checks values that cannot be verified by decoding alone.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 || c.Scan.HashWorkers < 0 {
		return fmt.Errorf("scan workers must not be negative")
	}
	if _, err := c.Scan.HashTimeoutDuration(); err != nil {
		return err
	}
	switch c.Export.Format {
	case "", "csv", "json", "yaml":
	default:
		return fmt.Errorf("unknown export format: %s", c.Export.Format)
	}
	names := make(map[string]bool, len(c.Vaults))
	for _, v := range c.Vaults {
		if v.Name == "" {
			return fmt.Errorf("vault of type %q has no name", v.Type)
		}
		if names[v.Name] {
			return fmt.Errorf("duplicate vault name: %s", v.Name)
		}
		names[v.Name] = true
	}
	return nil
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

// ReadOrDefault reads the config at path. A missing file yields the defaults
// of NewConfig(baseDir); any other read or decode error is returned.
// Keys absent from the file keep their default values.
func ReadOrDefault(path, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if _, err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
