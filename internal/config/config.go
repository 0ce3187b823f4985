package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lockwave-io/hostforge/internal/system"
)

// DefaultStateDir holds the configuration, step state and completion marker.
const DefaultStateDir = "/var/lib/hostforge"

// FileName is the name of the configuration record inside the state dir.
const FileName = "config.yaml"

// DefaultAdminUser is the operator account created by vm_setup.
const DefaultAdminUser = "deploy"

var (
	// ErrNotFound means no configuration has been saved yet.
	ErrNotFound = errors.New("config: not found")

	// ErrCorrupt means a configuration file exists but cannot be trusted.
	ErrCorrupt = errors.New("config: corrupt")
)

// Profile selects the deployment shape.
type Profile string

const (
	ProfileFullStack  Profile = "full-stack"
	ProfileMonitoring Profile = "monitoring"
	ProfileMinimal    Profile = "minimal"
)

// Profiles lists every profile in menu order.
var Profiles = []Profile{ProfileFullStack, ProfileMonitoring, ProfileMinimal}

// SudoMode selects how the admin user elevates privileges.
type SudoMode string

const (
	SudoPassword     SudoMode = "password"
	SudoPasswordless SudoMode = "passwordless"
)

// SudoModes lists every privilege-elevation mode in menu order.
var SudoModes = []SudoMode{SudoPassword, SudoPasswordless}

// Config is the operator-supplied configuration for one host.
type Config struct {
	Domain    string   `yaml:"domain"`
	Profile   Profile  `yaml:"profile"`
	SSHKeys   []string `yaml:"ssh_keys"`
	SudoMode  SudoMode `yaml:"sudo_mode"`
	Timezone  string   `yaml:"timezone"`
	Tunnel    bool     `yaml:"tunnel"`
	AdminUser string   `yaml:"admin_user"`
	CreatedAt string   `yaml:"created_at,omitempty"`
}

// Validate checks every field against the same rules the collector applies.
func (c *Config) Validate() error {
	if err := ValidateDomain(c.Domain); err != nil {
		return err
	}
	if _, err := ParseProfile(string(c.Profile)); err != nil {
		return err
	}
	if len(c.SSHKeys) == 0 {
		return &ValidationError{Field: "ssh_keys", Reason: "at least one public key is required"}
	}
	for _, k := range c.SSHKeys {
		if err := ValidatePublicKey(k); err != nil {
			return err
		}
	}
	if _, err := ParseSudoMode(string(c.SudoMode)); err != nil {
		return err
	}
	if err := ValidateTimezone(c.Timezone); err != nil {
		return err
	}
	if c.AdminUser == "" {
		c.AdminUser = DefaultAdminUser
	}
	return ValidateUserName(c.AdminUser)
}

// Store persists a single Config.
type Store interface {
	Load() (*Config, error)
	Save(cfg *Config) error
}

// FileStore keeps the configuration as a YAML file readable only by its owner.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for the config file inside stateDir.
func NewFileStore(stateDir string) *FileStore {
	return &FileStore{Path: filepath.Join(stateDir, FileName)}
}

// Load reads and validates the saved config. It returns ErrNotFound when no
// config exists, and wraps ErrCorrupt when the file is unreadable as a config.
// Files readable by group or others are refused since they embed SSH keys.
func (s *FileStore) Load() (*Config, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("config: stat %s: %w", s.Path, err)
	}

	perm := info.Mode().Perm()
	if perm&0o077 != 0 {
		return nil, fmt.Errorf("config: %s has insecure permissions %o (must be 0600)", s.Path, perm)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.Path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, s.Path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}

	return &cfg, nil
}

// Save validates cfg and atomically replaces the config file with mode 0600.
func (s *FileStore) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.CreatedAt == "" {
		cfg.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := system.EnsureDir(dir, 0o700); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}

	if err := system.AtomicWrite(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", s.Path, err)
	}

	return nil
}
