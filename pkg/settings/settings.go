// Package settings manages persistent user settings for the newtsim CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/newtron-network/newtsim/pkg/util"
)

// Defaults applied when a setting is empty
const (
	DefaultRedisAddr     = "localhost:6379"
	DefaultSSHAddr       = ":2222"
	DefaultHTTPAddr      = ":8080"
	DefaultLeaseSweep    = time.Minute
	DefaultAuditFileName = "audit.log"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultTopology is the topology file used when -t is not specified
	DefaultTopology string `json:"default_topology,omitempty"`

	// VendorProfile selects the CLI grammar when -p is not specified
	VendorProfile string `json:"vendor_profile,omitempty"`

	// RedisAddr is the state publication endpoint of "serve"
	RedisAddr string `json:"redis_addr,omitempty"`

	// AuditLogPath overrides ~/.newtsim/audit.log
	AuditLogPath string `json:"audit_log_path,omitempty"`

	SSHAddr     string `json:"ssh_addr,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`
	HostKeyPath string `json:"host_key_path,omitempty"`

	// LeaseSweepSeconds is the re-convergence period of "serve"
	LeaseSweepSeconds int `json:"lease_sweep_seconds,omitempty"`
}

// Dir returns the newtsim state directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newtsim"
	}
	return filepath.Join(home, ".newtsim")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newtsim_settings.json"
	}
	return filepath.Join(home, ".newtsim", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetRedisAddr returns the Redis address (with fallback)
func (s *Settings) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return DefaultRedisAddr
}

// GetAuditLogPath returns the audit log path (with fallback)
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return filepath.Join(Dir(), DefaultAuditFileName)
}

// GetSSHAddr returns the SSH console listen address (with fallback)
func (s *Settings) GetSSHAddr() string {
	if s.SSHAddr != "" {
		return s.SSHAddr
	}
	return DefaultSSHAddr
}

// GetHTTPAddr returns the HTTP API listen address (with fallback)
func (s *Settings) GetHTTPAddr() string {
	if s.HTTPAddr != "" {
		return s.HTTPAddr
	}
	return DefaultHTTPAddr
}

// GetHostKeyPath returns the SSH host key path (with fallback)
func (s *Settings) GetHostKeyPath() string {
	if s.HostKeyPath != "" {
		return s.HostKeyPath
	}
	return filepath.Join(Dir(), "ssh_host_ed25519_key")
}

// GetLeaseSweep returns the lease sweep interval (with fallback)
func (s *Settings) GetLeaseSweep() time.Duration {
	if s.LeaseSweepSeconds > 0 {
		return time.Duration(s.LeaseSweepSeconds) * time.Second
	}
	return DefaultLeaseSweep
}

// setters maps the keys accepted by "newtsim settings set".
var setters = map[string]func(s *Settings, v string) error{
	"topology":    func(s *Settings, v string) error { s.DefaultTopology = v; return nil },
	"profile":     func(s *Settings, v string) error { s.VendorProfile = v; return nil },
	"redis":       func(s *Settings, v string) error { s.RedisAddr = v; return nil },
	"audit-log":   func(s *Settings, v string) error { s.AuditLogPath = v; return nil },
	"ssh-addr":    func(s *Settings, v string) error { s.SSHAddr = v; return nil },
	"http-addr":   func(s *Settings, v string) error { s.HTTPAddr = v; return nil },
	"host-key":    func(s *Settings, v string) error { s.HostKeyPath = v; return nil },
	"lease-sweep": setLeaseSweep,
}

func setLeaseSweep(s *Settings, v string) error {
	if v == "" {
		s.LeaseSweepSeconds = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fmt.Errorf("%w: lease-sweep must be a positive number of seconds, got %q", util.ErrInvalidConfig, v)
	}
	s.LeaseSweepSeconds = n
	return nil
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to key; an empty value resets the key to its default.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q (valid: %v)", util.ErrInvalidConfig, key, Keys())
	}
	return set(s, value)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
