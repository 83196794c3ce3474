// Package config loads DriveConfig from file, environment, and defaults,
// the way the rest of the stack does configuration loading: viper for
// precedence (env > file > defaults), mapstructure tags for decoding,
// yaml.v3 for the on-disk format.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DriveConfig is the static configuration for a dittovfsd process.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOVFS_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Environment variables are applied only when a configuration file is
// found; without one, Load returns the defaults unchanged.
type DriveConfig struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Store selects and configures the object store backend.
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// WorldWritable controls whether the World zone accepts writes.
	WorldWritable bool `mapstructure:"world_writable" yaml:"world_writable"`

	// MaxVersions is the per-directory version-history cap. It is loaded
	// and saved with the file, but dittovfsd does not pass it on: the
	// handler uses its own default of 5, and no version pruning is done.
	MaxVersions int `mapstructure:"max_versions" yaml:"max_versions"`

	// FlushDelay is the delay between a file handle's last write and its
	// own flush. dittovfsd does not pass it on: file handles use
	// filehandle.DefaultFlushDelay.
	FlushDelay time.Duration `mapstructure:"flush_delay" yaml:"flush_delay"`

	// SigningKeyPath names a file holding the owner's ed25519 signing
	// seed. dittovfsd does not read it: serve signs Owner/Group
	// directory records with the seed kept in its own state file.
	SigningKeyPath string `mapstructure:"signing_key_path" yaml:"signing_key_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a
	// file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// StoreConfig selects the object store backend and its settings.
type StoreConfig struct {
	// Backend selects the store implementation: "memory" or "badger".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// BadgerDir is the directory badger persists its data files under,
	// used only when Backend is "badger".
	BadgerDir string `mapstructure:"badger_dir" yaml:"badger_dir"`
}

// GetDefaultConfig returns the configuration used when no file or
// environment override is present.
func GetDefaultConfig() *DriveConfig {
	return &DriveConfig{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Store: StoreConfig{
			Backend:   "memory",
			BadgerDir: defaultBadgerDir(),
		},
		WorldWritable:  true,
		MaxVersions:    5,
		FlushDelay:     2 * time.Second,
		SigningKeyPath: "",
	}
}

func defaultBadgerDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./dittovfs-data"
	}
	return filepath.Join(dir, "dittovfsd", "store")
}

// Load loads configuration from file, environment, and defaults.
// Environment variables override values from a file that was found;
// when no file is found, Load returns GetDefaultConfig() and the
// environment is not consulted. configPath may be empty to use the default search location
// ($XDG_CONFIG_HOME/dittovfsd/config.yaml).
func Load(configPath string) (*DriveConfig, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	cfg := GetDefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML with restricted permissions,
// since its signing-key-path entry may point at sensitive material.
func SaveConfig(cfg *DriveConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DITTOVFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	configDir, err := os.UserConfigDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(configDir, "dittovfsd"))
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}
