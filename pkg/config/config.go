package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/safedrive/safedrive-engine/internal/bytesize"
)

// Config represents the SafeDrive engine configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SAFEDRIVE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// SAFEDRIVE_PASSWORD is never read through this loader; it is read directly
// from the environment by the askpass helper so it is never persisted to
// disk alongside the rest of the configuration.
type Config struct {
	// Account identifies the local client and where its state lives on disk.
	Account AccountConfig `mapstructure:"account" yaml:"account"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Cache specifies the local content-addressed block cache.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Upload configures the write-through upload queue (C6).
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`

	// Remote configures the collaborator store backend (C9).
	Remote RemoteConfig `mapstructure:"remote" yaml:"remote"`

	// Retention configures the default session-retention schedule (C8).
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// SyncVersion is the sync-session format version used for new syncs (1 or 2).
	SyncVersion int `mapstructure:"sync_version" validate:"oneof=1 2" yaml:"sync_version"`
}

// AccountConfig identifies the local client and its on-disk state directory.
type AccountConfig struct {
	// ID is the unique client identifier (a UUID string). Generated once at
	// `safedrive init` time and persisted in the config file thereafter.
	ID string `mapstructure:"id" yaml:"id"`

	// Dir is the directory holding the wrapped keyset, session metadata,
	// lock files, and logs. Example: ~/.safedrive
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`

	// MaxSizeBytes rotates the log file once it exceeds this size. Ignored
	// when Output is stdout/stderr.
	MaxSizeBytes bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size,omitempty"`
}

// CacheConfig specifies the local content-addressed block cache (C5).
type CacheConfig struct {
	// Dir is the directory holding cached wrapped blocks, sharded by the
	// first hex nibble of each block's content address.
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`

	// SizeLimit is the maximum total size of cached blocks before the oldest
	// entries (by creation time) are evicted. Supports human-readable sizes:
	// "1Gi", "500Mi", "100MB".
	SizeLimit bytesize.ByteSize `mapstructure:"size_limit" yaml:"size_limit,omitempty"`

	// Shard enables sharding cache filenames by their first hex nibble.
	Shard bool `mapstructure:"shard" yaml:"shard"`
}

// UploadConfig configures the write-through upload queue (C6).
type UploadConfig struct {
	// ItemLimit is the maximum number of blocks per upload batch.
	ItemLimit int `mapstructure:"item_limit" validate:"omitempty,min=1" yaml:"item_limit"`

	// SizeLimit is the maximum total batch size before a batch is flushed.
	SizeLimit bytesize.ByteSize `mapstructure:"size_limit" yaml:"size_limit,omitempty"`

	// MaxRetries is the maximum retry attempts for a recoverable failure.
	MaxRetries int `mapstructure:"max_retries" validate:"omitempty,min=1" yaml:"max_retries"`

	// ServiceUnavailableRetries bounds retries specifically for
	// ServiceUnavailable responses.
	ServiceUnavailableRetries int `mapstructure:"service_unavailable_retries" validate:"omitempty,min=1" yaml:"service_unavailable_retries"`

	// QueueDepth is the bounded channel capacity between the producer
	// (session builder) and the upload consumer.
	QueueDepth int `mapstructure:"queue_depth" validate:"omitempty,min=1" yaml:"queue_depth"`
}

// RemoteConfig configures the collaborator store backend (C9).
type RemoteConfig struct {
	// Type selects the backend implementation. Currently only "s3" ships.
	Type string `mapstructure:"type" validate:"required,oneof=s3" yaml:"type"`

	// S3 holds S3-compatible backend settings, used when Type == "s3".
	S3 *S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
}

// S3Config configures the S3-compatible remote store backend.
type S3Config struct {
	// Bucket is the destination bucket name.
	Bucket string `mapstructure:"bucket" validate:"required" yaml:"bucket"`

	// Prefix is prepended to every object key (blocks and sync sessions are
	// stored under separate sub-prefixes beneath this).
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`

	// Region is the AWS region, or an arbitrary region string for
	// S3-compatible non-AWS endpoints.
	Region string `mapstructure:"region" validate:"required" yaml:"region"`

	// Endpoint overrides the default AWS endpoint resolution, for
	// S3-compatible services (MinIO, R2, etc). Empty uses AWS's default.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// MaxRetries is the AWS SDK's own transport-level retry budget,
	// independent of the upload queue's application-level retries.
	MaxRetries int `mapstructure:"max_retries" validate:"omitempty,min=0" yaml:"max_retries"`
}

// RetentionConfig configures the default session-retention schedule (C8).
type RetentionConfig struct {
	// DefaultSchedule names the schedule applied when a retention pass runs
	// without an explicit override. See pkg/retention for valid names.
	DefaultSchedule string `mapstructure:"default_schedule" validate:"required" yaml:"default_schedule"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server are
	// enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load reads configuration from the given path (or the default location if
// empty), applies defaults for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages, checking that a
// config file exists first.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize one first:\n"+
				"  safedrive init\n\n"+
				"Or specify a custom config file:\n"+
				"  safedrive <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  safedrive init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over the configuration.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Remote.Type == "s3" && cfg.Remote.S3 == nil {
		return fmt.Errorf("remote.s3 is required when remote.type is \"s3\"")
	}
	return nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format, with owner-only permissions since it may sit beside sensitive
// account state.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variable and config file
// search settings.
func setupViper(v *viper.Viper, configPath string) {
	// SAFEDRIVE_CACHE_DIR, SAFEDRIVE_REMOTE_S3_BUCKET, etc. Note that
	// SAFEDRIVE_PASSWORD is deliberately never bound here (see package doc).
	v.SetEnvPrefix("SAFEDRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. The second
// return value reports whether a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the combined decode hook for custom types used
// throughout Config (ByteSize and time.Duration).
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, honoring
// XDG_CONFIG_HOME, falling back to ~/.config, and finally to ".".
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "safedrive")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "safedrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
