package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/safedrive/safedrive-engine/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false) are replaced with defaults; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyAccountDefaults(&cfg.Account)
	applyLoggingDefaults(&cfg.Logging)
	applyCacheDefaults(&cfg.Cache, cfg.Account.Dir)
	applyUploadDefaults(&cfg.Upload)
	applyRemoteDefaults(&cfg.Remote)
	applyRetentionDefaults(&cfg.Retention)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.SyncVersion == 0 {
		cfg.SyncVersion = 2
	}
}

func applyAccountDefaults(cfg *AccountConfig) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultAccountDir()
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = 10 * bytesize.MB
	}
}

func applyCacheDefaults(cfg *CacheConfig, accountDir string) {
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(accountDir, "cache")
	}
	if cfg.SizeLimit == 0 {
		cfg.SizeLimit = 5 * bytesize.GiB
	}
	// Shard defaults to true (zero value for bool is false, so this can't
	// be distinguished from an explicit "shard: false"; callers that want
	// unsharded layout must set it after ApplyDefaults runs, or we accept
	// that sharding is the recommended default and leave it enabled here).
	cfg.Shard = true
}

func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.ItemLimit == 0 {
		cfg.ItemLimit = 300
	}
	if cfg.SizeLimit == 0 {
		cfg.SizeLimit = 10 * bytesize.MB
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 15
	}
	if cfg.ServiceUnavailableRetries == 0 {
		cfg.ServiceUnavailableRetries = 3
	}
	if cfg.QueueDepth == 0 {
		cfg.QueueDepth = 64
	}
}

func applyRemoteDefaults(cfg *RemoteConfig) {
	if cfg.Type == "" {
		cfg.Type = "s3"
	}
	if cfg.Type == "s3" {
		if cfg.S3 == nil {
			cfg.S3 = &S3Config{}
		}
		if cfg.S3.Prefix == "" {
			cfg.S3.Prefix = "safedrive/"
		}
		if cfg.S3.MaxRetries == 0 {
			cfg.S3.MaxRetries = 3
		}
	}
}

func applyRetentionDefaults(cfg *RetentionConfig) {
	if cfg.DefaultSchedule == "" {
		cfg.DefaultSchedule = "auto"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// defaultAccountDir returns ~/.safedrive, falling back to ".safedrive" in
// the current directory if the home directory can't be determined.
func defaultAccountDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".safedrive"
	}
	return filepath.Join(home, ".safedrive")
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Remote: RemoteConfig{
			Type: "s3",
			S3: &S3Config{
				Region: "us-east-1",
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
