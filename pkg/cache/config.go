package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config controls one engine instance. Consumers build it at application
// start and hand the engine to every caller (no process-wide singleton).
type Config struct {
	// MaxMemoryBytes is the memory tier byte budget.
	MaxMemoryBytes int64

	// MaxDiskBytes is the disk tier byte budget.
	MaxDiskBytes int64

	// Dir is where payload files, the metadata index and stats snapshots
	// live. Defaults to <user cache dir>/monucache.
	Dir string

	// MaintenanceInterval is how often expired entries are swept and
	// counters snapshotted. <= 0 disables the background task.
	MaintenanceInterval time.Duration

	// CompressionLevel is the zstd level (1-22) for compressed categories.
	CompressionLevel int

	// Policies maps categories to placement policies. Nil means
	// DefaultPolicies().
	Policies PolicyTable

	// Logger receives warnings for degraded operations. Nil means the
	// default logger.
	Logger *log.Logger
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() *Config {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = filepath.Join(os.TempDir(), "monucache")
	} else {
		dir = filepath.Join(dir, "monucache")
	}

	return &Config{
		MaxMemoryBytes:      100 * 1024 * 1024, // 100MB
		MaxDiskBytes:        500 * 1024 * 1024, // 500MB
		Dir:                 dir,
		MaintenanceInterval: 5 * time.Minute,
		CompressionLevel:    3, // balanced
		Policies:            DefaultPolicies(),
	}
}

// fileConfig is the on-disk YAML shape of Config.
type fileConfig struct {
	MaxMemoryMB        int64                 `yaml:"max_memory_mb" mapstructure:"max_memory_mb"`
	MaxDiskMB          int64                 `yaml:"max_disk_mb" mapstructure:"max_disk_mb"`
	Directory          string                `yaml:"directory" mapstructure:"directory"`
	MaintenanceMinutes int                   `yaml:"maintenance_minutes" mapstructure:"maintenance_minutes"`
	CompressionLevel   int                   `yaml:"compression_level" mapstructure:"compression_level"`
	Policies           map[string]filePolicy `yaml:"policies" mapstructure:"policies"`
}

type filePolicy struct {
	TTLSeconds int64  `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	Strategy   string `yaml:"strategy" mapstructure:"strategy"`
	Priority   int    `yaml:"priority" mapstructure:"priority"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// configPaths returns the locations checked for a config file.
func configPaths() []string {
	paths := []string{}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".monucache.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "monucache", "config.yml"))
	}

	return paths
}

// LoadConfig loads the engine configuration from the first file found among
// paths (or the standard locations when none are given), overlaying it onto
// DefaultConfig. A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = configPaths()
	}

	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	var fc fileConfig
	var found bool
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("Failed to read cache config", "path", path, "error", err)
			continue
		}
		if err := v.Unmarshal(&fc); err != nil {
			log.Warn("Failed to parse cache config", "path", path, "error", err)
			continue
		}
		log.Info("Loaded cache configuration", "path", path)
		found = true
		break
	}
	if !found {
		log.Debug("No cache config file found, using defaults")
		return config, nil
	}

	if fc.MaxMemoryMB > 0 {
		config.MaxMemoryBytes = fc.MaxMemoryMB * 1024 * 1024
	}
	if fc.MaxDiskMB > 0 {
		config.MaxDiskBytes = fc.MaxDiskMB * 1024 * 1024
	}
	if fc.Directory != "" {
		config.Dir = fc.Directory
	}
	if fc.MaintenanceMinutes > 0 {
		config.MaintenanceInterval = time.Duration(fc.MaintenanceMinutes) * time.Minute
	}
	if fc.CompressionLevel > 0 {
		config.CompressionLevel = fc.CompressionLevel
	}
	for name, fp := range fc.Policies {
		config.Policies[Category(name)] = Policy{
			TTL:      time.Duration(fp.TTLSeconds) * time.Second,
			Strategy: Strategy(fp.Strategy),
			Priority: fp.Priority,
			Compress: fp.Compress,
		}
	}

	return config, nil
}

// SaveConfig writes the configuration to path in YAML form.
func SaveConfig(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	fc := fileConfig{
		MaxMemoryMB:        config.MaxMemoryBytes / (1024 * 1024),
		MaxDiskMB:          config.MaxDiskBytes / (1024 * 1024),
		Directory:          config.Dir,
		MaintenanceMinutes: int(config.MaintenanceInterval / time.Minute),
		CompressionLevel:   config.CompressionLevel,
		Policies:           make(map[string]filePolicy, len(config.Policies)),
	}
	for cat, p := range config.Policies {
		fc.Policies[string(cat)] = filePolicy{
			TTLSeconds: int64(p.TTL / time.Second),
			Strategy:   string(p.Strategy),
			Priority:   p.Priority,
			Compress:   p.Compress,
		}
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
