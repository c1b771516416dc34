// Package config provides configuration loading and structs for the pillbox server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides druginfo.api_key when set.
const APIKeyEnv = "MEDICINE_API_KEY"

// Cache backends for drug-information lookups.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Lexicon  LexiconConfig  `yaml:"lexicon"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	DrugInfo DrugInfoConfig `yaml:"druginfo"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LexiconConfig locates the drug catalog.
type LexiconConfig struct {
	Path  string `yaml:"path"`
	Watch *bool  `yaml:"watch"`
}

// WatchOrDefault returns whether to reload the catalog on change; defaults to true when unset.
func (l *LexiconConfig) WatchOrDefault() bool {
	if l.Watch != nil {
		return *l.Watch
	}
	return true
}

// MatcherConfig holds OCR cleaning and matching thresholds.
type MatcherConfig struct {
	MinConfidence    float64 `yaml:"min_confidence"`
	Threshold        float64 `yaml:"threshold"`
	RelaxedThreshold float64 `yaml:"relaxed_threshold"`
	StrictThreshold  float64 `yaml:"strict_threshold"`
	DosageWindow     *int    `yaml:"dosage_window"`
}

// DosageWindowOrDefault returns the dosage search radius; defaults to 2 when unset.
func (m *MatcherConfig) DosageWindowOrDefault() int {
	if m.DosageWindow != nil {
		return *m.DosageWindow
	}
	return 2
}

// DrugInfoConfig holds the drug-information API and cache settings.
type DrugInfoConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Cache          string `yaml:"cache"`
	CacheSize      int    `yaml:"cache_size"`
	DatabasePath   string `yaml:"database_path"`
	RedisAddr      string `yaml:"redis_addr"`
	TTLHours       int    `yaml:"ttl_hours"`
}

// Timeout returns the per-call timeout.
func (d *DrugInfoConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime.
func (d *DrugInfoConfig) TTL() time.Duration {
	return time.Duration(d.TTLHours) * time.Hour
}

// ScheduleConfig holds default meal times as "HH:MM".
type ScheduleConfig struct {
	Breakfast string `yaml:"breakfast"`
	Lunch     string `yaml:"lunch"`
	Dinner    string `yaml:"dinner"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Lexicon.Path = expandPath(cfg.Lexicon.Path, configDir)
	cfg.DrugInfo.DatabasePath = expandPath(cfg.DrugInfo.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration with "./" paths resolved against baseDir.
func Default(baseDir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	ApplyEnv(cfg)
	cfg.Lexicon.Path = expandPath(cfg.Lexicon.Path, baseDir)
	cfg.DrugInfo.DatabasePath = expandPath(cfg.DrugInfo.DatabasePath, baseDir)
	return cfg
}

// ApplyEnv applies environment overrides.
func ApplyEnv(cfg *Config) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.DrugInfo.APIKey = key
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.DrugInfo.Cache {
	case CacheNone, CacheMemory, CacheSQLite, CacheRedis:
	default:
		return fmt.Errorf("invalid druginfo.cache %q: want none, memory, sqlite or redis", c.DrugInfo.Cache)
	}
	if c.DrugInfo.Cache == CacheRedis && c.DrugInfo.RedisAddr == "" {
		return fmt.Errorf("druginfo.redis_addr is required for the redis cache")
	}
	if c.Matcher.MinConfidence < 0 || c.Matcher.MinConfidence > 1 {
		return fmt.Errorf("matcher.min_confidence must be within [0,1], got %v", c.Matcher.MinConfidence)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
