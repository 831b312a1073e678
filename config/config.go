package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Source     SourceConfig              `mapstructure:"source"`
	Catalog    CatalogConfig             `mapstructure:"catalog"`
	Matching   MatchingConfig            `mapstructure:"matching"`
	Categories map[string]CategoryConfig `mapstructure:"categories"`
	Run        RunConfig                 `mapstructure:"run"`
	History    HistoryConfig             `mapstructure:"history"`
	Report     ReportConfig              `mapstructure:"report"`
	Server     ServerConfig              `mapstructure:"server"`
	Log        LogConfig                 `mapstructure:"log"`
}

// SourceConfig holds the rating source connection settings
type SourceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SessionCookie     string        `mapstructure:"session_cookie"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxRetries        int           `mapstructure:"max_retries"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"` // zero disables the snapshot cache
}

// CatalogConfig holds the catalog file settings
type CatalogConfig struct {
	DataDir     string        `mapstructure:"data_dir"`
	ScoresField string        `mapstructure:"scores_field"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// MatchingConfig holds the matcher scores and the completeness policy
type MatchingConfig struct {
	Threshold           float64 `mapstructure:"threshold"`
	ExactScore          float64 `mapstructure:"exact_score"`
	ConfirmedModelScore float64 `mapstructure:"confirmed_model_score"`
	ContainmentScore    float64 `mapstructure:"containment_score"`
	ModelConflictScore  float64 `mapstructure:"model_conflict_score"`
	CompletenessRatio   float64 `mapstructure:"completeness_ratio"`
	Debug               bool    `mapstructure:"debug"`
}

// CategoryConfig describes one product category
type CategoryConfig struct {
	CatalogFile string            `mapstructure:"catalog_file"`
	Silo        string            `mapstructure:"silo"`
	Usages      map[string]string `mapstructure:"usages"` // attribute code -> attribute key
	Labels      map[string]string `mapstructure:"labels"` // attribute key -> display label
}

// RunConfig selects which categories a run processes, in order
type RunConfig struct {
	Categories []string `mapstructure:"categories"`
}

// HistoryConfig holds the run history database settings
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ReportConfig holds the run summary output settings
type ReportConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // "json" or "yaml"
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	Environment        string   `mapstructure:"environment"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "auto", "console" or "json"
}

// Load loads configuration from the default search paths, environment
// variables and a .env file
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load but reads the given config file
// instead of searching for one when path is not empty
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ratingsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ratingsync/")
	}

	// Environment variable settings
	v.SetEnvPrefix("RATINGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional when searching; an explicit path must exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if len(config.Run.Categories) == 0 {
		config.Run.Categories = config.CategoryNames()
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads variables from ./.env without overriding ones already set
func loadEnvFile() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.base_url", "https://www.rtings.com")
	v.SetDefault("source.session_cookie", "")
	v.SetDefault("source.user_agent", "ratingsync/1.0")
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("source.requests_per_minute", 30)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.cache_ttl", "6h")

	// Catalog defaults
	v.SetDefault("catalog.data_dir", "./data")
	v.SetDefault("catalog.scores_field", "rtings_scores")
	v.SetDefault("catalog.lock_timeout", "10s")

	// Matching defaults
	v.SetDefault("matching.threshold", 0.88)
	v.SetDefault("matching.exact_score", 1.0)
	v.SetDefault("matching.confirmed_model_score", 0.95)
	v.SetDefault("matching.containment_score", 0.92)
	v.SetDefault("matching.model_conflict_score", 0.5)
	v.SetDefault("matching.completeness_ratio", 0.5)
	v.SetDefault("matching.debug", false)

	v.SetDefault("categories", defaultCategories())
	v.SetDefault("run.categories", []string{"mouse", "audio", "keyboard", "monitor"})

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "./data/ratingsync.db")

	// Report defaults
	v.SetDefault("report.path", "./output/rtings-scrape-results.json")
	v.SetDefault("report.format", "json")

	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.rate_limit_per_minute", 120)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// defaultCategories returns the built-in category tables
func defaultCategories() map[string]any {
	return map[string]any{
		"mouse": map[string]any{
			"catalog_file": "mice.json",
			"silo":         "mouse",
			"usages": map[string]any{
				"8876":  "work",
				"8878":  "video_games_fps",
				"8879":  "video_games_mmo",
				"22560": "raw_performance",
			},
			"labels": map[string]any{
				"work":            "Work",
				"video_games_fps": "Video Games (FPS)",
				"video_games_mmo": "Video Games (MMO)",
				"raw_performance": "Raw Performance",
			},
		},
		"audio": map[string]any{
			"catalog_file": "audio.json",
			"silo":         "headphones",
			"usages": map[string]any{
				"18":   "sports_fitness",
				"16":   "travel",
				"17":   "office",
				"8865": "wireless_gaming",
				"8864": "wired_gaming",
			},
			"labels": map[string]any{
				"sports_fitness":  "Sports & Fitness",
				"travel":          "Travel",
				"office":          "Office",
				"wireless_gaming": "Wireless Gaming",
				"wired_gaming":    "Wired Gaming",
			},
		},
		"keyboard": map[string]any{
			"catalog_file": "keyboards.json",
			"silo":         "keyboard",
			"usages": map[string]any{
				"9048":  "gaming",
				"9050":  "office",
				"9051":  "programming",
				"25282": "raw_performance",
			},
			"labels": map[string]any{
				"gaming":          "Gaming",
				"office":          "Office",
				"programming":     "Programming",
				"raw_performance": "Raw Performance",
			},
		},
		"monitor": map[string]any{
			"catalog_file": "monitors.json",
			"silo":         "monitor",
			"usages": map[string]any{
				"4112":  "pc_gaming",
				"17021": "console_gaming",
				"4113":  "office",
				"4114":  "editing",
			},
			"labels": map[string]any{
				"pc_gaming":      "PC Gaming",
				"console_gaming": "Console Gaming",
				"office":         "Office",
				"editing":        "Editing",
			},
		},
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Source.BaseURL == "" {
		return fmt.Errorf("source base URL is required (set RATINGSYNC_SOURCE_BASE_URL)")
	}

	scores := []struct {
		name  string
		value float64
	}{
		{"matching.threshold", config.Matching.Threshold},
		{"matching.exact_score", config.Matching.ExactScore},
		{"matching.confirmed_model_score", config.Matching.ConfirmedModelScore},
		{"matching.containment_score", config.Matching.ContainmentScore},
		{"matching.model_conflict_score", config.Matching.ModelConflictScore},
		{"matching.completeness_ratio", config.Matching.CompletenessRatio},
	}
	for _, s := range scores {
		if s.value <= 0 || s.value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got: %v", s.name, s.value)
		}
	}

	if len(config.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for name, category := range config.Categories {
		if category.CatalogFile == "" {
			return fmt.Errorf("category %s: catalog_file is required", name)
		}
		if len(category.Usages) == 0 {
			return fmt.Errorf("category %s: at least one usage code is required", name)
		}
		for code, key := range category.Usages {
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("category %s: usage %s has no attribute key", name, code)
			}
		}
	}

	if _, err := config.ResolveCategories(config.Run.Categories); err != nil {
		return fmt.Errorf("run.categories: %w", err)
	}

	if config.Report.Format != "json" && config.Report.Format != "yaml" {
		return fmt.Errorf("report format must be 'json' or 'yaml', got: %s", config.Report.Format)
	}

	if config.NeedsStateStore() && config.History.Path == "" {
		return fmt.Errorf("history path is required when history or the snapshot cache is enabled")
	}

	return nil
}

// SnapshotCacheEnabled reports whether fetched snapshots are cached between runs
func (c *Config) SnapshotCacheEnabled() bool {
	return c.Source.CacheTTL > 0
}

// NeedsStateStore reports whether the sqlite database at history.path is used,
// either for run history or for the snapshot cache
func (c *Config) NeedsStateStore() bool {
	return c.History.Enabled || c.SnapshotCacheEnabled()
}

// CategoryNames returns the configured category names, sorted
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveCategories checks names against the configured categories. An empty
// list resolves to the run order.
func (c *Config) ResolveCategories(names []string) ([]string, error) {
	if len(names) == 0 {
		names = c.Run.Categories
	}

	resolved := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := c.Categories[name]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCategory, raw)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		resolved = append(resolved, name)
	}
	return resolved, nil
}

// CatalogFiles maps each category to its catalog file
func (c *Config) CatalogFiles() map[string]string {
	files := make(map[string]string, len(c.Categories))
	for name, category := range c.Categories {
		files[name] = category.CatalogFile
	}
	return files
}
