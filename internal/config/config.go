// Package config handles configuration loading for ComTracker.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	KindJSON = "json" // HTTP microservice answering with JSON articles
	KindFeed = "feed" // RSS/Atom feeds parsed in-process
)

// AllSources is the reserved service name selecting every configured source.
const AllSources = "all"

// Config represents the complete application configuration.
type Config struct {
	Sources []SourceConfig `mapstructure:"sources" yaml:"sources" json:"sources"`
	Fetch   FetchConfig    `mapstructure:"fetch"   yaml:"fetch"   json:"fetch"`
	Report  ReportConfig   `mapstructure:"report"  yaml:"report"  json:"report"`
	LLM     LLMConfig      `mapstructure:"llm"     yaml:"llm"     json:"llm"`
	API     APIConfig      `mapstructure:"api"     yaml:"api"     json:"api"`
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging" json:"logging"`

	// File is the config file the values were read from, if any.
	File string `mapstructure:"-" yaml:"-" json:"file,omitempty"`
}

// SourceConfig describes one upstream content source.
type SourceConfig struct {
	Name     string   `mapstructure:"name"     yaml:"name"               json:"name"`  // e.g. "reddit"
	Label    string   `mapstructure:"label"    yaml:"label"              json:"label"` // e.g. "Reddit"
	Kind     string   `mapstructure:"kind"     yaml:"kind"               json:"kind"`  // "json" or "feed"
	Endpoint string   `mapstructure:"endpoint" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Capped   bool     `mapstructure:"capped"   yaml:"capped"             json:"capped"` // send the n=<cap> hint
	Feeds    []string `mapstructure:"feeds"    yaml:"feeds,omitempty"    json:"feeds,omitempty"`
}

// FetchConfig holds fan-out fetch settings.
type FetchConfig struct {
	Cap        int `mapstructure:"cap"         yaml:"cap"         json:"cap"`         // result-count hint for capped sources
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"` // 0 = no timeout
	CacheTTL   int `mapstructure:"cache_ttl"   yaml:"cache_ttl"   json:"cache_ttl"`   // seconds, 0 = disabled
	FeedRate   int `mapstructure:"feed_rate"   yaml:"feed_rate"   json:"feed_rate"`   // feed requests per second
}

// Timeout returns the per-request timeout, 0 meaning none.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// CacheDuration returns the response cache TTL.
func (f FetchConfig) CacheDuration() time.Duration {
	return time.Duration(f.CacheTTL) * time.Second
}

// ReportConfig holds settings of the AI report stream.
type ReportConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"  json:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"` // POST target streaming data: frames
}

// LLMConfig configures the built-in report backend.
type LLMConfig struct {
	OpenAIKey    string  `mapstructure:"openai_key"    yaml:"openai_key,omitempty" json:"-"`
	BaseURL      string  `mapstructure:"base_url"      yaml:"base_url,omitempty"   json:"base_url,omitempty"`
	Model        string  `mapstructure:"model"         yaml:"model"                json:"model"`
	Temperature  float64 `mapstructure:"temperature"   yaml:"temperature"          json:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"    yaml:"max_tokens"           json:"max_tokens"`
	SystemPrompt string  `mapstructure:"system_prompt" yaml:"system_prompt"        json:"system_prompt"`
	ArticleLimit int     `mapstructure:"article_limit" yaml:"article_limit"        json:"article_limit"` // articles included in the prompt
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// Addr returns the listen address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// DefaultSources returns the local development routing: one
// microservice per platform on localhost.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "reddit", Label: "Reddit", Kind: KindJSON, Endpoint: "http://localhost:5003/articles", Capped: true},
		{Name: "rss", Label: "RSS", Kind: KindJSON, Endpoint: "http://localhost:5002/articles"},
		{Name: "twitter", Label: "Twitter", Kind: KindJSON, Endpoint: "http://localhost:5001/articles", Capped: true},
		{Name: "youtube", Label: "YouTube", Kind: KindJSON, Endpoint: "http://localhost:5004/articles", Capped: true},
		{Name: "linkedin", Label: "LinkedIn", Kind: KindJSON, Endpoint: "http://localhost:5006/articles", Capped: true},
	}
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.comtracker/config.yaml (home directory)
//  3. /etc/comtracker/config.yaml (system)
//
// Environment variables override config file values.
// Format: COMTRACKER_<SECTION>_<KEY>, e.g., COMTRACKER_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".comtracker"))
	v.AddConfigPath("/etc/comtracker")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + env vars.
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COMTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	overrideFromEnv(&cfg)
	cfg.applySourceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or env var is set.
func Default() *Config {
	cfg, err := decode(newViperWithoutEnv())
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(err)
	}
	return cfg
}

func newViperWithoutEnv() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	sources := make([]map[string]any, 0, 5)
	for _, s := range DefaultSources() {
		sources = append(sources, map[string]any{
			"name":     s.Name,
			"label":    s.Label,
			"kind":     s.Kind,
			"endpoint": s.Endpoint,
			"capped":   s.Capped,
		})
	}
	v.SetDefault("sources", sources)

	v.SetDefault("fetch.cap", 1000)
	v.SetDefault("fetch.timeout_sec", 0)
	v.SetDefault("fetch.cache_ttl", 0)
	v.SetDefault("fetch.feed_rate", 2)

	v.SetDefault("report.enabled", true)
	v.SetDefault("report.endpoint", "http://localhost:5007/report")

	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.system_prompt", "Réponds en français.")
	v.SetDefault("llm.article_limit", 20)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("COMTRACKER_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = key
	}
}

// applySourceDefaults fills in the kind and label of sparse source entries.
func (c *Config) applySourceDefaults() {
	for i := range c.Sources {
		c.Sources[i] = NormalizeSource(c.Sources[i])
	}
}

// NormalizeSource lower-cases the name and infers a missing kind and label.
func NormalizeSource(s SourceConfig) SourceConfig {
	s.Name = strings.ToLower(strings.TrimSpace(s.Name))
	if s.Kind == "" {
		s.Kind = KindJSON
		if len(s.Feeds) > 0 && s.Endpoint == "" {
			s.Kind = KindFeed
		}
	}
	if s.Label == "" {
		s.Label = s.Name
	}
	return s
}

// Validate checks the source list for mistakes that would make searches
// ambiguous or impossible.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	var errs []error
	for i, s := range c.Sources {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
			continue
		case s.Name == AllSources:
			errs = append(errs, fmt.Errorf("sources[%d]: %q is reserved", i, AllSources))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true

		switch s.Kind {
		case KindJSON:
			if s.Endpoint == "" {
				errs = append(errs, fmt.Errorf("source %q: endpoint is required", s.Name))
			}
		case KindFeed:
			if len(s.Feeds) == 0 {
				errs = append(errs, fmt.Errorf("source %q: at least one feed is required", s.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind))
		}
	}
	if c.Fetch.Cap < 0 {
		errs = append(errs, errors.New("fetch.cap must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Source returns the source configured under name.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// ToYAML renders the configuration as YAML. Secrets are blanked.
func (c *Config) ToYAML() ([]byte, error) {
	redacted := *c
	redacted.LLM.OpenAIKey = ""
	return yaml.Marshal(&redacted)
}

// SaveToFile writes cfg as YAML to path, creating parent directories.
// Secrets are never written.
func SaveToFile(cfg *Config, path string) error {
	data, err := cfg.ToYAML()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// FilePath returns the file the configuration was loaded from, or the
// per-user default ~/.comtracker/config.yaml.
func (c *Config) FilePath() string {
	if c.File != "" {
		return c.File
	}
	return filepath.Join(homeDir(), ".comtracker", "config.yaml")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
