package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research service
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Server      ServerConfig      `mapstructure:"server"`
	You         YouConfig         `mapstructure:"you"`
	Research    ResearchConfig    `mapstructure:"research"`
	Readability ReadabilityConfig `mapstructure:"readability"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	Development bool   `mapstructure:"development"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// YouConfig holds the You.com credentials and endpoints.
type YouConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	SearchURL   string        `mapstructure:"search_url"`
	ContentsURL string        `mapstructure:"contents_url"`
	AgentsURL   string        `mapstructure:"agents_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
}

// ResearchConfig tunes the gathering and synthesis stages.
type ResearchConfig struct {
	SearchProvider    string           `mapstructure:"search_provider"` // you, brave, serper
	SearchAPIKey      string           `mapstructure:"search_api_key"`
	SearchURL         string           `mapstructure:"search_url"`
	ResultsPerQuery   int              `mapstructure:"results_per_query"`
	Freshness         string           `mapstructure:"freshness"`
	CrawlMode         string           `mapstructure:"crawl_mode"`
	Extractor         string           `mapstructure:"extractor"` // you, http, chromedp, none
	ExtractTimeout    time.Duration    `mapstructure:"extract_timeout"`
	MaxAuthorityReads int              `mapstructure:"max_authority_reads"`
	MaxOtherReads     int              `mapstructure:"max_other_reads"`
	MaxDeepReads      int              `mapstructure:"max_deep_reads"`
	MarkdownChars     int              `mapstructure:"markdown_chars"`
	BlockChars        int              `mapstructure:"block_chars"`
	SnippetEvidence   int              `mapstructure:"snippet_evidence"`
	LexiconFile       string           `mapstructure:"lexicon_file"`
	ReadPolicy        ReadPolicyConfig `mapstructure:"read_policy"`
	Reasoning         ReasoningConfig  `mapstructure:"reasoning"`
}

// ReasoningConfig controls the remote reasoning call.
type ReasoningConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"` // you, openai
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxSteps        int           `mapstructure:"max_steps"`
	Verbosity       string        `mapstructure:"verbosity"`
	SearchEffort    string        `mapstructure:"search_effort"`
	ReportVerbosity string        `mapstructure:"report_verbosity"`
}

// ReadabilityConfig mirrors the sentence gate used by local synthesis.
type ReadabilityConfig struct {
	MinLength     int     `mapstructure:"min_length"`
	MaxLength     int     `mapstructure:"max_length"`
	MinWords      int     `mapstructure:"min_words"`
	MinAlphaRatio float64 `mapstructure:"min_alpha_ratio"`
}

// CacheConfig selects where completed reports are kept.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // none, memory, redis
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Addr) == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis backend")
	}
	if r.DB < 0 {
		return fmt.Errorf("cache.redis.db cannot be negative")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Metrics     bool   `mapstructure:"metrics"`
	MetricsPath string `mapstructure:"metrics_path"`
}

var (
	validExtractors = map[string]bool{"you": true, "http": true, "chromedp": true, "none": true}
	validSearch     = map[string]bool{"you": true, "brave": true, "serper": true}
	validReasoners  = map[string]bool{"you": true, "openai": true}
	validBackends   = map[string]bool{"none": true, "memory": true, "redis": true}
	validFreshness  = map[string]bool{"day": true, "week": true, "month": true, "year": true}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.development", false)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("you.timeout", 15*time.Second)
	v.SetDefault("you.retries", 1)

	v.SetDefault("research.search_provider", "you")
	v.SetDefault("research.results_per_query", 5)
	v.SetDefault("research.freshness", "year")
	v.SetDefault("research.extractor", "you")
	v.SetDefault("research.extract_timeout", 15*time.Second)
	v.SetDefault("research.max_authority_reads", 2)
	v.SetDefault("research.max_other_reads", 1)
	v.SetDefault("research.max_deep_reads", 3)
	v.SetDefault("research.markdown_chars", 3000)
	v.SetDefault("research.block_chars", 2000)
	v.SetDefault("research.snippet_evidence", 6)
	v.SetDefault("research.reasoning.enabled", true)
	v.SetDefault("research.reasoning.provider", "you")
	v.SetDefault("research.reasoning.timeout", 45*time.Second)
	v.SetDefault("research.reasoning.max_steps", 2)
	v.SetDefault("research.reasoning.verbosity", "medium")
	v.SetDefault("research.reasoning.search_effort", "low")
	v.SetDefault("research.reasoning.report_verbosity", "medium")

	v.SetDefault("readability.min_length", 30)
	v.SetDefault("readability.max_length", 2000)
	v.SetDefault("readability.min_words", 5)
	v.SetDefault("readability.min_alpha_ratio", 0.55)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 7*24*time.Hour)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.dial_timeout", 5*time.Second)

	v.SetDefault("telemetry.metrics", true)
	v.SetDefault("telemetry.metrics_path", "/metrics")
}

// LoadConfig reads defaults, an optional JSON config file and REMEDY_*
// environment variables. With an empty path a missing config file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("REMEDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, k := range []string{"you.api_key", "you.search_url", "you.contents_url", "you.agents_url",
		"research.search_api_key", "research.search_url", "research.crawl_mode", "research.lexicon_file",
		"research.reasoning.api_key", "research.reasoning.base_url", "research.reasoning.model",
		"cache.redis.password", "cache.redis.db"} {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// The key is also accepted under its conventional unprefixed name.
	if cfg.You.APIKey == "" {
		cfg.You.APIKey = os.Getenv("YOU_API_KEY")
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize lowercases enum values and fills zero limits.
func (c Config) Normalize() Config {
	c.General.LogLevel = strings.ToLower(strings.TrimSpace(c.General.LogLevel))
	c.Research.SearchProvider = strings.ToLower(strings.TrimSpace(c.Research.SearchProvider))
	c.Research.Extractor = strings.ToLower(strings.TrimSpace(c.Research.Extractor))
	c.Research.Freshness = strings.ToLower(strings.TrimSpace(c.Research.Freshness))
	c.Research.Reasoning.Provider = strings.ToLower(strings.TrimSpace(c.Research.Reasoning.Provider))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Research.ReadPolicy = c.Research.ReadPolicy.Normalize()
	if c.Research.MaxDeepReads <= 0 {
		c.Research.MaxDeepReads = 3
	}
	if c.Research.ResultsPerQuery <= 0 {
		c.Research.ResultsPerQuery = 5
	}
	if c.Research.SearchAPIKey == "" && c.Research.SearchProvider == "you" {
		c.Research.SearchAPIKey = c.You.APIKey
	}
	if c.Research.Reasoning.APIKey == "" && c.Research.Reasoning.Provider == "you" {
		c.Research.Reasoning.APIKey = c.You.APIKey
	}
	if c.Telemetry.MetricsPath == "" {
		c.Telemetry.MetricsPath = "/metrics"
	}
	return c
}

// Validate rejects unknown enum values and impossible limits.
func (c Config) Validate() error {
	if !validSearch[c.Research.SearchProvider] {
		return fmt.Errorf("research.search_provider %q is not supported", c.Research.SearchProvider)
	}
	if !validExtractors[c.Research.Extractor] {
		return fmt.Errorf("research.extractor %q is not supported", c.Research.Extractor)
	}
	if c.Research.Freshness != "" && !validFreshness[c.Research.Freshness] {
		return fmt.Errorf("research.freshness %q is not supported", c.Research.Freshness)
	}
	if !validReasoners[c.Research.Reasoning.Provider] {
		return fmt.Errorf("research.reasoning.provider %q is not supported", c.Research.Reasoning.Provider)
	}
	if c.Research.MaxAuthorityReads < 0 || c.Research.MaxOtherReads < 0 {
		return fmt.Errorf("research read limits cannot be negative")
	}
	if c.Research.Reasoning.Timeout <= 0 {
		return fmt.Errorf("research.reasoning.timeout must be positive")
	}
	if c.Readability.MinAlphaRatio < 0 || c.Readability.MinAlphaRatio > 1 {
		return fmt.Errorf("readability.min_alpha_ratio must be within [0,1]")
	}
	if c.Readability.MaxLength > 0 && c.Readability.MinLength > c.Readability.MaxLength {
		return fmt.Errorf("readability.min_length exceeds max_length")
	}
	if !validBackends[c.Cache.Backend] {
		return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" {
		if err := c.Cache.Redis.Validate(); err != nil {
			return err
		}
	}
	return c.Research.ReadPolicy.Validate()
}

// MissingAPIKey reports whether live research cannot run for lack of a
// search credential.
func (c Config) MissingAPIKey() bool {
	return strings.TrimSpace(c.Research.SearchAPIKey) == ""
}
