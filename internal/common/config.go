package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/marketpulse/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	EnvFile      string             `toml:"env_file"`    // Optional dotenv file loaded before env overrides
	Server       ServerConfig       `toml:"server"`
	Logging      LoggingConfig      `toml:"logging"`
	Storage      StorageConfig      `toml:"storage"`
	Cache        CacheConfig        `toml:"cache"`
	Dhan         DhanConfig         `toml:"dhan"`
	AlphaVantage AlphaVantageConfig `toml:"alpha_vantage"`
	NewsAPI      NewsAPIConfig      `toml:"news_api"`
	Reddit       RedditConfig       `toml:"reddit"`
	Serp         SerpConfig         `toml:"serp"`
	OpenAI       OpenAIConfig       `toml:"openai"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Claude       ClaudeConfig       `toml:"claude"`
	LLM          LLMConfig          `toml:"llm"`
	Sectors      SectorsConfig      `toml:"sectors"`
	Universe     UniverseConfig     `toml:"universe"`
	Scheduler    SchedulerConfig    `toml:"scheduler"`
}

type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	MaxBodyBytes int64  `toml:"max_body_bytes"` // Request body limit (default: 1 MiB)
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Default: "15:04:05"
	Dir        string   `toml:"dir"`         // File output directory, default "logs" next to the executable
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
}

// CacheConfig controls the optional response cache in front of sector analysis.
type CacheConfig struct {
	Backend  string `toml:"backend"`   // "none", "badger" or "redis"
	TTL      string `toml:"ttl"`       // Duration string, "0" disables caching
	RedisURL string `toml:"redis_url"` // redis://host:port/db
}

// DhanConfig contains DhanHQ market data API configuration
type DhanConfig struct {
	AccessToken string  `toml:"access_token"`
	BaseURL     string  `toml:"base_url"`
	RateLimit   float64 `toml:"rate_limit"` // Requests per second
	Timeout     string  `toml:"timeout"`
}

type AlphaVantageConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type NewsAPIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type RedditConfig struct {
	BaseURL   string `toml:"base_url"`
	Subreddit string `toml:"subreddit"`
	UserAgent string `toml:"user_agent"`
	Limit     int    `toml:"limit"`
	Timeout   string `toml:"timeout"`
}

// SerpConfig only carries the key so /api-status can report it.
type SerpConfig struct {
	APIKey string `toml:"api_key"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used for blog generation
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"`
	Timeout         string      `toml:"timeout"`
}

// SectorsConfig tunes the sector analysis pipeline.
type SectorsConfig struct {
	Concurrency        int     `toml:"concurrency"`
	FetchTimeout       string  `toml:"fetch_timeout"`
	Batch              bool    `toml:"batch"` // One marketfeed call for the whole universe
	MinSectorSize      int     `toml:"min_sector_size"`
	TopSectors         int     `toml:"top_sectors"`
	TopStocksPerSector int     `toml:"top_stocks_per_sector"`
	TopGainers         int     `toml:"top_gainers"`
	TopStocks          int     `toml:"top_stocks"`
	IncludeOthers      bool    `toml:"include_others"`
	FailOnEmpty        bool    `toml:"fail_on_empty"`
	ChangeWeight       float64 `toml:"change_weight"`
	VolumeWeight       float64 `toml:"volume_weight"`
	ValueWeight        float64 `toml:"value_weight"`
	VolumeScale        float64 `toml:"volume_scale"`
	ValueScale         float64 `toml:"value_scale"`
}

// UniverseConfig points at an optional replacement for the built-in symbol tables.
type UniverseConfig struct {
	File string `toml:"file"` // .toml, .yaml or .yml
}

// SchedulerConfig holds the default daily blog schedule.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	PostTime string `toml:"post_time"` // HH:MM
	Timezone string `toml:"timezone"`  // IANA zone
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		EnvFile:     ".env",
		Server: ServerConfig{
			Port:         8001,
			Host:         "0.0.0.0",
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Cache: CacheConfig{
			Backend: "none",
			TTL:     "0",
		},
		Dhan: DhanConfig{
			BaseURL:   "https://api.dhan.co",
			RateLimit: 10,
			Timeout:   "30s",
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL: "https://www.alphavantage.co",
			Timeout: "30s",
		},
		NewsAPI: NewsAPIConfig{
			BaseURL: "https://newsapi.org",
			Timeout: "30s",
		},
		Reddit: RedditConfig{
			BaseURL:   "https://www.reddit.com",
			Subreddit: "wallstreetbets",
			UserAgent: "marketpulse/1.0",
			Limit:     25,
			Timeout:   "30s",
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4",
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOpenAI,
			Timeout:         "2m",
		},
		Sectors: SectorsConfig{
			Concurrency:        8,
			FetchTimeout:       "10s",
			MinSectorSize:      2,
			TopSectors:         3,
			TopStocksPerSector: 3,
			TopGainers:         10,
			TopStocks:          9,
			ChangeWeight:       0.6,
			VolumeWeight:       0.2,
			ValueWeight:        0.2,
			VolumeScale:        1e6,
			ValueScale:         1e9,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			PostTime: "09:00",
			Timezone: "Asia/Kolkata",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> dotenv -> env
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// godotenv.Load never overrides variables already present in the environment
	if config.EnvFile != "" {
		if _, err := os.Stat(config.EnvFile); err == nil {
			if err := godotenv.Load(config.EnvFile); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", config.EnvFile, err)
			}
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKETPULSE_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MARKETPULSE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKETPULSE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("MARKETPULSE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MARKETPULSE_LOG_OUTPUT"); output != "" {
		outputs := splitList(output)
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage and cache
	if badgerPath := os.Getenv("MARKETPULSE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if backend := os.Getenv("MARKETPULSE_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = backend
	}
	if ttl := os.Getenv("MARKETPULSE_CACHE_TTL"); ttl != "" {
		config.Cache.TTL = ttl
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}

	// Upstream credentials. The bare names match the variables the proxy has always been deployed with.
	if token := os.Getenv("Market_Data"); token != "" {
		config.Dhan.AccessToken = token
	}
	if token := os.Getenv("MARKETPULSE_DHAN_ACCESS_TOKEN"); token != "" {
		config.Dhan.AccessToken = token
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		config.AlphaVantage.APIKey = key
	}
	if key := os.Getenv("NEWS_API_KEY"); key != "" {
		config.NewsAPI.APIKey = key
	}
	if key := os.Getenv("SERP_API_KEY"); key != "" {
		config.Serp.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if model := os.Getenv("MARKETPULSE_OPENAI_MODEL"); model != "" {
		config.OpenAI.Model = model
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if model := os.Getenv("MARKETPULSE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if model := os.Getenv("MARKETPULSE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if provider := os.Getenv("MARKETPULSE_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Sector pipeline
	if concurrency := os.Getenv("MARKETPULSE_SECTORS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Sectors.Concurrency = c
		}
	}
	if timeout := os.Getenv("MARKETPULSE_SECTORS_FETCH_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Sectors.FetchTimeout = timeout
		}
	}
	if batch := os.Getenv("MARKETPULSE_SECTORS_BATCH"); batch != "" {
		if b, err := strconv.ParseBool(batch); err == nil {
			config.Sectors.Batch = b
		}
	}
	if universeFile := os.Getenv("MARKETPULSE_UNIVERSE_FILE"); universeFile != "" {
		config.Universe.File = universeFile
	}

	// Scheduler
	if enabled := os.Getenv("MARKETPULSE_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if postTime := os.Getenv("MARKETPULSE_SCHEDULER_POST_TIME"); postTime != "" {
		config.Scheduler.PostTime = postTime
	}
	if tz := os.Getenv("MARKETPULSE_SCHEDULER_TIMEZONE"); tz != "" {
		config.Scheduler.Timezone = tz
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueReader, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"dhan_access_token":     {"MARKETPULSE_DHAN_ACCESS_TOKEN", "Market_Data"},
		"alpha_vantage_api_key": {"ALPHA_VANTAGE_API_KEY"},
		"news_api_key":          {"NEWS_API_KEY"},
		"openai_api_key":        {"OPENAI_API_KEY"},
		"anthropic_api_key":     {"ANTHROPIC_API_KEY"},
		"gemini_api_key":        {"GEMINI_API_KEY"},
		"serp_api_key":          {"SERP_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
