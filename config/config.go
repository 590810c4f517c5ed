package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Research  ResearchConfig  `mapstructure:"research"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the text-generation provider configuration
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // serpapi, duckduckgo
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// FetchConfig contains document fetching settings
type FetchConfig struct {
	Fetcher  string        `mapstructure:"fetcher"` // readability, chromedp
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// ResearchConfig contains pipeline and registry settings
type ResearchConfig struct {
	MaxQueriesPerStep   int           `mapstructure:"max_queries_per_step"`
	FetchesPerQuery     int           `mapstructure:"fetches_per_query"`
	ProcessTTL          time.Duration `mapstructure:"process_ttl"`
	SweepCron           string        `mapstructure:"sweep_cron"`
	PrioritizeQuestions bool          `mapstructure:"prioritize_questions"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("deepresearch")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("DEEPRESEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults plus env cover a full run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")

	viper.SetDefault("server.address", ":10002")

	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.6)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("llm.timeout", "90s")
	viper.SetDefault("llm.max_retries", 4)
	viper.SetDefault("llm.retry_delay", "2s")

	viper.SetDefault("search.provider", "duckduckgo")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", "30s")

	viper.SetDefault("fetch.fetcher", "readability")
	viper.SetDefault("fetch.timeout", "15s")
	viper.SetDefault("fetch.max_chars", 10000)

	viper.SetDefault("research.max_queries_per_step", 3)
	viper.SetDefault("research.fetches_per_query", 3)
	viper.SetDefault("research.process_ttl", "2h")
	viper.SetDefault("research.sweep_cron", "*/10 * * * *")
	viper.SetDefault("research.prioritize_questions", true)

	viper.SetDefault("telemetry.enabled", true)
}

// overrideFromEnv overrides configuration with environment variables
// for sensitive data.
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPAPI_API_KEY"); apiKey != "" {
		viper.Set("search.api_key", apiKey)
		viper.Set("search.provider", "serpapi")
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.LLM.Model == "" {
		return fmt.Errorf("llm.model must be configured")
	}
	if config.LLM.MaxRetries <= 0 {
		return fmt.Errorf("llm.max_retries must be > 0")
	}
	if config.Search.Provider == "serpapi" && config.Search.APIKey == "" {
		return fmt.Errorf("search.api_key must be set when search.provider is serpapi")
	}
	if config.Research.MaxQueriesPerStep <= 0 || config.Research.FetchesPerQuery <= 0 {
		return fmt.Errorf("research.max_queries_per_step and research.fetches_per_query must be > 0")
	}
	return nil
}
