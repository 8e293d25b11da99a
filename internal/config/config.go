package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. SAFETY_REPUTATION_API_KEY
const EnvPrefix = "SAFETY"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New loads config.yaml from the standard search paths
func New() (*Config, error) {
	return Load("")
}

// Load reads configuration from file, or from the standard search paths when file is empty.
// A missing config file in the search paths is not an error.
func Load(file string) (*Config, error) {
	v := NewEmptyViper()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/content-safety/")
		v.AddConfigPath("$HOME/.content-safety")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults and environment overrides
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Reputation provider
	v.SetDefault("reputation.base_url", "https://www.virustotal.com/api/v3")
	v.SetDefault("reputation.api_key", "")
	v.SetDefault("reputation.poll_delay_ms", 3000)
	v.SetDefault("reputation.max_attempts", 5)
	v.SetDefault("reputation.request_timeout", "30s")

	// Transport and fetch
	v.SetDefault("transport.timeout", "10s")
	v.SetDefault("fetch.mode", "http")
	v.SetDefault("fetch.timeout_ms", 10000)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; content-safety/1.0)")

	// Spam scoring
	v.SetDefault("spam.spam_threshold", 0.6)
	v.SetDefault("spam.high_risk_threshold", 0.8)
	v.SetDefault("spam.max_spam_keywords", 3)
	v.SetDefault("spam.max_spam_patterns", 2)
	v.SetDefault("spam.max_bulk_emails", 100)
	v.SetDefault("spam.link_concurrency", 4)
	v.SetDefault("spam.max_links", 25)
	v.SetDefault("spam.trusted_mail_domains", []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"})

	v.SetDefault("lexicon.dir", "")

	// Async jobs
	v.SetDefault("jobs.max_concurrent", 8)
	v.SetDefault("jobs.analysis_timeout", "2m")
	v.SetDefault("jobs.result_ttl", "1h")

	// LLM provider defaults
	v.SetDefault("llm.provider", "none")
	v.SetDefault("rationale.timeout", "15s")

	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 300)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 300)
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Reputation cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/reputation_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/content_safety")
	v.SetDefault("cache.postgres_url", "postgres://localhost:5432/content_safety")
	v.SetDefault("cache.redis_addr", "localhost:6379")

	// HTTP server
	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.shutdown_timeout", "15s")

	// SMTP filter
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("smtp.relay_address", "localhost")
	v.SetDefault("smtp.relay_port", 10026)
	v.SetDefault("smtp.headers.spam", "X-Spam-Status")
	v.SetDefault("smtp.headers.score", "X-Spam-Score")
	v.SetDefault("smtp.headers.reason", "X-Spam-Reason")
	v.SetDefault("smtp.headers.high_risk", "X-Spam-High-Risk")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration parses a duration value such as "15s"
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetMillis reads an integer millisecond value as a duration
func (c *Config) GetMillis(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * time.Millisecond
}

// Set overrides a value, taking precedence over every other source
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
