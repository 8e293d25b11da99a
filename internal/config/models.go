package config

import (
	"fmt"
	"time"

	"github.com/mikey/content-safety/internal/core"
)

// LLMConfig represents the configuration for the rationale provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// ReputationConfig configures the reputation provider client
type ReputationConfig struct {
	BaseURL        string
	APIKey         string
	PollDelay      time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
}

// FetchConfig configures page retrieval
type FetchConfig struct {
	Mode             string
	Timeout          time.Duration
	UserAgent        string
	TransportTimeout time.Duration
}

// CacheConfig configures the reputation verdict cache
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	PostgresURL      string
	RedisAddr        string
}

// JobsConfig configures the async job registry
type JobsConfig struct {
	MaxConcurrent   int
	AnalysisTimeout time.Duration
	ResultTTL       time.Duration
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// SMTPConfig configures the SMTP content filter
type SMTPConfig struct {
	Enabled        bool
	ListenAddress  string
	RelayAddress   string
	RelayPort      int
	SpamHeader     string
	ScoreHeader    string
	ReasonHeader   string
	HighRiskHeader string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("rationale.timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  timeout,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetReputation returns the reputation provider configuration
func (c *Config) GetReputation() (ReputationConfig, error) {
	timeout, err := c.GetDuration("reputation.request_timeout")
	if err != nil {
		return ReputationConfig{}, err
	}
	return ReputationConfig{
		BaseURL:        c.GetString("reputation.base_url"),
		APIKey:         c.GetString("reputation.api_key"),
		PollDelay:      c.GetMillis("reputation.poll_delay_ms"),
		MaxAttempts:    c.GetInt("reputation.max_attempts"),
		RequestTimeout: timeout,
	}, nil
}

// GetFetch returns the fetch and transport configuration
func (c *Config) GetFetch() (FetchConfig, error) {
	transportTimeout, err := c.GetDuration("transport.timeout")
	if err != nil {
		return FetchConfig{}, err
	}
	mode := c.GetString("fetch.mode")
	if mode != "http" && mode != "browser" {
		return FetchConfig{}, fmt.Errorf("unsupported fetch mode: %s", mode)
	}
	return FetchConfig{
		Mode:             mode,
		Timeout:          c.GetMillis("fetch.timeout_ms"),
		UserAgent:        c.GetString("fetch.user_agent"),
		TransportTimeout: transportTimeout,
	}, nil
}

// GetSpamPolicy returns the email verdict thresholds
func (c *Config) GetSpamPolicy() core.SpamPolicy {
	return core.SpamPolicy{
		SpamThreshold:     c.GetFloat64("spam.spam_threshold"),
		HighRiskThreshold: c.GetFloat64("spam.high_risk_threshold"),
		MaxSpamKeywords:   c.GetInt("spam.max_spam_keywords"),
		MaxSpamPatterns:   c.GetInt("spam.max_spam_patterns"),
		MaxBulkEmails:     c.GetInt("spam.max_bulk_emails"),
		LinkConcurrency:   c.GetInt("spam.link_concurrency"),
		MaxLinks:          c.GetInt("spam.max_links"),
	}
}

// GetCache returns the reputation cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		PostgresURL:      c.GetString("cache.postgres_url"),
		RedisAddr:        c.GetString("cache.redis_addr"),
	}, nil
}

// GetJobs returns the async job registry configuration
func (c *Config) GetJobs() (JobsConfig, error) {
	timeout, err := c.GetDuration("jobs.analysis_timeout")
	if err != nil {
		return JobsConfig{}, err
	}
	ttl, err := c.GetDuration("jobs.result_ttl")
	if err != nil {
		return JobsConfig{}, err
	}
	return JobsConfig{
		MaxConcurrent:   c.GetInt("jobs.max_concurrent"),
		AnalysisTimeout: timeout,
		ResultTTL:       ttl,
	}, nil
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ShutdownTimeout: timeout,
	}, nil
}

// GetSMTP returns the SMTP filter configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:        c.GetBool("smtp.enabled"),
		ListenAddress:  c.GetString("smtp.listen_address"),
		RelayAddress:   c.GetString("smtp.relay_address"),
		RelayPort:      c.GetInt("smtp.relay_port"),
		SpamHeader:     c.GetString("smtp.headers.spam"),
		ScoreHeader:    c.GetString("smtp.headers.score"),
		ReasonHeader:   c.GetString("smtp.headers.reason"),
		HighRiskHeader: c.GetString("smtp.headers.high_risk"),
	}
}
