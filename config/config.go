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

// ErrMissingCredentials is returned by Load when a required API key is unset.
var ErrMissingCredentials = errors.New("missing credentials")

// Config holds all configuration for askweb
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Critic    CriticConfig    `mapstructure:"critic"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug bool `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address   string  `mapstructure:"address"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second per client IP, 0 disables
	RateBurst int     `mapstructure:"rate_burst"`
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider            string        `mapstructure:"provider"` // tavily, brave, serper
	MaxResults          int           `mapstructure:"max_results"`
	Timeout             time.Duration `mapstructure:"timeout"`
	BaseURL             string        `mapstructure:"base_url"`
	TavilyDepth         string        `mapstructure:"tavily_depth"`
	TavilyAPIKey        string        `mapstructure:"tavily_api_key"`
	BraveAPIKey         string        `mapstructure:"brave_api_key"`
	SerperAPIKey        string        `mapstructure:"serper_api_key"`
	FetchMissingContent bool          `mapstructure:"fetch_missing_content"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
}

// APIKey returns the key of the selected provider and the environment
// variable it is conventionally read from.
func (s SearchConfig) APIKey() (key string, env string) {
	switch s.Provider {
	case "brave":
		return s.BraveAPIKey, "BRAVE_API_KEY"
	case "serper":
		return s.SerperAPIKey, "SERPER_API_KEY"
	default:
		return s.TavilyAPIKey, "TAVILY_API_KEY"
	}
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "tavily", "brave", "serper":
	default:
		return fmt.Errorf("search.provider %q is not supported", s.Provider)
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	return nil
}

// LLMConfig contains the language model settings shared by the formatter and the critic
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // gemini, openai, anthropic
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BaseURL         string        `mapstructure:"base_url"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
}

// APIKey returns the key of the selected provider and its environment variable.
func (l LLMConfig) APIKey() (key string, env string) {
	switch l.Provider {
	case "openai":
		return l.OpenAIAPIKey, "OPENAI_API_KEY"
	case "anthropic":
		return l.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	default:
		return l.GeminiAPIKey, "GEMINI_API_KEY"
	}
}

// Normalize fills the model name for the selected provider.
func (l LLMConfig) Normalize() LLMConfig {
	l.Provider = strings.ToLower(strings.TrimSpace(l.Provider))
	if strings.TrimSpace(l.Model) != "" {
		return l
	}
	switch l.Provider {
	case "openai":
		l.Model = "gpt-4o-mini"
	case "anthropic":
		l.Model = "claude-3-5-haiku-latest"
	default:
		l.Model = "gemini-2.5-flash"
	}
	return l
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider %q is not supported", l.Provider)
	}
	if l.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens cannot be negative")
	}
	return nil
}

// SessionConfig controls where per-session history is kept.
type SessionConfig struct {
	Store      string        `mapstructure:"store"` // inmemory, redis
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

func (s SessionConfig) Validate() error {
	switch s.Store {
	case "inmemory", "redis":
	default:
		return fmt.Errorf("session.store %q is not supported", s.Store)
	}
	if s.TTL <= 0 {
		return fmt.Errorf("session.ttl must be > 0")
	}
	return nil
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// TelemetryConfig contains tracing settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Options selects the files Load reads.
type Options struct {
	// ConfigPath is an explicit config file. When empty askweb.{yaml,json,toml}
	// is looked up in the usual places and may be absent.
	ConfigPath string
	// EnvFile is loaded into the process environment before the config is read.
	EnvFile         string
	EnvFileRequired bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.tavily_depth", "basic")
	v.SetDefault("search.tavily_api_key", "")
	v.SetDefault("search.brave_api_key", "")
	v.SetDefault("search.serper_api_key", "")
	v.SetDefault("search.fetch_missing_content", false)
	v.SetDefault("search.fetch_timeout", 10*time.Second)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("rerank.strategy", "length")
	v.SetDefault("rerank.top_k", 3)
	v.SetDefault("critic.mode", "loose")
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.budget", 0)
	v.SetDefault("pipeline.retry_delay", 0)
	v.SetDefault("session.store", "inmemory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "askweb_session")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "askweb")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
}

// credentialEnv maps config keys to the conventional provider variables.
var credentialEnv = map[string]string{
	"search.tavily_api_key": "TAVILY_API_KEY",
	"search.brave_api_key":  "BRAVE_API_KEY",
	"search.serper_api_key": "SERPER_API_KEY",
	"llm.gemini_api_key":    "GEMINI_API_KEY",
	"llm.openai_api_key":    "OPENAI_API_KEY",
	"llm.anthropic_api_key": "ANTHROPIC_API_KEY",
}

// Load reads the env file, the config file and the environment, in that
// order of increasing precedence, and validates the result.
func Load(opts Options) (*Config, error) {
	if err := LoadEnvFile(opts.EnvFile, opts.EnvFileRequired); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigPath == "" {
		v.SetConfigName("askweb")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(opts.ConfigPath)
	}

	v.SetEnvPrefix("ASKWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // ASKWEB_SEARCH_PROVIDER etc.
	for key, env := range credentialEnv {
		prefixed := "ASKWEB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.CheckCredentials(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize applies defaults for unset or out-of-range values.
func (c *Config) Normalize() {
	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	c.LLM = c.LLM.Normalize()
	c.Rerank = c.Rerank.Normalize()
	c.Critic = c.Critic.Normalize()
	c.Pipeline = c.Pipeline.Normalize()
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	if c.Session.CookieName == "" {
		c.Session.CookieName = "askweb_session"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Rerank.Validate(); err != nil {
		return err
	}
	if err := c.Critic.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if c.Session.Store == "redis" {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative")
	}
	return nil
}

// CheckCredentials reports every missing provider key at once.
func (c *Config) CheckCredentials() error {
	var missing []string
	if key, env := c.Search.APIKey(); strings.TrimSpace(key) == "" {
		missing = append(missing, env)
	}
	if key, env := c.LLM.APIKey(); strings.TrimSpace(key) == "" {
		missing = append(missing, env)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s in the environment or the env file", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
