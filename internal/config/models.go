package config

import (
	"time"
)

// ClassifierConfig selects and reaches the verdict backend
type ClassifierConfig struct {
	Provider         string
	Endpoint         string
	FeedbackEndpoint string
	Timeout          time.Duration
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
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// StoreConfig represents the counter store configuration
type StoreConfig struct {
	Type          string
	Retention     time.Duration
	CleanupFreq   time.Duration
	SQLitePath    string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// TriggerConfig holds the change detector timings
type TriggerConfig struct {
	SettleDelay    time.Duration
	Cooldown       time.Duration
	PollInterval   time.Duration
	URLSettleDelay time.Duration
	HostMarker     string
}

// BrowserConfig describes the controlled browser
type BrowserConfig struct {
	URL         string
	RemoteURL   string
	Headless    bool
	UserDataDir string
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	timeout, err := c.GetDuration("classifier.timeout")
	if err != nil {
		return ClassifierConfig{}, err
	}
	return ClassifierConfig{
		Provider:         c.GetString("classifier.provider"),
		Endpoint:         c.GetString("classifier.endpoint"),
		FeedbackEndpoint: c.GetString("feedback.endpoint"),
		Timeout:          timeout,
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
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	retention, err := c.GetDuration("store.retention")
	if err != nil {
		return StoreConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("store.cleanup_frequency")
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Type:          c.GetString("store.type"),
		Retention:     retention,
		CleanupFreq:   cleanupFreq,
		SQLitePath:    c.GetString("store.sqlite_path"),
		MySQLDSN:      c.GetString("store.mysql_dsn"),
		RedisAddr:     c.GetString("store.redis_addr"),
		RedisPassword: c.GetString("store.redis_password"),
		RedisDB:       c.GetInt("store.redis_db"),
	}, nil
}

// GetTrigger returns the change detector configuration
func (c *Config) GetTrigger() (TriggerConfig, error) {
	var (
		tc  = TriggerConfig{HostMarker: c.GetString("trigger.host_marker")}
		err error
	)
	for key, dst := range map[string]*time.Duration{
		"trigger.settle_delay":     &tc.SettleDelay,
		"trigger.cooldown":         &tc.Cooldown,
		"trigger.poll_interval":    &tc.PollInterval,
		"trigger.url_settle_delay": &tc.URLSettleDelay,
	} {
		if *dst, err = c.GetDuration(key); err != nil {
			return TriggerConfig{}, err
		}
	}
	return tc, nil
}

// GetBrowser returns the browser configuration
func (c *Config) GetBrowser() BrowserConfig {
	return BrowserConfig{
		URL:         c.GetString("browser.url"),
		RemoteURL:   c.GetString("browser.remote_url"),
		Headless:    c.GetBool("browser.headless"),
		UserDataDir: c.GetString("browser.user_data_dir"),
	}
}
