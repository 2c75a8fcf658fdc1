package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	AgentConfig   *AgentConfig
}

type AppConfig struct {
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	Debug         bool   `envconfig:"DEBUG" default:"false"`
	LogFile       string `envconfig:"LOG_FILE" default:""`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	TraceExporter string `envconfig:"TRACE_EXPORTER" default:"none"`
	ServiceName   string `envconfig:"SERVICE_NAME" default:"afterversed-navigator"`
}

type AIConfig struct {
	Provider          string  `envconfig:"AI_PROVIDER" default:"gemini"`
	APIKey            string  `envconfig:"AI_API_KEY"`
	Model             string  `envconfig:"AI_MODEL" default:""`
	BaseURL           string  `envconfig:"AI_BASE_URL" default:""`
	Temperature       float32 `envconfig:"AI_TEMPERATURE" default:"0.1"`
	MaxTokens         int     `envconfig:"AI_MAX_TOKENS" default:"4096"`
	MaxRetries        uint64  `envconfig:"AI_MAX_RETRIES" default:"3"`
	RequestsPerMinute int     `envconfig:"AI_REQUESTS_PER_MINUTE" default:"30"`
	ScriptPath        string  `envconfig:"AI_SCRIPT_PATH" default:""`
}

type BrowserConfig struct {
	Headless          bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo            int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	ActionTimeout     int    `envconfig:"BROWSER_ACTION_TIMEOUT" default:"15000"`
	NavigationTimeout int    `envconfig:"BROWSER_NAVIGATION_TIMEOUT" default:"15000"`
	ViewportWidth     int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight    int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"900"`
	Locale            string `envconfig:"BROWSER_LOCALE" default:"en-GB"`
	Timezone          string `envconfig:"BROWSER_TIMEZONE" default:"Europe/London"`
	ScreenshotDir     string `envconfig:"BROWSER_SCREENSHOT_DIR" default:"."`
	AutoInstall       bool   `envconfig:"BROWSER_AUTO_INSTALL" default:"true"`
}

type AgentConfig struct {
	MaxIterations int           `envconfig:"AGENT_MAX_ITERATIONS" default:"16"`
	TaskTimeout   time.Duration `envconfig:"AGENT_TASK_TIMEOUT" default:"5m"`
	TextExcerpt   int           `envconfig:"AGENT_TEXT_EXCERPT" default:"1500"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderScripted  = "scripted"

	defaultGeminiModel    = "gemini-2.5-flash"
	defaultAnthropicModel = "claude-sonnet-4-5"
)

// ModelName resolves AI_MODEL, falling back to the provider's default model.
func (c *AIConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}

	switch c.Provider {
	case ProviderAnthropic:
		return defaultAnthropicModel
	case ProviderGemini:
		return defaultGeminiModel
	default:
		return ""
	}
}

// ActionTimeoutDuration is the default bound for a single browser action.
func (c *BrowserConfig) ActionTimeoutDuration() time.Duration {
	return time.Duration(c.ActionTimeout) * time.Millisecond
}

func (c *BrowserConfig) NavigationTimeoutDuration() time.Duration {
	return time.Duration(c.NavigationTimeout) * time.Millisecond
}

// Validate is called once CLI overrides have been applied on top of the environment.
func (c *Config) Validate() error {
	switch c.AIConfig.Provider {
	case ProviderGemini, ProviderAnthropic:
		if c.AIConfig.APIKey == "" {
			return fmt.Errorf("AI_API_KEY is required for provider %q", c.AIConfig.Provider)
		}
	case ProviderScripted:
		if c.AIConfig.ScriptPath == "" {
			return fmt.Errorf("AI_SCRIPT_PATH is required for provider %q", c.AIConfig.Provider)
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIConfig.Provider)
	}

	if c.AgentConfig.MaxIterations <= 0 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", c.AgentConfig.MaxIterations)
	}

	if c.BrowserConfig.ActionTimeout <= 0 {
		return fmt.Errorf("BROWSER_ACTION_TIMEOUT must be positive, got %d", c.BrowserConfig.ActionTimeout)
	}

	return nil
}
