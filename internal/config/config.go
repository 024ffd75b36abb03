package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"` // ops server: health, metrics, mcp

	// Public API
	APIListenAddr      string        `envconfig:"API_LISTEN_ADDR" default:":8090"`
	APICORSOrigins     string        `envconfig:"API_CORS_ORIGINS"`
	APITLSCert         string        `envconfig:"API_TLS_CERT"`
	APITLSKey          string        `envconfig:"API_TLS_KEY"`
	APIRateLimitMax    int           `envconfig:"API_RATE_LIMIT_MAX" default:"120"`
	APIRateLimitWindow time.Duration `envconfig:"API_RATE_LIMIT_WINDOW" default:"1m"`

	// Database
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"` // "sqlite" or "postgres"
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"questplan.db"`

	// Auth
	AuthMode        string `envconfig:"AUTH_MODE" default:"jwt"` // "jwt" or "none"
	AuthJWTSecret   string `envconfig:"AUTH_JWT_SECRET"`
	AuthJWTIssuer   string `envconfig:"AUTH_JWT_ISSUER"`
	AuthJWTAudience string `envconfig:"AUTH_JWT_AUDIENCE" default:"authenticated"`
	AuthDevUserID   string `envconfig:"AUTH_DEV_USER_ID" default:"dev-user"` // used when AUTH_MODE=none

	// Language model
	AIProvider      string        `envconfig:"AI_PROVIDER" default:"anthropic"` // "anthropic" or "openai"
	AIModel         string        `envconfig:"AI_MODEL"`
	AIBaseURL       string        `envconfig:"AI_BASE_URL"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	AITimeout       time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`

	// Conversation tuning
	ChatTemperature        float64 `envconfig:"CHAT_TEMPERATURE" default:"0.7"`
	ChatMaxTokens          int     `envconfig:"CHAT_MAX_TOKENS" default:"500"`
	PlanTemperature        float64 `envconfig:"PLAN_TEMPERATURE" default:"0.7"`
	PlanMaxTokens          int     `envconfig:"PLAN_MAX_TOKENS" default:"4000"`
	AssistantMaxTokens     int     `envconfig:"ASSISTANT_MAX_TOKENS" default:"1500"`
	AssistantMaxToolRounds int     `envconfig:"ASSISTANT_MAX_TOOL_ROUNDS" default:"5"`
	PromptsPath            string  `envconfig:"PROMPTS_PATH"` // optional YAML override of the embedded catalog

	// Integrations (optional)
	SlackWebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`
	GitHubToken     string `envconfig:"GITHUB_TOKEN"`
}

// AIEnabled returns true if the selected provider has credentials.
func (c *Config) AIEnabled() bool {
	switch strings.ToLower(c.AIProvider) {
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return c.AnthropicAPIKey != ""
	}
}

// SlackEnabled returns true if achievement notifications go to Slack.
func (c *Config) SlackEnabled() bool {
	return c.SlackWebhookURL != ""
}

// GitHubEnabled returns true if roadmap export to GitHub is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubToken != ""
}

// CORSOriginList returns the parsed list of allowed CORS origins.
func (c *Config) CORSOriginList() []string {
	if c.APICORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.APICORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, o := range parts {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q, expected sqlite or postgres", c.DatabaseDriver)
	}
	switch c.AuthMode {
	case "none":
	case "jwt":
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE %q, expected jwt or none", c.AuthMode)
	}
	switch strings.ToLower(c.AIProvider) {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("invalid AI_PROVIDER %q, expected anthropic or openai", c.AIProvider)
	}
	if c.AssistantMaxToolRounds < 1 {
		return fmt.Errorf("ASSISTANT_MAX_TOOL_ROUNDS must be at least 1")
	}
	if (c.APITLSCert == "") != (c.APITLSKey == "") {
		return fmt.Errorf("API_TLS_CERT and API_TLS_KEY must be set together")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
