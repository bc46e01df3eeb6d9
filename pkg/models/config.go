package models

import "time"

// LLM provider names accepted in configuration.
const (
	ProviderAuto      = "auto"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

// AnthropicConfig holds settings for the Anthropic messages API.
type AnthropicConfig struct {
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	Model     string        `yaml:"model" mapstructure:"model"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	Model         string        `yaml:"model" mapstructure:"model"`
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama    OllamaConfig    `yaml:"ollama" mapstructure:"ollama"`
}

// GitConfig controls the pull-request workflow of specialists.
type GitConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	RepoPath   string `yaml:"repo_path" mapstructure:"repo_path"`
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`
	Remote     string `yaml:"remote" mapstructure:"remote"`
}

// TelemetryConfig configures the event log, tracing and the metrics file.
type TelemetryConfig struct {
	EventLog     string `yaml:"event_log" mapstructure:"event_log"`
	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	MetricsFile  string `yaml:"metrics_file" mapstructure:"metrics_file"`
}

// SlackConfig holds the Slack incoming webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls run summary notifications.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// Config holds system-wide settings read from .maestro.yaml via Viper.
type Config struct {
	ReportsDir    string             `yaml:"reports_dir" mapstructure:"reports_dir"`
	HandlersFile  string             `yaml:"handlers_file" mapstructure:"handlers_file"`
	LLM           LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Git           GitConfig          `yaml:"git" mapstructure:"git"`
	Telemetry     TelemetryConfig    `yaml:"telemetry" mapstructure:"telemetry"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
