// Package core contains the orchestration logic for Maestro: manifest
// parsing and rewriting, handler selection, concurrent task scheduling,
// progress checkpoints, reports and configuration.
package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// ConfigFileName is the configuration file looked up in the base path.
const ConfigFileName = ".maestro.yaml"

// Environment variables that override the configuration file.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOllamaBaseURL   = "OLLAMA_API_BASE_URL"
	EnvOllamaModel     = "OLLAMA_DEFAULT_MODEL"
)

// ConfigurationManager loads and validates the Maestro configuration.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the root directory where .maestro.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with the built-in defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		ReportsDir:   "reports",
		HandlersFile: "handlers.yaml",
		LLM: models.LLMConfig{
			Provider: models.ProviderAuto,
			Anthropic: models.AnthropicConfig{
				Model:     "claude-3-sonnet-20240229",
				MaxTokens: 4000,
				BaseURL:   "https://api.anthropic.com",
				Timeout:   60 * time.Second,
			},
			Ollama: models.OllamaConfig{
				BaseURL:       "http://localhost:11434",
				Model:         "llama3.2:3b",
				MaxConcurrent: 3,
				Timeout:       120 * time.Second,
			},
		},
		Git: models.GitConfig{
			Enabled:    false,
			RepoPath:   ".",
			BaseBranch: "main",
			Remote:     "origin",
		},
		Telemetry: models.TelemetryConfig{
			EventLog:    ".maestro_events.jsonl",
			MetricsFile: "metrics.prom",
		},
	}
}

// LoadConfig reads .maestro.yaml from the base path using Viper. If the file
// does not exist, defaults are returned. Environment variables override the
// file. Relative paths are resolved against the base path.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("reports_dir", cfg.ReportsDir)
	v.SetDefault("handlers_file", cfg.HandlersFile)
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.anthropic.model", cfg.LLM.Anthropic.Model)
	v.SetDefault("llm.anthropic.max_tokens", cfg.LLM.Anthropic.MaxTokens)
	v.SetDefault("llm.anthropic.base_url", cfg.LLM.Anthropic.BaseURL)
	v.SetDefault("llm.anthropic.timeout", cfg.LLM.Anthropic.Timeout)
	v.SetDefault("llm.ollama.base_url", cfg.LLM.Ollama.BaseURL)
	v.SetDefault("llm.ollama.model", cfg.LLM.Ollama.Model)
	v.SetDefault("llm.ollama.max_concurrent", cfg.LLM.Ollama.MaxConcurrent)
	v.SetDefault("llm.ollama.timeout", cfg.LLM.Ollama.Timeout)
	v.SetDefault("git.enabled", cfg.Git.Enabled)
	v.SetDefault("git.repo_path", cfg.Git.RepoPath)
	v.SetDefault("git.base_branch", cfg.Git.BaseBranch)
	v.SetDefault("git.remote", cfg.Git.Remote)
	v.SetDefault("telemetry.event_log", cfg.Telemetry.EventLog)
	v.SetDefault("telemetry.metrics_file", cfg.Telemetry.MetricsFile)
	v.SetDefault("notifications.enabled", false)

	_ = v.BindEnv("llm.anthropic.api_key", EnvAnthropicAPIKey)
	_ = v.BindEnv("llm.ollama.base_url", EnvOllamaBaseURL)
	_ = v.BindEnv("llm.ollama.model", EnvOllamaModel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}

	cfg.ReportsDir = cm.resolve(cfg.ReportsDir)
	cfg.HandlersFile = cm.resolve(cfg.HandlersFile)
	cfg.Git.RepoPath = cm.resolve(cfg.Git.RepoPath)
	cfg.Telemetry.EventLog = cm.resolve(cfg.Telemetry.EventLog)
	return cfg, nil
}

func (cm *viperConfigManager) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cm.basePath, path)
}

var validProviders = map[string]bool{
	models.ProviderAuto:      true,
	models.ProviderAnthropic: true,
	models.ProviderOllama:    true,
	models.ProviderMock:      true,
}

// ValidateConfig checks the configuration for invalid values and returns an
// error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if strings.TrimSpace(cfg.ReportsDir) == "" {
		errs = append(errs, "reports_dir must not be empty")
	}
	if !validProviders[cfg.LLM.Provider] {
		errs = append(errs, fmt.Sprintf(
			"llm.provider %q is invalid, must be one of: auto, anthropic, ollama, mock",
			cfg.LLM.Provider,
		))
	}
	if cfg.LLM.Provider == models.ProviderAnthropic && cfg.LLM.Anthropic.APIKey == "" {
		errs = append(errs, "llm.anthropic.api_key is required when llm.provider is anthropic")
	}
	if cfg.LLM.Anthropic.MaxTokens <= 0 {
		errs = append(errs, fmt.Sprintf("llm.anthropic.max_tokens must be positive, got %d", cfg.LLM.Anthropic.MaxTokens))
	}
	if cfg.LLM.Ollama.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Sprintf("llm.ollama.max_concurrent must be positive, got %d", cfg.LLM.Ollama.MaxConcurrent))
	}
	if cfg.LLM.Anthropic.Timeout < 0 || cfg.LLM.Ollama.Timeout < 0 {
		errs = append(errs, "llm timeouts must not be negative")
	}
	if cfg.Git.Enabled && cfg.Git.BaseBranch == "" {
		errs = append(errs, "git.base_branch must not be empty when git is enabled")
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
