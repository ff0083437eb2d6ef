// Package config handles configuration loading and management for beadloop.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for beadloop.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Loop      LoopConfig      `mapstructure:"loop"`
	Store     StoreConfig     `mapstructure:"store"`
	AWS       AWSConfig       `mapstructure:"aws"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AgentConfig holds agent execution settings.
type AgentConfig struct {
	// Dir is the directory holding agent profile markdown files.
	Dir string `mapstructure:"dir"`
	// Model is the default model alias passed to agents.
	Model string `mapstructure:"model"`
	// Timeout bounds each agent execution.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoopConfig holds orchestration loop settings.
type LoopConfig struct {
	// PageSize bounds each candidate fetch from the task store.
	PageSize int `mapstructure:"page_size"`
	// AutoComplete closes tasks automatically when the agent succeeds.
	AutoComplete bool `mapstructure:"auto_complete"`
}

// StoreConfig selects and configures the task store backend.
type StoreConfig struct {
	// Backend is "beads" (the bd CLI) or "sqlite" (embedded database).
	Backend string `mapstructure:"backend"`
	Beads   BeadsConfig  `mapstructure:"beads"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
}

// BeadsConfig holds settings for the beads CLI backend.
type BeadsConfig struct {
	// Bin is the beads binary name or path.
	Bin string `mapstructure:"bin"`
}

// SQLiteConfig holds settings for the embedded database backend.
type SQLiteConfig struct {
	// Path is the database file location, relative to the project root.
	Path string `mapstructure:"path"`
}

// AWSConfig holds AWS Bedrock settings for the API runner.
type AWSConfig struct {
	// Bedrock routes API calls through AWS Bedrock.
	Bedrock bool `mapstructure:"bedrock"`
	// Region is the Bedrock region.
	Region string `mapstructure:"region"`
	// Profile is the AWS shared-config profile.
	Profile string `mapstructure:"profile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.beadloop.yaml in current directory or parent)
// 3. User config (~/.config/beadloop/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Project config takes precedence over the user config.
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("agent.dir", cfg.Agent.Dir)
	v.Set("agent.model", cfg.Agent.Model)
	v.Set("agent.timeout", cfg.Agent.Timeout.String())
	v.Set("loop.page_size", cfg.Loop.PageSize)
	v.Set("loop.auto_complete", cfg.Loop.AutoComplete)
	v.Set("store.backend", cfg.Store.Backend)
	v.Set("store.beads.bin", cfg.Store.Beads.Bin)
	v.Set("store.sqlite.path", cfg.Store.SQLite.Path)
	v.Set("aws.bedrock", cfg.AWS.Bedrock)
	v.Set("aws.region", cfg.AWS.Region)
	v.Set("aws.profile", cfg.AWS.Profile)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("agent.dir", filepath.Join(".claude", "agents"))
	v.SetDefault("agent.model", "")
	v.SetDefault("agent.timeout", "30m")

	v.SetDefault("loop.page_size", 50)
	v.SetDefault("loop.auto_complete", true)

	v.SetDefault("store.backend", "beads")
	v.SetDefault("store.beads.bin", "bd")
	v.SetDefault("store.sqlite.path", filepath.Join(".beadloop", "tasks.db"))

	v.SetDefault("aws.bedrock", false)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
}

// getUserConfigDir returns the XDG config directory for beadloop.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "beadloop")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "beadloop")
	}
	return filepath.Join(home, ".config", "beadloop")
}

// findProjectConfig searches for .beadloop.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".beadloop.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Dir:     filepath.Join(".claude", "agents"),
			Timeout: 30 * time.Minute,
		},
		Loop: LoopConfig{
			PageSize:     50,
			AutoComplete: true,
		},
		Store: StoreConfig{
			Backend: "beads",
			Beads:   BeadsConfig{Bin: "bd"},
			SQLite:  SQLiteConfig{Path: filepath.Join(".beadloop", "tasks.db")},
		},
	}
}
