package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/beadloop/beadloop/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify beadloop configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/beadloop/config.yaml
Project-specific overrides can be placed in .beadloop.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("agent.dir: %s\n", cfg.Agent.Dir)
	fmt.Printf("agent.model: %s\n", orEmpty(cfg.Agent.Model, "(from agent profile)"))
	fmt.Printf("agent.timeout: %s\n", cfg.Agent.Timeout)
	fmt.Printf("loop.page_size: %d\n", cfg.Loop.PageSize)
	fmt.Printf("loop.auto_complete: %t\n", cfg.Loop.AutoComplete)
	fmt.Printf("store.backend: %s\n", cfg.Store.Backend)
	fmt.Printf("store.beads.bin: %s\n", cfg.Store.Beads.Bin)
	fmt.Printf("store.sqlite.path: %s\n", cfg.Store.SQLite.Path)
	fmt.Printf("aws.bedrock: %t\n", cfg.AWS.Bedrock)
	fmt.Printf("aws.region: %s\n", orEmpty(cfg.AWS.Region, "(not set)"))
	fmt.Printf("aws.profile: %s\n", orEmpty(cfg.AWS.Profile, "(not set)"))

	fmt.Printf("\nUser config: %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("Project overrides: %s\n", project)
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "agent.dir":
		return cfg.Agent.Dir, nil
	case "agent.model":
		return cfg.Agent.Model, nil
	case "agent.timeout":
		return cfg.Agent.Timeout.String(), nil
	case "loop.page_size":
		return strconv.Itoa(cfg.Loop.PageSize), nil
	case "loop.auto_complete":
		return strconv.FormatBool(cfg.Loop.AutoComplete), nil
	case "store.backend":
		return cfg.Store.Backend, nil
	case "store.beads.bin":
		return cfg.Store.Beads.Bin, nil
	case "store.sqlite.path":
		return cfg.Store.SQLite.Path, nil
	case "aws.bedrock":
		return strconv.FormatBool(cfg.AWS.Bedrock), nil
	case "aws.region":
		return cfg.AWS.Region, nil
	case "aws.profile":
		return cfg.AWS.Profile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "agent.dir":
		cfg.Agent.Dir = value
	case "agent.model":
		cfg.Agent.Model = value
	case "agent.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for agent.timeout: %w", err)
		}
		cfg.Agent.Timeout = d
	case "loop.page_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for loop.page_size: %w", err)
		}
		cfg.Loop.PageSize = n
	case "loop.auto_complete":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for loop.auto_complete: %w", err)
		}
		cfg.Loop.AutoComplete = b
	case "store.backend":
		if value != "beads" && value != "sqlite" {
			return fmt.Errorf("invalid store.backend %q: must be beads or sqlite", value)
		}
		cfg.Store.Backend = value
	case "store.beads.bin":
		cfg.Store.Beads.Bin = value
	case "store.sqlite.path":
		cfg.Store.SQLite.Path = value
	case "aws.bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for aws.bedrock: %w", err)
		}
		cfg.AWS.Bedrock = b
	case "aws.region":
		cfg.AWS.Region = value
	case "aws.profile":
		cfg.AWS.Profile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
