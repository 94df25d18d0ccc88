package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel      = "gpt-4o-mini"
	DefaultAPIVersion = "2024-02-15-preview"
	DefaultFile       = "lightswitch.yaml"

	DefaultSystemPrompt = "You are a home assistant that can control lights at home. " +
		"The available lights are Bathroom light, Bedroom light, and Kitchen light."
)

// ErrMissingCredentials is returned by Validate when the API key or the
// endpoint is not configured.
var ErrMissingCredentials = errors.New("missing API key or endpoint")

// Config holds all runtime configuration for the assistant.
type Config struct {
	APIKey       string `yaml:"-"`
	BaseURL      string `yaml:"-"`
	Model        string `yaml:"model"`
	APIVersion   string `yaml:"api_version"`
	SystemPrompt string `yaml:"system_prompt"`
	Verbose      bool   `yaml:"verbose"`
	Azure        bool   `yaml:"azure"`
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		Model:        DefaultModel,
		APIVersion:   DefaultAPIVersion,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.APIVersion = strings.TrimSpace(cfg.APIVersion)
	cfg.SystemPrompt = strings.TrimSpace(cfg.SystemPrompt)

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return cfg
}

// Validate reports whether the required settings are present.
func (c Config) Validate() error {
	if c.APIKey == "" || c.BaseURL == "" {
		return ErrMissingCredentials
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.BaseURL, err)
	}
	return nil
}

// IsAzure reports whether BaseURL points at an Azure OpenAI resource, either
// explicitly or by its host name.
func (c Config) IsAzure() bool {
	if c.Azure {
		return true
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".azure.com")
}

// LoadFile overlays the YAML settings file at path onto cfg.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment settings onto cfg. Azure variable names take
// precedence over the OpenAI ones.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if v := firstEnv(getenv, "AZURE_OPENAI_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := firstEnv(getenv, "AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.BaseURL = v
		cfg.Azure = true
	} else if v := firstEnv(getenv, "OPENAI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := firstEnv(getenv, "AZURE_OPENAI_DEPLOYMENT", "OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := firstEnv(getenv, "AZURE_OPENAI_API_VERSION"); v != "" {
		cfg.APIVersion = v
	}
	if v := firstEnv(getenv, "LIGHTSWITCH_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}
	return cfg
}

// Load builds the configuration from defaults, the optional settings file and
// the environment, in that order.
func Load(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	path := strings.TrimSpace(getenv("LIGHTSWITCH_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	loaded, err := LoadFile(cfg, path)
	switch {
	case err == nil:
		cfg = loaded
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, err
	}

	return Normalize(ApplyEnv(cfg, getenv)), nil
}

func firstEnv(getenv func(string) string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
