package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"message-triage/internal/llm"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read unless TRIAGE_CONFIG names another file
	DefaultPath = "configs/config.yml"
	PathEnv     = "TRIAGE_CONFIG"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`

	// Providers are tried in order; the selector moves to the next one
	// after MaxFailuresBeforeSwitch consecutive failures.
	Providers []llm.ProviderConfig `yaml:"providers"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`

	Analysis struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"analysis"`

	Dictation struct {
		Enabled     bool          `yaml:"enabled"`
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		Language    string        `yaml:"language"`
		SampleRate  int           `yaml:"sample_rate"`
		MaxDuration time.Duration `yaml:"max_duration"`
	} `yaml:"dictation"`

	Logging struct {
		Production bool `yaml:"production"`
	} `yaml:"logging"`
}

// Path returns the config file location
func Path() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Default returns a configuration with every default applied
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	if c.Server.Port == "" {
		c.Server.Port = "8002"
	}

	// Without explicit providers fall back to Gemini keyed from the environment
	if len(c.Providers) == 0 {
		c.Providers = []llm.ProviderConfig{
			{Type: llm.ProviderGemini, APIKey: "${GEMINI_API_KEY}"},
		}
	}

	if c.MaxFailuresBeforeSwitch == 0 {
		c.MaxFailuresBeforeSwitch = 3
	}

	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 30 * time.Second
	}

	if c.Dictation.APIKey == "" {
		c.Dictation.APIKey = "${GROQ_API_KEY}"
	}

	if c.Dictation.SampleRate == 0 {
		c.Dictation.SampleRate = 16000
	}

	if c.Dictation.MaxDuration == 0 {
		c.Dictation.MaxDuration = 60 * time.Second
	}

	// Expand environment variables in API keys
	for i := range c.Providers {
		c.Providers[i].APIKey = os.ExpandEnv(c.Providers[i].APIKey)
	}
	c.Dictation.APIKey = os.ExpandEnv(c.Dictation.APIKey)
}

// Validate reports configuration values that cannot work
func (c *Config) Validate() error {
	var errs []error

	for i, p := range c.Providers {
		if !p.Type.Valid() {
			errs = append(errs, fmt.Errorf("providers[%d]: unknown type %q", i, p.Type))
		}
	}

	if c.MaxFailuresBeforeSwitch < 0 {
		errs = append(errs, errors.New("max_failures_before_switch must not be negative"))
	}

	if c.Analysis.Timeout < 0 {
		errs = append(errs, errors.New("analysis.timeout must be positive"))
	}

	if c.Dictation.SampleRate < 0 {
		errs = append(errs, errors.New("dictation.sample_rate must be positive"))
	}

	if c.Dictation.MaxDuration < 0 {
		errs = append(errs, errors.New("dictation.max_duration must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
