// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the forwarder.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Forwarding modes.
const (
	ModeSimple = "simple"
	ModeRaw    = "raw"
)

// Config holds the complete application configuration.
type Config struct {
	Provider string        `yaml:"provider"`
	Forward  ForwardConfig `yaml:"forward"`
	SES      SESConfig     `yaml:"ses"`
	Storage  StorageConfig `yaml:"storage"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ForwardConfig holds the forwarding decision configuration.
type ForwardConfig struct {
	// FromEmail is the verified sender address outbound mail is sent from.
	FromEmail string `yaml:"from_email"`
	// ToEmail is the recipient all forwarded mail is delivered to.
	ToEmail string `yaml:"to_email"`
	// SubjectPrefix, if set, is prepended to the subject in simple mode.
	SubjectPrefix string `yaml:"subject_prefix"`
	// Blacklist is an ordered list of substrings matched against the
	// original sender address. First match wins.
	Blacklist []string `yaml:"black_list"`
	// Mode selects between "simple" (re-composed bodies) and "raw"
	// (rewritten original bytes) forwarding.
	Mode string `yaml:"mode"`
}

// SESConfig holds AWS SES client configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// StorageConfig holds the S3 location where the receipt rule stores raw mail.
type StorageConfig struct {
	EmailBucket    string `yaml:"email_bucket"`
	EmailKeyPrefix string `yaml:"email_key_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate checks that the configuration is complete enough to forward mail.
func (c *Config) Validate() error {
	if c.Forward.FromEmail == "" {
		return fmt.Errorf("from_email is required")
	}
	if c.Forward.ToEmail == "" {
		return fmt.Errorf("to_email is required")
	}
	switch c.Forward.Mode {
	case ModeSimple, ModeRaw:
	default:
		return fmt.Errorf("unknown forward mode %q", c.Forward.Mode)
	}
	return nil
}

// SESConfigured returns true if a SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// StorageConfigured returns true if an S3 bucket for stored raw mail is set.
func (c *Config) StorageConfigured() bool {
	return c.Storage.EmailBucket != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Forward.Mode = ModeSimple
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = v
	}

	if v := os.Getenv("FROM_EMAIL"); v != "" {
		c.Forward.FromEmail = v
	}
	if v := os.Getenv("TO_EMAIL"); v != "" {
		c.Forward.ToEmail = v
	}
	if v := os.Getenv("SUBJECT_PREFIX"); v != "" {
		c.Forward.SubjectPrefix = v
	}
	if v := os.Getenv("BLACK_LIST"); v != "" {
		c.Forward.Blacklist = splitBlacklist(v)
	}
	if v := os.Getenv("FORWARD_MODE"); v != "" {
		c.Forward.Mode = strings.ToLower(v)
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("EMAIL_BUCKET"); v != "" {
		c.Storage.EmailBucket = v
	}
	if v := os.Getenv("EMAIL_KEY_PREFIX"); v != "" {
		c.Storage.EmailKeyPrefix = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// splitBlacklist parses the comma-separated BLACK_LIST value, stripping
// spaces from each entry and dropping empty entries.
func splitBlacklist(raw string) []string {
	parts := strings.Split(raw, ",")
	rules := make([]string, 0, len(parts))
	for _, p := range parts {
		rule := strings.ReplaceAll(p, " ", "")
		if rule != "" {
			rules = append(rules, rule)
		}
	}
	return rules
}
