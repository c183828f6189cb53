package cimit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MitigationRoute is a journey event that remediates a CI. A route with a
// document only applies to CIs raised against that document type.
type MitigationRoute struct {
	Event    string `yaml:"event"`
	Document string `yaml:"document,omitempty"`
}

// CodeConfig is the scoring and remediation configuration for one CI code.
type CodeConfig struct {
	DetectedScore int               `yaml:"detectedScore"`
	CheckedScore  int               `yaml:"checkedScore"`
	Mitigations   []MitigationRoute `yaml:"mitigations,omitempty"`
}

// Config holds the CI scoring threshold and per-code weights.
type Config struct {
	Threshold        int                   `yaml:"threshold"`
	ContraIndicators map[string]CodeConfig `yaml:"contraIndicators"`
}

// DefaultConfig returns an empty policy with the production threshold.
// Without any configured codes every CI scores zero.
func DefaultConfig() *Config {
	return &Config{
		Threshold:        3,
		ContraIndicators: map[string]CodeConfig{},
	}
}

// Validate rejects configuration the evaluator cannot act on.
func (c *Config) Validate() error {
	if c.Threshold < 0 {
		return errors.New("threshold must not be negative")
	}
	for code, cfg := range c.ContraIndicators {
		if code == "" {
			return errors.New("contra-indicator code must not be empty")
		}
		for i, route := range cfg.Mitigations {
			if route.Event == "" {
				return fmt.Errorf("contra-indicator %s mitigation[%d]: event is required", code, i)
			}
		}
	}
	return nil
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ci policy: %w", err)
	}
	if cfg.ContraIndicators == nil {
		cfg.ContraIndicators = map[string]CodeConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ci policy: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads the CI policy file and returns it with the SHA-256 of the
// raw bytes, which is logged at startup so deployments can be compared.
// A missing file is a configuration error: running without CI scoring would
// let every breach through.
func LoadConfig(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read ci policy: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, "", err
	}
	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}
