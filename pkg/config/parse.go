package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses a Config from YAML bytes, fills unset fields and validates it.
func ParseConfigYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML string and validates it.
func ParseConfigYAMLString(yamlText string) (*Config, error) {
	return ParseConfigYAML([]byte(yamlText))
}

// ParseExperimentYAML parses an ExperimentDefinition from YAML bytes and validates it.
// This is used for APIs where the experiment is provided as payload (not via filesystem).
func ParseExperimentYAML(data []byte) (*ExperimentDefinition, error) {
	var def ExperimentDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse experiment yaml: %w", err)
	}

	if err := validateExperiment(&def); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}

	return &def, nil
}

// ParseExperimentYAMLString parses an ExperimentDefinition from a YAML string and validates it.
func ParseExperimentYAMLString(yamlText string) (*ExperimentDefinition, error) {
	return ParseExperimentYAML([]byte(yamlText))
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	base := DefaultDefaults()
	if cfg.Defaults == nil {
		cfg.Defaults = base
		return
	}
	if cfg.Defaults.Duration == "" {
		cfg.Defaults.Duration = base.Duration
	}
	if cfg.Defaults.Interval == "" {
		cfg.Defaults.Interval = base.Interval
	}
	if cfg.Defaults.Curve == "" {
		cfg.Defaults.Curve = base.Curve
	}
	if cfg.Engine != nil && cfg.Engine.Backoff == "" {
		cfg.Engine.Backoff = "exponential"
	}
}
