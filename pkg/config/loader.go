package config

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadExperiment loads and parses an experiment definition file
func LoadExperiment(path string) (*ExperimentDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment file %s: %w", path, err)
	}
	def, err := ParseExperimentYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse experiment file %s: %w", path, err)
	}
	return def, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps cannot be negative, got %d", cfg.RateLimitRPS)
	}

	// Validate service catalog
	if len(cfg.Services) == 0 {
		return fmt.Errorf("at least one service must be defined")
	}
	serviceNames := make(map[string]bool)
	for _, svc := range cfg.Services {
		if svc.Name == "" {
			return fmt.Errorf("service name cannot be empty")
		}
		if serviceNames[svc.Name] {
			return fmt.Errorf("duplicate service name: %s", svc.Name)
		}
		serviceNames[svc.Name] = true
	}

	for i, ap := range cfg.ArrivalPatterns {
		if ap.Tag == "" {
			return fmt.Errorf("arrival pattern %d: tag cannot be empty", i)
		}
		if ap.Timing != "deterministic" && ap.Timing != "memoryless" {
			return fmt.Errorf("arrival pattern %s: timing must be deterministic or memoryless, got %s", ap.Tag, ap.Timing)
		}
	}

	if cfg.Engine != nil {
		if err := validateEngine(cfg.Engine); err != nil {
			return fmt.Errorf("engine validation failed: %w", err)
		}
	}

	if err := validateDefaults(cfg.Defaults); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	return nil
}

// validateEngine validates the submission target
func validateEngine(e *Engine) error {
	if e.URL == "" {
		return fmt.Errorf("engine url cannot be empty")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", e.MaxRetries)
	}
	validBackoffs := map[string]bool{
		"exponential": true,
		"constant":    true,
		"jitter":      true,
	}
	if !validBackoffs[e.Backoff] {
		return fmt.Errorf("invalid backoff type: %s (must be exponential, constant, or jitter)", e.Backoff)
	}
	if e.BaseMs < 0 {
		return fmt.Errorf("base_ms cannot be negative, got %d", e.BaseMs)
	}
	if e.MaxMs < 0 {
		return fmt.Errorf("max_ms cannot be negative, got %d", e.MaxMs)
	}
	if e.BreakerFailures < 0 {
		return fmt.Errorf("breaker_failures cannot be negative, got %d", e.BreakerFailures)
	}
	return nil
}

// validateDefaults validates the experiment and workload defaults
func validateDefaults(d *Defaults) error {
	if _, err := d.GetDuration(); err != nil {
		return fmt.Errorf("invalid duration %s: %w", d.Duration, err)
	}
	interval, err := d.GetInterval()
	if err != nil {
		return fmt.Errorf("invalid interval %s: %w", d.Interval, err)
	}
	if interval.Seconds() <= 0 {
		return fmt.Errorf("interval must be positive, got %s", d.Interval)
	}
	if d.ClientsPerHost < 0 {
		return fmt.Errorf("clients_per_host cannot be negative, got %d", d.ClientsPerHost)
	}
	if d.MaxRPS < 0 {
		return fmt.Errorf("max_rps cannot be negative, got %f", d.MaxRPS)
	}
	if !models.CurveKind(d.Curve).Valid() {
		return fmt.Errorf("invalid curve: %s (must be linear, step, or monotone)", d.Curve)
	}
	return nil
}

// validateExperiment validates an experiment definition.
// Arrival tags and point values are checked when the experiment is built.
func validateExperiment(e *ExperimentDefinition) error {
	if _, err := e.GetDuration(); err != nil {
		return fmt.Errorf("invalid duration %s: %w", e.Duration, err)
	}
	interval, err := e.GetInterval()
	if err != nil {
		return fmt.Errorf("invalid interval %s: %w", e.Interval, err)
	}
	if interval.Seconds() <= 0 {
		return fmt.Errorf("interval must be positive, got %s", e.Interval)
	}

	if len(e.Workloads) == 0 {
		return fmt.Errorf("at least one workload must be defined")
	}
	for i, wl := range e.Workloads {
		if wl.Curve != "" && !models.CurveKind(wl.Curve).Valid() {
			return fmt.Errorf("workload %d: invalid curve %s (must be linear, step, or monotone)", i, wl.Curve)
		}
	}

	return nil
}
