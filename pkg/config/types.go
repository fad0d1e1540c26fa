package config

import (
	"time"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

// Config represents the designer daemon configuration
type Config struct {
	LogLevel        string           `yaml:"log_level"`
	LogFormat       string           `yaml:"log_format,omitempty"` // json or text
	HTTPAddr        string           `yaml:"http_addr,omitempty"`
	GRPCAddr        string           `yaml:"grpc_addr,omitempty"`
	RateLimitRPS    int              `yaml:"rate_limit_rps,omitempty"` // per client, 0 disables
	Engine          *Engine          `yaml:"engine,omitempty"`
	Services        []models.Service `yaml:"services"`
	ArrivalPatterns []ArrivalPattern `yaml:"arrival_patterns,omitempty"`
	Defaults        *Defaults        `yaml:"defaults,omitempty"`
}

// Engine describes where exported experiments are submitted
type Engine struct {
	URL        string `yaml:"url"`
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"` // exponential, constant
	BaseMs     int    `yaml:"base_ms"`
	MaxMs      int    `yaml:"max_ms,omitempty"`
	TimeoutMs  int    `yaml:"timeout_ms,omitempty"`

	// BreakerFailures consecutive failed submissions open the engine circuit; 0 disables it
	BreakerFailures   int `yaml:"breaker_failures,omitempty"`
	BreakerCooldownMs int `yaml:"breaker_cooldown_ms,omitempty"`
}

// ArrivalPattern registers an additional arrival tag with the selector
type ArrivalPattern struct {
	Tag         string `yaml:"tag"`
	Timing      string `yaml:"timing"` // deterministic or memoryless
	Description string `yaml:"description,omitempty"`
}

// Defaults seeds new experiments and new workload entries
type Defaults struct {
	Duration       string  `yaml:"duration"` // e.g., "60s"
	Interval       string  `yaml:"interval"` // e.g., "1s"
	ClientsPerHost int     `yaml:"clients_per_host"`
	ArrivalPattern string  `yaml:"arrival_pattern"`
	MaxRPS         float64 `yaml:"max_rps"`
	Curve          string  `yaml:"curve,omitempty"` // linear, step, monotone
}

// ExperimentDefinition is an experiment authored as a YAML file
type ExperimentDefinition struct {
	Name      string               `yaml:"name,omitempty"`
	Duration  string               `yaml:"duration"`
	Interval  string               `yaml:"interval"`
	Workloads []WorkloadDefinition `yaml:"workloads"`
}

// WorkloadDefinition is one workload entry of an experiment file.
// ClientsPerHost and MaxRPS are kept as raw text and parsed permissively like form input.
type WorkloadDefinition struct {
	Service        string         `yaml:"service"`
	Curve          string         `yaml:"curve,omitempty"`
	Points         []models.Point `yaml:"points"`
	ClientsPerHost string         `yaml:"clients_per_host,omitempty"`
	ArrivalPattern string         `yaml:"arrival_pattern,omitempty"`
	MaxRPS         string         `yaml:"max_rps,omitempty"`
}

// DefaultDefaults returns the values used when a config omits the defaults block
func DefaultDefaults() *Defaults {
	return &Defaults{
		Duration:       "60s",
		Interval:       "1s",
		ClientsPerHost: 3,
		ArrivalPattern: "Constant",
		Curve:          string(models.CurveLinear),
	}
}

// GetDuration parses the default experiment duration
func (d *Defaults) GetDuration() (utils.Time, error) {
	return utils.ParseTime(d.Duration)
}

// GetInterval parses the default tick interval
func (d *Defaults) GetInterval() (utils.Time, error) {
	return utils.ParseTime(d.Interval)
}

// GetDuration parses the experiment duration
func (e *ExperimentDefinition) GetDuration() (utils.Time, error) {
	return utils.ParseTime(e.Duration)
}

// GetInterval parses the experiment tick interval
func (e *ExperimentDefinition) GetInterval() (utils.Time, error) {
	return utils.ParseTime(e.Interval)
}

// BackoffStrategy builds the submit retry strategy
func (e *Engine) BackoffStrategy() utils.BackoffStrategy {
	return utils.NewBackoff(e.Backoff, time.Duration(e.BaseMs)*time.Millisecond, time.Duration(e.MaxMs)*time.Millisecond)
}

// BreakerCooldown returns how long the circuit stays open; 0 means 30s
func (e *Engine) BreakerCooldown() time.Duration {
	if e.BreakerCooldownMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.BreakerCooldownMs) * time.Millisecond
}

// Timeout returns the per-attempt HTTP timeout; 0 means 10s
func (e *Engine) Timeout() time.Duration {
	if e.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.TimeoutMs) * time.Millisecond
}
