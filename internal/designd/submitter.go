package designd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/loadcurve/internal/policy"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

var (
	ErrInvalidURL          = errors.New("invalid engine url")
	ErrEngineNotConfigured = errors.New("engine url not configured")
	ErrEngineRejected      = errors.New("engine rejected submission")
	ErrEngineUnavailable   = errors.New("engine unavailable")
	ErrCircuitOpen         = errors.New("engine circuit open")
)

// Submitter posts exported experiments to the execution engine
type Submitter struct {
	url        string
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
	breaker    *policy.CircuitBreaker
}

// NewSubmitter creates a submitter for engineURL
func NewSubmitter(engineURL string, maxRetries int, backoff utils.BackoffStrategy, timeout time.Duration) (*Submitter, error) {
	if err := validateEngineURL(engineURL); err != nil {
		return nil, err
	}
	if backoff == nil {
		backoff = utils.NewBackoff("exponential", time.Second, 0)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Submitter{
		url: engineURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		backoff:    backoff,
	}, nil
}

// NewSubmitterFromConfig creates a submitter from the engine section; nil
// config yields a nil submitter.
func NewSubmitterFromConfig(e *config.Engine) (*Submitter, error) {
	if e == nil {
		return nil, nil
	}
	s, err := NewSubmitter(e.URL, e.MaxRetries, e.BackoffStrategy(), e.Timeout())
	if err != nil {
		return nil, err
	}
	if e.BreakerFailures > 0 {
		b := policy.NewCircuitBreaker(e.BreakerFailures, 1, e.BreakerCooldown())
		s.SetCircuitBreaker(b)
		logger.Info("engine policy enabled",
			"policy", b.Name(),
			"failures", e.BreakerFailures,
			"cooldown", e.BreakerCooldown())
	}
	return s, nil
}

// SetCircuitBreaker guards submissions with b; nil disables the guard
func (s *Submitter) SetCircuitBreaker(b *policy.CircuitBreaker) {
	s.breaker = b
}

func validateEngineURL(raw string) error {
	if raw == "" {
		return ErrEngineNotConfigured
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	return nil
}

// URL returns the engine endpoint
func (s *Submitter) URL() string { return s.url }

// Submit posts sub and returns the engine's reference for it, usually the
// experiment ID. Transport errors and 5xx responses are retried; a 4xx
// response is final. While the engine circuit is open submissions fail fast
// with ErrCircuitOpen.
func (s *Submitter) Submit(ctx context.Context, sub models.Submission) (string, error) {
	if s == nil {
		return "", ErrEngineNotConfigured
	}
	if !s.breaker.Allow(s.url, time.Now()) {
		logger.Warn("engine circuit open, submission rejected",
			"policy", s.breaker.Name(),
			"engine_url", s.url,
			"experiment_id", sub.Experiment.ID)
		return "", ErrCircuitOpen
	}
	ref, err := s.submit(ctx, sub)
	switch {
	case err == nil:
		s.breaker.RecordSuccess(s.url, time.Now())
	case errors.Is(err, ErrEngineUnavailable):
		s.breaker.RecordFailure(s.url, time.Now())
	}
	return ref, err
}

func (s *Submitter) submit(ctx context.Context, sub models.Submission) (string, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying submission",
				"engine_url", s.url,
				"experiment_id", sub.Experiment.ID,
				"attempt", attempt,
				"delay", delay)
			if err := sleepContext(ctx, delay); err != nil {
				return "", err
			}
		}

		ref, retry, err := s.post(ctx, payload)
		if err == nil {
			logger.Info("experiment submitted",
				"experiment_id", sub.Experiment.ID,
				"engine_reference", ref)
			return ref, nil
		}
		lastErr = err
		logger.Warn("submission attempt failed",
			"engine_url", s.url,
			"experiment_id", sub.Experiment.ID,
			"attempt", attempt+1,
			"error", err)
		if !retry {
			return "", err
		}
	}

	logger.Error("failed to submit experiment after retries",
		"engine_url", s.url,
		"experiment_id", sub.Experiment.ID,
		"max_retries", s.maxRetries,
		"last_error", lastErr)
	return "", lastErr
}

// post performs one attempt and reports whether a failure may be retried
func (s *Submitter) post(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "loadcurve-designd/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return engineReference(body), false, nil
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("%w: status %d: %s", ErrEngineUnavailable, resp.StatusCode, truncate(body))
	default:
		return "", false, fmt.Errorf("%w: status %d: %s", ErrEngineRejected, resp.StatusCode, truncate(body))
	}
}

// engineReference extracts the reference from a JSON string body, falling back to the raw text
func engineReference(body []byte) string {
	var ref string
	if err := json.Unmarshal(body, &ref); err == nil {
		return ref
	}
	return strings.TrimSpace(string(body))
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
