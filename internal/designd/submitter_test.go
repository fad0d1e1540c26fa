package designd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/loadcurve/internal/policy"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

func fastBackoff() utils.BackoffStrategy {
	return &utils.ConstantBackoff{Delay: time.Millisecond}
}

func testSubmission() models.Submission {
	return models.Submission{
		Experiment: models.ExperimentMeta{ID: "exp-1"},
		Configuration: models.ExperimentConfiguration{
			Duration:  "60s",
			Interval:  "30s",
			Workloads: []models.WorkloadConfiguration{{Service: "alexnet", Ticks: []float64{10, 30, 50}, ClientsPerHost: 3}},
		},
	}
}

func TestValidateEngineURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "valid https", url: "https://engine.example.com/api/experiments"},
		{name: "valid localhost", url: "http://localhost:5001/api/experiments"},
		{name: "empty", url: "", wantErr: ErrEngineNotConfigured},
		{name: "invalid scheme", url: "ftp://engine/api", wantErr: ErrInvalidURL},
		{name: "missing hostname", url: "http:///api", wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEngineURL(tt.url)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSubmitterSuccess(t *testing.T) {
	var received models.Submission
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"exp-1"`))
	}))
	defer engine.Close()

	sub, err := NewSubmitter(engine.URL, 2, fastBackoff(), time.Second)
	if err != nil {
		t.Fatalf("NewSubmitter error: %v", err)
	}
	ref, err := sub.Submit(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if ref != "exp-1" {
		t.Fatalf("expected engine reference exp-1, got %q", ref)
	}
	if received.Configuration.Workloads[0].Ticks[1] != 30 {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestSubmitterRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("queued"))
	}))
	defer engine.Close()

	sub, err := NewSubmitter(engine.URL, 3, fastBackoff(), time.Second)
	if err != nil {
		t.Fatalf("NewSubmitter error: %v", err)
	}
	ref, err := sub.Submit(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if ref != "queued" {
		t.Fatalf("expected raw text reference, got %q", ref)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestSubmitterGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer engine.Close()

	sub, _ := NewSubmitter(engine.URL, 2, fastBackoff(), time.Second)
	_, err := sub.Submit(context.Background(), testSubmission())
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestSubmitterDoesNotRetryRejections(t *testing.T) {
	var hits atomic.Int32
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "ticks length mismatch", http.StatusBadRequest)
	}))
	defer engine.Close()

	sub, _ := NewSubmitter(engine.URL, 3, fastBackoff(), time.Second)
	_, err := sub.Submit(context.Background(), testSubmission())
	if !errors.Is(err, ErrEngineRejected) {
		t.Fatalf("expected ErrEngineRejected, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestSubmitterContextCancelled(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer engine.Close()

	sub, _ := NewSubmitter(engine.URL, 5, &utils.ConstantBackoff{Delay: time.Hour}, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sub.Submit(ctx, testSubmission())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSubmitterCircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer engine.Close()

	sub, _ := NewSubmitter(engine.URL, 0, fastBackoff(), time.Second)
	sub.SetCircuitBreaker(policy.NewCircuitBreaker(2, 1, time.Hour))

	for i := 0; i < 2; i++ {
		if _, err := sub.Submit(context.Background(), testSubmission()); !errors.Is(err, ErrEngineUnavailable) {
			t.Fatalf("attempt %d: expected ErrEngineUnavailable, got %v", i, err)
		}
	}
	_, err := sub.Submit(context.Background(), testSubmission())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected the open circuit to skip the engine, got %d hits", hits.Load())
	}
	if httpStatus(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for open circuit, got %d", httpStatus(err))
	}
}

func TestSubmitterCircuitOpenLogsPolicy(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Default
	logger.SetDefault(logger.New("warn", &buf))
	defer logger.SetDefault(prev)

	sub, _ := NewSubmitter("http://127.0.0.1:1/experiments", 0, fastBackoff(), time.Second)
	breaker := policy.NewCircuitBreaker(1, 1, time.Hour)
	breaker.RecordFailure(sub.URL(), time.Now())
	sub.SetCircuitBreaker(breaker)

	if _, err := sub.Submit(context.Background(), testSubmission()); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if !strings.Contains(buf.String(), `"policy":"circuit_breaker"`) {
		t.Fatalf("expected policy name in log, got %s", buf.String())
	}
}

func TestSubmitterRejectionsDoNotTripBreaker(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad ticks", http.StatusBadRequest)
	}))
	defer engine.Close()

	sub, _ := NewSubmitter(engine.URL, 0, fastBackoff(), time.Second)
	sub.SetCircuitBreaker(policy.NewCircuitBreaker(1, 1, time.Hour))

	for i := 0; i < 3; i++ {
		if _, err := sub.Submit(context.Background(), testSubmission()); !errors.Is(err, ErrEngineRejected) {
			t.Fatalf("attempt %d: expected ErrEngineRejected, got %v", i, err)
		}
	}
}

func TestNilSubmitter(t *testing.T) {
	sub, err := NewSubmitterFromConfig(nil)
	if err != nil || sub != nil {
		t.Fatalf("expected nil submitter, got %v, %v", sub, err)
	}
	if _, err := sub.Submit(context.Background(), testSubmission()); !errors.Is(err, ErrEngineNotConfigured) {
		t.Fatalf("expected ErrEngineNotConfigured, got %v", err)
	}
}

func TestNewSubmitterFromConfig(t *testing.T) {
	sub, err := NewSubmitterFromConfig(&config.Engine{URL: "http://engine:5001/api/experiments", MaxRetries: 2, Backoff: "constant", BaseMs: 5})
	if err != nil {
		t.Fatalf("NewSubmitterFromConfig error: %v", err)
	}
	if sub.URL() != "http://engine:5001/api/experiments" {
		t.Fatalf("unexpected url %q", sub.URL())
	}
	if _, err := NewSubmitterFromConfig(&config.Engine{URL: "engine"}); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestHTTPServerSubmit(t *testing.T) {
	var received atomic.Int32
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		_, _ = w.Write([]byte(`"engine-42"`))
	}))
	defer engine.Close()

	sub, err := NewSubmitter(engine.URL, 0, fastBackoff(), time.Second)
	if err != nil {
		t.Fatalf("NewSubmitter error: %v", err)
	}
	srv := newTestHTTPServer(sub)
	createExperiment(t, srv, `{"id":"exp-s","duration":"60s","interval":"30s"}`)

	// no workloads yet
	if rr := do(t, srv, http.MethodPost, "/v1/experiments/exp-s:submit", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}

	// a workload without a service is not submittable
	wl := addWorkload(t, srv, "exp-s", `{"points":[{"x":0,"y":10}]}`)
	if rr := do(t, srv, http.MethodPost, "/v1/experiments/exp-s:submit", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if received.Load() != 0 {
		t.Fatal("invalid experiments must not reach the engine")
	}

	if rr := do(t, srv, http.MethodPatch, "/v1/experiments/exp-s/workloads/"+wl.ID, `{"service":"alexnet"}`); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/v1/experiments/exp-s:submit", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var env experimentEnvelope
	decodeBody(t, rr, &env)
	if env.Experiment.SubmitStatus != SubmitAccepted || env.Experiment.EngineReference != "engine-42" {
		t.Fatalf("unexpected submit state %+v", env.Experiment)
	}
	if received.Load() != 1 {
		t.Fatalf("expected one engine call, got %d", received.Load())
	}
}
