//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/loadcurve/internal/designd"
	"github.com/GoSim-25-26J-441/loadcurve/internal/metrics"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

type fakeEngine struct {
	mu          sync.Mutex
	submissions []models.Submission
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(sub.Experiment.ID)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// TestDesignerFlow loads the sample configuration, creates an experiment from
// the sample experiment file, submits it to a fake engine and checks that the
// engine receives every tick sequence with the expected length.
func TestDesignerFlow(t *testing.T) {
	logger.SetDefault(logger.New("error", io.Discard))

	cfg, err := config.LoadConfig("../../config/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def, err := config.LoadExperiment("../../config/experiment.yaml")
	if err != nil {
		t.Fatalf("LoadExperiment: %v", err)
	}

	engine := &fakeEngine{}
	engineSrv := httptest.NewServer(engine)
	defer engineSrv.Close()

	submitter, err := designd.NewSubmitter(engineSrv.URL, 1, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewSubmitter: %v", err)
	}
	collector := metrics.NewCollector()
	store := designd.NewDesignStore(cfg.Services, designd.WithStoreMetrics(collector))
	api := httptest.NewServer(designd.NewHTTPServer(store, submitter, collector).Handler())
	defer api.Close()

	view, err := store.CreateFromDefinition(models.ExperimentMeta{ID: "flow", Creator: "integration"}, def)
	if err != nil {
		t.Fatalf("CreateFromDefinition: %v", err)
	}
	if !view.Ready {
		t.Fatalf("sample experiment should be ready: %s", view.ValidationError)
	}

	resp := postJSON(t, api.URL+"/v1/experiments/flow:submit", map[string]any{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("submit status %d: %s", resp.StatusCode, body)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(engine.submissions))
	}
	sub := engine.submissions[0]
	if sub.Experiment.ID != "flow" || sub.Experiment.Name != "checkout-ramp" {
		t.Fatalf("unexpected experiment meta %+v", sub.Experiment)
	}
	if sub.Configuration.Duration != "120s" || sub.Configuration.Interval != "30s" {
		t.Fatalf("unexpected timing %+v", sub.Configuration)
	}
	for _, wl := range sub.Configuration.Workloads {
		if len(wl.Ticks) != 5 {
			t.Errorf("workload %s: expected 5 ticks, got %d", wl.Service, len(wl.Ticks))
		}
	}
	if sub.Configuration.Workloads[1].Ticks[4] != 15 {
		t.Errorf("max_rps ceiling not applied: %v", sub.Configuration.Workloads[1].Ticks)
	}
}
