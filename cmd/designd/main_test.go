package main

import (
	"testing"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

func TestNewSelectorRegistersConfiguredPatterns(t *testing.T) {
	cfg, err := config.LoadConfig("../../config/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	sel, err := newSelector(cfg)
	if err != nil {
		t.Fatalf("newSelector error: %v", err)
	}
	if err := sel.Validate("Bursty"); err != nil {
		t.Fatalf("configured pattern not registered: %v", err)
	}
	if err := sel.Validate("Constant"); err != nil {
		t.Fatalf("built-in pattern missing: %v", err)
	}
}

func TestNewStoreUsesConfigDefaults(t *testing.T) {
	cfg, err := config.ParseConfigYAMLString(`
services:
  - name: checkout
defaults:
  duration: 2m
  interval: 30s
  clients_per_host: 5
  arrival_pattern: Exponential
  max_rps: 40
`)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}
	store, err := newStore(cfg, nil)
	if err != nil {
		t.Fatalf("newStore error: %v", err)
	}

	view, err := store.Create(models.ExperimentMeta{ID: "exp"}, nil, nil)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if view.TickCount != 5 {
		t.Fatalf("expected 5 ticks from config defaults, got %d", view.TickCount)
	}
}

func TestNewStoreRejectsUnknownDefaultPattern(t *testing.T) {
	cfg, err := config.ParseConfigYAMLString(`
services:
  - name: checkout
defaults:
  arrival_pattern: Poisson
`)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}
	if _, err := newStore(cfg, nil); err == nil {
		t.Fatal("expected unknown default arrival pattern to be rejected")
	}
}

func TestNewStoreAppliesDefaultCurve(t *testing.T) {
	cfg, err := config.ParseConfigYAMLString(`
services:
  - name: checkout
defaults:
  duration: 60s
  interval: 30s
  curve: step
`)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}
	store, err := newStore(cfg, nil)
	if err != nil {
		t.Fatalf("newStore error: %v", err)
	}

	def, err := config.ParseExperimentYAMLString(`
duration: 60s
interval: 30s
workloads:
  - service: checkout
    points:
      - {x: 0, y: 10}
      - {x: 60, y: 50}
  - service: checkout
    curve: linear
    points:
      - {x: 0, y: 10}
      - {x: 60, y: 50}
`)
	if err != nil {
		t.Fatalf("ParseExperimentYAMLString error: %v", err)
	}
	view, err := store.CreateFromDefinition(models.ExperimentMeta{ID: "exp"}, def)
	if err != nil {
		t.Fatalf("CreateFromDefinition error: %v", err)
	}
	if len(view.Workloads) != 2 {
		t.Fatalf("expected 2 workloads, got %d", len(view.Workloads))
	}
	if got := view.Workloads[0]; got.Curve != models.CurveStep || got.Ticks[1] != 10 {
		t.Fatalf("expected default step curve, got %s %v", got.Curve, got.Ticks)
	}
	if got := view.Workloads[1]; got.Curve != models.CurveLinear || got.Ticks[1] != 30 {
		t.Fatalf("expected explicit linear curve, got %s %v", got.Curve, got.Ticks)
	}
	if view.Workloads[0].MaxRPS != 0 {
		t.Fatalf("expected no default ceiling, got %v", view.Workloads[0].MaxRPS)
	}
}
