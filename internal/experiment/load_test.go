package experiment

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
)

func quiet() Option {
	return WithLogger(logger.New("error", &bytes.Buffer{}))
}

func TestFromDefinition(t *testing.T) {
	def, err := config.ParseExperimentYAMLString(`
duration: 1m
interval: 30s
workloads:
  - service: squeezenet
    points:
      - {x: 0, y: 10}
      - {x: 60, y: 50}
    clients_per_host: 4
    arrival_pattern: Exponential
  - service: alexnet
    curve: step
    points:
      - {x: 0, y: 5}
      - {x: 30, y: 40}
    max_rps: 20
`)
	require.NoError(t, err)

	e, err := FromDefinition("exp-file", def, catalog, quiet())
	require.NoError(t, err)
	require.NoError(t, e.Validate())

	cfg := e.Configuration()
	require.Len(t, cfg.Workloads, 2)

	first := cfg.Workloads[0]
	assert.Equal(t, "squeezenet", first.Service)
	assert.Equal(t, 4, first.ClientsPerHost)
	assert.Equal(t, arrival.Exponential, first.ArrivalPattern)
	assert.InDeltaSlice(t, []float64{10, 30, 50}, first.Ticks, 1e-9)

	second := cfg.Workloads[1]
	assert.Equal(t, "alexnet", second.Service)
	assert.Equal(t, 3, second.ClientsPerHost)
	assert.Equal(t, arrival.Constant, second.ArrivalPattern)
	assert.InDeltaSlice(t, []float64{5, 20, 20}, second.Ticks, 1e-9)
}

func TestFromDefinitionUnknownService(t *testing.T) {
	def, err := config.ParseExperimentYAMLString(`
duration: 60s
interval: 30s
workloads:
  - service: resnet
    points: [{x: 0, y: 1}]
`)
	require.NoError(t, err)

	_, err = FromDefinition("exp", def, catalog, quiet())
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestFromDefinitionInvalidPoints(t *testing.T) {
	def, err := config.ParseExperimentYAMLString(`
duration: 60s
interval: 30s
workloads:
  - service: alexnet
    points: [{x: 0, y: -1}]
`)
	require.NoError(t, err)

	_, err = FromDefinition("exp", def, catalog, quiet())
	assert.ErrorIs(t, err, curve.ErrInvalidParameter)
}

func TestFromDefinitionKeepsRejectedArrivalPattern(t *testing.T) {
	def, err := config.ParseExperimentYAMLString(`
duration: 60s
interval: 30s
workloads:
  - service: alexnet
    points: [{x: 0, y: 1}]
    arrival_pattern: Poisson
  - service: squeezenet
    points: [{x: 0, y: 2}]
    clients_per_host: abc
`)
	require.NoError(t, err)

	e, err := FromDefinition("exp", def, catalog, quiet())
	require.NoError(t, err)
	require.Len(t, e.Workloads(), 2)

	err = e.Validate()
	assert.ErrorIs(t, err, arrival.ErrUnknownArrivalPattern)

	healthy := e.Workloads()[1]
	cfg, ok := healthy.Configuration()
	require.True(t, ok)
	assert.Equal(t, 0, cfg.ClientsPerHost)
}
