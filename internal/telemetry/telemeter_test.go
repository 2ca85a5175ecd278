package telemetry_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/telemetry"
)

type kindedError struct{}

func (kindedError) Error() string { return "boom" }

func (kindedError) Kind() errors.Kind { return errors.KindConfig }

func TestCollectRecordsPhases(t *testing.T) {
	t.Parallel()

	tlm, err := telemetry.NewTelemeter("relplan", "test")
	require.NoError(t, err)

	require.NoError(t, tlm.Collect(t.Context(), "scan", map[string]any{"dir": "."}, func(context.Context) error {
		return nil
	}))

	err = tlm.Collect(t.Context(), "graph", nil, func(context.Context) error {
		return kindedError{}
	})
	require.ErrorIs(t, err, kindedError{})

	expected := `
# HELP relplan_phase_errors_total Failed phases by error kind.
# TYPE relplan_phase_errors_total counter
relplan_phase_errors_total{kind="config",phase="graph"} 1
`
	require.NoError(t, testutil.GatherAndCompare(tlm.Registry(), strings.NewReader(expected), "relplan_phase_errors_total"))

	count, err := testutil.GatherAndCount(tlm.Registry(), "relplan_phase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestObserveCheck(t *testing.T) {
	t.Parallel()

	tlm, err := telemetry.NewTelemeter("relplan", "test")
	require.NoError(t, err)

	tlm.ObserveCheck("source", "publish", time.Millisecond)
	tlm.ObserveCheck("source", "publish", time.Millisecond)
	tlm.ObserveCheck("binary", "unknown", time.Second)
	tlm.ObservePackages("affected", 3)

	expected := `
# HELP relplan_registry_checks_total Registry existence checks by channel and resulting status.
# TYPE relplan_registry_checks_total counter
relplan_registry_checks_total{channel="binary",status="unknown"} 1
relplan_registry_checks_total{channel="source",status="publish"} 2
# HELP relplan_packages Packages seen in the last run by state.
# TYPE relplan_packages gauge
relplan_packages{state="affected"} 3
`
	require.NoError(t, testutil.GatherAndCompare(tlm.Registry(), strings.NewReader(expected),
		"relplan_registry_checks_total", "relplan_packages"))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	tlm, err := telemetry.NewTelemeter("relplan", "test")
	require.NoError(t, err)

	tlm.ObserveCheck("container", "published", time.Millisecond)

	path := filepath.Join(t.TempDir(), "relplan.prom")
	require.NoError(t, tlm.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `relplan_registry_checks_total{channel="container",status="published"} 1`)
}

func TestNilTelemeter(t *testing.T) {
	t.Parallel()

	var tlm *telemetry.Telemeter

	called := false

	require.NoError(t, tlm.Collect(t.Context(), "scan", nil, func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)

	tlm.ObserveCheck("source", "publish", time.Second)
	require.NoError(t, tlm.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
	assert.Nil(t, telemetry.TelemeterFromContext(t.Context()))

	ctx := telemetry.ContextWithTelemeter(t.Context(), tlm)
	assert.Nil(t, telemetry.TelemeterFromContext(ctx))
}

func TestConsoleTraceExporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	tlm, err := telemetry.NewTelemeterWithOptions(t.Context(), telemetry.Options{
		Vars: map[string]string{
			telemetry.TraceExporterEnv: string(telemetry.TraceExporterConsole),
			telemetry.TraceParentEnv:   "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		},
		Writer:     &buf,
		AppName:    "relplan",
		AppVersion: "test",
	})
	require.NoError(t, err)

	require.NoError(t, tlm.Collect(t.Context(), "scan", nil, func(context.Context) error { return nil }))
	require.NoError(t, tlm.Shutdown(t.Context()))

	assert.Contains(t, buf.String(), `"scan"`)
	assert.Contains(t, buf.String(), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestTraceExporterErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		vars map[string]string
	}{
		{"unknown exporter", map[string]string{telemetry.TraceExporterEnv: "carrier-pigeon"}},
		{"http without endpoint", map[string]string{telemetry.TraceExporterEnv: string(telemetry.TraceExporterHTTP)}},
		{"malformed traceparent", map[string]string{
			telemetry.TraceExporterEnv: string(telemetry.TraceExporterConsole),
			telemetry.TraceParentEnv:   "00-zz",
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := telemetry.NewTelemeterWithOptions(t.Context(), telemetry.Options{Vars: tc.vars, AppName: "relplan"})
			require.Error(t, err)
			assert.Equal(t, errors.KindConfig, errors.KindOf(err))
		})
	}
}

func TestNoTraceExporter(t *testing.T) {
	t.Parallel()

	tlm, err := telemetry.NewTelemeterWithOptions(t.Context(), telemetry.Options{AppName: "relplan"})
	require.NoError(t, err)
	require.NoError(t, tlm.Shutdown(t.Context()))
}
