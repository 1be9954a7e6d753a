package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/diagnostics"
	"github.com/notargets/gofold/geometry"
	"github.com/notargets/gofold/logging"
)

// writeNetgen writes m in the Netgen neutral layout read by readfiles
func writeNetgen(t *testing.T, m *geometry.Mesh, path string) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d\n", m.NodeCount())
	for _, p := range m.Undeformed {
		fmt.Fprintf(&buf, "%.17g %.17g %.17g\n", p.Y, p.X, p.Z)
	}
	fmt.Fprintf(&buf, "%d\n", m.ElementCount())
	for _, tet := range m.Tets {
		fmt.Fprintf(&buf, "1 %d %d %d %d\n", tet[0]+1, tet[1]+1, tet[3]+1, tet[2]+1)
	}
	fmt.Fprintf(&buf, "%d\n", m.FaceCount())
	for _, f := range m.Faces {
		fmt.Fprintf(&buf, "1 %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func newBoxFile(t *testing.T, dir string) string {
	path := filepath.Join(dir, "box.mesh")
	writeNetgen(t, geometry.NewBoxMesh(2, 2, 2, r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 1, Y: 1, Z: 1}), path)
	return path
}

func TestRunSimulation(t *testing.T) {
	var (
		ctx    = context.Background()
		dir    = t.TempDir()
		record = filepath.Join(dir, "runs.db")
		params = filepath.Join(dir, "params.yaml")
		out    bytes.Buffer
		logs   bytes.Buffer
	)
	require.NoError(t, os.WriteFile(params, []byte("Title: box\nSteps: 1000\nParallelDegree: 2\n"), 0600))
	opts := &RunOptions{
		MeshFile:   newBoxFile(t, dir),
		ParamsFile: params,
		RecordFile: record,
		Steps:      3,
		Every:      1,
	}
	require.NoError(t, RunSimulation(ctx, opts, logging.NewLogger("info", &logs), &out))
	assert.Contains(t, out.String(), "3 steps")
	assert.Contains(t, logs.String(), "simulation ready")

	// The instruction counter may be unavailable, the run completes either way
	opts.Perf = true
	opts.Steps = 2
	require.NoError(t, RunSimulation(ctx, opts, nil, &out))
	assert.Contains(t, out.String(), "2 steps")

	rec, err := diagnostics.Open(ctx, record)
	require.NoError(t, err)
	runs, err := rec.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "box", runs[0].Title)
	assert.Equal(t, 27, runs[0].Nodes)
	assert.Equal(t, "Tangential", runs[0].Mode)
	steps, err := rec.Steps(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, d := range steps {
		assert.Equal(t, i+1, d.Step)
	}
	steps, err = rec.Steps(ctx, runs[1].ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
	require.NoError(t, rec.Close())

	out.Reset()
	require.NoError(t, ListRuns(ctx, record, &out))
	assert.Contains(t, out.String(), "run 1 \"box\"")
	assert.Contains(t, out.String(), "3 records")
}

func TestRunSimulationErrors(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
		out bytes.Buffer
	)
	assert.Error(t, RunSimulation(ctx, &RunOptions{}, nil, &out))
	assert.Error(t, RunSimulation(ctx, &RunOptions{MeshFile: filepath.Join(dir, "missing.mesh")}, nil, &out))

	mesh := newBoxFile(t, dir)
	assert.Error(t, RunSimulation(ctx, &RunOptions{MeshFile: mesh, Profile: "gpu", Steps: 1}, nil, &out))

	params := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(params, []byte("BulkModulus: -1\n"), 0600))
	assert.Error(t, RunSimulation(ctx, &RunOptions{MeshFile: mesh, ParamsFile: params}, nil, &out))

	// Regional growth with fewer labels than elements
	require.NoError(t, os.WriteFile(params, []byte("GrowthMode: Regional\nRegions:\n  - Amplitude: 1\n    Peak: 1\n    Latency: 1\n"), 0600))
	labels := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(labels, []byte("0 0 0\n"), 0600))
	assert.Error(t, RunSimulation(ctx, &RunOptions{MeshFile: mesh, ParamsFile: params, LabelsFile: labels, Steps: 1}, nil, &out))
}

func TestInspectMesh(t *testing.T) {
	var (
		dir = t.TempDir()
		out bytes.Buffer
	)
	require.NoError(t, InspectMesh(newBoxFile(t, dir), 0.01, 5, &out))
	s := out.String()
	assert.Contains(t, s, "27\t\t= Nodes")
	assert.Contains(t, s, "48\t\t= Elements")
	assert.Contains(t, s, "26\t\t= Surface nodes")
	assert.Contains(t, s, "= Stable time step")
	assert.Error(t, InspectMesh(filepath.Join(dir, "missing.mesh"), 0.01, 5, &out))
}
