package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/mockstream"
)

func testStream() *mockstream.Stream {
	return &mockstream.Stream{
		T: 0,
		W: &dynamics.PhaseSpacePosition{
			Pos: []r3.Vec{{X: 14.9, Y: 0.01}, {X: 15.1, Z: -0.02}},
			Vel: []r3.Vec{{Z: 0.131}, {Y: 0.001, Z: 0.129}},
		},
		ReleaseTime: []float64{-100, -100},
		ReleaseStep: []int{0, 0},
		Lead:        []bool{true, false},
		Progenitor:  dynamics.Single(r3.Vec{X: 15}, r3.Vec{Z: 0.13}),
	}
}

func testBodies(t *testing.T) *dynamics.Orbit {
	t.Helper()
	o, err := dynamics.NewOrbit(
		[]float64{-1, 0},
		[][]r3.Vec{{{X: 15}, {X: 25}}, {{X: 15.1}, {X: 25.1}}},
		[][]r3.Vec{{{Z: 0.13}, {Z: 0.1}}, {{Z: 0.13}, {Z: 0.1}}},
	)
	if err != nil {
		t.Fatalf("orbit: %v", err)
	}
	return o
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Model:      "test",
		Seed:       42,
		Dt:         -1,
		NSteps:     100,
		Integrator: "rk45",
		Metrics:    map[string]float64{"energy_drift": 1.5e-9},
	}

	runID, err := st.Save(meta, testStream(), testBodies(t))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Model != "test" {
		t.Errorf("expected model 'test', got '%s'", loaded.Model)
	}
	if loaded.Seed != 42 {
		t.Errorf("expected seed 42, got %d", loaded.Seed)
	}
	if loaded.NParticles != 2 || loaded.NBodies != 2 {
		t.Errorf("expected 2 particles and 2 bodies, got %d and %d", loaded.NParticles, loaded.NBodies)
	}
	if loaded.Metrics["energy_drift"] != 1.5e-9 {
		t.Errorf("expected energy drift 1.5e-9, got %g", loaded.Metrics["energy_drift"])
	}

	stream, err := st.LoadStream(runID)
	if err != nil {
		t.Fatalf("load stream failed: %v", err)
	}
	want := testStream()
	if stream.Len() != want.Len() {
		t.Fatalf("expected %d particles, got %d", want.Len(), stream.Len())
	}
	for i := range want.W.Pos {
		if stream.W.Pos[i] != want.W.Pos[i] || stream.W.Vel[i] != want.W.Vel[i] {
			t.Errorf("particle %d: got %v %v", i, stream.W.Pos[i], stream.W.Vel[i])
		}
		if stream.Lead[i] != want.Lead[i] || stream.ReleaseTime[i] != want.ReleaseTime[i] {
			t.Errorf("particle %d: release data mismatch", i)
		}
	}
	if stream.Progenitor.Pos[0] != want.Progenitor.Pos[0] {
		t.Errorf("expected progenitor %v, got %v", want.Progenitor.Pos[0], stream.Progenitor.Pos[0])
	}

	nb, err := st.LoadNBody(runID)
	if err != nil {
		t.Fatalf("load nbody failed: %v", err)
	}
	if nb.NTimes() != 2 || nb.NOrbits() != 2 {
		t.Errorf("expected 2x2 body orbit, got %dx%d", nb.NTimes(), nb.NOrbits())
	}
	if nb.Pos[1][1].X != 25.1 {
		t.Errorf("expected body 1 at 25.1, got %g", nb.Pos[1][1].X)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save(RunMetadata{Model: "a"}, testStream(), nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := st.Save(RunMetadata{Model: "b"}, testStream(), nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Model: "test"}, testStream(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "stream.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, "nbody.csv")); !os.IsNotExist(err) {
		t.Error("nbody.csv written for a run without companions")
	}

	nb, err := st.LoadNBody(runID)
	if err != nil || nb != nil {
		t.Errorf("expected no body orbit, got %v, %v", nb, err)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{Model: "test"}, testStream()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(data.Particles) != 2 || data.Particles[1][0] != 15.1 {
		t.Errorf("unexpected particles %v", data.Particles)
	}
	if !data.Lead[0] || data.Lead[1] {
		t.Errorf("unexpected lead flags %v", data.Lead)
	}
}
