// Package storage persists stream runs as directories holding a JSON
// metadata file and CSV tables of particles and bodies.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/mockstream"
)

const (
	metadataFile  = "metadata.json"
	streamFile    = "stream.csv"
	nbodyFile     = "nbody.csv"
	snapshotsFile = "snapshots.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         uint64             `json:"seed"`
	Dt           float64            `json:"dt"`
	NSteps       int                `json:"n_steps"`
	ReleaseEvery int                `json:"release_every"`
	Integrator   string             `json:"integrator"`
	Potential    string             `json:"potential"`
	Units        string             `json:"units"`
	NParticles   int                `json:"n_particles"`
	NBodies      int                `json:"n_bodies"`
	Snapshots    int                `json:"snapshots"`
	StreamTime   float64            `json:"stream_time"`
	Progenitor   [6]float64         `json:"progenitor"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Save writes a run and returns its id. nb may be nil.
func (s *Store) Save(meta RunMetadata, stream *mockstream.Stream, nb *dynamics.Orbit) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Model, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.NParticles = stream.Len()
	meta.StreamTime = stream.T
	if stream.Progenitor != nil {
		p, v := stream.Progenitor.Pos[0], stream.Progenitor.Vel[0]
		meta.Progenitor = [6]float64{p.X, p.Y, p.Z, v.X, v.Y, v.Z}
	}
	if nb != nil {
		meta.NBodies = nb.NOrbits()
	}
	if stream.Snapshots != nil {
		meta.Snapshots = stream.Snapshots.NTimes()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, streamFile), func(w *csv.Writer) error {
		return writeStream(w, stream)
	}); err != nil {
		return "", err
	}
	if nb != nil {
		if err := writeCSV(filepath.Join(runDir, nbodyFile), func(w *csv.Writer) error {
			return writeOrbit(w, "body", nb)
		}); err != nil {
			return "", err
		}
	}
	if stream.Snapshots != nil {
		if err := writeCSV(filepath.Join(runDir, snapshotsFile), func(w *csv.Writer) error {
			return writeOrbit(w, "particle", stream.Snapshots)
		}); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, fill func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func vecFields(p, v r3.Vec) []string {
	return []string{
		formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z),
		formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z),
	}
}

var phaseHeader = []string{"x", "y", "z", "vx", "vy", "vz"}

func writeStream(w *csv.Writer, stream *mockstream.Stream) error {
	header := append([]string{"release_time", "release_step", "lead"}, phaseHeader...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < stream.Len(); i++ {
		row := []string{
			formatFloat(stream.ReleaseTime[i]),
			strconv.Itoa(stream.ReleaseStep[i]),
			strconv.FormatBool(stream.Lead[i]),
		}
		row = append(row, vecFields(stream.W.Pos[i], stream.W.Vel[i])...)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeOrbit(w *csv.Writer, label string, o *dynamics.Orbit) error {
	header := append([]string{"time", label}, phaseHeader...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range o.T {
		for j := range o.Pos[i] {
			row := []string{formatFloat(t), strconv.Itoa(j)}
			row = append(row, vecFields(o.Pos[i][j], o.Vel[i][j])...)
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, metadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", metaPath, err)
	}

	return &meta, nil
}

func readRecords(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	return records[1:], nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parsePhase(fields []string) (r3.Vec, r3.Vec, error) {
	if len(fields) != 6 {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("expected 6 phase-space columns, got %d", len(fields))
	}
	v, err := parseFloats(fields)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, err
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, r3.Vec{X: v[3], Y: v[4], Z: v[5]}, nil
}

// LoadStream rebuilds the final stream of a run. Snapshots are not loaded.
func (s *Store) LoadStream(runID string) (*mockstream.Stream, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.baseDir, runID, streamFile)
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	stream := &mockstream.Stream{
		T: meta.StreamTime,
		W: &dynamics.PhaseSpacePosition{},
		Progenitor: dynamics.Single(
			r3.Vec{X: meta.Progenitor[0], Y: meta.Progenitor[1], Z: meta.Progenitor[2]},
			r3.Vec{X: meta.Progenitor[3], Y: meta.Progenitor[4], Z: meta.Progenitor[5]},
		),
	}
	for i, rec := range records {
		if len(rec) != 9 {
			return nil, fmt.Errorf("%s row %d: expected 9 columns, got %d", path, i+1, len(rec))
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		step, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		lead, err := strconv.ParseBool(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		p, v, err := parsePhase(rec[3:])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}

		stream.ReleaseTime = append(stream.ReleaseTime, t)
		stream.ReleaseStep = append(stream.ReleaseStep, step)
		stream.Lead = append(stream.Lead, lead)
		stream.W.Pos = append(stream.W.Pos, p)
		stream.W.Vel = append(stream.W.Vel, v)
	}
	return stream, nil
}

// LoadNBody returns the body trajectories of a run, or nil when the run
// had no companions.
func (s *Store) LoadNBody(runID string) (*dynamics.Orbit, error) {
	path := filepath.Join(s.baseDir, runID, nbodyFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	var (
		times []float64
		pos   [][]r3.Vec
		vel   [][]r3.Vec
	)
	for i, rec := range records {
		if len(rec) != 8 {
			return nil, fmt.Errorf("%s row %d: expected 8 columns, got %d", path, i+1, len(rec))
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		p, v, err := parsePhase(rec[2:])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		if rec[1] == "0" {
			times = append(times, t)
			pos = append(pos, nil)
			vel = append(vel, nil)
		}
		k := len(times) - 1
		if k < 0 {
			return nil, fmt.Errorf("%s row %d: body rows must start at body 0", path, i+1)
		}
		pos[k] = append(pos[k], p)
		vel[k] = append(vel[k], v)
	}
	return dynamics.NewOrbit(times, pos, vel)
}

type ExportData struct {
	Meta        RunMetadata  `json:"meta"`
	ReleaseTime []float64    `json:"release_time"`
	ReleaseStep []int        `json:"release_step"`
	Lead        []bool       `json:"lead"`
	Particles   [][6]float64 `json:"particles"`
}

// ExportJSON writes a run's metadata and final stream as one document.
func ExportJSON(w io.Writer, meta RunMetadata, stream *mockstream.Stream) error {
	data := ExportData{
		Meta:        meta,
		ReleaseTime: stream.ReleaseTime,
		ReleaseStep: stream.ReleaseStep,
		Lead:        stream.Lead,
		Particles:   make([][6]float64, stream.Len()),
	}
	for i := range data.Particles {
		p, v := stream.W.Pos[i], stream.W.Vel[i]
		data.Particles[i] = [6]float64{p.X, p.Y, p.Z, v.X, v.Y, v.Z}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
