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

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// Store keeps one directory per run under baseDir.
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
	ID         string             `json:"id"`
	Entity     string             `json:"entity"`
	Class      string             `json:"class"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	StepsTaken int                `json:"steps_taken"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Params     map[string]float64 `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
	Error      string             `json:"error,omitempty"`
}

// Save writes the metadata and the trajectory of a run and returns its ID.
// ID, Timestamp, StepsTaken and Metrics are filled from the result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.Timestamp = time.Now()
	meta.ID = fmt.Sprintf("%s_%s_%d", meta.Class, meta.Entity, meta.Timestamp.UnixNano())
	meta.StepsTaken = result.StepsTaken
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, statesFile), func(w io.Writer) error {
		return WriteCSV(w, result)
	}); err != nil {
		return "", err
	}
	return meta.ID, nil
}

var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// writeFile creates path, fills it with write and closes it. A failed close
// is reported like a failed write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes one row per recorded stamp: time, stamp, the state, the
// control that produced it and the pulled outputs. The initial row has a
// zero control and empty outputs.
func WriteCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)
	if len(result.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	ports := make([]string, 0, len(result.Outputs))
	for port := range result.Outputs {
		ports = append(ports, port)
	}
	sort.Strings(ports)

	header := []string{"time", "stamp"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
	}
	for i := 0; i < numControls; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	header = append(header, ports...)
	if err := cw.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for i := range result.States {
		row := []string{format(result.Times[i]), strconv.FormatInt(int64(result.Stamps[i]), 10)}
		for _, v := range result.States[i] {
			row = append(row, format(v))
		}
		for j := 0; j < numControls; j++ {
			v := 0.0
			if i > 0 && i-1 < len(result.Controls) {
				v = result.Controls[i-1][j]
			}
			row = append(row, format(v))
		}
		for _, port := range ports {
			col := result.Outputs[port]
			if i > 0 && i-1 < len(col) {
				row = append(row, format(col[i-1]))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns the stored runs, oldest first. Unreadable runs are skipped.
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
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Table is a stored trajectory: the CSV header and one row per stamp.
type Table struct {
	Header []string
	Rows   [][]string
}

// LoadTable reads the trajectory of a run.
func (s *Store) LoadTable(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Column returns the parsed values of the named column, skipping empty cells.
func (t *Table) Column(name string) ([]float64, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no column %q", dynamo.ErrConfiguration, name)
	}

	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx >= len(row) || row[idx] == "" {
			continue
		}
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ExportData is the JSON form of a run.
type ExportData struct {
	RunMetadata
	Times    []float64            `json:"times"`
	Stamps   []dynamo.Time        `json:"stamps"`
	States   []dynamo.State       `json:"states"`
	Controls []dynamo.Control     `json:"controls"`
	Outputs  map[string][]float64 `json:"outputs,omitempty"`
}

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	meta.StepsTaken = result.StepsTaken
	meta.Metrics = result.Metrics
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		Stamps:      result.Stamps,
		States:      result.States,
		Controls:    result.Controls,
		Outputs:     result.Outputs,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
