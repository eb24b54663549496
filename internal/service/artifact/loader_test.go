package artifact

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/erpesh/forex-server/internal/domain/models"
	"github.com/erpesh/forex-server/internal/service/preprocess"
)

func testArtifact(window, hidden int) artifactFile {
	n := preprocess.NumFeatures
	mat := func(rows, cols int, v float64) [][]float64 {
		m := make([][]float64, rows)
		for i := range m {
			m[i] = make([]float64, cols)
			for j := range m[i] {
				m[i][j] = v
			}
		}
		return m
	}
	vec := func(size int, v float64) []float64 {
		out := make([]float64, size)
		for i := range out {
			out[i] = v
		}
		return out
	}

	af := artifactFile{
		Scaler: MinMaxScaler{Min: vec(n, 0), Max: vec(n, 2)},
		LSTM: LSTM{
			InputSize:  n,
			HiddenSize: hidden,
			Window:     window,
			WI:         mat(hidden, n, 0.1), WF: mat(hidden, n, 0.1),
			WC: mat(hidden, n, 0.1), WO: mat(hidden, n, 0.1),
			UI: mat(hidden, hidden, 0.05), UF: mat(hidden, hidden, 0.05),
			UC: mat(hidden, hidden, 0.05), UO: mat(hidden, hidden, 0.05),
			BI: vec(hidden, 0), BF: vec(hidden, 0),
			BC: vec(hidden, 0), BO: vec(hidden, 0),
			DenseW: vec(hidden, 0.5), DenseB: 0.1,
		},
	}
	return af
}

func writeArtifact(t *testing.T, dir, key string, af artifactFile) {
	t.Helper()
	b, err := json.Marshal(af)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, key+".json"), b, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

func TestLoaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "EURUSD_h1", testArtifact(6, 4))

	l := NewLoader(dir)
	model, scaler, err := l.Load("eurusd", "H1") // case-normalized
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if model.WindowSize() != 6 {
		t.Fatalf("window size %d, want 6", model.WindowSize())
	}

	window := make([][]float64, 6)
	for i := range window {
		row := make([]float64, preprocess.NumFeatures)
		for j := range row {
			row[j] = 0.5
		}
		window[i] = row
	}
	out := model.PredictNext(window)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		t.Fatalf("forward pass produced %v", out)
	}
	// deterministic forward pass
	if out2 := model.PredictNext(window); out2 != out {
		t.Fatalf("forward pass not deterministic: %v vs %v", out, out2)
	}
	if got := scaler.InverseTransformTarget(0.5); got != 1.0 {
		t.Fatalf("inverse transform: got %v, want 1.0", got)
	}
}

func TestLoaderArtifactNotFound(t *testing.T) {
	l := NewLoader(t.TempDir())
	_, _, err := l.Load("GBPUSD", "d1")
	if !errors.Is(err, models.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestLoaderRejectsShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	af := testArtifact(6, 4)
	af.LSTM.DenseW = af.LSTM.DenseW[:2] // truncated head
	writeArtifact(t, dir, "EURUSD_h1", af)

	if _, _, err := NewLoader(dir).Load("EURUSD", "h1"); err == nil {
		t.Fatalf("expected shape validation error")
	}
}

func TestMinMaxScalerTransform(t *testing.T) {
	n := preprocess.NumFeatures
	s := MinMaxScaler{Min: make([]float64, n), Max: make([]float64, n)}
	for i := range s.Max {
		s.Max[i] = 10
	}
	s.Max[0] = 0 // degenerate column

	in := make([]float64, n)
	for i := range in {
		in[i] = 5
	}
	out := s.Transform(in)
	if out[0] != 0 {
		t.Fatalf("degenerate column should scale to 0, got %v", out[0])
	}
	for i := 1; i < n; i++ {
		if out[i] != 0.5 {
			t.Fatalf("column %d: got %v, want 0.5", i, out[i])
		}
	}
}
