package forecast

import (
	"testing"

	"github.com/erpesh/forex-server/internal/service/preprocess"
)

// meanCloseModel predicts the mean of the window's Close column; enough to
// make feedback observable without a trained artifact.
type meanCloseModel struct {
	window int
	calls  int
}

func (m *meanCloseModel) WindowSize() int { return m.window }

func (m *meanCloseModel) PredictNext(window [][]float64) float64 {
	m.calls++
	var sum float64
	for _, row := range window {
		sum += row[preprocess.CloseIndex]
	}
	return sum / float64(len(window))
}

type affineScaler struct{ scale, offset float64 }

func (s affineScaler) Transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - s.offset) / s.scale
	}
	return out
}

func (s affineScaler) InverseTransformTarget(v float64) float64 { return v*s.scale + s.offset }

func testWindow(n int) [][]float64 {
	seq := make([][]float64, n)
	for i := range seq {
		row := make([]float64, preprocess.NumFeatures)
		for j := range row {
			row[j] = 0.5
		}
		row[preprocess.CloseIndex] = 0.4 + 0.05*float64(i)
		seq[i] = row
	}
	return seq
}

func TestRolloutProducesNSteps(t *testing.T) {
	model := &meanCloseModel{window: 4}
	p := NewPredictor(model, affineScaler{scale: 100, offset: 50})

	out, err := p.Rollout(testWindow(4), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 predictions, got %d", len(out))
	}
	if model.calls != 5 {
		t.Fatalf("expected 5 inference calls, got %d", model.calls)
	}
}

func TestRolloutDoesNotMutateInput(t *testing.T) {
	seq := testWindow(4)
	want := seq[0][preprocess.CloseIndex]
	p := NewPredictor(&meanCloseModel{window: 4}, affineScaler{scale: 1})
	if _, err := p.Rollout(seq, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq[0][preprocess.CloseIndex] != want {
		t.Fatalf("input window mutated by rollout")
	}
}

func TestRolloutFeedsPredictionBack(t *testing.T) {
	// With a mean model over a non-constant Close column the second step
	// must differ from the first; frozen features keep the rest stable.
	p := NewPredictor(&meanCloseModel{window: 4}, affineScaler{scale: 1})
	out, err := p.Rollout(testWindow(4), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] == out[1] {
		t.Fatalf("feedback loop produced identical consecutive steps: %v", out)
	}
}

func TestSentimentRolloutIndependent(t *testing.T) {
	seq := testWindow(4)
	p := NewPredictor(&meanCloseModel{window: 4}, affineScaler{scale: 1})

	plain, err := p.Rollout(seq, 3)
	if err != nil {
		t.Fatalf("plain rollout: %v", err)
	}
	adjusted, err := p.RolloutWithSentiment(seq, 3, ScaledLinearStrategy(0.05), 1)
	if err != nil {
		t.Fatalf("sentiment rollout: %v", err)
	}
	// run plain again: must match the first run exactly (no shared state)
	plain2, err := p.Rollout(seq, 3)
	if err != nil {
		t.Fatalf("plain rollout repeat: %v", err)
	}
	for i := range plain {
		if plain[i] != plain2[i] {
			t.Fatalf("step %d: plain rollout not reproducible: %v vs %v", i, plain[i], plain2[i])
		}
		if plain[i] == adjusted[i] {
			t.Fatalf("step %d: sentiment adjustment had no effect", i)
		}
		if adjusted[i] <= plain[i] {
			t.Fatalf("step %d: positive sentiment should raise the prediction (%v vs %v)", i, adjusted[i], plain[i])
		}
	}
}

func TestRolloutWindowMismatch(t *testing.T) {
	p := NewPredictor(&meanCloseModel{window: 6}, affineScaler{scale: 1})
	if _, err := p.Rollout(testWindow(4), 2); err == nil {
		t.Fatalf("expected window mismatch error")
	}
}
