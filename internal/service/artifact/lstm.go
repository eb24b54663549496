package artifact

import (
	"fmt"
	"math"
)

// LSTM is a single-layer LSTM with a linear head, evaluated in-process from
// weights exported at training time. Weight matrices are row-major
// [hidden][input] (W*) and [hidden][hidden] (U*); the head maps the final
// hidden state to the scaled Close.
type LSTM struct {
	InputSize  int `json:"input_size"`
	HiddenSize int `json:"hidden_size"`
	Window     int `json:"window_size"`

	WI [][]float64 `json:"w_i"`
	WF [][]float64 `json:"w_f"`
	WC [][]float64 `json:"w_c"`
	WO [][]float64 `json:"w_o"`

	UI [][]float64 `json:"u_i"`
	UF [][]float64 `json:"u_f"`
	UC [][]float64 `json:"u_c"`
	UO [][]float64 `json:"u_o"`

	BI []float64 `json:"b_i"`
	BF []float64 `json:"b_f"`
	BC []float64 `json:"b_c"`
	BO []float64 `json:"b_o"`

	DenseW []float64 `json:"dense_w"`
	DenseB float64   `json:"dense_b"`
}

// WindowSize is the input sequence length the model was trained with.
func (m *LSTM) WindowSize() int { return m.Window }

// PredictNext runs the forward pass over the window and returns the
// next-step Close in scaled space. The receiver is read-only; all state
// lives on the stack of this call, so it is safe for concurrent use.
func (m *LSTM) PredictNext(window [][]float64) float64 {
	h := make([]float64, m.HiddenSize)
	c := make([]float64, m.HiddenSize)

	for _, x := range window {
		for j := 0; j < m.HiddenSize; j++ {
			i := sigmoid(dot(m.WI[j], x) + dot(m.UI[j], h) + m.BI[j])
			f := sigmoid(dot(m.WF[j], x) + dot(m.UF[j], h) + m.BF[j])
			g := math.Tanh(dot(m.WC[j], x) + dot(m.UC[j], h) + m.BC[j])
			o := sigmoid(dot(m.WO[j], x) + dot(m.UO[j], h) + m.BO[j])

			c[j] = f*c[j] + i*g
			h[j] = o * math.Tanh(c[j])
		}
	}
	return dot(m.DenseW, h) + m.DenseB
}

func (m *LSTM) validate(features int) error {
	if m.Window <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", m.Window)
	}
	if m.InputSize != features {
		return fmt.Errorf("model input size %d does not match %d features", m.InputSize, features)
	}
	if m.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be positive, got %d", m.HiddenSize)
	}
	gates := map[string][][]float64{"w_i": m.WI, "w_f": m.WF, "w_c": m.WC, "w_o": m.WO}
	for name, w := range gates {
		if len(w) != m.HiddenSize {
			return fmt.Errorf("%s has %d rows, want %d", name, len(w), m.HiddenSize)
		}
		for r, row := range w {
			if len(row) != m.InputSize {
				return fmt.Errorf("%s row %d has %d cols, want %d", name, r, len(row), m.InputSize)
			}
		}
	}
	recurrent := map[string][][]float64{"u_i": m.UI, "u_f": m.UF, "u_c": m.UC, "u_o": m.UO}
	for name, u := range recurrent {
		if len(u) != m.HiddenSize {
			return fmt.Errorf("%s has %d rows, want %d", name, len(u), m.HiddenSize)
		}
		for r, row := range u {
			if len(row) != m.HiddenSize {
				return fmt.Errorf("%s row %d has %d cols, want %d", name, r, len(row), m.HiddenSize)
			}
		}
	}
	biases := map[string][]float64{"b_i": m.BI, "b_f": m.BF, "b_c": m.BC, "b_o": m.BO, "dense_w": m.DenseW}
	for name, b := range biases {
		if len(b) != m.HiddenSize {
			return fmt.Errorf("%s has %d values, want %d", name, len(b), m.HiddenSize)
		}
	}
	return nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
