// Package forecast runs the autoregressive multi-step rollout over a
// trained sequence model.
package forecast

import (
	"fmt"

	domsvc "github.com/erpesh/forex-server/internal/domain/service"
	"github.com/erpesh/forex-server/internal/service/preprocess"
)

// Predictor wraps a model+scaler pair for N-step rollouts. It is stateless:
// every rollout works on its own copy of the input window, so the plain and
// sentiment variants never share mutated state.
type Predictor struct {
	model  domsvc.Model
	scaler domsvc.Scaler
}

func NewPredictor(model domsvc.Model, scaler domsvc.Scaler) *Predictor {
	return &Predictor{model: model, scaler: scaler}
}

// Rollout produces steps future Close values in price scale, chronologically
// ordered. Each step feeds the scaled prediction back as the Close of a
// synthetic row whose remaining features are frozen at the last known row;
// indicators are intentionally not recomputed mid-rollout (recomputing them
// would change numeric output relative to the trained behavior).
func (p *Predictor) Rollout(seq [][]float64, steps int) ([]float64, error) {
	return p.rollout(seq, steps, nil, 0)
}

// RolloutWithSentiment runs the same rollout but passes each scaled
// prediction through strategy before de-normalization and before feedback.
func (p *Predictor) RolloutWithSentiment(seq [][]float64, steps int, strategy domsvc.SentimentStrategy, score float64) ([]float64, error) {
	if strategy == nil {
		return p.Rollout(seq, steps)
	}
	return p.rollout(seq, steps, strategy, score)
}

func (p *Predictor) rollout(seq [][]float64, steps int, strategy domsvc.SentimentStrategy, score float64) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("rollout steps must be positive, got %d", steps)
	}
	if len(seq) != p.model.WindowSize() {
		return nil, fmt.Errorf("window length %d does not match model window %d", len(seq), p.model.WindowSize())
	}

	window := cloneWindow(seq)
	out := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		scaled := p.model.PredictNext(window)
		if strategy != nil {
			scaled = strategy(scaled, score)
		}
		out = append(out, p.scaler.InverseTransformTarget(scaled))

		next := append([]float64(nil), window[len(window)-1]...)
		next[preprocess.CloseIndex] = scaled
		window = append(window[1:], next)
	}
	return out, nil
}

func cloneWindow(seq [][]float64) [][]float64 {
	out := make([][]float64, len(seq))
	for i, row := range seq {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
