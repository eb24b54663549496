package artifact

import (
	"fmt"

	"github.com/erpesh/forex-server/internal/service/preprocess"
)

// MinMaxScaler is the fitted per-feature min/max scaler exported with each
// trained model. Column layout follows preprocess.FeatureOrder.
type MinMaxScaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

func (s *MinMaxScaler) validate() error {
	if len(s.Min) != preprocess.NumFeatures || len(s.Max) != preprocess.NumFeatures {
		return fmt.Errorf("scaler has %d/%d bounds, want %d", len(s.Min), len(s.Max), preprocess.NumFeatures)
	}
	return nil
}

// Transform maps a feature vector into [0,1] per column. A degenerate
// column (min == max) maps to 0.
func (s *MinMaxScaler) Transform(vector []float64) []float64 {
	out := make([]float64, len(vector))
	for i, x := range vector {
		span := s.Max[i] - s.Min[i]
		if span == 0 {
			continue
		}
		out[i] = (x - s.Min[i]) / span
	}
	return out
}

// InverseTransformTarget maps a scaled Close back to price scale.
func (s *MinMaxScaler) InverseTransformTarget(scaled float64) float64 {
	i := preprocess.CloseIndex
	return scaled*(s.Max[i]-s.Min[i]) + s.Min[i]
}
