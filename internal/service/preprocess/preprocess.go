// Package preprocess turns enriched feature rows into the fixed-length
// scaled sequence a trained model consumes.
package preprocess

import (
	"github.com/erpesh/forex-server/internal/domain/models"
	domsvc "github.com/erpesh/forex-server/internal/domain/service"
)

// Feature column order pinned at training time. The scaler and model
// artifacts are fitted against exactly this layout; it is a contract
// constant, never inferred from data.
var FeatureOrder = []string{
	"Open", "High", "Low", "Close", "Volume",
	"RSI", "MACD", "Signal_Line", "Histogram",
}

const (
	NumFeatures = 9
	// CloseIndex is the position of Close in FeatureOrder; it is the
	// prediction target and the autoregressive feedback column.
	CloseIndex = 3
)

// Vector flattens a feature row into training column order.
func Vector(r models.FeatureRow) []float64 {
	return []float64{
		r.Open, r.High, r.Low, r.Close, float64(r.Volume),
		r.RSI, r.MACD, r.SignalLine, r.Histogram,
	}
}

// BuildSequence scales the trailing windowLength rows into the model input
// sequence. Fewer surviving rows than the window requires is
// models.ErrInsufficientHistory.
func BuildSequence(rows []models.FeatureRow, scaler domsvc.Scaler, windowLength int) ([][]float64, error) {
	if len(rows) < windowLength {
		return nil, models.ErrInsufficientHistory
	}
	tail := rows[len(rows)-windowLength:]
	seq := make([][]float64, windowLength)
	for i, r := range tail {
		seq[i] = scaler.Transform(Vector(r))
	}
	return seq, nil
}
