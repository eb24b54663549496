package preprocess

import (
	"errors"
	"testing"

	"github.com/erpesh/forex-server/internal/domain/models"
)

// identityScaler passes vectors through unchanged.
type identityScaler struct{}

func (identityScaler) Transform(v []float64) []float64        { return append([]float64(nil), v...) }
func (identityScaler) InverseTransformTarget(s float64) float64 { return s }

func featureRows(n int) []models.FeatureRow {
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		c := 100 + float64(i)
		rows[i] = models.FeatureRow{
			Bar:        models.Bar{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: int64(10 * (i + 1))},
			RSI:        50,
			MACD:       0.1,
			SignalLine: 0.05,
			Histogram:  0.05,
		}
	}
	return rows
}

func TestBuildSequenceTrailingWindow(t *testing.T) {
	rows := featureRows(10)
	seq, err := BuildSequence(rows, identityScaler{}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seq) != 4 {
		t.Fatalf("expected window of 4, got %d", len(seq))
	}
	// trailing rows only, oldest first
	if seq[0][CloseIndex] != rows[6].Close || seq[3][CloseIndex] != rows[9].Close {
		t.Fatalf("window is not the trailing slice: %v", seq)
	}
	for i, v := range seq {
		if len(v) != NumFeatures {
			t.Fatalf("row %d: %d features, want %d", i, len(v), NumFeatures)
		}
	}
}

func TestBuildSequenceInsufficientHistory(t *testing.T) {
	_, err := BuildSequence(featureRows(3), identityScaler{}, 4)
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestVectorColumnOrder(t *testing.T) {
	r := models.FeatureRow{
		Bar:        models.Bar{Open: 1, High: 2, Low: 3, Close: 4, Volume: 5},
		RSI:        6,
		MACD:       7,
		SignalLine: 8,
		Histogram:  9,
	}
	v := Vector(r)
	for i, want := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		if v[i] != want {
			t.Fatalf("column %d (%s): got %v, want %v", i, FeatureOrder[i], v[i], want)
		}
	}
}
