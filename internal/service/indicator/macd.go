package indicator

import (
	"math"

	"github.com/erpesh/forex-server/internal/domain/models"
)

// MACD spans pinned to the training pipeline.
const (
	MACDFastSpan   = 12
	MACDSlowSpan   = 26
	MACDSignalSpan = 9
)

// MACD returns the MACD line, signal line and histogram aligned one-to-one
// with bars. Values are NaN until the underlying EMA chains stabilize: the
// MACD line from row MACDSlowSpan-1, signal and histogram from row
// MACDSlowSpan+MACDSignalSpan-2.
func MACD(bars []models.Bar) (macd, signal, hist []float64) {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	fast := ema(closes, MACDFastSpan)
	slow := ema(closes, MACDSlowSpan)

	macd = make([]float64, len(bars))
	for i := range macd {
		macd[i] = fast[i] - slow[i] // NaN propagates until both EMAs exist
	}

	signal = ema(macd, MACDSignalSpan)
	hist = make([]float64, len(bars))
	for i := range hist {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// ema computes an exponential moving average seeded by the simple mean of
// the first span defined values. Leading NaNs in the input shift the seed
// window accordingly.
func ema(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}

	start := 0
	for start < len(xs) && math.IsNaN(xs[start]) {
		start++
	}
	if len(xs)-start < span {
		return out
	}

	var sum float64
	for i := start; i < start+span; i++ {
		sum += xs[i]
	}
	prev := sum / float64(span)
	out[start+span-1] = prev

	alpha := 2.0 / float64(span+1)
	for i := start + span; i < len(xs); i++ {
		prev = alpha*xs[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}
