// Package indicator computes the technical-indicator columns the forecast
// models were trained on. Formulas are pinned to the training pipeline;
// changing seeding or smoothing here would silently shift model inputs.
package indicator

import (
	"math"

	"github.com/erpesh/forex-server/internal/domain/models"
)

// RSIWindow is the lookback used at training time.
const RSIWindow = 14

// RSI returns the Relative Strength Index aligned one-to-one with bars.
// The first RSIWindow values are NaN. The first average gain/loss is a
// simple mean over the window; later values use Wilder smoothing.
// A window with no losses yields RSI 100.
func RSI(bars []models.Bar, window int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(bars) <= window {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		d := bars[i].Close - bars[i-1].Close
		if d > 0 {
			avgGain += d
		} else {
			avgLoss += -d
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)

	for i := window + 1; i < len(bars); i++ {
		d := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
