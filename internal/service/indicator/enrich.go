package indicator

import "github.com/erpesh/forex-server/internal/domain/models"

// WarmupRows is the number of leading rows dropped by Enrich: the signal
// line is the longest indicator chain (26-EMA seeded at row 25, then a
// 9-EMA of MACD seeded 8 rows later). RSI's 14 undefined rows are a subset.
const WarmupRows = MACDSlowSpan + MACDSignalSpan - 2

// Enrich computes all indicator columns for the bar sequence and drops the
// warm-up rows where any indicator is undefined. The survivor count is
// deterministic: len(bars) - WarmupRows (never negative).
func Enrich(bars []models.Bar) []models.FeatureRow {
	rsi := RSI(bars, RSIWindow)
	macd, signal, hist := MACD(bars)

	out := make([]models.FeatureRow, 0, max(0, len(bars)-WarmupRows))
	for i, b := range bars {
		row := models.FeatureRow{
			Bar:        b,
			RSI:        rsi[i],
			MACD:       macd[i],
			SignalLine: signal[i],
			Histogram:  hist[i],
		}
		if row.Complete() {
			out = append(out, row)
		}
	}
	return out
}
