package models

import "math"

// Bar is one OHLCV bucket of a currency-pair price series.
// Sequences are ordered oldest to newest; Close of the last bar is the
// anchor value a prediction batch is computed from.
type Bar struct {
	Open   float64 `json:"Open"`
	High   float64 `json:"High"`
	Low    float64 `json:"Low"`
	Close  float64 `json:"Close"`
	Volume int64   `json:"Volume"`
}

// FeatureRow is a Bar extended with technical indicators. Indicator fields
// hold NaN while the indicator is still inside its warm-up window; such rows
// are dropped before sequence construction.
type FeatureRow struct {
	Bar
	RSI        float64
	MACD       float64
	SignalLine float64
	Histogram  float64
}

// Complete reports whether every indicator on the row is defined.
func (r FeatureRow) Complete() bool {
	return !math.IsNaN(r.RSI) && !math.IsNaN(r.MACD) &&
		!math.IsNaN(r.SignalLine) && !math.IsNaN(r.Histogram)
}

// LastClose returns the Close of the newest bar, or 0 for an empty series.
func LastClose(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}
