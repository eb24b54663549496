package models

import "time"

// Model variant names as stored in the prediction_models reference table.
const (
	ModelLSTM          = "LSTM"
	ModelLSTMSentiment = "LSTM_Sentiment"
)

// CurrencyPair is a reference record, e.g. EURUSD.
type CurrencyPair struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// PeriodRecord is a reference record for a forecast bucket width, e.g. h1.
type PeriodRecord struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// PredictionModel is a reference record for a model variant.
type PredictionModel struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// PredictionKey uniquely identifies a stored prediction.
type PredictionKey struct {
	PairID   uint32
	PeriodID uint32
	ModelID  uint32
	TS       time.Time
}

// PredictionPoint is one stored forecast value. Anchor is the last observed
// Close the batch was computed from; a mismatch with the anchor of an
// incoming request marks the whole batch stale.
type PredictionPoint struct {
	Value  float64   `json:"value"`
	TS     time.Time `json:"time"`
	Anchor float64   `json:"-"`
}

// ForecastResult is the produced surface of the prediction pipeline:
// one series per model variant, chronologically ordered.
type ForecastResult struct {
	Plain     []PredictionPoint `json:"lstm_predictions"`
	Sentiment []PredictionPoint `json:"lstm_sentiment_predictions"`
}
