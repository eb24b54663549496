package repository

import (
	"context"
	"time"

	"github.com/erpesh/forex-server/internal/domain/models"
)

// ReferenceStore resolves currency pairs, periods and model variants by name.
// Unknown names surface as the corresponding Unsupported* domain error.
type ReferenceStore interface {
	GetCurrencyPair(ctx context.Context, name string) (models.CurrencyPair, error)
	ListCurrencyPairs(ctx context.Context) ([]models.CurrencyPair, error)
	CreateCurrencyPair(ctx context.Context, name string) (models.CurrencyPair, error)
	GetPeriod(ctx context.Context, name string) (models.PeriodRecord, error)
	GetModel(ctx context.Context, name string) (models.PredictionModel, error)
}

// PredictionStore persists forecast points keyed by
// (pair, period, model, target timestamp).
type PredictionStore interface {
	// GetPredictionsInRange returns up to count points with ts >= from,
	// ascending by ts.
	GetPredictionsInRange(ctx context.Context, pairID, periodID, modelID uint32, from time.Time, count int) ([]models.PredictionPoint, error)
	GetPredictionAt(ctx context.Context, pairID, periodID, modelID uint32, ts time.Time) (models.PredictionPoint, bool, error)
	// UpsertPrediction is idempotent and retry-safe; conflicting writes to
	// the same key resolve last-writer-wins.
	UpsertPrediction(ctx context.Context, key models.PredictionKey, value, anchor float64) error
	Health(ctx context.Context) error
}

// Clock supplies "now" for period-bucket alignment so the controller is
// deterministically testable.
type Clock interface {
	Now() time.Time
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordForecast(pair, period, outcome string)
	RecordInference(pair string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordAnchor(pair, period string, value float64)
}
