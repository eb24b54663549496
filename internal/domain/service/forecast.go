package service

import "context"

// Model is a trained sequence model. Implementations are read-only and safe
// for concurrent use; a window is a fixed-length sequence of scaled feature
// vectors in the pinned training column order.
type Model interface {
	// PredictNext returns the next-step Close in scaled space.
	PredictNext(window [][]float64) float64
	// WindowSize is the input sequence length the model was trained with.
	WindowSize() int
}

// Scaler is a fitted feature scaler belonging to a model artifact.
type Scaler interface {
	// Transform scales one feature vector into model space.
	Transform(vector []float64) []float64
	// InverseTransformTarget maps a scaled Close back to price scale.
	InverseTransformTarget(scaled float64) float64
}

// ArtifactLoader supplies the trained model and scaler for a pair+period.
// Missing artifacts surface as models.ErrArtifactNotFound.
type ArtifactLoader interface {
	Load(pairName, periodName string) (Model, Scaler, error)
}

// SentimentStrategy perturbs a scaled prediction by a sentiment score. The
// exact adjustment form is deliberately isolated here so it can be revisited
// without touching the rollout loop.
type SentimentStrategy func(predicted, score float64) float64

// SentimentSource supplies the latest known sentiment score for a pair,
// used when a request does not carry one.
type SentimentSource interface {
	Latest(ctx context.Context, pair string) (float64, bool, error)
}
