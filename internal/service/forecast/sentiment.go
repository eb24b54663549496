package forecast

import domsvc "github.com/erpesh/forex-server/internal/domain/service"

// DefaultSentimentWeight bounds the default adjustment to ~1% of the scaled
// prediction at full-strength sentiment.
const DefaultSentimentWeight = 0.01

// ScaledLinearStrategy returns the default sentiment adjustment: a linear
// tilt of the scaled prediction, adjusted = predicted * (1 + weight*score)
// with score in [-1, 1]. The exact form of the original adjustment is not
// recoverable, so it lives behind domsvc.SentimentStrategy and can be
// swapped without touching the rollout.
func ScaledLinearStrategy(weight float64) domsvc.SentimentStrategy {
	return func(predicted, score float64) float64 {
		return predicted * (1 + weight*score)
	}
}
