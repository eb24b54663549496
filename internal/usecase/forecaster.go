package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erpesh/forex-server/internal/domain/models"
	domrepo "github.com/erpesh/forex-server/internal/domain/repository"
	domsvc "github.com/erpesh/forex-server/internal/domain/service"
	"github.com/erpesh/forex-server/internal/service/forecast"
	"github.com/erpesh/forex-server/internal/service/indicator"
	"github.com/erpesh/forex-server/internal/service/preprocess"
	applogger "github.com/erpesh/forex-server/pkg/logger"
)

// DefaultSteps is the number of future buckets predicted per request.
const DefaultSteps = 5

// Forecaster owns the recompute-vs-serve decision. Stored predictions for
// the target timestamps are served as-is while their anchor (the last
// observed Close they were computed from) matches the incoming request;
// any mismatch, or missing target timestamps, forces a full recompute of
// both model variants. A served cache hit performs zero artifact loads and
// zero model-inference calls.
type Forecaster struct {
	refs      domrepo.ReferenceStore
	preds     domrepo.PredictionStore
	artifacts domsvc.ArtifactLoader
	scores    domsvc.SentimentSource
	strategy  domsvc.SentimentStrategy
	clock     domrepo.Clock
	metrics   domrepo.Metrics
	steps     int
	l         *applogger.Logger
}

func NewForecaster(
	refs domrepo.ReferenceStore,
	preds domrepo.PredictionStore,
	artifacts domsvc.ArtifactLoader,
	strategy domsvc.SentimentStrategy,
	clock domrepo.Clock,
	metrics domrepo.Metrics,
	steps int,
	l *applogger.Logger,
) *Forecaster {
	if steps <= 0 {
		steps = DefaultSteps
	}
	return &Forecaster{
		refs:      refs,
		preds:     preds,
		artifacts: artifacts,
		strategy:  strategy,
		clock:     clock,
		metrics:   metrics,
		steps:     steps,
		l:         l,
	}
}

// SetSentimentSource wires an optional fallback for requests that do not
// carry a sentiment score.
func (f *Forecaster) SetSentimentSource(src domsvc.SentimentSource) { f.scores = src }

// Predict serves the multi-step forecast for the pair and period from the
// supplied bar history, recomputing only when the stored batch is missing
// or stale.
func (f *Forecaster) Predict(ctx context.Context, pairName, periodName string, bars []models.Bar, sentiment *float64) (*models.ForecastResult, error) {
	start := time.Now()
	defer func() {
		f.metrics.RecordLatency("predict", time.Since(start).Seconds())
	}()

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty bar series", models.ErrInsufficientHistory)
	}

	pairName = strings.ToUpper(pairName)
	periodName = strings.ToLower(periodName)

	pair, err := f.refs.GetCurrencyPair(ctx, pairName)
	if err != nil {
		return nil, err
	}
	periodRec, err := f.refs.GetPeriod(ctx, periodName)
	if err != nil {
		return nil, err
	}
	period := domrepo.Period(periodName)
	if !domrepo.IsValidPeriod(period) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedPeriod, periodName)
	}
	plainModel, err := f.refs.GetModel(ctx, models.ModelLSTM)
	if err != nil {
		return nil, err
	}
	sentModel, err := f.refs.GetModel(ctx, models.ModelLSTMSentiment)
	if err != nil {
		return nil, err
	}

	anchor := models.LastClose(bars)
	f.metrics.RecordAnchor(pairName, periodName, anchor)

	targets, err := TargetTimestamps(f.clock.Now(), period, f.steps)
	if err != nil {
		return nil, err
	}

	cached, err := f.preds.GetPredictionsInRange(ctx, pair.ID, periodRec.ID, plainModel.ID, targets[0], f.steps)
	if err != nil {
		return nil, fmt.Errorf("read cached predictions: %w", err)
	}
	if len(cached) >= f.steps && cached[0].Anchor == anchor {
		sentCached, err := f.preds.GetPredictionsInRange(ctx, pair.ID, periodRec.ID, sentModel.ID, targets[0], f.steps)
		if err != nil {
			return nil, fmt.Errorf("read cached sentiment predictions: %w", err)
		}
		if len(sentCached) >= f.steps {
			f.metrics.RecordForecast(pairName, periodName, "cache_hit")
			if f.l != nil {
				f.l.Debug("forecast served from cache",
					applogger.String("pair", pairName),
					applogger.String("period", periodName),
				)
			}
			return &models.ForecastResult{
				Plain:     cached[:f.steps],
				Sentiment: sentCached[:f.steps],
			}, nil
		}
	}

	result, err := f.recompute(ctx, pairName, periodName, bars, sentiment, anchor, targets,
		pair.ID, periodRec.ID, plainModel.ID, sentModel.ID)
	if err != nil {
		return nil, err
	}
	f.metrics.RecordForecast(pairName, periodName, "recomputed")
	return result, nil
}

func (f *Forecaster) recompute(
	ctx context.Context,
	pairName, periodName string,
	bars []models.Bar,
	sentiment *float64,
	anchor float64,
	targets []time.Time,
	pairID, periodID, plainModelID, sentModelID uint32,
) (*models.ForecastResult, error) {
	model, scaler, err := f.artifacts.Load(pairName, periodName)
	if err != nil {
		return nil, err
	}

	rows := indicator.Enrich(bars)
	seq, err := preprocess.BuildSequence(rows, scaler, model.WindowSize())
	if err != nil {
		return nil, err
	}

	predictor := forecast.NewPredictor(model, scaler)
	plain, err := predictor.Rollout(seq, f.steps)
	if err != nil {
		return nil, fmt.Errorf("rollout: %w", err)
	}
	f.metrics.RecordInference(pairName)

	score, haveScore := f.resolveScore(ctx, pairName, sentiment)
	sent := plain
	if haveScore {
		sent, err = predictor.RolloutWithSentiment(seq, f.steps, f.strategy, score)
		if err != nil {
			return nil, fmt.Errorf("sentiment rollout: %w", err)
		}
		f.metrics.RecordInference(pairName)
	}

	result := &models.ForecastResult{
		Plain:     make([]models.PredictionPoint, f.steps),
		Sentiment: make([]models.PredictionPoint, f.steps),
	}
	for i := 0; i < f.steps; i++ {
		result.Plain[i] = models.PredictionPoint{Value: plain[i], TS: targets[i], Anchor: anchor}
		result.Sentiment[i] = models.PredictionPoint{Value: sent[i], TS: targets[i], Anchor: anchor}

		plainKey := models.PredictionKey{PairID: pairID, PeriodID: periodID, ModelID: plainModelID, TS: targets[i]}
		if err := f.preds.UpsertPrediction(ctx, plainKey, plain[i], anchor); err != nil {
			return nil, fmt.Errorf("upsert prediction: %w", err)
		}
		sentKey := models.PredictionKey{PairID: pairID, PeriodID: periodID, ModelID: sentModelID, TS: targets[i]}
		if err := f.preds.UpsertPrediction(ctx, sentKey, sent[i], anchor); err != nil {
			return nil, fmt.Errorf("upsert sentiment prediction: %w", err)
		}
	}

	if f.l != nil {
		f.l.Info("forecast recomputed",
			applogger.String("pair", pairName),
			applogger.String("period", periodName),
			applogger.Int("steps", f.steps),
			applogger.Bool("sentiment", haveScore),
		)
	}
	return result, nil
}

// resolveScore prefers the caller-supplied score, then the latest ingested
// score for the pair. No score anywhere means the sentiment series falls
// back to the plain rollout.
func (f *Forecaster) resolveScore(ctx context.Context, pair string, supplied *float64) (float64, bool) {
	if supplied != nil {
		return *supplied, true
	}
	if f.scores == nil {
		return 0, false
	}
	score, ok, err := f.scores.Latest(ctx, pair)
	if err != nil {
		f.metrics.RecordError("sentiment_lookup")
		if f.l != nil {
			f.l.Warn("sentiment lookup failed", applogger.Error(err))
		}
		return 0, false
	}
	return score, ok
}
