package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erpesh/forex-server/internal/domain/models"
	domsvc "github.com/erpesh/forex-server/internal/domain/service"
	"github.com/erpesh/forex-server/internal/service/forecast"
	"github.com/erpesh/forex-server/internal/service/indicator"
	"github.com/erpesh/forex-server/internal/service/preprocess"
)

// --- fakes ---

type fakeRefs struct{}

func (fakeRefs) GetCurrencyPair(_ context.Context, name string) (models.CurrencyPair, error) {
	if name != "EURUSD" {
		return models.CurrencyPair{}, fmt.Errorf("%w: %s", models.ErrUnsupportedCurrencyPair, name)
	}
	return models.CurrencyPair{ID: 1, Name: name}, nil
}

func (fakeRefs) ListCurrencyPairs(context.Context) ([]models.CurrencyPair, error) {
	return []models.CurrencyPair{{ID: 1, Name: "EURUSD"}}, nil
}

func (fakeRefs) CreateCurrencyPair(_ context.Context, name string) (models.CurrencyPair, error) {
	return models.CurrencyPair{ID: 9, Name: name}, nil
}

func (fakeRefs) GetPeriod(_ context.Context, name string) (models.PeriodRecord, error) {
	if name != "h1" && name != "d1" {
		return models.PeriodRecord{}, fmt.Errorf("%w: %s", models.ErrUnsupportedPeriod, name)
	}
	return models.PeriodRecord{ID: 2, Name: name}, nil
}

func (fakeRefs) GetModel(_ context.Context, name string) (models.PredictionModel, error) {
	if name == models.ModelLSTM {
		return models.PredictionModel{ID: 3, Name: name}, nil
	}
	return models.PredictionModel{ID: 4, Name: name}, nil
}

type storedPoint struct {
	value  float64
	anchor float64
}

type memPredStore struct {
	m map[models.PredictionKey]storedPoint
}

func newMemPredStore() *memPredStore {
	return &memPredStore{m: make(map[models.PredictionKey]storedPoint)}
}

func (s *memPredStore) GetPredictionsInRange(_ context.Context, pairID, periodID, modelID uint32, from time.Time, count int) ([]models.PredictionPoint, error) {
	var out []models.PredictionPoint
	ts := from
	for len(out) < count {
		p, ok := s.m[models.PredictionKey{PairID: pairID, PeriodID: periodID, ModelID: modelID, TS: ts}]
		if !ok {
			break
		}
		out = append(out, models.PredictionPoint{Value: p.value, TS: ts, Anchor: p.anchor})
		ts = ts.Add(time.Hour)
	}
	return out, nil
}

func (s *memPredStore) GetPredictionAt(_ context.Context, pairID, periodID, modelID uint32, ts time.Time) (models.PredictionPoint, bool, error) {
	p, ok := s.m[models.PredictionKey{PairID: pairID, PeriodID: periodID, ModelID: modelID, TS: ts}]
	if !ok {
		return models.PredictionPoint{}, false, nil
	}
	return models.PredictionPoint{Value: p.value, TS: ts, Anchor: p.anchor}, true, nil
}

func (s *memPredStore) UpsertPrediction(_ context.Context, key models.PredictionKey, value, anchor float64) error {
	s.m[key] = storedPoint{value: value, anchor: anchor}
	return nil
}

func (s *memPredStore) Health(context.Context) error { return nil }

// lastRowModel predicts the Close of the newest window row; inference calls
// are counted to verify the cache path never touches the model.
type lastRowModel struct {
	window int
	calls  *int
}

func (m lastRowModel) WindowSize() int { return m.window }

func (m lastRowModel) PredictNext(window [][]float64) float64 {
	*m.calls++
	return window[len(window)-1][preprocess.CloseIndex]
}

type passScaler struct{}

func (passScaler) Transform(v []float64) []float64          { return append([]float64(nil), v...) }
func (passScaler) InverseTransformTarget(s float64) float64 { return s }

type fakeLoader struct {
	window int
	calls  *int
	loads  int
}

func (l *fakeLoader) Load(_, _ string) (domsvc.Model, domsvc.Scaler, error) {
	l.loads++
	return lastRowModel{window: l.window, calls: l.calls}, passScaler{}, nil
}

type missingLoader struct{}

func (missingLoader) Load(pair, period string) (domsvc.Model, domsvc.Scaler, error) {
	return nil, nil, fmt.Errorf("%w: %s_%s", models.ErrArtifactNotFound, pair, period)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type nopMetrics struct{}

func (nopMetrics) RecordForecast(string, string, string) {}
func (nopMetrics) RecordInference(string)                {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) RecordAnchor(string, string, float64)  {}

type staticScores struct {
	score float64
	ok    bool
}

func (s staticScores) Latest(context.Context, string) (float64, bool, error) {
	return s.score, s.ok, nil
}

// --- helpers ---

const testWindow = 8

func historyBars(n int, lastClose float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 1.05 + 0.001*float64(i%7)
		bars[i] = models.Bar{Open: c, High: c + 0.002, Low: c - 0.002, Close: c, Volume: 500}
	}
	bars[n-1].Close = lastClose
	return bars
}

func newTestForecaster(store *memPredStore, loader domsvc.ArtifactLoader) *Forecaster {
	clock := fixedClock{t: time.Date(2024, 1, 1, 10, 17, 0, 0, time.UTC)}
	return NewForecaster(fakeRefs{}, store, loader,
		forecast.ScaledLinearStrategy(0.05), clock, nopMetrics{}, DefaultSteps, nil)
}

// --- tests ---

func TestPredictProducesNOrderedPoints(t *testing.T) {
	calls := 0
	f := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})

	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)
	res, err := f.Predict(context.Background(), "eurusd", "H1", bars, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(res.Plain) != DefaultSteps || len(res.Sentiment) != DefaultSteps {
		t.Fatalf("expected %d points per series, got %d/%d", DefaultSteps, len(res.Plain), len(res.Sentiment))
	}
	want := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	for i, p := range res.Plain {
		if !p.TS.Equal(want) {
			t.Fatalf("point %d: ts %v, want %v", i, p.TS, want)
		}
		want = want.Add(time.Hour)
	}
}

func TestPredictIdempotentServedFromCache(t *testing.T) {
	calls := 0
	loader := &fakeLoader{window: testWindow, calls: &calls}
	f := newTestForecaster(newMemPredStore(), loader)

	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)
	first, err := f.Predict(context.Background(), "EURUSD", "h1", bars, nil)
	if err != nil {
		t.Fatalf("first predict: %v", err)
	}
	callsAfterFirst := calls

	second, err := f.Predict(context.Background(), "EURUSD", "h1", bars, nil)
	if err != nil {
		t.Fatalf("second predict: %v", err)
	}
	if calls != callsAfterFirst {
		t.Fatalf("cache hit ran %d extra inference calls", calls-callsAfterFirst)
	}
	if loader.loads != 1 {
		t.Fatalf("cache hit loaded artifacts (%d loads)", loader.loads)
	}
	for i := range first.Plain {
		if first.Plain[i].Value != second.Plain[i].Value || !first.Plain[i].TS.Equal(second.Plain[i].TS) {
			t.Fatalf("point %d differs between identical requests", i)
		}
		if first.Sentiment[i].Value != second.Sentiment[i].Value {
			t.Fatalf("sentiment point %d differs between identical requests", i)
		}
	}
}

func TestPredictAnchorChangeForcesRecompute(t *testing.T) {
	calls := 0
	store := newMemPredStore()
	f := newTestForecaster(store, &fakeLoader{window: testWindow, calls: &calls})

	n := indicator.WarmupRows + testWindow
	if _, err := f.Predict(context.Background(), "EURUSD", "h1", historyBars(n, 1.1), nil); err != nil {
		t.Fatalf("first predict: %v", err)
	}
	callsAfterFirst := calls

	// market moved: new anchor close
	if _, err := f.Predict(context.Background(), "EURUSD", "h1", historyBars(n, 1.2), nil); err != nil {
		t.Fatalf("second predict: %v", err)
	}
	if calls == callsAfterFirst {
		t.Fatalf("anchor change did not trigger recompute")
	}
	for key, p := range store.m {
		if p.anchor != 1.2 {
			t.Fatalf("key %+v still anchored at %v after recompute", key, p.anchor)
		}
	}
}

func TestPredictHistoryBoundary(t *testing.T) {
	calls := 0
	f := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})

	exact := indicator.WarmupRows + testWindow
	if _, err := f.Predict(context.Background(), "EURUSD", "h1", historyBars(exact, 1.1), nil); err != nil {
		t.Fatalf("exact-length history should succeed: %v", err)
	}

	f2 := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})
	_, err := f2.Predict(context.Background(), "EURUSD", "h1", historyBars(exact-1, 1.1), nil)
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestPredictUnsupportedIdentifiers(t *testing.T) {
	calls := 0
	f := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})
	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)

	if _, err := f.Predict(context.Background(), "XXXYYY", "h1", bars, nil); !errors.Is(err, models.ErrUnsupportedCurrencyPair) {
		t.Fatalf("expected ErrUnsupportedCurrencyPair, got %v", err)
	}
	if _, err := f.Predict(context.Background(), "EURUSD", "m5", bars, nil); !errors.Is(err, models.ErrUnsupportedPeriod) {
		t.Fatalf("expected ErrUnsupportedPeriod, got %v", err)
	}
}

func TestPredictArtifactNotFound(t *testing.T) {
	f := newTestForecaster(newMemPredStore(), missingLoader{})
	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)
	if _, err := f.Predict(context.Background(), "EURUSD", "h1", bars, nil); !errors.Is(err, models.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestPredictSentimentVariant(t *testing.T) {
	calls := 0
	f := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})
	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)

	score := 1.0
	res, err := f.Predict(context.Background(), "EURUSD", "h1", bars, &score)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i := range res.Plain {
		if res.Sentiment[i].Value == res.Plain[i].Value {
			t.Fatalf("point %d: sentiment series should differ with score=1", i)
		}
	}
}

func TestPredictSentimentFallbackToStoredScore(t *testing.T) {
	calls := 0
	f := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})
	f.SetSentimentSource(staticScores{score: 0.8, ok: true})
	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)

	res, err := f.Predict(context.Background(), "EURUSD", "h1", bars, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Sentiment[0].Value == res.Plain[0].Value {
		t.Fatalf("stored score should have adjusted the sentiment series")
	}
}

func TestPredictNoScoreMeansEqualSeries(t *testing.T) {
	calls := 0
	f := newTestForecaster(newMemPredStore(), &fakeLoader{window: testWindow, calls: &calls})
	bars := historyBars(indicator.WarmupRows+testWindow, 1.1)

	res, err := f.Predict(context.Background(), "EURUSD", "h1", bars, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i := range res.Plain {
		if res.Sentiment[i].Value != res.Plain[i].Value {
			t.Fatalf("point %d: without a score both series must match", i)
		}
	}
}
