package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/erpesh/forex-server/internal/domain/models"
	domsvc "github.com/erpesh/forex-server/internal/domain/service"
	"github.com/erpesh/forex-server/internal/usecase"
)

type fakeRefs struct {
	pairs map[string]models.CurrencyPair
}

func newFakeRefs(names ...string) *fakeRefs {
	f := &fakeRefs{pairs: make(map[string]models.CurrencyPair)}
	for i, n := range names {
		f.pairs[n] = models.CurrencyPair{ID: uint32(i + 1), Name: n}
	}
	return f
}

func (f *fakeRefs) GetCurrencyPair(_ context.Context, name string) (models.CurrencyPair, error) {
	p, ok := f.pairs[name]
	if !ok {
		return models.CurrencyPair{}, fmt.Errorf("%w: %s", models.ErrUnsupportedCurrencyPair, name)
	}
	return p, nil
}

func (f *fakeRefs) ListCurrencyPairs(_ context.Context) ([]models.CurrencyPair, error) {
	out := make([]models.CurrencyPair, 0, len(f.pairs))
	for _, p := range f.pairs {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRefs) CreateCurrencyPair(_ context.Context, name string) (models.CurrencyPair, error) {
	if _, ok := f.pairs[name]; ok {
		return models.CurrencyPair{}, fmt.Errorf("%w: %s", models.ErrPairExists, name)
	}
	p := models.CurrencyPair{ID: uint32(len(f.pairs) + 1), Name: name}
	f.pairs[name] = p
	return p, nil
}

func (f *fakeRefs) GetPeriod(_ context.Context, name string) (models.PeriodRecord, error) {
	if name != "h1" && name != "d1" {
		return models.PeriodRecord{}, fmt.Errorf("%w: %s", models.ErrUnsupportedPeriod, name)
	}
	return models.PeriodRecord{ID: 10, Name: name}, nil
}

func (f *fakeRefs) GetModel(_ context.Context, name string) (models.PredictionModel, error) {
	return models.PredictionModel{ID: 20, Name: name}, nil
}

type fakePreds struct {
	healthErr error
	points    []models.PredictionPoint
}

func (f *fakePreds) GetPredictionsInRange(_ context.Context, _, _, _ uint32, _ time.Time, count int) ([]models.PredictionPoint, error) {
	if len(f.points) > count {
		return f.points[:count], nil
	}
	return f.points, nil
}

func (f *fakePreds) GetPredictionAt(context.Context, uint32, uint32, uint32, time.Time) (models.PredictionPoint, bool, error) {
	return models.PredictionPoint{}, false, nil
}

func (f *fakePreds) UpsertPrediction(context.Context, models.PredictionKey, float64, float64) error {
	return nil
}

func (f *fakePreds) Health(context.Context) error { return f.healthErr }

type missingLoader struct{}

func (missingLoader) Load(pair, period string) (domsvc.Model, domsvc.Scaler, error) {
	return nil, nil, fmt.Errorf("%w: %s_%s", models.ErrArtifactNotFound, pair, period)
}

type nopMetrics struct{}

func (nopMetrics) RecordForecast(string, string, string) {}
func (nopMetrics) RecordInference(string)                {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) RecordAnchor(string, string, float64)  {}

func newTestHandler(refs *fakeRefs, preds *fakePreds) *ForecastHandler {
	fc := usecase.NewForecaster(refs, preds, missingLoader{}, nil, usecase.SystemClock{}, nopMetrics{}, 5, nil)
	return NewForecastHandler(fc, refs, preds)
}

func doRequest(t *testing.T, h *ForecastHandler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func bodyStatus(t *testing.T, resp map[string]interface{}) int {
	t.Helper()
	s, ok := resp["status"].(float64)
	if !ok {
		t.Fatalf("response has no status: %v", resp)
	}
	return int(s)
}

func TestListPairs(t *testing.T) {
	h := newTestHandler(newFakeRefs("EURUSD", "GBPUSD"), &fakePreds{})
	code, resp := doRequest(t, h, http.MethodGet, "/api/currency_pairs", "")
	if code != http.StatusOK {
		t.Fatalf("http code: %d", code)
	}
	if bodyStatus(t, resp) != http.StatusOK {
		t.Fatalf("body status: %v", resp)
	}
	names, ok := resp["data"].([]interface{})
	if !ok || len(names) != 2 {
		t.Fatalf("expected 2 pairs, got %v", resp["data"])
	}
}

func TestAddSymbol(t *testing.T) {
	refs := newFakeRefs("EURUSD")
	h := newTestHandler(refs, &fakePreds{})

	_, resp := doRequest(t, h, http.MethodPost, "/api/symbol", `{"symbol":"gbpusd"}`)
	if bodyStatus(t, resp) != http.StatusCreated {
		t.Fatalf("create: %v", resp)
	}
	if _, ok := refs.pairs["GBPUSD"]; !ok {
		t.Fatalf("symbol not uppercased on create: %v", refs.pairs)
	}

	// duplicate
	_, resp = doRequest(t, h, http.MethodPost, "/api/symbol", `{"symbol":"GBPUSD"}`)
	if bodyStatus(t, resp) != http.StatusBadRequest {
		t.Fatalf("duplicate: %v", resp)
	}
}

func TestAddSymbolValidation(t *testing.T) {
	h := newTestHandler(newFakeRefs(), &fakePreds{})
	_, resp := doRequest(t, h, http.MethodPost, "/api/symbol", `{"symbol":"EU"}`)
	if bodyStatus(t, resp) != http.StatusBadRequest {
		t.Fatalf("short symbol accepted: %v", resp)
	}
}

func TestPredictValidation(t *testing.T) {
	h := newTestHandler(newFakeRefs("EURUSD"), &fakePreds{})

	// empty data series fails validation
	_, resp := doRequest(t, h, http.MethodPost, "/api/predict/EURUSD/h1", `{"data":[]}`)
	if bodyStatus(t, resp) != http.StatusBadRequest {
		t.Fatalf("empty data accepted: %v", resp)
	}

	// out of range sentiment score
	_, resp = doRequest(t, h, http.MethodPost, "/api/predict/EURUSD/h1",
		`{"data":[{"Open":1,"High":1,"Low":1,"Close":1,"Volume":1}],"sentimentScore":2}`)
	if bodyStatus(t, resp) != http.StatusBadRequest {
		t.Fatalf("out of range score accepted: %v", resp)
	}
}

func TestPredictUnknownPair(t *testing.T) {
	h := newTestHandler(newFakeRefs("EURUSD"), &fakePreds{})
	_, resp := doRequest(t, h, http.MethodPost, "/api/predict/XXXYYY/h1",
		`{"data":[{"Open":1,"High":1,"Low":1,"Close":1,"Volume":1}]}`)
	if bodyStatus(t, resp) != http.StatusBadRequest {
		t.Fatalf("unknown pair: %v", resp)
	}
}

func TestPredictMissingArtifact(t *testing.T) {
	h := newTestHandler(newFakeRefs("EURUSD"), &fakePreds{})
	bars := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		bars = append(bars, fmt.Sprintf(`{"Open":1,"High":1.1,"Low":0.9,"Close":%g,"Volume":100}`, 1.0+float64(i)*0.001))
	}
	body := `{"data":[` + strings.Join(bars, ",") + `]}`
	_, resp := doRequest(t, h, http.MethodPost, "/api/predict/EURUSD/h1", body)
	if bodyStatus(t, resp) != http.StatusNotFound {
		t.Fatalf("missing artifact: %v", resp)
	}
}

func TestStoredPredictions(t *testing.T) {
	preds := &fakePreds{points: []models.PredictionPoint{
		{Value: 1.101, TS: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)},
		{Value: 1.102, TS: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}}
	h := newTestHandler(newFakeRefs("EURUSD"), preds)

	_, resp := doRequest(t, h, http.MethodGet, "/api/predictions/EURUSD/h1?count=2", "")
	if bodyStatus(t, resp) != http.StatusOK {
		t.Fatalf("stored predictions: %v", resp)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %v", resp["data"])
	}
	plain, ok := data["lstm_predictions"].([]interface{})
	if !ok || len(plain) != 2 {
		t.Fatalf("expected 2 stored points, got %v", data["lstm_predictions"])
	}

	// unknown pair surfaces as a client error
	_, resp = doRequest(t, h, http.MethodGet, "/api/predictions/XXXYYY/h1", "")
	if bodyStatus(t, resp) != http.StatusBadRequest {
		t.Fatalf("unknown pair: %v", resp)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(newFakeRefs(), &fakePreds{})
	_, resp := doRequest(t, h, http.MethodGet, "/healthz", "")
	if bodyStatus(t, resp) != http.StatusOK {
		t.Fatalf("health: %v", resp)
	}

	h = newTestHandler(newFakeRefs(), &fakePreds{healthErr: fmt.Errorf("down")})
	_, resp = doRequest(t, h, http.MethodGet, "/healthz", "")
	if bodyStatus(t, resp) != http.StatusInternalServerError {
		t.Fatalf("unhealthy: %v", resp)
	}
}
