package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/erpesh/forex-server/internal/domain/models"
	domrepo "github.com/erpesh/forex-server/internal/domain/repository"
	icache "github.com/erpesh/forex-server/internal/service/cache"
	"github.com/erpesh/forex-server/internal/service/metrics"
	"github.com/erpesh/forex-server/internal/service/ratelimit"
	"github.com/erpesh/forex-server/internal/usecase"
	xhttp "github.com/erpesh/forex-server/pkg/http"
	applogger "github.com/erpesh/forex-server/pkg/logger"
)

const pairsCacheKey = "api:currency_pairs"

// ForecastHandler serves the prediction and reference endpoints.
type ForecastHandler struct {
	fc    *usecase.Forecaster
	refs  domrepo.ReferenceStore
	preds domrepo.PredictionStore
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewForecastHandler(fc *usecase.Forecaster, refs domrepo.ReferenceStore, preds domrepo.PredictionStore) *ForecastHandler {
	metrics.Register()
	return &ForecastHandler{fc: fc, refs: refs, preds: preds, rl: ratelimit.New()}
}

func (h *ForecastHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ForecastHandler) SetLogger(l *applogger.Logger) { h.l = l }

// RegisterRoutes registers API routes.
func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/predict/:pair/:period", h.Predict)
	e.GET("/api/predictions/:pair/:period", h.StoredPredictions)
	e.GET("/api/currency_pairs", h.ListPairs)
	e.POST("/api/symbol", h.AddSymbol)
	e.GET("/healthz", h.Health)
}

// Predict runs or serves the multi-step forecast for a pair and period.
func (h *ForecastHandler) Predict(c echo.Context) error {
	start := time.Now()
	endpoint := "predict"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":predict", 10, 5) {
		if h.l != nil {
			h.l.Warn("predict rate_limited", applogger.String("remote", c.RealIP()))
		}
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", 429))
	}

	req := new(models.PredictRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pair := c.Param("pair")
	period := c.Param("period")
	result, err := h.fc.Predict(c.Request().Context(), pair, period, req.Data, req.SentimentScore)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("predict error",
				applogger.String("pair", pair),
				applogger.String("period", period),
				applogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, result)
}

// StoredPredictions returns previously persisted forecast points without
// recomputing, from an optional ?from timestamp (default now) and ?count.
func (h *ForecastHandler) StoredPredictions(c echo.Context) error {
	start := time.Now()
	endpoint := "predictions"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	ctx := c.Request().Context()
	pair, err := h.refs.GetCurrencyPair(ctx, strings.ToUpper(c.Param("pair")))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	period, err := h.refs.GetPeriod(ctx, strings.ToLower(c.Param("period")))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}

	from := xhttp.ParseTimeDefault(c.QueryParam("from"), time.Now().UTC())
	count := xhttp.ParseIntDefault(c.QueryParam("count"), usecase.DefaultSteps)
	if count < 1 {
		count = 1
	}
	if count > 100 {
		count = 100
	}

	result := models.ForecastResult{}
	for _, variant := range []struct {
		name string
		dst  *[]models.PredictionPoint
	}{
		{models.ModelLSTM, &result.Plain},
		{models.ModelLSTMSentiment, &result.Sentiment},
	} {
		model, err := h.refs.GetModel(ctx, variant.name)
		if err != nil {
			return xhttp.AppErrorResponse(c, err)
		}
		points, err := h.preds.GetPredictionsInRange(ctx, pair.ID, period.ID, model.ID, from, count)
		if err != nil {
			metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("predictions read error", applogger.String("pair", pair.Name), applogger.Error(err))
			}
			return xhttp.AppErrorResponse(c, err)
		}
		*variant.dst = points
	}
	return xhttp.SuccessResponse(c, result)
}

// ListPairs returns supported currency pairs.
func (h *ForecastHandler) ListPairs(c echo.Context) error {
	start := time.Now()
	endpoint := "currency_pairs"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(pairsCacheKey); err != nil {
			if h.l != nil {
				h.l.Warn("currency_pairs cache_get_error", applogger.Error(err))
			}
		} else if ok && len(b) > 0 {
			return c.JSONBlob(200, b)
		}
	}

	pairs, err := h.refs.ListCurrencyPairs(c.Request().Context())
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("currency_pairs error", applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.Name)
	}

	resp := xhttp.APIResponse{Status: 200, Message: "OK", Data: names}
	if h.cache != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := h.cache.SetBytes(pairsCacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("currency_pairs cache_set_error", applogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, names)
}

// AddSymbol registers a new currency pair.
func (h *ForecastHandler) AddSymbol(c echo.Context) error {
	start := time.Now()
	endpoint := "symbol"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := new(models.AddSymbolRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	name := strings.ToUpper(req.Symbol)
	pair, err := h.refs.CreateCurrencyPair(c.Request().Context(), name)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("symbol create error", applogger.String("symbol", name), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	if h.cache != nil {
		// drop the stale pair list
		_ = h.cache.SetBytes(pairsCacheKey, nil, time.Millisecond)
	}
	if h.l != nil {
		h.l.Info("currency pair registered", applogger.String("symbol", name))
	}
	return xhttp.CreatedResponse(c, pair)
}

// Health reports storage reachability.
func (h *ForecastHandler) Health(c echo.Context) error {
	if err := h.preds.Health(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("storage unavailable: %v", err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrUnsupportedCurrencyPair),
		errors.Is(err, models.ErrUnsupportedPeriod),
		errors.Is(err, models.ErrInsufficientHistory),
		errors.Is(err, models.ErrPairExists):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrArtifactNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	default:
		return err
	}
}
