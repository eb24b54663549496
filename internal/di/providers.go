package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "github.com/erpesh/forex-server/internal/domain/repository"
	domsvc "github.com/erpesh/forex-server/internal/domain/service"
	"github.com/erpesh/forex-server/internal/handler/api"
	internalrepo "github.com/erpesh/forex-server/internal/repository"
	"github.com/erpesh/forex-server/internal/service/artifact"
	icache "github.com/erpesh/forex-server/internal/service/cache"
	"github.com/erpesh/forex-server/internal/service/forecast"
	"github.com/erpesh/forex-server/internal/service/sentiment"
	"github.com/erpesh/forex-server/internal/usecase"
	pkgch "github.com/erpesh/forex-server/pkg/clickhouse"
	"github.com/erpesh/forex-server/pkg/config"
	xhttp "github.com/erpesh/forex-server/pkg/http"
	pkgkafka "github.com/erpesh/forex-server/pkg/kafka"
	applogger "github.com/erpesh/forex-server/pkg/logger"
	"github.com/erpesh/forex-server/pkg/metrics"
	"github.com/erpesh/forex-server/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideReferenceStore creates the reference store and seeds it.
func ProvideReferenceStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) (domrepo.ReferenceStore, error) {
	store := internalrepo.NewCHReferenceStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Seed(ctx, cfg.Forecast.Pairs); err != nil {
		return nil, fmt.Errorf("seed references: %w", err)
	}
	return store, nil
}

// ProvidePredictionStore creates the prediction store.
func ProvidePredictionStore(chClient *pkgch.Client, l *applogger.Logger) domrepo.PredictionStore {
	store := internalrepo.NewCHPredictionStore(chClient, internalrepo.PredictionsTable)
	store.SetLogger(l)
	return store
}

// ProvideArtifactLoader creates the model artifact loader.
func ProvideArtifactLoader(cfg *config.Config) domsvc.ArtifactLoader {
	return artifact.NewLoader(cfg.Forecast.ArtifactsDir)
}

// ProvideScoreStore creates the sentiment score store. Redis keeps scores
// shared between replicas; without it scores stay in process memory.
func ProvideScoreStore(cfg *config.Config) sentiment.ScoreStore {
	if cfg.Redis.Enabled {
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return sentiment.NewRedisScoreStore(cli, cfg.Sentiment.ScoreTTL)
	}
	return sentiment.NewMemoryScoreStore(cfg.Sentiment.ScoreTTL)
}

// ProvideKafkaProducer creates a Kafka producer for the sentiment topic.
// Returns nil when the feed is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Sentiment.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the sentiment topic consumer. Returns nil
// when the feed is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Sentiment.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideScoreHandler creates the Kafka handler that stores sentiment scores.
func ProvideScoreHandler(cfg *config.Config, store sentiment.ScoreStore, l *applogger.Logger) *sentiment.ScoreHandler {
	return sentiment.NewScoreHandler(cfg.Kafka.SentimentTopic, store, l)
}

// ProvideSentimentFeed creates the provider WebSocket feed. Returns nil when
// the feed is disabled.
func ProvideSentimentFeed(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) *sentiment.Feed {
	if !cfg.Sentiment.Enabled || producer == nil {
		return nil
	}
	return sentiment.NewFeed(sentiment.FeedConfig{
		APIKey:         cfg.Sentiment.APIKey,
		WebsocketURL:   cfg.Sentiment.WebSocketURL,
		Pairs:          cfg.Sentiment.Pairs,
		Topic:          cfg.Kafka.SentimentTopic,
		ReconnectDelay: cfg.Sentiment.ReconnectDelay,
		PingInterval:   cfg.Sentiment.PingInterval,
	}, producer, l)
}

// ProvideForecaster creates the forecast controller.
func ProvideForecaster(
	refs domrepo.ReferenceStore,
	preds domrepo.PredictionStore,
	artifacts domsvc.ArtifactLoader,
	scores sentiment.ScoreStore,
	m domrepo.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Forecaster {
	weight := cfg.Forecast.SentimentWeight
	if weight == 0 {
		weight = forecast.DefaultSentimentWeight
	}
	fc := usecase.NewForecaster(
		refs,
		preds,
		artifacts,
		forecast.ScaledLinearStrategy(weight),
		usecase.SystemClock{},
		m,
		cfg.Forecast.Steps,
		l,
	)
	fc.SetSentimentSource(scores)
	return fc
}

// ProvideForecastHandler creates the HTTP handler with response caching.
func ProvideForecastHandler(
	fc *usecase.Forecaster,
	refs domrepo.ReferenceStore,
	preds domrepo.PredictionStore,
	cfg *config.Config,
	l *applogger.Logger,
) xhttp.Handler {
	h := api.NewForecastHandler(fc, refs, preds)
	h.SetLogger(l)
	if cfg.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	scores *sentiment.ScoreHandler,
	feed *sentiment.Feed,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	var kh pkgkafka.MessageHandler
	if consumer != nil {
		kh = scores
	}
	return server.New(cfg, l, handler, consumer, kh, feed, producer, chClient)
}
