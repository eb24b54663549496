package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erpesh/forex-server/internal/service/sentiment"
	pkgch "github.com/erpesh/forex-server/pkg/clickhouse"
	"github.com/erpesh/forex-server/pkg/config"
	xhttp "github.com/erpesh/forex-server/pkg/http"
	pkgkafka "github.com/erpesh/forex-server/pkg/kafka"
	applogger "github.com/erpesh/forex-server/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP API, the sentiment
// feed and its Kafka consumer, and graceful shutdown of all clients.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	consumer   *pkgkafka.Consumer
	scores     pkgkafka.MessageHandler
	feed       *sentiment.Feed
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	scores pkgkafka.MessageHandler,
	feed *sentiment.Feed,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		handler:  handler,
		consumer: consumer,
		scores:   scores,
		feed:     feed,
		producer: producer,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Aggregate error logs through the broker when one is available.
	if a.producer != nil {
		a.l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "forex.logs",
			Publisher:      a.producer,
		})
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.consumer != nil && a.scores != nil {
		a.consumer.RegisterHandler(a.scores)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.scores.Topic()))
	}

	if a.feed != nil {
		go a.feed.Run(ctx)
		a.l.Info("sentiment feed started", applogger.Strings("pairs", a.cfg.Sentiment.Pairs))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.feed != nil {
		if err := a.feed.Close(); err != nil {
			a.l.Warn("sentiment feed close error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Flush collected logs before the producer goes away.
	a.l.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
