package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	pkgkafka "github.com/erpesh/forex-server/pkg/kafka"
	applogger "github.com/erpesh/forex-server/pkg/logger"
)

// Feed streams sentiment scores from a provider WebSocket and republishes
// them to the sentiment Kafka topic, keyed by pair so per-pair ordering is
// preserved through the broker.
type Feed struct {
	apiKey         string
	websocketURL   string
	pairs          []string
	topic          string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	producer *pkgkafka.Producer
	l        *applogger.Logger

	conn *websocket.Conn
}

type FeedConfig struct {
	APIKey         string
	WebsocketURL   string
	Pairs          []string
	Topic          string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

func NewFeed(cfg FeedConfig, producer *pkgkafka.Producer, l *applogger.Logger) *Feed {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Feed{
		apiKey:         cfg.APIKey,
		websocketURL:   cfg.WebsocketURL,
		pairs:          cfg.Pairs,
		topic:          cfg.Topic,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		producer:       producer,
		l:              l,
	}
}

func (f *Feed) connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", f.websocketURL, f.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("sentiment feed connect: %w", err)
	}
	f.conn = conn

	for _, p := range f.pairs {
		msg := map[string]string{"type": "subscribe", "symbol": p}
		if err := conn.WriteJSON(msg); err != nil {
			_ = conn.Close()
			return fmt.Errorf("subscribe %s: %w", p, err)
		}
	}
	f.l.Info("sentiment feed connected",
		applogger.String("url", f.websocketURL),
		applogger.Int("pairs", len(f.pairs)),
	)
	return nil
}

type feedFrame struct {
	Type string         `json:"type"`
	Data []feedDataItem `json:"data"`
}

type feedDataItem struct {
	Symbol string  `json:"s"`
	Score  float64 `json:"score"`
	T      int64   `json:"t"` // ms
}

// Run connects and pumps frames until the context is cancelled, reconnecting
// after read failures.
func (f *Feed) Run(ctx context.Context) {
	for {
		if err := f.connect(ctx); err != nil {
			f.l.Warn("sentiment feed connect failed", applogger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.reconnectDelay):
				continue
			}
		}

		err := f.pump(ctx)
		_ = f.Close()
		if ctx.Err() != nil {
			return
		}
		f.l.Warn("sentiment feed disconnected, reconnecting", applogger.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *Feed) pump(ctx context.Context) error {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, b, err := f.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("sentiment feed read: %w", err)
		}
		var frame feedFrame
		if err := json.Unmarshal(b, &frame); err != nil {
			// ignore non-JSON frames
			continue
		}
		if frame.Type != "sentiment" {
			continue
		}
		for _, d := range frame.Data {
			msg := ScoreMessage{Pair: d.Symbol, Score: d.Score, Timestamp: d.T}
			if err := f.producer.Publish(ctx, f.topic, []byte(d.Symbol), msg); err != nil {
				f.l.Warn("sentiment publish failed",
					applogger.String("pair", d.Symbol),
					applogger.Error(err),
				)
			}
		}
	}
}

// Close closes the WebSocket connection.
func (f *Feed) Close() error {
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
