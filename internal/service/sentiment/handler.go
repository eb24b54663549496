package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	applogger "github.com/erpesh/forex-server/pkg/logger"
)

// ScoreMessage is the wire format published to the sentiment topic.
type ScoreMessage struct {
	Pair      string  `json:"pair"`
	Score     float64 `json:"score"`
	Timestamp int64   `json:"t"` // unix ms
}

// ScoreHandler consumes sentiment score messages and keeps the latest score
// per pair in the store. Scores outside [-1, 1] are rejected, not clamped.
type ScoreHandler struct {
	topic string
	store ScoreStore
	l     *applogger.Logger
}

func NewScoreHandler(topic string, store ScoreStore, l *applogger.Logger) *ScoreHandler {
	return &ScoreHandler{topic: topic, store: store, l: l}
}

func (h *ScoreHandler) Topic() string { return h.topic }

func (h *ScoreHandler) Handle(ctx context.Context, data []byte) error {
	var msg ScoreMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode sentiment message: %w", err)
	}
	if msg.Pair == "" {
		return fmt.Errorf("sentiment message missing pair")
	}
	if msg.Score < -1 || msg.Score > 1 {
		return fmt.Errorf("sentiment score %v out of range for %s", msg.Score, msg.Pair)
	}

	pair := strings.ToUpper(msg.Pair)
	at := time.UnixMilli(msg.Timestamp).UTC()
	if msg.Timestamp == 0 {
		at = time.Now().UTC()
	}
	if err := h.store.Put(ctx, pair, msg.Score, at); err != nil {
		return err
	}
	if h.l != nil {
		h.l.Debug("sentiment score stored",
			applogger.String("pair", pair),
			applogger.Any("score", msg.Score),
		)
	}
	return nil
}
