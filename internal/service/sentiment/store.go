package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	domsvc "github.com/erpesh/forex-server/internal/domain/service"
)

// ScoreStore keeps the latest ingested sentiment score per pair.
type ScoreStore interface {
	domsvc.SentimentSource
	Put(ctx context.Context, pair string, score float64, at time.Time) error
}

const scoreKeyPrefix = "sentiment:score:"

// RedisScoreStore holds scores in Redis with a TTL, so a pair that stops
// receiving sentiment falls back to the plain forecast instead of reusing
// an arbitrarily old score.
type RedisScoreStore struct {
	cli *redis.Client
	ttl time.Duration
}

func NewRedisScoreStore(cli *redis.Client, ttl time.Duration) *RedisScoreStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisScoreStore{cli: cli, ttl: ttl}
}

func (s *RedisScoreStore) Put(ctx context.Context, pair string, score float64, at time.Time) error {
	key := scoreKeyPrefix + pair
	val := strconv.FormatFloat(score, 'g', -1, 64)
	if err := s.cli.Set(ctx, key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("store sentiment score %s: %w", pair, err)
	}
	return nil
}

func (s *RedisScoreStore) Latest(ctx context.Context, pair string) (float64, bool, error) {
	val, err := s.cli.Get(ctx, scoreKeyPrefix+pair).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read sentiment score %s: %w", pair, err)
	}
	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse sentiment score %s: %w", pair, err)
	}
	return score, true, nil
}

// MemoryScoreStore is an in-process ScoreStore for single-node deployments
// and tests.
type MemoryScoreStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	scores map[string]memScore
}

type memScore struct {
	value   float64
	expires time.Time
}

func NewMemoryScoreStore(ttl time.Duration) *MemoryScoreStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryScoreStore{ttl: ttl, scores: make(map[string]memScore)}
}

func (s *MemoryScoreStore) Put(_ context.Context, pair string, score float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[pair] = memScore{value: score, expires: at.Add(s.ttl)}
	return nil
}

func (s *MemoryScoreStore) Latest(_ context.Context, pair string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[pair]
	if !ok || time.Now().After(sc.expires) {
		return 0, false, nil
	}
	return sc.value, true, nil
}

var (
	_ ScoreStore = (*RedisScoreStore)(nil)
	_ ScoreStore = (*MemoryScoreStore)(nil)
)
