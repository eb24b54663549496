package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erpesh/forex-server/internal/domain/models"
	domrepo "github.com/erpesh/forex-server/internal/domain/repository"
	pkgch "github.com/erpesh/forex-server/pkg/clickhouse"
	applogger "github.com/erpesh/forex-server/pkg/logger"
)

// CHPredictionStore implements PredictionStore backed by ClickHouse. The
// predictions table is a ReplacingMergeTree keyed by (pair_id, period_id,
// model_id, ts) versioned by updated_at, so UpsertPrediction is a plain
// insert with last-writer-wins semantics and reads use FINAL.
type CHPredictionStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, table string) *CHPredictionStore {
	return &CHPredictionStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPredictionStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPredictionStore) GetPredictionsInRange(ctx context.Context, pairID, periodID, modelID uint32, from time.Time, count int) ([]models.PredictionPoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, value, anchor
        FROM %s FINAL
        WHERE pair_id = ? AND period_id = ? AND model_id = ? AND ts >= ?
        ORDER BY ts ASC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, pairID, periodID, modelID, from, count)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse predictions_range query error",
				applogger.Uint("pair_id", uint(pairID)),
				applogger.Uint("model_id", uint(modelID)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get predictions: %w", err)
	}
	defer rows.Close()

	out := make([]models.PredictionPoint, 0, count)
	for rows.Next() {
		var p models.PredictionPoint
		if err := rows.Scan(&p.TS, &p.Value, &p.Anchor); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.TS = p.TS.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse predictions_range ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHPredictionStore) GetPredictionAt(ctx context.Context, pairID, periodID, modelID uint32, ts time.Time) (models.PredictionPoint, bool, error) {
	q := fmt.Sprintf(`
        SELECT ts, value, anchor
        FROM %s FINAL
        WHERE pair_id = ? AND period_id = ? AND model_id = ? AND ts = ?
        LIMIT 1
    `, s.table)
	var p models.PredictionPoint
	err := s.db.QueryRowContext(ctx, q, pairID, periodID, modelID, ts).Scan(&p.TS, &p.Value, &p.Anchor)
	if err == sql.ErrNoRows {
		return models.PredictionPoint{}, false, nil
	}
	if err != nil {
		return models.PredictionPoint{}, false, fmt.Errorf("get prediction at %v: %w", ts, err)
	}
	p.TS = p.TS.UTC()
	return p, true, nil
}

func (s *CHPredictionStore) UpsertPrediction(ctx context.Context, key models.PredictionKey, value, anchor float64) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (pair_id, period_id, model_id, ts, value, anchor, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	_, err := s.db.ExecContext(ctx, q, key.PairID, key.PeriodID, key.ModelID, key.TS, value, anchor, time.Now().UTC())
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse upsert_prediction error",
				applogger.Uint("pair_id", uint(key.PairID)),
				applogger.Uint("model_id", uint(key.ModelID)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

func (s *CHPredictionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ domrepo.PredictionStore = (*CHPredictionStore)(nil)
