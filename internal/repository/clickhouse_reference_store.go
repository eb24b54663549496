package repository

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/erpesh/forex-server/internal/domain/models"
	domrepo "github.com/erpesh/forex-server/internal/domain/repository"
	pkgch "github.com/erpesh/forex-server/pkg/clickhouse"
	applogger "github.com/erpesh/forex-server/pkg/logger"
)

// CHReferenceStore serves the currency pair, period and model reference
// tables. Rows are keyed by a deterministic FNV-1a hash of the name, so
// concurrent inserts of the same name converge on one id and seeding on
// startup is idempotent.
type CHReferenceStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHReferenceStore(ch *pkgch.Client) *CHReferenceStore {
	return &CHReferenceStore{db: ch.DB()}
}

func (s *CHReferenceStore) SetLogger(l *applogger.Logger) { s.l = l }

// ReferenceID hashes a reference name to its row id.
func ReferenceID(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

func (s *CHReferenceStore) GetCurrencyPair(ctx context.Context, name string) (models.CurrencyPair, error) {
	var p models.CurrencyPair
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM currency_pairs FINAL WHERE name = ? LIMIT 1", name,
	).Scan(&p.ID, &p.Name)
	if err == sql.ErrNoRows {
		return models.CurrencyPair{}, fmt.Errorf("%w: %s", models.ErrUnsupportedCurrencyPair, name)
	}
	if err != nil {
		return models.CurrencyPair{}, fmt.Errorf("get currency pair %q: %w", name, err)
	}
	return p, nil
}

func (s *CHReferenceStore) ListCurrencyPairs(ctx context.Context) ([]models.CurrencyPair, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM currency_pairs FINAL ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list currency pairs: %w", err)
	}
	defer rows.Close()

	var out []models.CurrencyPair
	for rows.Next() {
		var p models.CurrencyPair
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan currency pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHReferenceStore) CreateCurrencyPair(ctx context.Context, name string) (models.CurrencyPair, error) {
	if _, err := s.GetCurrencyPair(ctx, name); err == nil {
		return models.CurrencyPair{}, fmt.Errorf("%w: %s", models.ErrPairExists, name)
	}
	pair := models.CurrencyPair{ID: ReferenceID(name), Name: name}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO currency_pairs (id, name, updated_at) VALUES (?, ?, ?)",
		pair.ID, pair.Name, time.Now().UTC(),
	)
	if err != nil {
		return models.CurrencyPair{}, fmt.Errorf("create currency pair %q: %w", name, err)
	}
	if s.l != nil {
		s.l.Info("currency pair created",
			applogger.String("name", name),
			applogger.Uint("id", uint(pair.ID)),
		)
	}
	return pair, nil
}

func (s *CHReferenceStore) GetPeriod(ctx context.Context, name string) (models.PeriodRecord, error) {
	var p models.PeriodRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM periods FINAL WHERE name = ? LIMIT 1", name,
	).Scan(&p.ID, &p.Name)
	if err == sql.ErrNoRows {
		return models.PeriodRecord{}, fmt.Errorf("%w: %s", models.ErrUnsupportedPeriod, name)
	}
	if err != nil {
		return models.PeriodRecord{}, fmt.Errorf("get period %q: %w", name, err)
	}
	return p, nil
}

func (s *CHReferenceStore) GetModel(ctx context.Context, name string) (models.PredictionModel, error) {
	var m models.PredictionModel
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM prediction_models FINAL WHERE name = ? LIMIT 1", name,
	).Scan(&m.ID, &m.Name)
	if err == sql.ErrNoRows {
		return models.PredictionModel{}, fmt.Errorf("prediction model %q not seeded", name)
	}
	if err != nil {
		return models.PredictionModel{}, fmt.Errorf("get model %q: %w", name, err)
	}
	return m, nil
}

// Seed inserts the reference rows the service depends on. ReplacingMergeTree
// collapses duplicates, so rerunning on every startup is safe.
func (s *CHReferenceStore) Seed(ctx context.Context, pairs []string) error {
	now := time.Now().UTC()
	for _, name := range pairs {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO currency_pairs (id, name, updated_at) VALUES (?, ?, ?)",
			ReferenceID(name), name, now,
		)
		if err != nil {
			return fmt.Errorf("seed pair %q: %w", name, err)
		}
	}
	for _, name := range []string{string(domrepo.PeriodH1), string(domrepo.PeriodD1)} {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO periods (id, name, updated_at) VALUES (?, ?, ?)",
			ReferenceID(name), name, now,
		)
		if err != nil {
			return fmt.Errorf("seed period %q: %w", name, err)
		}
	}
	for _, name := range []string{models.ModelLSTM, models.ModelLSTMSentiment} {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO prediction_models (id, name, updated_at) VALUES (?, ?, ?)",
			ReferenceID(name), name, now,
		)
		if err != nil {
			return fmt.Errorf("seed model %q: %w", name, err)
		}
	}
	if s.l != nil {
		s.l.Info("reference tables seeded", applogger.Int("pairs", len(pairs)))
	}
	return nil
}

var _ domrepo.ReferenceStore = (*CHReferenceStore)(nil)
