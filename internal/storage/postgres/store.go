package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammOracle/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS oracle_observations (
		pool_address     TEXT NOT NULL,
		selector         SMALLINT NOT NULL,
		observed_at      BIGINT NOT NULL,
		cumulative_price NUMERIC(78, 0) NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pool_address, selector, observed_at)
	)`,
	`CREATE INDEX IF NOT EXISTS oracle_observations_latest
		ON oracle_observations (pool_address, selector, observed_at DESC)`,
}

// Store persists observations in Postgres. Rows are only ever inserted.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the observations table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range schema {
		batch.Queue(stmt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range schema {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Load returns the most recent observation for key.
func (s *Store) Load(ctx context.Context, key model.ObservationKey) (model.Observation, bool, error) {
	var (
		observedAt int64
		cumulative string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT observed_at, cumulative_price::text
		FROM oracle_observations
		WHERE pool_address = $1 AND selector = $2
		ORDER BY observed_at DESC
		LIMIT 1
	`, poolKey(key.Pool), int16(key.Selector))
	if err := row.Scan(&observedAt, &cumulative); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Observation{}, false, nil
		}
		return model.Observation{}, false, err
	}

	word, err := model.ParseWord(cumulative)
	if err != nil {
		return model.Observation{}, false, fmt.Errorf("scan cumulative price: %w", err)
	}
	return model.Observation{
		Pool:            key.Pool,
		Selector:        key.Selector,
		CumulativePrice: word,
		Timestamp:       uint64(observedAt),
	}, true, nil
}

// Save inserts obs. A row already present for the same timestamp is kept.
func (s *Store) Save(ctx context.Context, obs model.Observation) error {
	cumulative := "0"
	if obs.CumulativePrice != nil {
		cumulative = obs.CumulativePrice.ToBig().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oracle_observations (pool_address, selector, observed_at, cumulative_price, created_at)
		VALUES ($1, $2, $3, $4::numeric, now())
		ON CONFLICT (pool_address, selector, observed_at) DO NOTHING
	`, poolKey(obs.Pool), int16(obs.Selector), int64(obs.Timestamp), cumulative)
	return err
}

func poolKey(pool common.Address) string {
	return strings.ToLower(pool.Hex())
}
