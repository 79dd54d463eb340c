package interlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists interaction records in PostgreSQL. Ids come from a
// dedicated sequence, so allocation is a single atomic reserve even when
// several sessions write against the same log. Sequences may leave gaps;
// monotonicity is the invariant that matters.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS interaction_ids START 1;`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			channel TEXT NOT NULL,
			utterance TEXT NOT NULL,
			sentiment TEXT NOT NULL DEFAULT '',
			tone TEXT NOT NULL DEFAULT '',
			intent TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_customer_ts ON interactions (customer_id, ts);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init interaction schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('interaction_ids')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("reserve interaction id: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interactions (id, customer_id, ts, channel, utterance, sentiment, tone, intent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID,
		rec.CustomerID,
		rec.Timestamp.UTC(),
		rec.Channel,
		rec.Utterance,
		rec.Sentiment,
		rec.Tone,
		rec.Intent,
	)
	if err != nil {
		return fmt.Errorf("append interaction record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
