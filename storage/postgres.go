package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rithiksai/scribble-game/logger"
)

var ErrUnexpectedDatabase = errors.New("unexpected-database-error")

const queryTimeout = 2 * time.Second

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(err)
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

// RandomWords picks up to count distinct words at random.
func (pgr *PostgresRepo) RandomWords(ctx context.Context, count int) ([]string, error) {
	rows, err := pgr.pool.Query(ctx, `SELECT word FROM words ORDER BY RANDOM() LIMIT $1`, count)
	if err != nil {
		return nil, classify(err)
	}

	words, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}
	return words, nil
}

// Generate implements game.RandomWordsGenerator. Failures are logged and
// yield an empty slice.
func (pgr *PostgresRepo) Generate(count int) []string {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	words, err := pgr.RandomWords(ctx, count)
	if err != nil {
		logger.Warningf("[storage] random words: %v", err)
		return []string{}
	}
	return words
}

// AddWords inserts words, skipping the ones already stored. It returns how
// many were new.
func (pgr *PostgresRepo) AddWords(ctx context.Context, words ...string) (int64, error) {
	batch := &pgx.Batch{}
	for _, w := range words {
		batch.Queue(`INSERT INTO words(word) VALUES($1) ON CONFLICT (word) DO NOTHING`, w)
	}

	results := pgr.pool.SendBatch(ctx, batch)
	defer results.Close()

	var added int64
	for range words {
		tag, err := results.Exec()
		if err != nil {
			return added, classify(err)
		}
		added += tag.RowsAffected()
	}
	return added, nil
}

func (pgr *PostgresRepo) CountWords(ctx context.Context) (int, error) {
	var n int
	if err := pgr.pool.QueryRow(ctx, `SELECT COUNT(*) FROM words`).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
}
