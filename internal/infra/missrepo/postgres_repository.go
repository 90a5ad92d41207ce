package missrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
)

const schema = `
	CREATE TABLE IF NOT EXISTS qna_misses (
		id         BIGSERIAL PRIMARY KEY,
		query      TEXT NOT NULL,
		outcome    TEXT NOT NULL,
		top_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS qna_misses_created_at_idx ON qna_misses (created_at DESC);
`

// PostgresRepository implements qnabot.MissRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the misses table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// RecordMiss inserts a miss row.
func (r *PostgresRepository) RecordMiss(ctx context.Context, miss qnabot.Miss) (qnabot.Miss, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO qna_misses (query, outcome, top_score, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, query, outcome, top_score, created_at
	`, miss.Query, string(miss.Outcome), miss.TopScore, miss.CreatedAt)
	return scanMiss(row)
}

// RecentMisses returns the newest misses first.
func (r *PostgresRepository) RecentMisses(ctx context.Context, limit int) ([]qnabot.Miss, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, query, outcome, top_score, created_at
		FROM qna_misses
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []qnabot.Miss
	for rows.Next() {
		miss, err := scanMiss(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, miss)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMiss(row rowScanner) (qnabot.Miss, error) {
	var (
		miss    qnabot.Miss
		outcome string
	)
	if err := row.Scan(&miss.ID, &miss.Query, &outcome, &miss.TopScore, &miss.CreatedAt); err != nil {
		return qnabot.Miss{}, err
	}
	miss.Outcome = qnabot.MissOutcome(outcome)
	return miss, nil
}

var _ qnabot.MissRepository = (*PostgresRepository)(nil)
