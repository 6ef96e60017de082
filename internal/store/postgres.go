package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-scout/internal/model"
)

// Pool is the subset of pgxpool.Pool used by Postgres.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements Store using pgxpool. Tables are stored as JSONB.
type Postgres struct {
	pool Pool
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	if connString == "" {
		return nil, eris.New("postgres: database url is required")
	}
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scout_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	total      INTEGER NOT NULL DEFAULT 0,
	done       INTEGER NOT NULL DEFAULT 0,
	header     JSONB NOT NULL DEFAULT '[]',
	body       JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scout_jobs_status ON scout_jobs(status);
`

func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) Put(ctx context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return eris.New("postgres: record id is required")
	}
	r.touch(time.Now().UTC())
	cols, rows, err := marshalTable(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal table")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scout_jobs (id, status, total, done, header, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			done = EXCLUDED.done,
			header = EXCLUDED.header,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at`,
		r.ID, string(r.Status), r.Total, r.Done, cols, rows, r.CreatedAt, r.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert job %s", r.ID)
}

func (s *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	var (
		r          Record
		status     string
		cols, rows []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, total, done, header, body, created_at, updated_at FROM scout_jobs WHERE id = $1`, id,
	).Scan(&r.ID, &status, &r.Total, &r.Done, &cols, &rows, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	r.Status = model.JobStatus(status)
	if err := unmarshalTable(&r, cols, rows); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode job %s", id)
	}
	return &r, nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM scout_jobs WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete job %s", id)
}
