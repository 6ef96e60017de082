package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/menu-scout/internal/model"
)

// SQLite implements Store using modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: database path is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	total      INTEGER NOT NULL DEFAULT 0,
	done       INTEGER NOT NULL DEFAULT 0,
	header     TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Put(ctx context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return eris.New("sqlite: record id is required")
	}
	r.touch(time.Now().UTC())
	cols, rows, err := marshalTable(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal table")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, total, done, header, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			done = excluded.done,
			header = excluded.header,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		r.ID, string(r.Status), r.Total, r.Done, string(cols), string(rows), r.CreatedAt, r.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert job %s", r.ID)
}

func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, total, done, header, body, created_at, updated_at FROM jobs WHERE id = ?`, id)

	var (
		r          Record
		status     string
		cols, rows string
	)
	err := row.Scan(&r.ID, &status, &r.Total, &r.Done, &cols, &rows, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	r.Status = model.JobStatus(status)
	if err := unmarshalTable(&r, []byte(cols), []byte(rows)); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode job %s", id)
	}
	return &r, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete job %s", id)
}

func marshalTable(r *Record) ([]byte, []byte, error) {
	cols := r.Columns
	if cols == nil {
		cols = []string{}
	}
	rows := r.Rows
	if rows == nil {
		rows = [][]string{}
	}
	c, err := json.Marshal(cols)
	if err != nil {
		return nil, nil, err
	}
	rw, err := json.Marshal(rows)
	if err != nil {
		return nil, nil, err
	}
	return c, rw, nil
}

func unmarshalTable(r *Record, cols, rows []byte) error {
	if err := json.Unmarshal(cols, &r.Columns); err != nil {
		return err
	}
	if err := json.Unmarshal(rows, &r.Rows); err != nil {
		return err
	}
	if len(r.Columns) == 0 {
		r.Columns = nil
	}
	if len(r.Rows) == 0 {
		r.Rows = nil
	}
	return nil
}
