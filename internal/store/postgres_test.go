package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-scout/internal/model"
)

// newMockPostgres creates a Postgres store backed by pgxmock.
func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &Postgres{pool: mock}, mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS scout_jobs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Put_Upsert(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`INSERT INTO scout_jobs .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("job-1", "processing", 2, 0,
			[]byte(`["Restaurant Name","Location"]`), []byte(`[]`),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Put(context.Background(), sampleRecord()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "status", "total", "done", "header", "body", "created_at", "updated_at"}).
		AddRow("job-1", "completed", 1, 1, []byte(`["Restaurant Name"]`), []byte(`[["Pizza Hut"]]`), now, now)
	mock.ExpectQuery(`SELECT id, status, total, done, header, body, created_at, updated_at FROM scout_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(rows)

	got, err := s.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.Equal(t, []string{"Restaurant Name"}, got.Columns)
	assert.Equal(t, [][]string{{"Pizza Hut"}}, got.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`FROM scout_jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Delete(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`DELETE FROM scout_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "job-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
