// Package store persists bulk job records: status, counts and the export
// table. Live job state (event streams, in-flight items) is never stored.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-scout/internal/model"
)

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = eris.New("store: job not found")

// Record is the persisted view of a bulk job.
type Record struct {
	ID        string          `json:"id"`
	Status    model.JobStatus `json:"status"`
	Total     int             `json:"total"`
	Done      int             `json:"done"`
	Columns   []string        `json:"columns,omitempty"`
	Rows      [][]string      `json:"rows,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store defines job record persistence.
type Store interface {
	// Put inserts or replaces the record with r.ID.
	Put(ctx context.Context, r *Record) error
	// Get returns ErrNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*Record, error)
	// Delete removes the record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Open creates the backend named by opts.Driver and runs its migrations.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case "", DriverMemory:
		s = NewMemory()
	case DriverRedis:
		s, err = NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			TTL:      opts.TTL,
		})
	case DriverSQLite:
		s, err = NewSQLite(opts.DatabaseURL)
	case DriverPostgres:
		s, err = NewPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (r *Record) clone() *Record {
	out := *r
	out.Columns = append([]string(nil), r.Columns...)
	if r.Rows != nil {
		out.Rows = make([][]string, len(r.Rows))
		for i, row := range r.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return &out
}

// touch stamps timestamps before a write.
func (r *Record) touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}
