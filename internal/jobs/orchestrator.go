// Package jobs runs bulk jobs: one item pipeline per entity behind a
// concurrency gate, with a shared progress stream per job.
package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/monitoring"
	"github.com/sells-group/menu-scout/internal/pipeline"
	"github.com/sells-group/menu-scout/internal/store"
	"github.com/sells-group/menu-scout/internal/tabular"
)

var (
	// ErrJobNotFound is returned for ids that are neither live nor stored.
	ErrJobNotFound = eris.New("jobs: job not found")
	// ErrNotReady is returned by Export while the job is still processing.
	ErrNotReady = eris.New("jobs: job not ready")
)

// Concurrency bounds.
const (
	DefaultConcurrency = 8
	MaxConcurrency     = 8
)

// Runner drives a single item to a terminal status.
type Runner interface {
	Run(ctx context.Context, item *pipeline.Item, emit pipeline.Emit)
}

// Config configures an Orchestrator.
type Config struct {
	// Concurrency is the number of item pipelines allowed in flight per job.
	Concurrency int
	// Retention keeps completed jobs live for streaming. Zero keeps them
	// until discarded.
	Retention time.Duration
}

// Job is a live bulk job.
type Job struct {
	ID        string
	Columns   []string
	Items     []*pipeline.Item
	CreatedAt time.Time

	stream    *Stream
	done      atomic.Int64
	discarded atomic.Bool

	mu     sync.Mutex
	status model.JobStatus
	table  *tabular.Table
}

// Status returns the job status.
func (j *Job) Status() model.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Info summarises job progress.
type Info struct {
	ID     string          `json:"job_id"`
	Status model.JobStatus `json:"status"`
	Total  int             `json:"total"`
	Done   int             `json:"processed"`
}

func (j *Job) info() Info {
	return Info{ID: j.ID, Status: j.Status(), Total: len(j.Items), Done: int(j.done.Load())}
}

// Orchestrator owns live jobs and their background work.
type Orchestrator struct {
	runner  Runner
	store   store.Store
	cfg     Config
	metrics *monitoring.Metrics
	alerter *monitoring.Alerter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*Job
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithMetrics records job and item metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAlerter evaluates every completed job for alerts.
func WithAlerter(a *monitoring.Alerter) Option {
	return func(o *Orchestrator) { o.alerter = a }
}

// New creates an Orchestrator. Concurrency is clamped to [1, MaxConcurrency].
func New(r Runner, st store.Store, cfg Config, opts ...Option) *Orchestrator {
	switch {
	case cfg.Concurrency <= 0:
		cfg.Concurrency = DefaultConcurrency
	case cfg.Concurrency > MaxConcurrency:
		cfg.Concurrency = MaxConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		runner: r,
		store:  st,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit creates a job for entities and starts it in the background. columns
// are the input columns carried into the export.
func (o *Orchestrator) Submit(ctx context.Context, columns []string, entities []model.Entity) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Columns:   append([]string(nil), columns...),
		Items:     pipeline.NewItems(entities),
		CreatedAt: time.Now().UTC(),
		stream:    newStream(),
		status:    model.JobProcessing,
	}

	rec := &store.Record{
		ID:        job.ID,
		Status:    model.JobProcessing,
		Total:     len(job.Items),
		Columns:   job.Columns,
		CreatedAt: job.CreatedAt,
	}
	if err := o.store.Put(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "jobs: save new job")
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.mu.Unlock()
	o.metrics.JobSubmitted()

	zap.L().Info("jobs: submitted",
		zap.String("job_id", job.ID),
		zap.Int("items", len(job.Items)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(job)
	}()
	return job, nil
}

func (o *Orchestrator) run(job *Job) {
	log := zap.L().With(zap.String("job_id", job.ID))
	start := time.Now()
	emit := func(u model.Update) { job.stream.Append(model.UpdateEvent(u)) }

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for _, item := range job.Items {
		g.Go(func() error {
			o.runner.Run(o.ctx, item, emit)
			job.done.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	header, rows := pipeline.Rows(job.Columns, job.Items)
	table := &tabular.Table{Columns: header, Rows: rows}

	job.mu.Lock()
	job.table = table
	job.status = model.JobCompleted
	job.mu.Unlock()

	// Bounded so a slow store cannot hold the sentinel back forever.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), 30*time.Second)
	defer cancel()
	rec := &store.Record{
		ID:        job.ID,
		Status:    model.JobCompleted,
		Total:     len(job.Items),
		Done:      len(job.Items),
		Columns:   header,
		Rows:      rows,
		CreatedAt: job.CreatedAt,
	}
	if job.discarded.Load() {
		log.Info("jobs: discarded before completion, record not saved")
	} else if err := o.store.Put(saveCtx, rec); err != nil {
		log.Error("jobs: save completed job", zap.Error(err))
	}

	summary := summarize(job)
	log.Info("jobs: completed",
		zap.Int("items", summary.Total),
		zap.Int("completed", summary.Completed),
		zap.Int("not_found", summary.NotFound),
		zap.Int("errors", summary.Error+summary.PartialError),
		zap.Duration("elapsed", time.Since(start)),
	)
	job.stream.Close()
	o.alerter.Notify(saveCtx, summary)

	if o.cfg.Retention > 0 {
		time.AfterFunc(o.cfg.Retention, func() { o.evict(job.ID) })
	}
}

func summarize(job *Job) monitoring.JobSummary {
	s := monitoring.JobSummary{JobID: job.ID, Total: len(job.Items)}
	for _, it := range job.Items {
		switch it.Status() {
		case model.ItemCompleted:
			s.Completed++
		case model.ItemDineoutOnly:
			s.DineoutOnly++
		case model.ItemNotFound:
			s.NotFound++
		case model.ItemPartialError:
			s.PartialError++
		case model.ItemError:
			s.Error++
		}
	}
	return s
}

func (o *Orchestrator) evict(id string) {
	o.mu.Lock()
	delete(o.jobs, id)
	o.mu.Unlock()
	zap.L().Debug("jobs: evicted live job", zap.String("job_id", id))
}

func (o *Orchestrator) live(id string) (*Job, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	j, ok := o.jobs[id]
	return j, ok
}

// Job returns the live job with id.
func (o *Orchestrator) Job(id string) (*Job, bool) {
	return o.live(id)
}

// Events subscribes to a live job's progress stream from its first event.
func (o *Orchestrator) Events(id string) (*Subscription, error) {
	j, ok := o.live(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.stream.Subscribe(), nil
}

// Status reports a job's progress from the live job or its stored record.
func (o *Orchestrator) Status(ctx context.Context, id string) (Info, error) {
	if j, ok := o.live(id); ok {
		return j.info(), nil
	}
	rec, err := o.record(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return Info{ID: rec.ID, Status: rec.Status, Total: rec.Total, Done: rec.Done}, nil
}

// Export returns the result table of a completed job.
func (o *Orchestrator) Export(ctx context.Context, id string) (*tabular.Table, error) {
	if j, ok := o.live(id); ok {
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.status != model.JobCompleted {
			return nil, ErrNotReady
		}
		return j.table, nil
	}
	rec, err := o.record(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.JobCompleted {
		return nil, ErrNotReady
	}
	return &tabular.Table{Columns: rec.Columns, Rows: rec.Rows}, nil
}

// Discard drops the live job and deletes its record. Background work for a
// processing job keeps running until its items finish.
func (o *Orchestrator) Discard(ctx context.Context, id string) error {
	if j, ok := o.live(id); ok {
		j.discarded.Store(true)
	} else if _, err := o.record(ctx, id); err != nil {
		return err
	}
	o.evict(id)
	return eris.Wrapf(o.store.Delete(ctx, id), "jobs: delete record %s", id)
}

func (o *Orchestrator) record(ctx context.Context, id string) (*store.Record, error) {
	rec, err := o.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: load record %s", id)
	}
	return rec, nil
}

// Wait blocks until every submitted job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels in-flight work and waits for background jobs to finish.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}
