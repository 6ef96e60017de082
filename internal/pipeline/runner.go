// Package pipeline drives one entity through resolution and extraction,
// emitting a progress update on every state change.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/monitoring"
	"github.com/sells-group/menu-scout/internal/resilience"
)

// Resolver maps an entity to a validated detail URL.
type Resolver interface {
	Resolve(ctx context.Context, name, location string) model.ResolutionResult
}

// Extractor derives facts from a detail URL.
type Extractor interface {
	Extract(ctx context.Context, url string) model.ExtractedFacts
}

// Emit receives item updates in the order they happen.
type Emit func(model.Update)

// Config configures a Runner.
type Config struct {
	// ExtractAttempts bounds extraction tries per item. Default 3.
	ExtractAttempts int
	// ExtractBackoff is the fixed sleep between extraction tries. Zero or
	// negative means no sleep; the configured default is 2s.
	ExtractBackoff time.Duration
}

// Runner executes item pipelines. It holds no per-item state and may be
// shared by concurrent pipelines.
type Runner struct {
	resolver  Resolver
	extractor Extractor
	cfg       Config
	metrics   *monitoring.Metrics
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(r Resolver, e Extractor, cfg Config, metrics *monitoring.Metrics) *Runner {
	if cfg.ExtractAttempts <= 0 {
		cfg.ExtractAttempts = 3
	}
	if cfg.ExtractBackoff < 0 {
		cfg.ExtractBackoff = 0
	}
	return &Runner{resolver: r, extractor: e, cfg: cfg, metrics: metrics}
}

// IsNotFoundError reports whether an extraction error means the detail page
// does not exist. It matches on text because the error crosses the extractor
// boundary as a string.
func IsNotFoundError(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not found")
}

// Run drives item from Pending to a terminal status. It never panics and
// never returns without the item being terminal.
func (r *Runner) Run(ctx context.Context, item *Item, emit Emit) {
	log := zap.L().With(
		zap.String("item_id", item.ID),
		zap.String("name", item.Entity.Name),
	)
	done := r.metrics.ItemStarted()

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprint(rec)
			log.Error("pipeline: recovered panic", zap.String("panic", msg))
			r.fail(item, emit, msg)
		}
		if !item.Status().Terminal() {
			r.fail(item, emit, "pipeline ended without a terminal status")
		}
		done(string(item.Status()))
	}()

	if err := item.Transition(model.ItemSearching); err != nil {
		log.Warn("pipeline: cannot start item", zap.Error(err))
		return
	}
	emit(model.Update{ID: item.ID, Status: model.EventStatusSearching, Name: item.Entity.Name})
	log.Info("pipeline: searching")

	res := r.resolver.Resolve(ctx, item.Entity.Name, item.Entity.Location)
	item.setResolution(res)

	switch {
	case res.NotFound || res.URL == "":
		r.metrics.Resolution("not_found")
		msg := res.Error
		if msg == "" {
			msg = "Restaurant not found"
		}
		log.Info("pipeline: not found", zap.String("reason", msg))
		r.finish(item, emit, model.ItemNotFound, "", Result{NotFound: true, Error: msg},
			model.Update{ID: item.ID, Status: model.EventStatusFailed, NotFound: true, Error: msg})
		return

	case res.DineoutOnly:
		r.metrics.Resolution("dineout_only")
		log.Info("pipeline: dineout only", zap.String("url", res.URL))
		out := Result{URL: res.URL, CatalogID: CatalogID(res.URL), DineoutOnly: true}
		r.finish(item, emit, model.ItemDineoutOnly, "", out, model.Update{
			ID:          item.ID,
			Status:      model.EventStatusCompleted,
			Name:        item.Entity.Name,
			URL:         res.URL,
			CatalogID:   out.CatalogID,
			DineoutOnly: true,
		})
		return
	}

	r.metrics.Resolution("found")
	if err := item.Transition(model.ItemExtracting); err != nil {
		r.fail(item, emit, err.Error())
		return
	}
	emit(model.Update{ID: item.ID, Status: model.EventStatusExtracting, URL: res.URL})
	log = log.With(zap.String("url", res.URL))
	log.Info("pipeline: extracting")

	facts := r.extract(ctx, item, res.URL, emit, log)
	item.setFacts(facts)
	r.complete(item, emit, res.URL, facts, log)
}

func (r *Runner) extract(ctx context.Context, item *Item, url string, emit Emit, log *zap.Logger) model.ExtractedFacts {
	policy := resilience.Policy[model.ExtractedFacts]{
		MaxAttempts: r.cfg.ExtractAttempts,
		Backoff:     r.cfg.ExtractBackoff,
		Success: func(f model.ExtractedFacts) bool {
			return f.Error == "" && f.HasSignal()
		},
		EarlyStop: func(f model.ExtractedFacts) bool {
			return IsNotFoundError(f.Error)
		},
		OnRetry: func(next int, last model.ExtractedFacts) {
			log.Warn("pipeline: retrying extraction",
				zap.Int("attempt", next),
				zap.String("error", last.Error),
			)
			emit(model.Update{
				ID:     item.ID,
				Status: fmt.Sprintf("%s (try %d/%d)", model.EventStatusExtracting, next, r.cfg.ExtractAttempts),
				URL:    url,
			})
		},
	}
	facts, attempts := policy.Run(ctx, func(ctx context.Context, _ int) model.ExtractedFacts {
		r.metrics.ExtractAttempt()
		return r.extractor.Extract(ctx, url)
	})
	log.Debug("pipeline: extraction finished", zap.Int("attempts", attempts))
	return facts
}

func (r *Runner) complete(item *Item, emit Emit, url string, facts model.ExtractedFacts, log *zap.Logger) {
	out := Result{
		URL:          url,
		CatalogID:    CatalogID(url),
		PromoCodes:   facts.PromoCodes,
		Items99:      facts.NinetyNineItems,
		Offers:       facts.OfferItems,
		Rating:       facts.Rating,
		TotalRatings: facts.TotalRatings,
		Error:        facts.Error,
	}

	switch {
	case facts.Error == "":
		log.Info("pipeline: completed", zap.String("rating", facts.Rating))
		r.finish(item, emit, model.ItemCompleted, "", out, out.update(item.ID, model.EventStatusCompleted))

	case IsNotFoundError(facts.Error):
		log.Info("pipeline: detail page missing", zap.String("error", facts.Error))
		out.NotFound = true
		r.finish(item, emit, model.ItemNotFound, model.LabelNotOnCatalog, out, model.Update{
			ID:       item.ID,
			Status:   model.EventStatusFailed,
			URL:      url,
			NotFound: true,
			Error:    facts.Error,
		})

	default:
		log.Warn("pipeline: partial error", zap.String("error", facts.Error))
		r.finish(item, emit, model.ItemPartialError, "", out, out.update(item.ID, model.EventStatusPartialError))
	}
}

// finish stores the terminal result and emits its update. The update is
// dropped when the item was already terminal.
func (r *Runner) finish(item *Item, emit Emit, status model.ItemStatus, label string, out Result, u model.Update) {
	if err := item.finish(status, label, out); err != nil {
		zap.L().Warn("pipeline: dropped terminal update", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	u.Terminal = true
	emit(u)
}

func (r *Runner) fail(item *Item, emit Emit, msg string) {
	if item.Status().Terminal() {
		return
	}
	prev := item.Result()
	prev.Error = msg
	r.finish(item, emit, model.ItemError, "", prev, model.Update{
		ID:     item.ID,
		Status: model.EventStatusError,
		Error:  msg,
	})
}
