// Package resolve turns a (name, location) pair into a validated catalog
// detail URL: search, score, then confirm the page renders.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/browser"
	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/resilience"
	"github.com/sells-group/menu-scout/internal/scorer"
	"github.com/sells-group/menu-scout/internal/search"
)

// Error messages reported in ResolutionResult.Error.
const (
	MsgCaptcha        = "Captcha detected during search"
	MsgNoResults      = "No search results found"
	MsgNoSuitableLink = "No suitable link found"
	MsgBothNotFound   = "Restaurant not found (both delivery and dineout)"
	searchPhasePrefix = "Search Phase Error: "
	validationPrefix  = "Validation Phase Error: "
)

// Config configures an Engine.
type Config struct {
	Brand            string
	DeliveryAttempts int
	Settle           time.Duration
}

// Engine resolves entities to catalog URLs.
type Engine struct {
	search  search.Provider
	browser browser.Browser
	cfg     Config
}

// NewEngine creates an Engine.
func NewEngine(p search.Provider, b browser.Browser, cfg Config) *Engine {
	if cfg.Brand == "" {
		cfg.Brand = "swiggy"
	}
	if cfg.DeliveryAttempts <= 0 {
		cfg.DeliveryAttempts = 2
	}
	return &Engine{search: p, browser: b, cfg: cfg}
}

// Resolve runs the search and validation phases. Every failure is reported
// in the result; Resolve never returns an error or panics.
func (e *Engine) Resolve(ctx context.Context, name, location string) (res model.ResolutionResult) {
	log := zap.L().With(zap.String("name", name), zap.String("location", location))
	defer func() {
		if r := recover(); r != nil {
			log.Error("resolve: panic", zap.Any("panic", r))
			res = model.ResolutionResult{NotFound: true, Error: fmt.Sprint(r)}
		}
	}()

	candidate, res, ok := e.searchPhase(ctx, name, location, log)
	if !ok {
		return res
	}
	log.Info("resolve: candidate selected",
		zap.String("url", candidate.Href),
		zap.Float64("score", candidate.NameScore),
		zap.Stringer("tier", candidate.Tier),
	)
	return e.validate(ctx, candidate.Href, log)
}

func (e *Engine) searchPhase(ctx context.Context, name, location string, log *zap.Logger) (model.Candidate, model.ResolutionResult, bool) {
	query := search.Query(name, location, e.cfg.Brand)
	results, err := e.search.Search(ctx, query)
	if err != nil {
		log.Warn("resolve: search failed", zap.Error(err))
		return model.Candidate{}, notFound(searchPhasePrefix + err.Error()), false
	}

	if results == nil {
		results = &search.Results{}
	}
	if len(results.Links) == 0 {
		if results.Challenge || search.DetectChallenge(results.Title, results.Text) {
			return model.Candidate{}, notFound(MsgCaptcha), false
		}
		return model.Candidate{}, notFound(MsgNoResults), false
	}
	log.Debug("resolve: links found", zap.Int("links", len(results.Links)), zap.String("provider", results.Provider))

	best, ok := scorer.Select(results.Links, name, location)
	if !ok {
		return model.Candidate{}, notFound(MsgNoSuitableLink), false
	}
	return best, model.ResolutionResult{}, true
}

type pageCheck struct {
	url     string
	missing bool
	err     error
}

func (e *Engine) validate(ctx context.Context, candidate string, log *zap.Logger) model.ResolutionResult {
	sess, err := e.browser.NewSession(ctx)
	if err != nil {
		return notFound(validationPrefix + err.Error())
	}
	defer sess.Close() //nolint:errcheck

	e.load(ctx, log, func() error { return sess.Navigate(ctx, candidate) })

	policy := resilience.Policy[pageCheck]{
		MaxAttempts: e.cfg.DeliveryAttempts,
		Success:     func(c pageCheck) bool { return c.err == nil && !c.missing },
		EarlyStop:   func(c pageCheck) bool { return c.err != nil },
		OnRetry: func(next int, _ pageCheck) {
			log.Info("resolve: page looks missing, reloading", zap.Int("attempt", next))
		},
	}
	check, _ := policy.Run(ctx, func(ctx context.Context, attempt int) pageCheck {
		if attempt > 1 {
			e.load(ctx, log, func() error { return sess.Reload(ctx) })
		}
		return e.inspect(ctx, sess)
	})
	if check.err != nil {
		return notFound(validationPrefix + check.err.Error())
	}
	if !check.missing {
		return model.ResolutionResult{URL: check.url}
	}

	dineout := strings.TrimRight(candidate, "/") + "/dineout"
	e.load(ctx, log, func() error { return sess.Navigate(ctx, dineout) })
	check = e.inspect(ctx, sess)
	if check.err != nil {
		return notFound(validationPrefix + check.err.Error())
	}
	if !check.missing {
		log.Info("resolve: dineout only", zap.String("url", check.url))
		return model.ResolutionResult{URL: check.url, DineoutOnly: true}
	}

	res := notFound(MsgBothNotFound)
	res.URL = candidate
	return res
}

// load runs a navigation and waits for the page to settle. Navigation errors
// are logged only; the page is inspected regardless.
func (e *Engine) load(ctx context.Context, log *zap.Logger, nav func() error) {
	if err := nav(); err != nil {
		log.Warn("resolve: navigation error", zap.Error(err))
	}
	if e.cfg.Settle <= 0 {
		return
	}
	t := time.NewTimer(e.cfg.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (e *Engine) inspect(ctx context.Context, sess browser.Session) pageCheck {
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return pageCheck{err: err}
	}
	return pageCheck{url: snap.URL, missing: IsNotFound(snap)}
}

func notFound(msg string) model.ResolutionResult {
	return model.ResolutionResult{NotFound: true, Error: msg}
}
