package extract

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/browser"
	"github.com/sells-group/menu-scout/internal/model"
)

// MsgInvalidURL is the error reported for URLs outside the detail namespace.
const MsgInvalidURL = "Invalid URL"

// Config configures an Engine.
type Config struct {
	Host      string
	APIPrefix string
	Settle    time.Duration
}

// Engine renders detail pages and derives facts from the captured payload.
type Engine struct {
	browser browser.Browser
	cfg     Config
}

// NewEngine creates an Engine. Empty config fields fall back to the catalog
// defaults.
func NewEngine(b browser.Browser, cfg Config) *Engine {
	if cfg.Host == "" {
		cfg.Host = "swiggy.com"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/dapi/"
	}
	return &Engine{browser: b, cfg: cfg}
}

// IsDetailURL reports whether url carries the catalog host and a restaurant marker.
func (e *Engine) IsDetailURL(url string) bool {
	return strings.Contains(url, e.cfg.Host) && strings.Contains(url, "rest")
}

// Extract renders url and returns the facts found in the last data-API
// payload. Failures are reported in the Error field, never as a Go error.
func (e *Engine) Extract(ctx context.Context, url string) model.ExtractedFacts {
	if !e.IsDetailURL(url) {
		return model.ExtractedFacts{Error: MsgInvalidURL}
	}
	log := zap.L().With(zap.String("url", url))

	payload, err := e.capture(ctx, url)
	if err != nil {
		log.Warn("extract: capture failed", zap.Error(err))
		return model.ExtractedFacts{Error: err.Error()}
	}
	if payload == nil {
		log.Info("extract: no data payload captured")
	}

	facts := Facts(payload)
	log.Info("extract: facts derived",
		zap.String("rating", facts.Rating),
		zap.Int("promo_codes", len(facts.PromoCodes)),
		zap.Int("items_99", len(facts.NinetyNineItems)),
		zap.Int("offer_categories", facts.OfferItems.Len()),
	)
	return facts
}

func (e *Engine) capture(ctx context.Context, url string) (*Node, error) {
	sess, err := e.browser.NewSession(ctx)
	if err != nil {
		return nil, model.WrapKind(model.TransientRenderError, err)
	}

	var (
		mu   sync.Mutex
		last *Node
	)
	marker := e.cfg.Host + e.cfg.APIPrefix
	sess.OnResponse(func(r browser.Response) bool {
		return !browser.IsSubresource(r.ResourceType) && r.Status == 200 && strings.Contains(r.URL, marker)
	}, func(r browser.Response) {
		n, err := FromJSON(r.Body)
		if err != nil {
			zap.L().Debug("extract: unparseable payload", zap.String("response_url", r.URL), zap.Error(err))
			return
		}
		mu.Lock()
		last = n
		mu.Unlock()
	})

	navErr := sess.Navigate(ctx, url)
	if navErr == nil {
		sleep(ctx, e.cfg.Settle)
	}
	_ = sess.Close()
	if navErr != nil {
		return nil, model.WrapKind(model.TransientRenderError, navErr)
	}

	mu.Lock()
	defer mu.Unlock()
	return last, nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
