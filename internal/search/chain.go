package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/resilience"
)

// Chain tries providers in order and returns the first result with links.
// Each provider runs behind its own circuit breaker.
type Chain struct {
	providers []Provider
	breakers  *resilience.ServiceBreakers
}

// NewChain creates a Chain.
func NewChain(breakers *resilience.ServiceBreakers, providers ...Provider) *Chain {
	if breakers == nil {
		breakers = resilience.NewServiceBreakers(resilience.DefaultBreakerConfig())
	}
	return &Chain{providers: providers, breakers: breakers}
}

func (c *Chain) Name() string { return "chain" }

// Search returns the first result with at least one link. When no provider
// finds links, the last empty result is returned so callers can still tell a
// challenge page from an empty one. An error is returned only if every
// provider failed.
func (c *Chain) Search(ctx context.Context, query string) (*Results, error) {
	var (
		empty   *Results
		lastErr error
	)
	for _, p := range c.providers {
		res, err := resilience.ExecuteVal(ctx, c.breakers.Get(p.Name()), func(ctx context.Context) (*Results, error) {
			return p.Search(ctx, query)
		})
		if err != nil {
			zap.L().Debug("search: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if res != nil && len(res.Links) > 0 {
			return res, nil
		}
		if res != nil && (empty == nil || res.Challenge) {
			empty = res
		}
	}
	if empty != nil {
		return empty, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "search: all providers failed")
	}
	return &Results{Provider: c.Name()}, nil
}
