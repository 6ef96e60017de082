package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/browser"
	"github.com/sells-group/menu-scout/internal/config"
	"github.com/sells-group/menu-scout/internal/extract"
	"github.com/sells-group/menu-scout/internal/jobs"
	"github.com/sells-group/menu-scout/internal/monitoring"
	"github.com/sells-group/menu-scout/internal/pipeline"
	"github.com/sells-group/menu-scout/internal/resilience"
	"github.com/sells-group/menu-scout/internal/resolve"
	"github.com/sells-group/menu-scout/internal/search"
	"github.com/sells-group/menu-scout/internal/store"
	"github.com/sells-group/menu-scout/pkg/jina"
)

// scoutEnv holds the browser, engines and, for bulk modes, the job
// orchestrator and its store.
type scoutEnv struct {
	Browser   *browser.Chrome
	Resolver  *resolve.Engine
	Extractor *extract.Engine
	Registry  *prometheus.Registry
	Metrics   *monitoring.Metrics
	Store     store.Store
	Jobs      *jobs.Orchestrator
}

// Close stops running jobs, then releases the store and the browser.
func (e *scoutEnv) Close() {
	if e.Jobs != nil {
		e.Jobs.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.Browser != nil {
		_ = e.Browser.Close()
	}
}

// initEngines validates cfg for mode, launches Chrome and builds the resolve
// and extract engines. Callers should defer env.Close().
func initEngines(ctx context.Context, mode string) (*scoutEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	provider, err := newSearchProvider(cfg)
	if err != nil {
		return nil, err
	}

	chrome, err := browser.NewChrome(ctx, browser.ChromeConfig{
		Headless:   cfg.Browser.Headless,
		ExecPath:   cfg.Browser.ExecPath,
		UserAgents: cfg.Browser.UserAgents,
		Locale:     cfg.Browser.Locale,
		Timezone:   cfg.Browser.Timezone,
		NavTimeout: config.Seconds(max(cfg.Resolve.NavTimeoutSecs, cfg.Extract.NavTimeoutSecs)),
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	env := &scoutEnv{
		Browser: chrome,
		Resolver: resolve.NewEngine(provider, chrome, resolve.Config{
			Brand:            cfg.Search.Brand,
			DeliveryAttempts: cfg.Resolve.DeliveryAttempts,
			Settle:           config.Millis(cfg.Resolve.SettleMS),
		}),
		Extractor: extract.NewEngine(chrome, extract.Config{
			Host:      cfg.Catalog.Host,
			APIPrefix: cfg.Catalog.APIPrefix,
			Settle:    config.Millis(cfg.Extract.SettleMS),
		}),
		Registry: reg,
		Metrics:  monitoring.NewMetrics(reg),
	}

	zap.L().Info("engines ready",
		zap.String("mode", mode),
		zap.String("search_provider", provider.Name()),
	)
	return env, nil
}

// initPipeline builds the engines plus the store and the bulk orchestrator.
func initPipeline(ctx context.Context, mode string) (*scoutEnv, error) {
	env, err := initEngines(ctx, mode)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.Store.Driver,
		DatabaseURL:   cfg.Store.DatabaseURL,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		TTL:           config.Seconds(cfg.Store.TTLHours * 3600),
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Store = st

	runner := pipeline.NewRunner(env.Resolver, env.Extractor, pipeline.Config{
		ExtractAttempts: cfg.Extract.MaxAttempts,
		ExtractBackoff:  config.Millis(cfg.Extract.BackoffMS),
	}, env.Metrics)

	alerter := monitoring.NewAlerter(monitoring.AlertConfig{
		WebhookURL:           cfg.Monitoring.WebhookURL,
		FailureRateThreshold: cfg.Monitoring.FailureRateThreshold,
		NotFoundThreshold:    cfg.Monitoring.NotFoundThreshold,
	})

	env.Jobs = jobs.New(runner, st, jobs.Config{
		Concurrency: cfg.Batch.Concurrency,
		Retention:   config.Seconds(cfg.Batch.RetentionMinutes * 60),
	}, jobs.WithMetrics(env.Metrics), jobs.WithAlerter(alerter))

	return env, nil
}

// searchUserAgent is the browser's first user agent, so search requests carry
// the same fingerprint as rendered pages.
func searchUserAgent(c *config.Config) string {
	if len(c.Browser.UserAgents) > 0 && c.Browser.UserAgents[0] != "" {
		return c.Browser.UserAgents[0]
	}
	return browser.DefaultUserAgent
}

// newSearchProvider builds the provider named by search.provider. The chain
// tries DuckDuckGo first and falls back to Jina, each behind a breaker.
func newSearchProvider(c *config.Config) (search.Provider, error) {
	ddg := func() search.Provider {
		return search.NewDuckDuckGo(search.DuckDuckGoConfig{
			BaseURL:    c.Search.BaseURL,
			Host:       c.Catalog.Host,
			UserAgent:  searchUserAgent(c),
			RatePerSec: c.Search.RatePerSec,
			Timeout:    config.Seconds(c.Search.TimeoutSecs),
			MaxRetries: c.Search.MaxRetries,
		})
	}
	jinaProvider := func() search.Provider {
		client := jina.NewClient(c.Jina.Key,
			jina.WithSearchBaseURL(c.Jina.SearchBaseURL),
			jina.WithHTTPClient(&http.Client{Timeout: config.Seconds(c.Search.TimeoutSecs)}),
		)
		return search.NewJina(client, c.Catalog.Host)
	}

	switch c.Search.Provider {
	case "duckduckgo", "":
		return ddg(), nil
	case "jina":
		return jinaProvider(), nil
	case "chain":
		breakers := resilience.NewServiceBreakers(resilience.DefaultBreakerConfig())
		return search.NewChain(breakers, ddg(), jinaProvider()), nil
	default:
		return nil, eris.Errorf("unknown search provider %q", c.Search.Provider)
	}
}
