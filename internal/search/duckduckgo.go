package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/resilience"
)

// DuckDuckGoConfig configures the DuckDuckGo HTML provider.
type DuckDuckGoConfig struct {
	BaseURL    string
	Host       string
	UserAgent  string
	RatePerSec float64
	Timeout    time.Duration
	MaxRetries int
}

// DuckDuckGo searches the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	cfg     DuckDuckGoConfig
	http    *http.Client
	limiter *rate.Limiter
	policy  resilience.Policy[error]
}

// NewDuckDuckGo creates the provider. A zero rate disables throttling.
func NewDuckDuckGo(cfg DuckDuckGoConfig) *DuckDuckGo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.Host == "" {
		cfg.Host = "swiggy.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	p := resilience.HTTPPolicy(cfg.MaxRetries, 2*time.Second)
	p.OnRetry = resilience.RetryLogger("duckduckgo", "search")

	return &DuckDuckGo{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		policy:  p,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string) (*Results, error) {
	var res *Results
	err := resilience.Do(ctx, d.policy, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "duckduckgo: rate limiter")
		}
		r, err := d.fetch(ctx, query)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (d *DuckDuckGo) fetch(ctx context.Context, query string) (*Results, error) {
	u := d.cfg.BaseURL + "?" + url.Values{"q": {query}, "kl": {"in-en"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "duckduckgo: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusForbidden, http.StatusTooManyRequests:
		// DuckDuckGo answers throttled clients with a challenge page.
		zap.L().Warn("duckduckgo: challenge status", zap.Int("status", resp.StatusCode))
		return &Results{Challenge: true, Provider: d.Name(), Title: resp.Status}, nil
	case http.StatusOK:
	default:
		err := eris.Errorf("duckduckgo: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: parse html")
	}
	return d.parse(doc), nil
}

func (d *DuckDuckGo) parse(doc *goquery.Document) *Results {
	var links []model.Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, model.Link{
			Text: strings.Join(strings.Fields(s.Text()), " "),
			Href: unwrapRedirect(href),
		})
	})

	return &Results{
		Links:    CatalogLinks(links, d.cfg.Host),
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Text:     strings.Join(strings.Fields(doc.Find("body").Text()), " "),
		Provider: d.Name(),
	}
}

// unwrapRedirect returns the target of a DuckDuckGo /l/?uddg= redirect link.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
