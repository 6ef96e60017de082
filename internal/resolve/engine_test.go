package resolve

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-scout/internal/browser"
	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/search"
)

const (
	plushURL   = "https://www.swiggy.com/restaurants/the-plush-bandra-mumbai-20170"
	dineoutURL = plushURL + "/dineout"
)

type fakeProvider struct {
	results *search.Results
	err     error
	queries []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, query string) (*search.Results, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func plushResults() *search.Results {
	return &search.Results{Links: []model.Link{
		{Text: "The Plush, Bandra | Swiggy", Href: plushURL + "/"},
		{Text: "Swiggy Mumbai", Href: "https://www.swiggy.com/city/mumbai"},
	}}
}

var (
	menuPage    = browser.Snapshot{Title: "The Plush | Swiggy", Text: "Recommended"}
	missingPage = browser.Snapshot{Title: "Swiggy", Text: "Uh-oh! Sorry! This should not have happened"}
)

func newEngine(p search.Provider, b browser.Browser) *Engine {
	return NewEngine(p, b, Config{Brand: "swiggy", DeliveryAttempts: 2})
}

func TestResolve_Delivery(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{results: plushResults()}
	b := browser.NewStubBrowser(map[string]*browser.StubPage{
		plushURL: {Snapshots: []browser.Snapshot{menuPage}},
	})

	res := newEngine(p, b).Resolve(context.Background(), "The Plush", "Bandra")
	assert.Equal(t, model.ResolutionResult{URL: plushURL}, res)
	assert.True(t, res.Valid())
	assert.Equal(t, []string{"The Plush, Bandra swiggy"}, p.queries)
	assert.Equal(t, []string{plushURL}, b.History())
}

func TestResolve_ReloadRecoversLag(t *testing.T) {
	t.Parallel()

	b := browser.NewStubBrowser(map[string]*browser.StubPage{
		plushURL: {Snapshots: []browser.Snapshot{missingPage, menuPage}},
	})

	res := newEngine(&fakeProvider{results: plushResults()}, b).Resolve(context.Background(), "The Plush", "Bandra")
	assert.Equal(t, plushURL, res.URL)
	assert.False(t, res.NotFound)
	assert.Equal(t, []string{plushURL, plushURL}, b.History())
}

func TestResolve_DineoutOnly(t *testing.T) {
	t.Parallel()

	b := browser.NewStubBrowser(map[string]*browser.StubPage{
		plushURL:   {Snapshots: []browser.Snapshot{missingPage}},
		dineoutURL: {Snapshots: []browser.Snapshot{{Title: "The Plush - Dineout"}}},
	})

	res := newEngine(&fakeProvider{results: plushResults()}, b).Resolve(context.Background(), "The Plush", "Bandra")
	assert.Equal(t, model.ResolutionResult{URL: dineoutURL, DineoutOnly: true}, res)
	assert.Equal(t, []string{plushURL, plushURL, dineoutURL}, b.History())
}

func TestResolve_BothMissing(t *testing.T) {
	t.Parallel()

	b := browser.NewStubBrowser(map[string]*browser.StubPage{
		plushURL:   {Snapshots: []browser.Snapshot{missingPage}},
		dineoutURL: {Snapshots: []browser.Snapshot{{Title: "Page not found"}}},
	})

	res := newEngine(&fakeProvider{results: plushResults()}, b).Resolve(context.Background(), "The Plush", "Bandra")
	assert.True(t, res.NotFound)
	assert.Equal(t, MsgBothNotFound, res.Error)
	assert.Equal(t, plushURL, res.URL)
	assert.True(t, res.Valid())
}

func TestResolve_NavigationErrorTolerated(t *testing.T) {
	t.Parallel()

	b := browser.NewStubBrowser(map[string]*browser.StubPage{
		plushURL: {Snapshots: []browser.Snapshot{menuPage}, NavErr: eris.New("net::ERR_TIMED_OUT")},
	})

	res := newEngine(&fakeProvider{results: plushResults()}, b).Resolve(context.Background(), "The Plush", "Bandra")
	assert.Equal(t, plushURL, res.URL)
}

func TestResolve_SearchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider *fakeProvider
		want     string
	}{
		{"challenge flag", &fakeProvider{results: &search.Results{Challenge: true}}, MsgCaptcha},
		{"challenge text", &fakeProvider{results: &search.Results{Title: "DuckDuckGo", Text: "unusual traffic from your network"}}, MsgCaptcha},
		{"no results", &fakeProvider{results: &search.Results{Title: "DuckDuckGo"}}, MsgNoResults},
		{"nil results", &fakeProvider{}, MsgNoResults},
		{"no suitable link", &fakeProvider{results: &search.Results{Links: []model.Link{
			{Text: "Burger King", Href: "https://www.swiggy.com/restaurants/burger-king-andheri-111"},
		}}}, MsgNoSuitableLink},
		{"provider error", &fakeProvider{err: eris.New("connection refused")}, "Search Phase Error: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := browser.NewStubBrowser(nil)
			res := newEngine(tt.provider, b).Resolve(context.Background(), "The Plush", "Bandra")
			assert.True(t, res.NotFound)
			assert.Empty(t, res.URL)
			assert.Equal(t, tt.want, res.Error)
			assert.Equal(t, 0, b.Sessions())
		})
	}
}

func TestResolve_SessionError(t *testing.T) {
	t.Parallel()

	b := browser.NewStubBrowser(nil)
	b.OpenErr = eris.New("chrome crashed")

	res := newEngine(&fakeProvider{results: plushResults()}, b).Resolve(context.Background(), "The Plush", "Bandra")
	require.True(t, res.NotFound)
	assert.Equal(t, "Validation Phase Error: chrome crashed", res.Error)
}

type panicProvider struct{}

func (panicProvider) Name() string { return "panic" }
func (panicProvider) Search(context.Context, string) (*search.Results, error) {
	panic("provider exploded")
}

func TestResolve_RecoversPanic(t *testing.T) {
	t.Parallel()

	res := newEngine(panicProvider{}, browser.NewStubBrowser(nil)).Resolve(context.Background(), "a", "b")
	assert.True(t, res.NotFound)
	assert.Equal(t, "provider exploded", res.Error)
}
