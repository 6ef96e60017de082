package browser

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// StubPage scripts what a StubBrowser shows for one URL. The n-th visit of
// the URL (navigation or reload) renders Snapshots[n-1]; visits past the end
// repeat the last snapshot.
type StubPage struct {
	Snapshots []Snapshot
	Responses []Response
	NavErr    error
}

// StubBrowser is an in-memory Browser that renders scripted pages.
type StubBrowser struct {
	mu       sync.Mutex
	pages    map[string]*StubPage
	visits   map[string]int
	history  []string
	sessions int
	// OpenErr, when set, fails every NewSession call.
	OpenErr error
}

// NewStubBrowser returns a StubBrowser serving pages keyed by URL.
func NewStubBrowser(pages map[string]*StubPage) *StubBrowser {
	if pages == nil {
		pages = make(map[string]*StubPage)
	}
	return &StubBrowser{pages: pages, visits: make(map[string]int)}
}

// SetPage installs or replaces the script for url.
func (b *StubBrowser) SetPage(url string, p *StubPage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[url] = p
}

// History returns every URL loaded so far, reloads included, in order.
func (b *StubBrowser) History() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.history...)
}

// Sessions returns the number of sessions opened.
func (b *StubBrowser) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions
}

func (b *StubBrowser) NewSession(_ context.Context) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.sessions++
	return &stubSession{browser: b}, nil
}

type stubSession struct {
	browser  *StubBrowser
	current  string
	visit    int
	handlers []responseHandler
	closed   bool
}

func (s *stubSession) OnResponse(filter ResponseFilter, fn func(Response)) {
	s.handlers = append(s.handlers, responseHandler{filter: filter, fn: fn})
}

func (s *stubSession) Navigate(ctx context.Context, url string) error {
	s.current = url
	return s.load(ctx)
}

func (s *stubSession) Reload(ctx context.Context) error {
	return s.load(ctx)
}

func (s *stubSession) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "browser: navigation")
	}
	b := s.browser
	b.mu.Lock()
	b.visits[s.current]++
	s.visit = b.visits[s.current]
	b.history = append(b.history, s.current)
	p := b.pages[s.current]
	b.mu.Unlock()

	if p == nil {
		return nil
	}
	for _, r := range p.Responses {
		for _, h := range s.handlers {
			meta := r
			meta.Body = nil
			if h.filter(meta) {
				h.fn(r)
				break
			}
		}
	}
	return p.NavErr
}

func (s *stubSession) Snapshot(_ context.Context) (*Snapshot, error) {
	if s.closed {
		return nil, eris.New("browser: session closed")
	}
	b := s.browser
	b.mu.Lock()
	p := b.pages[s.current]
	b.mu.Unlock()

	if p == nil || len(p.Snapshots) == 0 {
		return &Snapshot{URL: s.current}, nil
	}
	idx := min(max(s.visit-1, 0), len(p.Snapshots)-1)
	snap := p.Snapshots[idx]
	if snap.URL == "" {
		snap.URL = s.current
	}
	return &snap, nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}
