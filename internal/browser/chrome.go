package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultUserAgent is used when no user agents are configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeConfig configures the headless Chrome browser.
type ChromeConfig struct {
	Headless   bool
	ExecPath   string
	UserAgents []string
	Locale     string
	Timezone   string
	NavTimeout time.Duration
}

// Chrome is a Browser backed by one Chrome process; each session is a tab.
type Chrome struct {
	cfg         ChromeConfig
	allocCancel context.CancelFunc
	rootCtx     context.Context
	rootCancel  context.CancelFunc
	next        atomic.Uint64
}

// NewChrome launches Chrome. Close must be called to stop the process.
func NewChrome(ctx context.Context, cfg ChromeConfig) (*Chrome, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = []string{DefaultUserAgent}
	}
	if cfg.Locale == "" {
		cfg.Locale = "en-IN"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1366, 768),
		chromedp.UserAgent(cfg.UserAgents[0]),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	rootCtx, rootCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(rootCtx); err != nil {
		rootCancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	zap.L().Info("browser: chrome started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("user_agents", len(cfg.UserAgents)),
	)
	return &Chrome{
		cfg:         cfg,
		allocCancel: allocCancel,
		rootCtx:     rootCtx,
		rootCancel:  rootCancel,
	}, nil
}

// Close stops the browser process.
func (c *Chrome) Close() error {
	c.rootCancel()
	c.allocCancel()
	return nil
}

func (c *Chrome) userAgent() string {
	n := c.next.Add(1) - 1
	return c.cfg.UserAgents[n%uint64(len(c.cfg.UserAgents))]
}

// NewSession opens a tab with fingerprint overrides applied.
func (c *Chrome) NewSession(ctx context.Context) (Session, error) {
	tabCtx, cancel := chromedp.NewContext(c.rootCtx)
	s := &chromeSession{
		ctx:        tabCtx,
		cancel:     cancel,
		navTimeout: c.cfg.NavTimeout,
		pending:    make(map[network.RequestID]pendingResponse),
		order:      newSequencer(),
		idle:       make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, s.listen)

	setup := chromedp.Tasks{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		emulation.SetUserAgentOverride(c.userAgent()),
		emulation.SetLocaleOverride().WithLocale(c.cfg.Locale),
		emulation.SetTimezoneOverride(c.cfg.Timezone),
		chromedp.EmulateViewport(1366, 768),
	}
	runCtx, stop := s.bind(ctx, c.cfg.NavTimeout)
	defer stop()
	if err := chromedp.Run(runCtx, setup); err != nil {
		cancel()
		return nil, eris.Wrap(err, "browser: open session")
	}
	// A page target's main frame shares the target id.
	if t := chromedp.FromContext(tabCtx); t != nil && t.Target != nil {
		s.setMainFrame(cdp.FrameID(t.Target.TargetID))
	}
	return s, nil
}

type pendingResponse struct {
	meta    Response
	handler int
}

// sequencer runs callbacks in ticket order whatever order they become ready
// in. Every issued ticket must be passed to run exactly once.
type sequencer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	issued uint64
	next   uint64
}

func newSequencer() *sequencer {
	s := &sequencer{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *sequencer) ticket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.issued
	s.issued++
	return t
}

// run waits for every earlier ticket, then calls fn (which may be nil).
func (s *sequencer) run(t uint64, fn func()) {
	s.mu.Lock()
	for s.next != t {
		s.cond.Wait()
	}
	s.mu.Unlock()

	if fn != nil {
		fn()
	}

	s.mu.Lock()
	s.next++
	s.cond.Broadcast()
	s.mu.Unlock()
}

type responseHandler struct {
	filter ResponseFilter
	fn     func(Response)
}

type chromeSession struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration

	mu        sync.Mutex
	mainFrame cdp.FrameID
	handlers  []responseHandler
	pending   map[network.RequestID]pendingResponse
	inflight  sync.WaitGroup
	order     *sequencer

	idle chan struct{}
}

func (s *chromeSession) setMainFrame(id cdp.FrameID) {
	s.mu.Lock()
	s.mainFrame = id
	s.mu.Unlock()
}

// mainFrameIdle reports whether e is network quiescence of the main frame.
// Until the main frame is known any frame counts.
func (s *chromeSession) mainFrameIdle(e *page.EventLifecycleEvent) bool {
	if e.Name != "networkIdle" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mainFrame == "" || e.FrameID == s.mainFrame
}

// bind derives a context from the tab that also ends when ctx does.
func (s *chromeSession) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) listen(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			s.setMainFrame(e.Frame.ID)
		}
	case *page.EventLifecycleEvent:
		if s.mainFrameIdle(e) {
			select {
			case s.idle <- struct{}{}:
			default:
			}
		}
	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		meta := Response{
			URL:          e.Response.URL,
			Status:       int(e.Response.Status),
			ResourceType: string(e.Type),
			MIMEType:     e.Response.MimeType,
		}
		s.mu.Lock()
		for i, h := range s.handlers {
			if h.filter(meta) {
				s.pending[e.RequestID] = pendingResponse{meta: meta, handler: i}
				break
			}
		}
		s.mu.Unlock()
	case *network.EventLoadingFinished:
		s.mu.Lock()
		p, ok := s.pending[e.RequestID]
		delete(s.pending, e.RequestID)
		var fn func(Response)
		var ticket uint64
		if ok {
			fn = s.handlers[p.handler].fn
			ticket = s.order.ticket()
			s.inflight.Add(1)
		}
		s.mu.Unlock()
		if ok {
			go s.deliver(e.RequestID, ticket, p.meta, fn)
		}
	}
}

// deliver fetches the body outside the event loop; CDP calls made from a
// listener would deadlock. Callbacks run in LoadingFinished order, so the
// last body handed to fn belongs to the last response that finished.
func (s *chromeSession) deliver(id network.RequestID, ticket uint64, meta Response, fn func(Response)) {
	defer s.inflight.Done()

	body, ok := s.fetchBody(id, meta.URL)
	s.order.run(ticket, func() {
		if ok {
			meta.Body = body
			fn(meta)
		}
	})
}

func (s *chromeSession) fetchBody(id network.RequestID, url string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return nil, false
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(ctx, c.Target))
	if err != nil {
		zap.L().Debug("browser: response body unavailable", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	return body, true
}

func (s *chromeSession) OnResponse(filter ResponseFilter, fn func(Response)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, responseHandler{filter: filter, fn: fn})
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.load(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) Reload(ctx context.Context) error {
	return s.load(ctx, chromedp.Reload())
}

func (s *chromeSession) load(ctx context.Context, action chromedp.Action) error {
	runCtx, stop := s.bind(ctx, s.navTimeout)
	defer stop()

	select {
	case <-s.idle:
	default:
	}

	if err := chromedp.Run(runCtx, action); err != nil {
		return eris.Wrap(err, "browser: navigation")
	}
	select {
	case <-s.idle:
		return nil
	case <-runCtx.Done():
		return eris.New("browser: navigation timeout waiting for network idle")
	}
}

const textNodesJS = `Array.from(document.querySelectorAll('body *'))
	.filter(e => e.children.length === 0 && e.offsetParent !== null)
	.map(e => (e.textContent || '').trim())
	.filter(t => t.length > 0)`

func (s *chromeSession) Snapshot(ctx context.Context) (*Snapshot, error) {
	runCtx, stop := s.bind(ctx, 15*time.Second)
	defer stop()

	var snap Snapshot
	err := chromedp.Run(runCtx,
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &snap.Text),
		chromedp.Evaluate(textNodesJS, &snap.TextNodes),
	)
	if err != nil {
		return nil, eris.Wrap(err, "browser: snapshot")
	}
	return &snap, nil
}

func (s *chromeSession) Close() error {
	s.inflight.Wait()
	s.cancel()
	return nil
}
