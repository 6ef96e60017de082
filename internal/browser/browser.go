// Package browser defines the page rendering capability used by resolution
// and extraction, with a headless Chrome implementation.
package browser

import (
	"context"
	"strings"
)

// Snapshot is the observable state of a rendered page.
type Snapshot struct {
	URL   string
	Title string
	// Text is the rendered (visible) text of the document body.
	Text string
	// TextNodes holds the trimmed text of each visible leaf element.
	TextNodes []string
}

// Response describes a network response observed while a page loads. Body is
// only populated for responses accepted by a ResponseFilter.
type Response struct {
	URL          string
	Status       int
	ResourceType string
	MIMEType     string
	Body         []byte
}

// ResponseFilter decides from response metadata whether the body is wanted.
type ResponseFilter func(Response) bool

// Session is one browser tab.
type Session interface {
	// Navigate loads url and waits for network quiescence or the navigation
	// timeout. Errors are returned but the page may still be inspected.
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Snapshot(ctx context.Context) (*Snapshot, error)
	// OnResponse registers fn for responses accepted by filter. It must be
	// called before Navigate.
	OnResponse(filter ResponseFilter, fn func(Response))
	// Close waits for pending response handlers and releases the tab.
	Close() error
}

// Browser opens sessions.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
}

// skippedResources are sub-resources whose bodies are never inspected.
var skippedResources = map[string]bool{
	"image":      true,
	"font":       true,
	"stylesheet": true,
	"media":      true,
}

// IsSubresource reports whether resourceType is an image, font, stylesheet or
// media request.
func IsSubresource(resourceType string) bool {
	return skippedResources[strings.ToLower(resourceType)]
}
