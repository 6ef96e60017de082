// Package search finds catalog links for a free-text query through web
// search providers.
package search

import (
	"context"
	"strings"

	"github.com/sells-group/menu-scout/internal/model"
)

// Results is what a provider observed for one query. Title and Text describe
// the results page itself and feed challenge detection.
type Results struct {
	Links     []model.Link
	Title     string
	Text      string
	Challenge bool
	Provider  string
}

// Provider runs a text search and returns ranked links restricted to the
// catalog's restaurant and city namespaces.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) (*Results, error)
}

// Query builds the search query for an entity.
func Query(name, location, brand string) string {
	return strings.TrimSpace(name + ", " + location + " " + brand)
}

// CatalogLinks keeps links on host whose path is under /restaurants or /city,
// dropping exact duplicates.
func CatalogLinks(links []model.Link, host string) []model.Link {
	var out []model.Link
	seen := make(map[string]bool)
	for _, l := range links {
		if !strings.Contains(l.Href, host+"/restaurants") && !strings.Contains(l.Href, host+"/city") {
			continue
		}
		key := l.Text + "\x00" + l.Href
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

var challengeText = []string{"unusual traffic", "i'm not a robot", "captcha"}

// DetectChallenge reports whether a results page is an anti-bot challenge.
func DetectChallenge(title, text string) bool {
	t := strings.ToLower(title)
	if strings.Contains(t, "sorry") || strings.Contains(t, "robot") {
		return true
	}
	body := strings.ToLower(text)
	for _, marker := range challengeText {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
