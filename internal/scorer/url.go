package scorer

import (
	"regexp"
	"slices"
	"strings"
)

var detailSuffix = regexp.MustCompile(`-(?:rest)?\d+$`)

// IsDetailURL reports whether href has the shape of an entity detail page:
// its path ends in -<digits> or -rest<digits>, ignoring the query string and
// a trailing slash.
func IsDetailURL(href string) bool {
	path, _, _ := strings.Cut(href, "?")
	path = strings.TrimRight(path, "/")
	return detailSuffix.MatchString(path)
}

// InNamespace reports whether href points into the restaurant or city listings.
func InNamespace(href string) bool {
	return strings.Contains(href, "/restaurants/") || strings.Contains(href, "/city/")
}

// Slug derives the human-readable slug from href: the segment following
// "restaurants", or the last segment of a city listing, dashes as spaces.
func Slug(href string) string {
	var parts []string
	for _, p := range strings.Split(href, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	var slug string
	if i := slices.Index(parts, "restaurants"); i >= 0 {
		if i+1 < len(parts) {
			slug = parts[i+1]
		}
	} else {
		for _, p := range parts {
			if p == "city" {
				slug = parts[len(parts)-1]
				break
			}
		}
	}
	return strings.ToLower(strings.ReplaceAll(slug, "-", " "))
}

// Canonicalize strips the dineout segment and a trailing /menu so the
// delivery page is the resolution target.
func Canonicalize(href string) string {
	u := strings.ReplaceAll(href, "/dineout", "")
	u = strings.TrimRight(u, "/")
	return strings.TrimSuffix(u, "/menu")
}
