// Package scorer ranks search-result links against an entity name and
// location and picks the most plausible catalog detail page.
package scorer

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/model"
)

// MinNameScore is the similarity below which a candidate is rejected unless
// every name token appears in its slug.
const MinNameScore = 0.45

// Score filters links to well-formed detail URLs and scores the survivors
// against name and location. Rejected links are dropped; order is preserved.
func Score(links []model.Link, name, location string) []model.Candidate {
	key := nameKey(name)
	nameTokens := strings.Fields(key)
	locTokens := strings.Fields(nameKey(location))

	var out []model.Candidate
	for _, l := range links {
		if l.Href == "" || !InNamespace(l.Href) || !IsDetailURL(l.Href) {
			continue
		}

		text := Normalize(l.Text)
		href := Normalize(l.Href)
		slug := Slug(l.Href)

		score := max(Similarity(key, text), Similarity(key, slug))
		slugMatch := containsAll(slug, nameTokens)
		if score < MinNameScore && !slugMatch {
			zap.L().Debug("scorer: rejected candidate",
				zap.String("href", l.Href),
				zap.Float64("score", score),
			)
			continue
		}

		c := model.Candidate{
			DisplayText:    text,
			Href:           l.Href,
			Slug:           slug,
			NameScore:      score,
			SlugTokenMatch: slugMatch,
			Tier:           tier(text, href, locTokens),
		}
		zap.L().Debug("scorer: candidate",
			zap.String("href", c.Href),
			zap.Float64("score", c.NameScore),
			zap.Bool("slug_match", c.SlugTokenMatch),
			zap.Stringer("tier", c.Tier),
		)
		out = append(out, c)
	}
	return out
}

// Select returns the best candidate for name and location, already
// canonicalized, or false if nothing survives scoring.
func Select(links []model.Link, name, location string) (model.Candidate, bool) {
	best, ok := Best(Score(links, name, location))
	if !ok {
		return model.Candidate{}, false
	}
	best.Href = Canonicalize(best.Href)
	return best, true
}

// Best picks from the highest non-empty location tier; within it the
// ordering is slug-token match first, then name score, then input order.
// When neither tier has members every candidate competes.
func Best(cands []model.Candidate) (model.Candidate, bool) {
	if len(cands) == 0 {
		return model.Candidate{}, false
	}

	group := byTier(cands, model.TierStrong)
	if len(group) == 0 {
		group = byTier(cands, model.TierLoose)
	}
	if len(group) == 0 {
		group = append([]model.Candidate(nil), cands...)
	}

	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.SlugTokenMatch != b.SlugTokenMatch {
			return a.SlugTokenMatch
		}
		return a.NameScore > b.NameScore
	})
	return group[0], true
}

func byTier(cands []model.Candidate, t model.LocationTier) []model.Candidate {
	var out []model.Candidate
	for _, c := range cands {
		if c.Tier == t {
			out = append(out, c)
		}
	}
	return out
}

func tier(text, href string, locTokens []string) model.LocationTier {
	if containsAll(href, locTokens) && strings.Contains(href, "rest") {
		return model.TierStrong
	}
	if containsAll(text+" "+href, locTokens) {
		return model.TierLoose
	}
	return model.TierNone
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
