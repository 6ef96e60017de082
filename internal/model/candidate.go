package model

// LocationTier ranks how strongly a candidate link matches the entity location.
type LocationTier int

const (
	TierNone LocationTier = iota
	TierLoose
	TierStrong
)

func (t LocationTier) String() string {
	switch t {
	case TierStrong:
		return "strong"
	case TierLoose:
		return "loose"
	default:
		return "none"
	}
}

// Candidate is a hyperlink observed during search, before validation.
type Candidate struct {
	DisplayText    string       `json:"display_text"`
	Href           string       `json:"href"`
	Slug           string       `json:"slug"`
	NameScore      float64      `json:"name_score"`
	SlugTokenMatch bool         `json:"slug_token_match"`
	Tier           LocationTier `json:"tier"`
}

// Link is a raw hyperlink observed in search results.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}
