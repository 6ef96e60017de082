package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ResolutionResult is the outcome of resolving an entity to a catalog URL.
// After resolution exactly one of URL != "" and NotFound holds; when both
// delivery and dineout checks fail, URL is still set for diagnostics and
// NotFound wins.
type ResolutionResult struct {
	URL         string `json:"url,omitempty"`
	DineoutOnly bool   `json:"dineout_only"`
	NotFound    bool   `json:"not_found"`
	Error       string `json:"error,omitempty"`
}

// Valid reports whether exactly one of a usable URL or NotFound holds.
func (r ResolutionResult) Valid() bool {
	return r.Usable() != r.NotFound
}

// Usable reports whether the result carries a validated URL.
func (r ResolutionResult) Usable() bool {
	return r.URL != "" && !r.NotFound
}

// ExtractedFacts holds the structured facts derived from a detail page payload.
type ExtractedFacts struct {
	PromoCodes      []string  `json:"promo_codes"`
	NinetyNineItems []string  `json:"items_99"`
	OfferItems      *OfferMap `json:"offer_items"`
	Rating          string    `json:"rating"`
	TotalRatings    string    `json:"total_ratings"`
	Error           string    `json:"error,omitempty"`
}

// HasSignal reports whether the facts contain a rating, a promo code, or a
// flagged item. Extraction retries stop once this is true.
func (f ExtractedFacts) HasSignal() bool {
	return f.Rating != "" || len(f.PromoCodes) > 0 || len(f.NinetyNineItems) > 0
}

// OfferMap is an insertion-ordered mapping of offer category to item names.
// Items are de-duplicated within a category and keep first-seen order.
type OfferMap struct {
	keys  []string
	items map[string][]string
}

// NewOfferMap returns an empty OfferMap.
func NewOfferMap() *OfferMap {
	return &OfferMap{items: make(map[string][]string)}
}

// Add records item under category. Duplicate items in a category are ignored.
func (m *OfferMap) Add(category, item string) {
	if m.items == nil {
		m.items = make(map[string][]string)
	}
	existing, ok := m.items[category]
	if !ok {
		m.keys = append(m.keys, category)
	}
	for _, it := range existing {
		if it == item {
			return
		}
	}
	m.items[category] = append(existing, item)
}

// Categories returns category names in first-seen order.
func (m *OfferMap) Categories() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Items returns the items recorded under category.
func (m *OfferMap) Items(category string) []string {
	if m == nil {
		return nil
	}
	return m.items[category]
}

// Len returns the number of categories.
func (m *OfferMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *OfferMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, eris.Wrap(err, "offer map: marshal key")
			}
			vb, err := json.Marshal(m.items[k])
			if err != nil {
				return nil, eris.Wrap(err, "offer map: marshal items")
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (m *OfferMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "offer map: read token")
	}
	if tok == nil {
		*m = OfferMap{items: make(map[string][]string)}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("offer map: expected object")
	}
	out := OfferMap{items: make(map[string][]string)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "offer map: read key")
		}
		key, _ := kt.(string)
		var items []string
		if err := dec.Decode(&items); err != nil {
			return eris.Wrapf(err, "offer map: decode items for %q", key)
		}
		for _, it := range items {
			out.Add(key, it)
		}
		if len(items) == 0 {
			if _, ok := out.items[key]; !ok {
				out.keys = append(out.keys, key)
				out.items[key] = nil
			}
		}
	}
	*m = out
	return nil
}
