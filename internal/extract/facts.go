// Package extract derives structured facts from the backend payload captured
// while a catalog detail page renders.
package extract

import (
	"sort"
	"strings"

	"github.com/sells-group/menu-scout/internal/model"
)

// Payload type tags.
const (
	TypeDish       = "type.googleapis.com/swiggy.presentation.food.v2.Dish"
	TypeRestaurant = "type.googleapis.com/swiggy.presentation.food.v2.Restaurant"
)

// offerKeywords mark a dish category as an offer category.
var offerKeywords = []string{"off", "items starting", "items at", "flat"}

// Rating holds the display strings of the first restaurant node.
type Rating struct {
	Average string `json:"avgRatingString"`
	Total   string `json:"totalRatingsString"`
}

// Facts runs every visitor over root.
func Facts(root *Node) model.ExtractedFacts {
	r := RatingOf(root)
	return model.ExtractedFacts{
		PromoCodes:      PromoCodes(root),
		NinetyNineItems: NinetyNineItems(root),
		OfferItems:      OfferItems(root),
		Rating:          r.Average,
		TotalRatings:    r.Total,
	}
}

// PromoCodes collects every value stored under an "offers" key, anywhere in
// the tree, and renders each offer as "header | couponCode | description"
// with empty parts omitted. Results are unique and in first-seen order.
func PromoCodes(root *Node) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	add := func(offer *Node) {
		text := offerText(offer)
		if text != "" && !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == KindMap {
			for _, k := range n.Keys {
				v := n.Fields[k]
				if k == "offers" {
					for _, offer := range offerEntries(v) {
						add(offer)
					}
				}
				walk(v)
			}
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return out
}

// offerEntries turns the value under an "offers" key into offer maps. String
// values hold a serialized structure; unparseable ones are skipped.
func offerEntries(v *Node) []*Node {
	if v == nil {
		return nil
	}
	if s, ok := v.Str(); ok {
		parsed, err := ParseEmbedded(s)
		if err != nil {
			return nil
		}
		v = parsed
	}
	switch v.Kind {
	case KindMap:
		return []*Node{v}
	case KindList:
		var out []*Node
		for _, it := range v.Items {
			if it.Kind == KindMap {
				out = append(out, it)
			}
		}
		return out
	}
	return nil
}

func offerText(offer *Node) string {
	info := offer.Get("info")
	var parts []string
	for _, key := range []string{"header", "couponCode", "description"} {
		if s := info.GetString(key); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

// NinetyNineItems returns the names of dishes flagged as 99-store items, as a
// sorted set.
func NinetyNineItems(root *Node) []string {
	set := make(map[string]bool)
	eachDish(root, func(info *Node) {
		if info.Get("isNinetyninestoreItem").IsTrue() {
			if name := info.GetString("name"); name != "" {
				set[name] = true
			}
		}
	})
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OfferItems files each dish under its category when the category names an
// offer, and under the title of every offer tag it carries.
func OfferItems(root *Node) *model.OfferMap {
	m := model.NewOfferMap()
	eachDish(root, func(info *Node) {
		name := info.GetString("name")
		if name == "" {
			return
		}
		category := info.GetString("category")
		lower := strings.ToLower(category)
		for _, kw := range offerKeywords {
			if strings.Contains(lower, kw) {
				m.Add(category, name)
				break
			}
		}
		tags := info.Get("offerTags")
		if tags == nil || tags.Kind != KindList {
			return
		}
		for _, tag := range tags.Items {
			if title := tag.GetString("title"); title != "" {
				m.Add(title, name)
			}
		}
	})
	return m
}

// RatingOf reads the rating strings of the first restaurant node in
// depth-first order and stops there.
func RatingOf(root *Node) Rating {
	var r Rating
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		if n == nil {
			return false
		}
		if n.Kind == KindMap && n.GetString("@type") == TypeRestaurant {
			info := n.Get("info")
			r = Rating{Average: info.GetString("avgRatingString"), Total: info.GetString("totalRatingsString")}
			return true
		}
		for _, c := range n.Children() {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return r
}

// eachDish calls fn with the info node of every dish, depth-first. Dishes
// nested inside dishes are visited too.
func eachDish(root *Node, fn func(info *Node)) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == KindMap && n.GetString("@type") == TypeDish {
			fn(n.Get("info"))
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
}
