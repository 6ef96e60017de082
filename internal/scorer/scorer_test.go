package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-scout/internal/model"
)

func TestIsDetailURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want bool
	}{
		{"https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456", true},
		{"https://www.swiggy.com/city/mumbai/leopold-cafe-colaba-rest12345", true},
		{"https://www.swiggy.com/city/mumbai", false},
		{"https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai", false},
		{"https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-rest", false},
		{"https://www.swiggy.com/restaurants/pizza-hut-123-abc", false},
		{"https://www.swiggy.com/restaurants/valid-url-12345/", true},
		{"https://www.swiggy.com/restaurants/valid-url-12345?src=ddg", true},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsDetailURL(tt.href))
		})
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pizza hut colaba mumbai 123456",
		Slug("https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456"))
	assert.Equal(t, "leopold cafe colaba rest12345",
		Slug("https://www.swiggy.com/city/mumbai/leopold-cafe-colaba-rest12345"))
	assert.Empty(t, Slug("https://www.swiggy.com/"))
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	base := "https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456"
	assert.Equal(t, base, Canonicalize(base+"/dineout"))
	assert.Equal(t, base, Canonicalize(base+"/menu"))
	assert.Equal(t, base, Canonicalize(base+"/"))
	assert.Equal(t, base, Canonicalize(base))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cafe mondegar s ", Normalize("Café%20Mondegar's!"))
	assert.Equal(t, "https //www swiggy com/restaurants/a-1", Normalize("https://www.swiggy.com/restaurants/a-1"))
	assert.Empty(t, Normalize(""))
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.75, Similarity("abcd", "bcde"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("pizza hut", "pizza hut"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", ""), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	assert.Equal(t, Similarity("kitchen", "chicken"), Similarity("kitchen", "chicken"))
}

func TestSimilarity_ComparesRunes(t *testing.T) {
	t.Parallel()

	// "é" is one rune but two bytes.
	assert.InDelta(t, 0.75, Similarity("café", "cafe"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("मुंबई", "मुंबई"), 1e-9)
}

func TestSelect_PrefersStrongLocation(t *testing.T) {
	t.Parallel()

	links := []model.Link{
		{Text: "Pizza Hut Andheri", Href: "https://www.swiggy.com/restaurants/pizza-hut-andheri-mumbai-654321"},
		{Text: "Pizza Hut, Colaba", Href: "https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456"},
		{Text: "Pizza Hut Colaba menu", Href: "https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai"},
	}

	got, ok := Select(links, "Pizza Hut", "Colaba")
	require.True(t, ok)
	assert.Equal(t, "https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456", got.Href)
	assert.Equal(t, model.TierStrong, got.Tier)
	assert.True(t, got.SlugTokenMatch)
}

func TestSelect_RejectsUnrelated(t *testing.T) {
	t.Parallel()

	links := []model.Link{
		{Text: "Burger King", Href: "https://www.swiggy.com/restaurants/burger-king-colaba-111"},
		{Text: "Swiggy", Href: "https://www.swiggy.com/city/mumbai"},
	}

	_, ok := Select(links, "Pizza Hut", "Colaba")
	assert.False(t, ok)
}

func TestSelect_Deterministic(t *testing.T) {
	t.Parallel()

	links := []model.Link{
		{Text: "Theobroma", Href: "https://www.swiggy.com/restaurants/theobroma-colaba-mumbai-1"},
		{Text: "Theobroma", Href: "https://www.swiggy.com/restaurants/theobroma-colaba-mumbai-2"},
	}

	first, ok := Select(links, "Theobroma", "Colaba")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, _ := Select(links, "Theobroma", "Colaba")
		assert.Equal(t, first, again)
	}
	// Equal keys keep input order.
	assert.Equal(t, "https://www.swiggy.com/restaurants/theobroma-colaba-mumbai-1", first.Href)
}

func TestBest_SlugMatchOutranksScore(t *testing.T) {
	t.Parallel()

	cands := []model.Candidate{
		{Href: "a", NameScore: 0.95, SlugTokenMatch: false, Tier: model.TierStrong},
		{Href: "b", NameScore: 0.50, SlugTokenMatch: true, Tier: model.TierStrong},
		{Href: "c", NameScore: 0.99, SlugTokenMatch: true, Tier: model.TierLoose},
	}

	got, ok := Best(cands)
	require.True(t, ok)
	assert.Equal(t, "b", got.Href)
}

func TestBest_FallsBackThroughTiers(t *testing.T) {
	t.Parallel()

	loose := []model.Candidate{
		{Href: "none", NameScore: 0.9, Tier: model.TierNone},
		{Href: "loose", NameScore: 0.5, Tier: model.TierLoose},
	}
	got, _ := Best(loose)
	assert.Equal(t, "loose", got.Href)

	none := []model.Candidate{
		{Href: "x", NameScore: 0.6, Tier: model.TierNone},
		{Href: "y", NameScore: 0.7, Tier: model.TierNone},
	}
	got, _ = Best(none)
	assert.Equal(t, "y", got.Href)

	_, ok := Best(nil)
	assert.False(t, ok)
}
