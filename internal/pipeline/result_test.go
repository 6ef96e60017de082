package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-scout/internal/model"
)

func TestCatalogID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.swiggy.com/restaurants/pizza-hut-colaba-mumbai-123456", "123456"},
		{"https://www.swiggy.com/restaurants/cafe-rest98765/", "98765"},
		{"https://www.swiggy.com/restaurants/cafe-colaba", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CatalogID(tt.url), tt.url)
	}
}

func TestOfferColumn(t *testing.T) {
	assert.Equal(t, "offer_Pizzas_Flat_50pct_Off", OfferColumn("Pizzas_Flat 50% Off"))
	assert.Equal(t, "offer_Items_at_99", OfferColumn("Items at 99"))
}

func TestResult_OfferRendering(t *testing.T) {
	offers := model.NewOfferMap()
	offers.Add("Items at 99", "Fries")
	offers.Add("Items at 99", "Cake")
	offers.Add("50% OFF", "Pizza")
	r := Result{Offers: offers}

	assert.Equal(t, []string{"Items at 99: Fries, Cake", "50% OFF: Pizza"}, r.OfferLines())
	assert.Equal(t, "Items at 99: Fries, Cake | 50% OFF: Pizza", r.OfferSummary())
	assert.Equal(t, []model.Field{
		{Column: "offer_Items_at_99", Value: "Fries, Cake"},
		{Column: "offer_50pct_OFF", Value: "Pizza"},
	}, r.OfferColumns())

	assert.Empty(t, Result{}.OfferLines())
	assert.Equal(t, "", Result{}.OfferSummary())
}

func TestRows(t *testing.T) {
	first := NewItem(0, entity)
	offers := model.NewOfferMap()
	offers.Add("Items at 99", "Fries")
	require.NoError(t, first.Transition(model.ItemSearching))
	require.NoError(t, first.Transition(model.ItemExtracting))
	require.NoError(t, first.finish(model.ItemCompleted, "", Result{
		URL:          detailURL,
		CatalogID:    "123456",
		PromoCodes:   []string{"A", "B"},
		Items99:      []string{"Fries"},
		Offers:       offers,
		Rating:       "4.4",
		TotalRatings: "1K+ ratings",
	}))

	second := NewItem(1, model.Entity{Name: "Nowhere", Extra: []model.Field{{Column: model.ColumnName, Value: "Nowhere"}}})
	require.NoError(t, second.Transition(model.ItemSearching))
	require.NoError(t, second.finish(model.ItemNotFound, "", Result{NotFound: true, Error: "No search results found"}))

	header, rows := Rows([]string{model.ColumnName, model.ColumnLocation}, []*Item{first, second})
	assert.Equal(t, []string{
		"Restaurant Name", "Location", "catalog_id", "swiggy_url", "status", "dineout_only",
		"promo_codes", "99_store_items", "offer_items", "rating", "total_ratings", "error",
		"offer_Items_at_99",
	}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"Pizza Hut", "Colaba", "123456", detailURL, "Completed", "False",
		"A\nB", "Fries", "Items at 99: Fries", "4.4", "1K+ ratings", "", "Fries",
	}, rows[0])
	assert.Equal(t, []string{
		"Nowhere", "", "", "", "Not Found", "False",
		"", "", "", "", "", "No search results found", "",
	}, rows[1])
}
