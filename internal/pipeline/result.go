package pipeline

import (
	"regexp"
	"strings"

	"github.com/sells-group/menu-scout/internal/model"
)

var catalogIDRe = regexp.MustCompile(`(\d+)/?$`)

// Export and inline display delimiters.
const (
	ExportSep  = "\n"
	DisplaySep = ", "
	summarySep = " | "
)

// Result is the assembled outcome of an item.
type Result struct {
	URL          string
	CatalogID    string
	DineoutOnly  bool
	NotFound     bool
	PromoCodes   []string
	Items99      []string
	Offers       *model.OfferMap
	Rating       string
	TotalRatings string
	Error        string
}

// CatalogID returns the trailing digit run of url, or "".
func CatalogID(url string) string {
	m := catalogIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// OfferLines renders each offer category as "category: a, b".
func (r Result) OfferLines() []string {
	cats := r.Offers.Categories()
	lines := make([]string, 0, len(cats))
	for _, c := range cats {
		lines = append(lines, c+": "+strings.Join(r.Offers.Items(c), DisplaySep))
	}
	return lines
}

// OfferSummary is the one-line offer text shown in the live table.
func (r Result) OfferSummary() string {
	return strings.Join(r.OfferLines(), summarySep)
}

// OfferColumns returns one (column, value) pair per offer category.
func (r Result) OfferColumns() []model.Field {
	cats := r.Offers.Categories()
	cols := make([]model.Field, 0, len(cats))
	for _, c := range cats {
		cols = append(cols, model.Field{
			Column: OfferColumn(c),
			Value:  strings.Join(r.Offers.Items(c), DisplaySep),
		})
	}
	return cols
}

// OfferColumn derives the dynamic export column name of an offer category.
func OfferColumn(category string) string {
	return "offer_" + strings.NewReplacer(" ", "_", "%", "pct").Replace(category)
}

// update builds the live event payload of a successfully extracted item.
func (r Result) update(id, status string) model.Update {
	return model.Update{
		ID:            id,
		Status:        status,
		URL:           r.URL,
		CatalogID:     r.CatalogID,
		DineoutOnly:   r.DineoutOnly,
		NotFound:      r.NotFound,
		Rating:        r.Rating,
		TotalRatings:  r.TotalRatings,
		PromoCodes:    strings.Join(r.PromoCodes, DisplaySep),
		Items99:       strings.Join(r.Items99, DisplaySep),
		OfferItems:    r.OfferSummary(),
		OfferItemsRaw: r.Offers,
		Error:         r.Error,
		Terminal:      true,
	}
}

// Export column names following the input columns.
const (
	ColCatalogID    = "catalog_id"
	ColURL          = "swiggy_url"
	ColStatus       = "status"
	ColDineoutOnly  = "dineout_only"
	ColPromoCodes   = "promo_codes"
	ColItems99      = "99_store_items"
	ColOfferItems   = "offer_items"
	ColRating       = "rating"
	ColTotalRatings = "total_ratings"
	ColError        = "error"
)

var resultColumns = []string{
	ColCatalogID, ColURL, ColStatus, ColDineoutOnly, ColPromoCodes,
	ColItems99, ColOfferItems, ColRating, ColTotalRatings, ColError,
}

// Rows lays out items as an export table: the input columns, the fixed result
// columns, then one column per offer category seen across all rows in
// first-seen order.
func Rows(inputColumns []string, items []*Item) ([]string, [][]string) {
	var dynamic []string
	seen := make(map[string]bool)
	offers := make([]map[string]string, len(items))
	for i, it := range items {
		offers[i] = make(map[string]string)
		for _, f := range it.Result().OfferColumns() {
			offers[i][f.Column] = f.Value
			if !seen[f.Column] {
				seen[f.Column] = true
				dynamic = append(dynamic, f.Column)
			}
		}
	}

	header := make([]string, 0, len(inputColumns)+len(resultColumns)+len(dynamic))
	header = append(header, inputColumns...)
	header = append(header, resultColumns...)
	header = append(header, dynamic...)

	rows := make([][]string, len(items))
	for i, it := range items {
		r := it.Result()
		row := make([]string, 0, len(header))
		for _, c := range inputColumns {
			row = append(row, it.Entity.Value(c))
		}
		row = append(row,
			r.CatalogID,
			r.URL,
			it.Label(),
			boolText(r.DineoutOnly),
			strings.Join(r.PromoCodes, ExportSep),
			strings.Join(r.Items99, ExportSep),
			strings.Join(r.OfferLines(), ExportSep),
			r.Rating,
			r.TotalRatings,
			r.Error,
		)
		for _, c := range dynamic {
			row = append(row, offers[i][c])
		}
		rows[i] = row
	}
	return header, rows
}

func boolText(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
