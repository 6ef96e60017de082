package model

// Event types sent on a job's progress channel.
const (
	EventUpdate   = "update"
	EventComplete = "complete"
)

// Status strings carried by update events.
const (
	EventStatusSearching    = "Searching"
	EventStatusExtracting   = "Extracting"
	EventStatusFailed       = "Failed"
	EventStatusCompleted    = "Completed"
	EventStatusPartialError = "Partial Error"
	EventStatusError        = "Error"
)

// Event is one message on a job's progress stream.
type Event struct {
	Type string  `json:"type"`
	Data *Update `json:"data,omitempty"`
}

// Update describes a state change of one item. Consumers key updates by ID;
// updates for different items interleave arbitrarily.
type Update struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Name          string    `json:"name,omitempty"`
	Location      string    `json:"location,omitempty"`
	URL           string    `json:"swiggy_url,omitempty"`
	CatalogID     string    `json:"catalog_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	DineoutOnly   bool      `json:"dineout_only,omitempty"`
	NotFound      bool      `json:"not_found,omitempty"`
	Rating        string    `json:"rating,omitempty"`
	TotalRatings  string    `json:"total_ratings,omitempty"`
	PromoCodes    string    `json:"promo_codes,omitempty"`
	Items99       string    `json:"items_99,omitempty"`
	OfferItems    string    `json:"offer_items,omitempty"`
	OfferItemsRaw *OfferMap `json:"offer_items_raw,omitempty"`
	Terminal      bool      `json:"terminal,omitempty"`
}

// UpdateEvent wraps u in an update event.
func UpdateEvent(u Update) Event {
	return Event{Type: EventUpdate, Data: &u}
}

// CompleteEvent returns the job-level sentinel event.
func CompleteEvent() Event {
	return Event{Type: EventComplete}
}
