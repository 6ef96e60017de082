package model

// ItemStatus is the state of a single item in a bulk job.
type ItemStatus string

const (
	ItemPending      ItemStatus = "pending"
	ItemSearching    ItemStatus = "searching"
	ItemExtracting   ItemStatus = "extracting"
	ItemNotFound     ItemStatus = "not_found"
	ItemDineoutOnly  ItemStatus = "dineout_only"
	ItemCompleted    ItemStatus = "completed"
	ItemPartialError ItemStatus = "partial_error"
	ItemError        ItemStatus = "error"
)

// Terminal reports whether no further transitions are allowed from s.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemNotFound, ItemDineoutOnly, ItemCompleted, ItemPartialError, ItemError:
		return true
	}
	return false
}

// Label is the human-readable status text used in exports.
func (s ItemStatus) Label() string {
	switch s {
	case ItemPending:
		return "Pending"
	case ItemSearching:
		return "Searching"
	case ItemExtracting:
		return "Extracting"
	case ItemNotFound:
		return "Not Found"
	case ItemDineoutOnly:
		return "Dineout Only"
	case ItemCompleted:
		return "Completed"
	case ItemPartialError:
		return "Partial Error"
	case ItemError:
		return "Error"
	}
	return string(s)
}

// LabelNotOnCatalog is the status text for items whose detail page turned out
// to be missing during extraction.
const LabelNotOnCatalog = "Not on Swiggy"

// transitions lists the legal edges of the item state machine.
var transitions = map[ItemStatus][]ItemStatus{
	ItemPending:    {ItemSearching, ItemError},
	ItemSearching:  {ItemNotFound, ItemDineoutOnly, ItemExtracting, ItemError},
	ItemExtracting: {ItemCompleted, ItemPartialError, ItemNotFound, ItemError},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// JobStatus is the lifecycle state of a bulk job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
)
