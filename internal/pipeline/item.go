package pipeline

import (
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-scout/internal/model"
)

// Item is one entity moving through the pipeline. The pipeline goroutine that
// owns an item is its only writer; readers take snapshots.
type Item struct {
	ID     string
	Entity model.Entity

	mu         sync.Mutex
	status     model.ItemStatus
	label      string
	resolution *model.ResolutionResult
	facts      *model.ExtractedFacts
	result     Result
}

// NewItem creates a Pending item. index is the entity's position in the batch
// and becomes its id.
func NewItem(index int, e model.Entity) *Item {
	return &Item{ID: strconv.Itoa(index), Entity: e, status: model.ItemPending}
}

// NewItems creates one Pending item per entity, in order.
func NewItems(entities []model.Entity) []*Item {
	items := make([]*Item, len(entities))
	for i, e := range entities {
		items[i] = NewItem(i, e)
	}
	return items
}

// Status returns the current status.
func (it *Item) Status() model.ItemStatus {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.status
}

// Label returns the export status text.
func (it *Item) Label() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.label != "" {
		return it.label
	}
	return it.status.Label()
}

// Result returns a copy of the assembled result.
func (it *Item) Result() Result {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.result
}

// Resolution returns the resolution outcome, or nil before search finished.
func (it *Item) Resolution() *model.ResolutionResult {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.resolution
}

// Facts returns the last extraction observation, or nil if extraction never ran.
func (it *Item) Facts() *model.ExtractedFacts {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.facts
}

// Transition moves the item to next. It fails when the item is already
// terminal or when next is not reachable from the current status.
func (it *Item) Transition(next model.ItemStatus) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.transitionLocked(next)
}

func (it *Item) transitionLocked(next model.ItemStatus) error {
	if it.status.Terminal() {
		return eris.Errorf("pipeline: item %s is terminal (%s)", it.ID, it.status)
	}
	if !it.status.CanTransition(next) {
		return eris.Errorf("pipeline: illegal transition %s -> %s for item %s", it.status, next, it.ID)
	}
	it.status = next
	return nil
}

func (it *Item) setResolution(r model.ResolutionResult) {
	it.mu.Lock()
	it.resolution = &r
	it.mu.Unlock()
}

func (it *Item) setFacts(f model.ExtractedFacts) {
	it.mu.Lock()
	it.facts = &f
	it.mu.Unlock()
}

// finish moves the item to a terminal status and stores its result in one step.
func (it *Item) finish(status model.ItemStatus, label string, r Result) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if err := it.transitionLocked(status); err != nil {
		return err
	}
	it.label = label
	it.result = r
	return nil
}
