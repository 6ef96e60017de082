package model

// Required input column names for a batch upload.
const (
	ColumnName     = "Restaurant Name"
	ColumnLocation = "Location"
)

// Field is a single column/value pair from an input row.
type Field struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Entity is one input record to resolve. Extra holds every input column
// (including name and location) in the order it was read.
type Entity struct {
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Extra    []Field `json:"extra,omitempty"`
}

// Columns returns the input column names in order.
func (e Entity) Columns() []string {
	cols := make([]string, len(e.Extra))
	for i, f := range e.Extra {
		cols[i] = f.Column
	}
	return cols
}

// Values returns the input values in column order.
func (e Entity) Values() []string {
	vals := make([]string, len(e.Extra))
	for i, f := range e.Extra {
		vals[i] = f.Value
	}
	return vals
}

// Value returns the value of the named input column, or "" if absent.
func (e Entity) Value(column string) string {
	for _, f := range e.Extra {
		if f.Column == column {
			return f.Value
		}
	}
	return ""
}
