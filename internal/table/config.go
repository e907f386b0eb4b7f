// Package table implements the generic editable-table controller: a
// type-parameterized state machine that manages per-row read/edit/create
// lifecycle for a collection of records, without knowing the domain type.
//
// The controller owns presentation state only. The caller owns validation
// and persistence: each commit is handed to a Handler which returns nil on
// success or a Feedback describing what went wrong, and only a nil result
// lets the row transition.
package table

import "encoding/json"

// CellKind selects the input widget and formatter for a column.
type CellKind string

const (
	CellText     CellKind = "text"
	CellNumber   CellKind = "number"
	CellBool     CellKind = "bool"
	CellDate     CellKind = "date"
	CellCurrency CellKind = "currency"
	CellTextarea CellKind = "textarea"
	CellSelect   CellKind = "select"
)

// Column describes one typed column of the grid.
type Column struct {
	// Code identifies the column and keys select options, placeholders
	// and field errors.
	Code string

	// Name is the rendered header label.
	Name string

	Kind     CellKind
	Sortable bool

	// Mandatory marks the column visually; the requiredness check itself
	// belongs to the caller's format validation.
	Mandatory bool
}

// SelectOption is one entry of a select-kind column's option list.
type SelectOption struct {
	ID    string
	Label string
}

// SortDirection orders a sorted column.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Config describes a table: its columns, the template for created rows and
// the hooks the controller needs to treat the domain type opaquely.
type Config[T any] struct {
	Columns []Column

	// DefaultEntity is deep-copied into each transient creation row.
	DefaultEntity T

	// SelectOptions maps a column code to its option list.
	SelectOptions map[string][]SelectOption

	// Placeholders maps a column code to its empty-input hint.
	Placeholders map[string]string

	// SortColumn and SortDirection give the ordering applied to the rows
	// on every SetData. Callers may retarget them at runtime through
	// Controller.SetSort, restricted to columns marked Sortable.
	SortColumn    string
	SortDirection SortDirection

	// Compare orders two entities by a sortable column's value, returning
	// a negative, zero or positive number. Required as soon as a column is
	// Sortable or SortColumn is set.
	Compare func(a, b T, col string) int

	// ID extracts the stable row identifier. Required: snapshots and
	// in-flight tracking are keyed by it.
	ID func(T) int64

	// Clone deep-copies an entity. When nil, a JSON round trip is used.
	Clone func(T) T

	// Notify receives transient global notifications for API errors,
	// which are not attributable to a specific input. Optional.
	Notify func(message string)
}

// Column returns the column with the given code. A missing code yields a
// zero Column and false rather than breaking the render path.
func (c *Config[T]) Column(code string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Code == code {
			return col, true
		}
	}
	return Column{}, false
}

// OptionsFor returns a select column's options, empty when none are
// configured.
func (c *Config[T]) OptionsFor(code string) []SelectOption {
	return c.SelectOptions[code]
}

// OptionLabel resolves an option id to its label, empty when unknown.
func (c *Config[T]) OptionLabel(code, id string) string {
	for _, opt := range c.SelectOptions[code] {
		if opt.ID == id {
			return opt.Label
		}
	}
	return ""
}

// Placeholder returns the hint for a column, empty when none is set.
func (c *Config[T]) Placeholder(code string) string {
	return c.Placeholders[code]
}

func (c *Config[T]) clone(entity T) T {
	if c.Clone != nil {
		return c.Clone(entity)
	}
	return CloneJSON(entity)
}

// CloneJSON deep-copies an entity through a JSON round trip. It is the
// default Clone and fits the controller's constraint of treating the domain
// type as opaque data.
func CloneJSON[T any](entity T) T {
	var out T
	data, err := json.Marshal(entity)
	if err != nil {
		return entity
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return entity
	}
	return out
}
