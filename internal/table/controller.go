package table

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// RowState is the lifecycle state of one row.
type RowState string

const (
	// Read is the resting state of a persisted row.
	Read RowState = "read"

	// Edit marks a row being modified; its pre-edit snapshot is held
	// until commit or cancel.
	Edit RowState = "edit"

	// New marks the single transient creation row.
	New RowState = "new"
)

// Action tells the commit handler what the caller intends.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var (
	// ErrNoSuchRow means the id matches no row. Raised on explicit user
	// actions, never from render-path lookups.
	ErrNoSuchRow = errors.New("no row with this id")

	// ErrNotEditable means the action requires the row to be in Edit.
	ErrNotEditable = errors.New("row is not being edited")

	// ErrCreateInProgress means a transient creation row already exists.
	ErrCreateInProgress = errors.New("a row creation is already in progress")

	// ErrNoNewRow means no creation row exists to commit or cancel.
	ErrNoNewRow = errors.New("no row creation in progress")

	// ErrCommitInFlight means the row already has an outstanding commit.
	ErrCommitInFlight = errors.New("a commit is already in flight for this row")

	// ErrNotSortable means SetSort named a column that is unknown or not
	// marked Sortable.
	ErrNotSortable = errors.New("column is not sortable")
)

// Row wraps one record with its presentation state.
type Row[T any] struct {
	// ID is the stable identifier correlating the row across renders.
	// The creation row has ID zero until it is persisted.
	ID     int64
	Data   T
	State  RowState
	Errors []FieldError
}

// ErrorFor returns the message attached to a field, empty when none is.
// Safe to call from the render path with any field name.
func (r *Row[T]) ErrorFor(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// RowErrors returns the row-level (business) error messages.
func (r *Row[T]) RowErrors() []string {
	var msgs []string
	for _, e := range r.Errors {
		if e.Field == "" {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// Commit is what the controller hands to the caller on a commit intent.
type Commit[T any] struct {
	Action Action

	// Entity is the row's data as the user submitted it.
	Entity T

	// All is the full collection, for cross-entity validation.
	All []T
}

// Handler performs the caller's side of a commit: format validation first,
// then business rules, then persistence. It returns nil on success. The
// controller calls it exactly once per commit attempt, without holding the
// controller lock, so handlers on different rows may run concurrently.
type Handler[T any] func(ctx context.Context, c Commit[T]) *Feedback

// Controller is the generic editable-table state machine.
type Controller[T any] struct {
	cfg     Config[T]
	handler Handler[T]

	mu        sync.Mutex
	rows      []*Row[T]
	snapshots map[int64]T // pre-edit copies, keyed by stable row id
	inflight  map[int64]bool
	creating  bool // a New row exists
	newBusy   bool // the New row has an outstanding commit
}

// NewController builds a controller. The config's ID hook is mandatory, and
// Compare is mandatory as soon as any column is sortable.
func NewController[T any](cfg Config[T], handler Handler[T]) (*Controller[T], error) {
	if cfg.ID == nil {
		return nil, errors.New("table: Config.ID is required")
	}
	if handler == nil {
		return nil, errors.New("table: handler is required")
	}
	if cfg.Compare == nil {
		if cfg.SortColumn != "" {
			return nil, errors.New("table: Config.Compare is required when SortColumn is set")
		}
		for _, col := range cfg.Columns {
			if col.Sortable {
				return nil, errors.New("table: Config.Compare is required for sortable columns")
			}
		}
	}
	if cfg.SortColumn != "" && cfg.SortDirection == "" {
		cfg.SortDirection = SortAsc
	}
	return &Controller[T]{
		cfg:       cfg,
		handler:   handler,
		snapshots: make(map[int64]T),
		inflight:  make(map[int64]bool),
	}, nil
}

// Config returns a point-in-time copy of the configuration for rendering.
// The copy still shares the option lists, which are replaced wholesale and
// never mutated in place.
func (t *Controller[T]) Config() Config[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// SetSelectOptions replaces the select-box option lists. The map is taken
// as-is; callers must hand over a fresh map rather than mutate a previous
// one.
func (t *Controller[T]) SetSelectOptions(opts map[string][]SelectOption) {
	t.mu.Lock()
	t.cfg.SelectOptions = opts
	t.mu.Unlock()
}

// SetSort retargets the ordering to a column marked Sortable and re-sorts
// the rows. An empty direction means ascending.
func (t *Controller[T]) SetSort(col string, dir SortDirection) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.cfg.Column(col)
	if !ok || !c.Sortable {
		return ErrNotSortable
	}
	if dir != SortDesc {
		dir = SortAsc
	}
	t.cfg.SortColumn = col
	t.cfg.SortDirection = dir
	t.sortLocked()
	return nil
}

// SetData rebuilds the rows from a fresh copy of the backing data.
//
// Rows currently in Edit are correlated by id and preserved as-is (their
// edited data, errors and snapshot survive the re-render); everything else
// is rebuilt in Read state. A transient creation row stays prepended.
func (t *Controller[T]) SetData(data []T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := make(map[int64]*Row[T], len(t.rows))
	var newRow *Row[T]
	for _, r := range t.rows {
		if r.State == New {
			newRow = r
			continue
		}
		old[r.ID] = r
	}

	rows := make([]*Row[T], 0, len(data)+1)
	if newRow != nil {
		rows = append(rows, newRow)
	}
	for _, entity := range data {
		id := t.cfg.ID(entity)
		if prev, ok := old[id]; ok && prev.State == Edit {
			rows = append(rows, prev)
			continue
		}
		rows = append(rows, &Row[T]{ID: id, Data: entity, State: Read})
	}
	t.rows = rows
	t.sortLocked()
}

// sortLocked orders the rows by the configured sort column. The transient
// creation row stays pinned to the top; edited rows sort by their current
// data like everything else.
func (t *Controller[T]) sortLocked() {
	if t.cfg.SortColumn == "" || t.cfg.Compare == nil {
		return
	}
	start := 0
	if len(t.rows) > 0 && t.rows[0].State == New {
		start = 1
	}
	rows := t.rows[start:]
	desc := t.cfg.SortDirection == SortDesc
	sort.SliceStable(rows, func(i, j int) bool {
		c := t.cfg.Compare(rows[i].Data, rows[j].Data, t.cfg.SortColumn)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// Rows returns a snapshot of the rows in display order.
func (t *Controller[T]) Rows() []Row[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Row[T], len(t.rows))
	for i, r := range t.rows {
		out[i] = *r
	}
	return out
}

// Row returns the row with the given id.
func (t *Controller[T]) Row(id int64) (Row[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r := t.find(id); r != nil {
		return *r, true
	}
	return Row[T]{}, false
}

// StartEdit snapshots a row and moves it to Edit.
func (t *Controller[T]) StartEdit(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := t.find(id)
	if row == nil {
		return ErrNoSuchRow
	}
	switch row.State {
	case Edit:
		return nil // already editing, keep the original snapshot
	case New:
		return ErrNotEditable
	}
	t.snapshots[id] = t.cfg.clone(row.Data)
	row.State = Edit
	row.Errors = nil
	return nil
}

// CancelEdit restores a row's pre-edit snapshot and returns it to Read.
func (t *Controller[T]) CancelEdit(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := t.find(id)
	if row == nil {
		return ErrNoSuchRow
	}
	if row.State != Edit {
		return ErrNotEditable
	}
	if t.inflight[id] {
		return ErrCommitInFlight
	}
	row.Data = t.snapshots[id]
	delete(t.snapshots, id)
	row.State = Read
	row.Errors = nil
	return nil
}

// StartCreate prepends the single transient creation row, seeded with a
// deep copy of the default entity. Creation is exclusive: a second call
// while one is pending is rejected.
func (t *Controller[T]) StartCreate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.creating {
		return ErrCreateInProgress
	}
	row := &Row[T]{Data: t.cfg.clone(t.cfg.DefaultEntity), State: New}
	t.rows = append([]*Row[T]{row}, t.rows...)
	t.creating = true
	return nil
}

// CancelCreate removes the transient creation row entirely.
func (t *Controller[T]) CancelCreate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.creating {
		return ErrNoNewRow
	}
	if t.newBusy {
		return ErrCommitInFlight
	}
	t.removeNewLocked()
	return nil
}

// CommitEdit submits an edited row. The row keeps the submitted data either
// way: on success it transitions to Read, on error it stays in Edit carrying
// the feedback so the user can correct and resubmit.
func (t *Controller[T]) CommitEdit(ctx context.Context, id int64, edited T) error {
	t.mu.Lock()
	row := t.find(id)
	if row == nil {
		t.mu.Unlock()
		return ErrNoSuchRow
	}
	if row.State != Edit {
		t.mu.Unlock()
		return ErrNotEditable
	}
	if t.inflight[id] {
		t.mu.Unlock()
		return ErrCommitInFlight
	}
	row.Data = edited
	t.inflight[id] = true
	commit := Commit[T]{Action: ActionEdit, Entity: edited, All: t.collectLocked()}
	t.mu.Unlock()

	fb := t.handler(ctx, commit)

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	if !t.apply(row, fb) {
		return nil
	}
	delete(t.snapshots, id)
	row.State = Read
	return nil
}

// CommitCreate submits the creation row. On success it becomes a normal
// persisted row in Read state; the next SetData refresh brings in its
// server-assigned identifier.
func (t *Controller[T]) CommitCreate(ctx context.Context, draft T) error {
	t.mu.Lock()
	row := t.findNewLocked()
	if row == nil {
		t.mu.Unlock()
		return ErrNoNewRow
	}
	if t.newBusy {
		t.mu.Unlock()
		return ErrCommitInFlight
	}
	row.Data = draft
	t.newBusy = true
	commit := Commit[T]{Action: ActionCreate, Entity: draft, All: t.collectLocked()}
	t.mu.Unlock()

	fb := t.handler(ctx, commit)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.newBusy = false
	if !t.apply(row, fb) {
		return nil
	}
	row.State = Read
	row.ID = t.cfg.ID(row.Data)
	t.creating = false
	return nil
}

// CommitDelete asks the caller to delete a row; the row leaves the
// collection only after the handler confirms success.
func (t *Controller[T]) CommitDelete(ctx context.Context, id int64) error {
	t.mu.Lock()
	row := t.find(id)
	if row == nil {
		t.mu.Unlock()
		return ErrNoSuchRow
	}
	if row.State == New {
		t.mu.Unlock()
		return ErrNotEditable
	}
	if t.inflight[id] {
		t.mu.Unlock()
		return ErrCommitInFlight
	}
	t.inflight[id] = true
	commit := Commit[T]{Action: ActionDelete, Entity: row.Data, All: t.collectLocked()}
	t.mu.Unlock()

	fb := t.handler(ctx, commit)

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	if !t.apply(row, fb) {
		return nil
	}
	t.removeLocked(id)
	delete(t.snapshots, id)
	return nil
}

// apply maps a commit feedback onto row state. It returns true on success.
// Error channels are exclusive by priority: field errors win over business
// errors, which win over the API error; only an API error (nothing better
// to attach) reaches the global notifier.
func (t *Controller[T]) apply(row *Row[T], fb *Feedback) bool {
	if fb.IsSuccess() {
		row.Errors = nil
		return true
	}
	switch {
	case len(fb.FieldErrors) > 0:
		row.Errors = fb.FieldErrors
	case len(fb.BusinessErrors) > 0:
		errs := make([]FieldError, len(fb.BusinessErrors))
		for i, msg := range fb.BusinessErrors {
			errs[i] = FieldError{Message: msg}
		}
		row.Errors = errs
	default:
		row.Errors = nil
		if t.cfg.Notify != nil {
			t.cfg.Notify(fb.APIError)
		}
	}
	return false
}

func (t *Controller[T]) find(id int64) *Row[T] {
	for _, r := range t.rows {
		if r.State != New && r.ID == id {
			return r
		}
	}
	return nil
}

func (t *Controller[T]) findNewLocked() *Row[T] {
	for _, r := range t.rows {
		if r.State == New {
			return r
		}
	}
	return nil
}

func (t *Controller[T]) removeNewLocked() {
	for i, r := range t.rows {
		if r.State == New {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	t.creating = false
}

func (t *Controller[T]) removeLocked(id int64) {
	for i, r := range t.rows {
		if r.State != New && r.ID == id {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return
		}
	}
}

// collectLocked gathers the full collection's data for cross-entity checks.
func (t *Controller[T]) collectLocked() []T {
	all := make([]T, len(t.rows))
	for i, r := range t.rows {
		all[i] = r.Data
	}
	return all
}
