package web

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/table"
)

// Page is one editable-table screen, bound to a single session.
//
// The concrete type is generic over the entity; this interface is the
// non-generic surface the handlers and templates work with.
type Page interface {
	Key() string
	Title() string

	// Refresh reloads the backing data (and select-box options) from the
	// backend and rebuilds the grid, preserving rows being edited.
	Refresh(ctx context.Context) error

	// Grid returns the render-ready view of the table.
	Grid() GridView

	// SetSort retargets the row ordering to a sortable column.
	SetSort(col, dir string) error

	StartEdit(id int64) error
	CancelEdit(id int64) error
	StartCreate() error
	CancelCreate() error

	CommitEdit(ctx context.Context, id int64, form url.Values) error
	CommitCreate(ctx context.Context, form url.Values) error
	CommitDelete(ctx context.Context, id int64) error

	// Notice returns and clears the transient global notification left by
	// the last API failure.
	Notice() string
}

// GridView is the template-facing projection of a table.
type GridView struct {
	Key           string
	Title         string
	Columns       []table.Column
	SortColumn    string
	SortDirection table.SortDirection
	Rows          []GridRow
}

// GridRow is one rendered row.
type GridRow struct {
	ID        int64
	State     table.RowState
	Cells     []GridCell
	RowErrors []string
}

// GridCell is one rendered cell: its column, formatted value and, for
// select kinds, the option list with the current selection.
type GridCell struct {
	Column      table.Column
	Value       string
	Selected    string
	Options     []table.SelectOption
	Placeholder string
	Error       string
}

// pageDef declares one entity screen. The hooks keep the entity type out
// of the handlers: decode parses a submitted form, format renders a cell,
// selected yields a select column's current option id.
type pageDef[T any] struct {
	key     string
	title   string
	columns []table.Column

	defaultEntity T
	id            func(T) int64

	resource *api.Resource[T]

	// load fetches the collection; defaults to resource.List.
	load func(ctx context.Context) ([]T, error)

	// options fetches fresh select-box option lists, keyed by column code.
	options func(ctx context.Context) (map[string][]table.SelectOption, error)

	// sortColumn/sortDirection give the default ordering; compare orders
	// two entities by a sortable column.
	sortColumn    string
	sortDirection table.SortDirection
	compare       func(a, b T, col string) int

	placeholders map[string]string

	decode   func(form url.Values, base T) T
	format   func(col string, entity T) string
	selected func(col string, entity T) string

	validate func(T) []table.FieldError

	// rules evaluates cross-entity constraints. An error means the check
	// itself could not run (e.g. a lookup failed); per the error-handling
	// design that is logged and the commit proceeds, letting the backend
	// decide.
	rules func(ctx context.Context, entity T, all []T) ([]string, error)
}

// page binds a pageDef to one session's API client and table controller.
type page[T any] struct {
	def    pageDef[T]
	ctrl   *table.Controller[T]
	logger *slog.Logger

	mu     sync.Mutex
	notice string
}

// newPage builds the per-session instance of a screen.
func newPage[T any](def pageDef[T], logger *slog.Logger) (*page[T], error) {
	p := &page[T]{def: def, logger: logger}
	cfg := table.Config[T]{
		Columns:       def.columns,
		DefaultEntity: def.defaultEntity,
		Placeholders:  def.placeholders,
		SortColumn:    def.sortColumn,
		SortDirection: def.sortDirection,
		Compare:       def.compare,
		ID:            def.id,
		Notify:        p.setNotice,
	}
	ctrl, err := table.NewController[T](cfg, p.handleCommit)
	if err != nil {
		return nil, err
	}
	p.ctrl = ctrl
	return p, nil
}

func (p *page[T]) Key() string   { return p.def.key }
func (p *page[T]) Title() string { return p.def.title }

func (p *page[T]) Refresh(ctx context.Context) error {
	load := p.def.load
	if load == nil {
		load = p.def.resource.List
	}
	data, err := load(ctx)
	if err != nil {
		return err
	}
	if p.def.options != nil {
		opts, err := p.def.options(ctx)
		if err != nil {
			return err
		}
		p.ctrl.SetSelectOptions(opts)
	}
	p.ctrl.SetData(data)
	return nil
}

func (p *page[T]) Grid() GridView {
	cfg := p.ctrl.Config()
	rows := p.ctrl.Rows()
	view := GridView{
		Key:           p.def.key,
		Title:         p.def.title,
		Columns:       cfg.Columns,
		SortColumn:    cfg.SortColumn,
		SortDirection: cfg.SortDirection,
		Rows:          make([]GridRow, len(rows)),
	}
	for i, row := range rows {
		gr := GridRow{
			ID:        row.ID,
			State:     row.State,
			RowErrors: row.RowErrors(),
			Cells:     make([]GridCell, len(cfg.Columns)),
		}
		for j, col := range cfg.Columns {
			cell := GridCell{
				Column:      col,
				Value:       p.def.format(col.Code, row.Data),
				Placeholder: cfg.Placeholder(col.Code),
				Error:       row.ErrorFor(col.Code),
			}
			if col.Kind == table.CellSelect {
				cell.Options = cfg.OptionsFor(col.Code)
				if p.def.selected != nil {
					cell.Selected = p.def.selected(col.Code, row.Data)
				}
			}
			gr.Cells[j] = cell
		}
		view.Rows[i] = gr
	}
	return view
}

func (p *page[T]) SetSort(col, dir string) error {
	d := table.SortAsc
	if dir == string(table.SortDesc) {
		d = table.SortDesc
	}
	return p.ctrl.SetSort(col, d)
}

func (p *page[T]) StartEdit(id int64) error  { return p.ctrl.StartEdit(id) }
func (p *page[T]) CancelEdit(id int64) error { return p.ctrl.CancelEdit(id) }
func (p *page[T]) StartCreate() error        { return p.ctrl.StartCreate() }
func (p *page[T]) CancelCreate() error       { return p.ctrl.CancelCreate() }

func (p *page[T]) CommitEdit(ctx context.Context, id int64, form url.Values) error {
	row, ok := p.ctrl.Row(id)
	if !ok {
		return table.ErrNoSuchRow
	}
	return p.ctrl.CommitEdit(ctx, id, p.def.decode(form, row.Data))
}

func (p *page[T]) CommitCreate(ctx context.Context, form url.Values) error {
	base := table.CloneJSON(p.def.defaultEntity)
	return p.ctrl.CommitCreate(ctx, p.def.decode(form, base))
}

func (p *page[T]) CommitDelete(ctx context.Context, id int64) error {
	return p.ctrl.CommitDelete(ctx, id)
}

func (p *page[T]) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := p.notice
	p.notice = ""
	return msg
}

func (p *page[T]) setNotice(msg string) {
	p.mu.Lock()
	p.notice = msg
	p.mu.Unlock()
}

// handleCommit is the caller side of the table's commit protocol: format
// validation first, then business rules, then the REST call. The returned
// feedback carries at most one error channel.
func (p *page[T]) handleCommit(ctx context.Context, c table.Commit[T]) *table.Feedback {
	if c.Action != table.ActionDelete {
		if errs := p.def.validate(c.Entity); len(errs) > 0 {
			return table.Fields(errs...)
		}
		if p.def.rules != nil {
			msgs, err := p.def.rules(ctx, c.Entity, c.All)
			if err != nil {
				// The rule could not be evaluated; let the server decide.
				p.logger.Warn("business rule check failed, deferring to backend",
					"page", p.def.key, "error", err)
			} else if len(msgs) > 0 {
				return table.Business(msgs...)
			}
		}
	}

	if err := p.persist(ctx, c); err != nil {
		p.logger.Warn("commit rejected by backend",
			"page", p.def.key, "action", string(c.Action), "error", err)
		return table.APIFailure(userMessage(err))
	}
	return nil
}

func (p *page[T]) persist(ctx context.Context, c table.Commit[T]) error {
	id := p.def.id(c.Entity)
	switch c.Action {
	case table.ActionCreate:
		_, err := p.def.resource.Create(ctx, c.Entity)
		return err
	case table.ActionEdit:
		_, err := p.def.resource.Update(ctx, id, c.Entity)
		return err
	case table.ActionDelete:
		return p.def.resource.Delete(ctx, id)
	default:
		return errors.New("unknown commit action")
	}
}
