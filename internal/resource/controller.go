// Package resource implements the list controller shared by the accounts,
// categories and transactions screens.
//
// A Controller owns the fetched collection of one resource type, a loading
// flag, the create/edit dialog and the two-phase delete staging. Every
// successful write is followed by a full reload; items are never patched
// locally.
package resource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"flowfinance/internal/core"
	"flowfinance/internal/log"
)

var (
	// ErrBusy is returned when a write is already in flight on the controller.
	ErrBusy          = errors.New("another change is still in progress")
	ErrDialogClosed  = errors.New("no create or edit dialog is open")
	ErrNothingStaged = errors.New("no record is staged for deletion")
)

// Mode is the state of the create/edit dialog.
type Mode int

const (
	DialogClosed Mode = iota
	DialogCreate
	DialogEdit
)

func (m Mode) String() string {
	switch m {
	case DialogCreate:
		return "create"
	case DialogEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Ops is the capability bundle a controller drives for one resource type.
type Ops[R any, F any] struct {
	// Name labels logs and change events, e.g. "accounts".
	Name   string
	List   func(ctx context.Context) ([]R, error)
	Create func(ctx context.Context, form F) (R, error)
	Update func(ctx context.Context, id core.ID, form F) (R, error)
	Delete func(ctx context.Context, id core.ID) error
	ID     func(R) core.ID
	// Blank returns the form of a new record.
	Blank func() F
	// FormOf returns the form pre-populated from an existing record.
	FormOf func(R) F
}

// Dialog is the create/edit dialog. Target is only meaningful in edit mode.
type Dialog[R any, F any] struct {
	Mode   Mode
	Target R
	Form   F
}

// State is a snapshot of a controller.
type State[R any, F any] struct {
	Items         []R
	Loading       bool
	Dialog        Dialog[R, F]
	PendingDelete *R
}

// Publisher announces successful writes to other processes.
type Publisher interface {
	PublishChange(ctx context.Context, resource, operation string, id core.ID) error
}

type settings struct {
	publisher Publisher
	guard     func(error) error
	logger    *log.Logger
}

type Option func(*settings)

// WithPublisher publishes a change event after each successful write.
func WithPublisher(p Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

// WithGuard passes every API error through guard before it is returned.
// session.Store.Guard uses this to end the session on auth failures.
func WithGuard(guard func(error) error) Option {
	return func(s *settings) { s.guard = guard }
}

func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l.WithComponent(log.ComponentResource) }
}

// Controller mediates between one resource collection and the API.
//
// Submit and ConfirmDelete are serialized: while one is outstanding the
// other returns ErrBusy instead of starting a second write. The reload that
// follows a write starts only after the write's response has arrived.
type Controller[R any, F any] struct {
	ops      Ops[R, F]
	settings settings

	writing sync.Mutex

	mu            sync.Mutex
	items         []R
	loading       bool
	dialog        Dialog[R, F]
	pendingDelete *R
}

// New creates a controller with an empty collection.
func New[R any, F any](ops Ops[R, F], opts ...Option) *Controller[R, F] {
	s := settings{
		guard:  func(err error) error { return err },
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentResource),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Controller[R, F]{ops: ops, settings: s, items: []R{}}
}

// Name returns the resource name.
func (c *Controller[R, F]) Name() string {
	return c.ops.Name
}

// Refresh replaces the collection with the server's. On failure the previous
// items are kept.
func (c *Controller[R, F]) Refresh(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	apply, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	apply()
	return nil
}

// fetch lists the collection without touching state. The returned function
// installs the result.
func (c *Controller[R, F]) fetch(ctx context.Context) (func(), error) {
	items, err := c.ops.List(ctx)
	if err != nil {
		c.settings.logger.WarnContext(ctx, "Failed to load collection",
			log.NewFields().WithOperation(log.OpList).WithResource(c.ops.Name, 0).WithError(err).ToSlice()...)
		return nil, c.settings.guard(fmt.Errorf("load %s: %w", c.ops.Name, err))
	}
	items = slices.Clone(items)
	if items == nil {
		items = []R{}
	}
	return func() {
		c.mu.Lock()
		c.items = items
		c.mu.Unlock()
		c.settings.logger.DebugContext(ctx, "Collection loaded",
			log.FieldResource, c.ops.Name, log.FieldCount, len(items))
	}, nil
}

func (c *Controller[R, F]) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// BeginCreate opens the dialog with a blank form.
func (c *Controller[R, F]) BeginCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = Dialog[R, F]{Mode: DialogCreate, Form: c.ops.Blank()}
}

// BeginEdit opens the dialog on record with its current values.
func (c *Controller[R, F]) BeginEdit(record R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = Dialog[R, F]{Mode: DialogEdit, Target: record, Form: c.ops.FormOf(record)}
}

// CancelDialog closes the dialog and drops its form.
func (c *Controller[R, F]) CancelDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = Dialog[R, F]{}
}

// Submit creates or updates a record from form, depending on the dialog
// mode. On success the dialog is closed and the collection reloaded; the
// written record is returned even if that reload fails. On failure the
// dialog stays open and nothing changes.
func (c *Controller[R, F]) Submit(ctx context.Context, form F) (R, error) {
	var zero R
	if !c.writing.TryLock() {
		return zero, ErrBusy
	}
	defer c.writing.Unlock()

	c.mu.Lock()
	dialog := c.dialog
	c.mu.Unlock()
	if dialog.Mode == DialogClosed {
		return zero, ErrDialogClosed
	}

	if v, ok := any(form).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return zero, err
		}
	}

	op := log.OpCreate
	var (
		saved R
		err   error
	)
	if dialog.Mode == DialogEdit {
		op = log.OpUpdate
		saved, err = c.ops.Update(ctx, c.ops.ID(dialog.Target), form)
	} else {
		saved, err = c.ops.Create(ctx, form)
	}
	if err != nil {
		c.logFailure(ctx, op, c.idOf(dialog), err)
		return zero, c.settings.guard(fmt.Errorf("%s %s: %w", op, c.ops.Name, err))
	}

	c.mu.Lock()
	c.dialog = Dialog[R, F]{}
	c.mu.Unlock()

	id := c.ops.ID(saved)
	c.settings.logger.InfoContext(ctx, "Record saved",
		log.NewFields().WithOperation(op).WithResource(c.ops.Name, int64(id)).ToSlice()...)
	c.publish(ctx, op, id)
	return saved, c.Refresh(ctx)
}

// RequestDelete stages record for deletion without contacting the server.
func (c *Controller[R, F]) RequestDelete(record R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDelete = &record
}

// CancelDelete drops the staged record.
func (c *Controller[R, F]) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDelete = nil
}

// ConfirmDelete deletes the staged record. Staging is cleared whatever the
// outcome; on failure the record stays in items until the next reload.
func (c *Controller[R, F]) ConfirmDelete(ctx context.Context) error {
	if !c.writing.TryLock() {
		return ErrBusy
	}
	defer c.writing.Unlock()

	c.mu.Lock()
	staged := c.pendingDelete
	c.pendingDelete = nil
	c.mu.Unlock()
	if staged == nil {
		return ErrNothingStaged
	}

	id := c.ops.ID(*staged)
	if err := c.ops.Delete(ctx, id); err != nil {
		c.logFailure(ctx, log.OpDelete, id, err)
		return c.settings.guard(fmt.Errorf("delete %s %d: %w", c.ops.Name, id, err))
	}

	c.settings.logger.InfoContext(ctx, "Record deleted",
		log.NewFields().WithOperation(log.OpDelete).WithResource(c.ops.Name, int64(id)).ToSlice()...)
	c.publish(ctx, log.OpDelete, id)
	return c.Refresh(ctx)
}

// State returns a snapshot. Items are copied.
func (c *Controller[R, F]) State() State[R, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State[R, F]{
		Items:   slices.Clone(c.items),
		Loading: c.loading,
		Dialog:  c.dialog,
	}
	if c.pendingDelete != nil {
		staged := *c.pendingDelete
		st.PendingDelete = &staged
	}
	return st
}

// Items returns a copy of the loaded collection in server order.
func (c *Controller[R, F]) Items() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Lookup finds a loaded record by id.
func (c *Controller[R, F]) Lookup(id core.ID) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if c.ops.ID(item) == id {
			return item, true
		}
	}
	var zero R
	return zero, false
}

func (c *Controller[R, F]) idOf(d Dialog[R, F]) core.ID {
	if d.Mode == DialogEdit {
		return c.ops.ID(d.Target)
	}
	return 0
}

func (c *Controller[R, F]) logFailure(ctx context.Context, op string, id core.ID, err error) {
	c.settings.logger.WarnContext(ctx, "Write rejected",
		log.NewFields().WithOperation(op).WithResource(c.ops.Name, int64(id)).WithError(err).ToSlice()...)
}

// publish announces a write. Failures are logged only: the write itself
// already succeeded.
func (c *Controller[R, F]) publish(ctx context.Context, op string, id core.ID) {
	if c.settings.publisher == nil {
		return
	}
	if err := c.settings.publisher.PublishChange(ctx, c.ops.Name, op, id); err != nil {
		c.settings.logger.WarnContext(ctx, "Failed to publish change",
			log.NewFields().WithOperation(op).WithResource(c.ops.Name, int64(id)).WithError(err).ToSlice()...)
	}
}
