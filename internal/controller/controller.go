// Package controller manages one page of one record type together with its
// add/edit modal and create/update/delete lifecycle.
//
// Every operation has three phases. Begin* runs on the UI goroutine, applies
// the state transition and returns a Request. Request.Run performs the
// backend I/O and may run on any goroutine. Complete applies the Result back
// on the UI goroutine. Each Request carries the generation it was issued
// under; results from an older generation, or from a closed controller, do
// not replace the displayed page.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 10

var (
	ErrPageOutOfRange = errors.New("page out of range")
	ErrUnsupported    = errors.New("operation not supported on this screen")
	ErrModalOpen      = errors.New("close the form first")
	ErrNoModal        = errors.New("no form is open")
	ErrClosed         = errors.New("controller closed")
)

// State is the screen-level lifecycle of a controller.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateModalOpen
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateModalOpen:
		return "modal"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Mode tells whether the open form adds a record or edits one.
type Mode int

const (
	ModeNone Mode = iota
	ModeAdd
	ModeEdit
)

// Ops are the backend operations a screen configures. Fetch, ID and Blank
// are required; a nil Create, Update or Delete disables that action.
type Ops[T any] struct {
	Fetch  func(ctx context.Context, page, perPage int) (domain.Page[T], error)
	Create func(ctx context.Context, item T) error
	Update func(ctx context.Context, id string, item T) error
	Delete func(ctx context.Context, id string) error
	ID     func(item T) string
	Blank  func() T
}

// NoticeKind selects how a Notice is rendered on the message line.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is the outcome a screen reports to the user after Complete.
type Notice struct {
	Kind    NoticeKind
	Text    string
	Failure *errclass.Failure
}

// Success texts per mutation.
const (
	MsgCreated = "新增成功"
	MsgUpdated = "更新成功"
	MsgDeleted = "刪除成功"
)

// Controller is not safe for concurrent use; Begin*, Complete and the
// accessors belong to one goroutine. Request.Run is the only part meant to
// run elsewhere.
type Controller[T any] struct {
	ops     Ops[T]
	perPage int

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	state    State
	mode     Mode
	draft    T
	editID   string
	page     domain.Page[T]
	current  int
	loaded   bool
	failure  *errclass.Failure
	gen      uint64
	inflight int
}

// Option configures a Controller built by New.
type Option[T any] func(*Controller[T])

// WithPerPage sets the page size. Non-positive values keep DefaultPerPage.
func WithPerPage[T any](n int) Option[T] {
	return func(c *Controller[T]) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithContext parents the controller lifetime on ctx.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(c *Controller[T]) {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}
}

// New returns an idle controller over ops. Nothing is fetched until the
// first BeginFetch.
func New[T any](ops Ops[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{ops: ops, perPage: DefaultPerPage}
	for _, opt := range opts {
		opt(c)
	}
	if c.ctx == nil {
		c.ctx, c.cancel = context.WithCancel(context.Background())
	}
	return c
}

func (c *Controller[T]) State() State { return c.state }
func (c *Controller[T]) Mode() Mode { return c.mode }
func (c *Controller[T]) Draft() T { return c.draft }
func (c *Controller[T]) EditingID() string { return c.editID }
func (c *Controller[T]) Items() []T { return c.page.Items }
func (c *Controller[T]) Page() domain.Page[T] { return c.page }
func (c *Controller[T]) PerPage() int { return c.perPage }
func (c *Controller[T]) Loading() bool { return c.inflight > 0 }
func (c *Controller[T]) Failure() *errclass.Failure { return c.failure }
func (c *Controller[T]) Closed() bool { return c.closed }
func (c *Controller[T]) CanCreate() bool { return c.ops.Create != nil }
func (c *Controller[T]) CanUpdate() bool { return c.ops.Update != nil }
func (c *Controller[T]) CanDelete() bool { return c.ops.Delete != nil }
func (c *Controller[T]) TotalPages() int { return c.page.TotalPages }

// CurrentPage is the page on display, 1 before the first load. A fetch
// that fails or goes stale leaves it where it was.
func (c *Controller[T]) CurrentPage() int {
	if c.current < 1 {
		return 1
	}
	return c.current
}

func (c *Controller[T]) HasPrev() bool { return c.loaded && c.CurrentPage() > 1 }
func (c *Controller[T]) HasNext() bool { return c.loaded && c.CurrentPage() < c.page.TotalPages }

// Close ends the controller lifetime. In-flight requests are cancelled and
// their results ignored.
func (c *Controller[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.inflight = 0
	c.cancel()
}

func (c *Controller[T]) checkPage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: %d < 1", ErrPageOutOfRange, page)
	}
	if last := max(c.page.TotalPages, 1); c.loaded && page > last {
		return fmt.Errorf("%w: %d > %d", ErrPageOutOfRange, page, last)
	}
	return nil
}

func (c *Controller[T]) issue(op errclass.Op, page int) Request[T] {
	c.gen++
	c.inflight++
	c.state = StateLoading
	return Request[T]{
		ctx:     c.ctx,
		gen:     c.gen,
		op:      op,
		page:    page,
		perPage: c.perPage,
		fetch:   c.ops.Fetch,
	}
}

// BeginFetch requests page. Once a page has loaded, pages outside
// 1..max(TotalPages, 1) fail with ErrPageOutOfRange and issue nothing.
func (c *Controller[T]) BeginFetch(page int) (Request[T], error) {
	if c.closed {
		return Request[T]{}, ErrClosed
	}
	if c.state == StateModalOpen {
		return Request[T]{}, ErrModalOpen
	}
	if err := c.checkPage(page); err != nil {
		return Request[T]{}, err
	}
	return c.issue(errclass.OpFetch, page), nil
}

func (c *Controller[T]) BeginRefresh() (Request[T], error) { return c.BeginFetch(c.CurrentPage()) }
func (c *Controller[T]) BeginNext() (Request[T], error) { return c.BeginFetch(c.CurrentPage() + 1) }
func (c *Controller[T]) BeginPrev() (Request[T], error) { return c.BeginFetch(c.CurrentPage() - 1) }

func (c *Controller[T]) restState() State {
	switch {
	case c.inflight > 0:
		return StateLoading
	case c.loaded:
		return StateLoaded
	case c.failure != nil:
		return StateError
	}
	return StateIdle
}

// OpenAdd opens the form with a blank draft.
func (c *Controller[T]) OpenAdd() error {
	if c.ops.Create == nil {
		return ErrUnsupported
	}
	return c.open(ModeAdd, c.ops.Blank(), "")
}

// OpenEdit opens the form on item.
func (c *Controller[T]) OpenEdit(item T) error {
	if c.ops.Update == nil {
		return ErrUnsupported
	}
	return c.open(ModeEdit, item, c.ops.ID(item))
}

func (c *Controller[T]) open(mode Mode, draft T, id string) error {
	if c.closed {
		return ErrClosed
	}
	if c.state == StateModalOpen {
		return ErrModalOpen
	}
	c.state = StateModalOpen
	c.mode = mode
	c.draft = draft
	c.editID = id
	return nil
}

// Cancel closes the form without touching the backend.
func (c *Controller[T]) Cancel() {
	if c.state != StateModalOpen {
		return
	}
	c.closeModal()
	c.state = c.restState()
}

func (c *Controller[T]) closeModal() {
	var zero T
	c.mode = ModeNone
	c.draft = zero
	c.editID = ""
}

// BeginSubmit closes the form and sends draft as a create (Add mode) or an
// update of the edited record (Edit mode). The form closes whatever the
// outcome.
func (c *Controller[T]) BeginSubmit(draft T) (Request[T], error) {
	if c.closed {
		return Request[T]{}, ErrClosed
	}
	if c.state != StateModalOpen {
		return Request[T]{}, ErrNoModal
	}
	mode, id := c.mode, c.editID
	c.closeModal()

	var req Request[T]
	switch mode {
	case ModeAdd:
		create := c.ops.Create
		req = c.issue(errclass.OpCreate, c.CurrentPage())
		req.mutate = func(ctx context.Context) error { return create(ctx, draft) }
	default:
		update := c.ops.Update
		req = c.issue(errclass.OpUpdate, c.CurrentPage())
		req.mutate = func(ctx context.Context) error { return update(ctx, id, draft) }
	}
	return req, nil
}

// BeginDelete removes item and refetches the current page.
func (c *Controller[T]) BeginDelete(item T) (Request[T], error) {
	if c.closed {
		return Request[T]{}, ErrClosed
	}
	if c.ops.Delete == nil {
		return Request[T]{}, ErrUnsupported
	}
	if c.state == StateModalOpen {
		return Request[T]{}, ErrModalOpen
	}
	del, id := c.ops.Delete, c.ops.ID(item)
	req := c.issue(errclass.OpDelete, c.CurrentPage())
	req.mutate = func(ctx context.Context) error { return del(ctx, id) }
	return req, nil
}

// Complete applies res. It reports the notice to show and whether the
// displayed page was replaced.
func (c *Controller[T]) Complete(res Result[T]) (Notice, bool) {
	if c.closed {
		return Notice{}, false
	}
	if c.inflight > 0 {
		c.inflight--
	}
	current := res.gen == c.gen

	var notice Notice
	switch {
	case res.mutateErr != nil:
		notice = c.fail(res.op, res.mutateErr)
	case res.fetchErr != nil:
		notice = c.fail(errclass.OpFetch, res.fetchErr)
	default:
		notice = successNotice(res.op)
	}

	applied := false
	if current && res.fetched && res.fetchErr == nil {
		c.page = res.page
		c.current = res.page.Page
		c.loaded = true
		c.failure = nil
		applied = true
	}

	if c.state != StateModalOpen {
		switch {
		case c.inflight > 0:
			c.state = StateLoading
		case current && res.fetchErr != nil:
			c.state = StateError
		default:
			c.state = c.restState()
		}
	}
	return notice, applied
}

func (c *Controller[T]) fail(op errclass.Op, err error) Notice {
	f := errclass.Classify(op, err)
	c.failure = f
	return Notice{Kind: NoticeError, Text: f.Message, Failure: f}
}

func successNotice(op errclass.Op) Notice {
	switch op {
	case errclass.OpCreate:
		return Notice{Kind: NoticeSuccess, Text: MsgCreated}
	case errclass.OpUpdate:
		return Notice{Kind: NoticeSuccess, Text: MsgUpdated}
	case errclass.OpDelete:
		return Notice{Kind: NoticeSuccess, Text: MsgDeleted}
	}
	return Notice{}
}

// Do runs a request synchronously. It accepts a Begin* result directly:
//
//	notice, err := c.Do(c.BeginFetch(1))
//
// The returned error is the Begin error or the classified failure.
func (c *Controller[T]) Do(req Request[T], err error) (Notice, error) {
	if err != nil {
		return Notice{}, err
	}
	notice, _ := c.Complete(req.Run())
	if notice.Failure != nil {
		return notice, notice.Failure
	}
	return notice, nil
}
