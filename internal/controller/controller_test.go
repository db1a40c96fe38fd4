package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

// memStore is a newest-first in-memory collection with failure injection.
type memStore struct {
	mu       sync.Mutex
	items    []item
	seq      int
	failNext error
	fetches  int
}

func (s *memStore) take() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *memStore) fetch(_ context.Context, page, perPage int) (domain.Page[item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if err := s.take(); err != nil {
		return domain.Page[item]{}, err
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(s.items))
	var out []item
	if start < len(s.items) {
		out = append(out, s.items[start:end]...)
	}
	return domain.Page[item]{
		Items:      out,
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(s.items),
		TotalPages: domain.TotalPagesFor(len(s.items), perPage),
	}, nil
}

func (s *memStore) create(_ context.Context, it item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.take(); err != nil {
		return err
	}
	s.seq++
	it.ID = fmt.Sprintf("r%d", s.seq)
	s.items = append([]item{it}, s.items...)
	return nil
}

func (s *memStore) update(_ context.Context, id string, it item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.take(); err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Name = it.Name
			return nil
		}
	}
	return backend.ErrNotFound()
}

func (s *memStore) remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.take(); err != nil {
		return err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return backend.ErrNotFound()
}

func (s *memStore) seed(n int) {
	for i := 1; i <= n; i++ {
		_ = s.create(context.Background(), item{Name: fmt.Sprintf("item %d", i)})
	}
}

func newController(s *memStore, perPage int) *Controller[item] {
	return New(Ops[item]{
		Fetch:  s.fetch,
		Create: s.create,
		Update: s.update,
		Delete: s.remove,
		ID:     func(it item) string { return it.ID },
		Blank:  func() item { return item{} },
	}, WithPerPage[item](perPage))
}

func names(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestFetch_LoadsPage(t *testing.T) {
	s := &memStore{}
	s.seed(3)
	c := newController(s, 2)
	assert.Equal(t, StateIdle, c.State())

	req, err := c.BeginFetch(1)
	require.NoError(t, err)
	assert.Equal(t, StateLoading, c.State())
	assert.True(t, c.Loading())

	notice, applied := c.Complete(req.Run())
	assert.True(t, applied)
	assert.Equal(t, NoticeNone, notice.Kind)
	assert.Equal(t, StateLoaded, c.State())
	assert.False(t, c.Loading())
	assert.Equal(t, []string{"item 3", "item 2"}, names(c.Items()))
	assert.Equal(t, 2, c.TotalPages())
	assert.False(t, c.HasPrev())
	assert.True(t, c.HasNext())
}

func TestFetch_IdempotentRead(t *testing.T) {
	s := &memStore{}
	s.seed(7)
	c := newController(s, 3)
	for p := 1; p <= 3; p++ {
		_, err := c.Do(c.BeginFetch(p))
		require.NoError(t, err)
		first := c.Page()
		_, err = c.Do(c.BeginFetch(p))
		require.NoError(t, err)
		assert.Equal(t, first, c.Page(), "page %d", p)
	}
}

func TestFetch_PageBounds(t *testing.T) {
	s := &memStore{}
	s.seed(3)
	c := newController(s, 2)

	_, err := c.BeginFetch(0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = c.Do(c.BeginFetch(1))
	require.NoError(t, err)
	before := s.fetches

	_, err = c.BeginFetch(3)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = c.BeginPrev()
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Equal(t, before, s.fetches, "out-of-range requests issue nothing")
	assert.Equal(t, StateLoaded, c.State())

	_, err = c.Do(c.BeginNext())
	require.NoError(t, err)
	assert.Equal(t, 2, c.CurrentPage())
	assert.False(t, c.HasNext())
}

func TestFetch_EmptyListAllowsOnlyFirstPage(t *testing.T) {
	c := newController(&memStore{}, 10)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)
	assert.Empty(t, c.Items())
	assert.Equal(t, 0, c.TotalPages())
	_, err = c.BeginFetch(2)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestFetch_FailureKeepsPreviousList(t *testing.T) {
	s := &memStore{}
	s.seed(2)
	c := newController(s, 10)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	s.failNext = errors.New("connection refused")
	notice, err := c.Do(c.BeginRefresh())
	require.Error(t, err)
	assert.Equal(t, NoticeError, notice.Kind)
	assert.Equal(t, errclass.MsgGeneric, notice.Text)
	assert.Equal(t, StateError, c.State())
	assert.False(t, c.Loading())
	assert.Len(t, c.Items(), 2)
}

func TestFetch_FailedPageChangeKeepsCursor(t *testing.T) {
	s := &memStore{}
	s.seed(6)
	c := newController(s, 2)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	s.failNext = errors.New("connection refused")
	_, err = c.Do(c.BeginNext())
	require.Error(t, err)
	assert.Equal(t, 1, c.CurrentPage())
	assert.Equal(t, 1, c.Page().Page)
	assert.False(t, c.HasPrev())
	assert.True(t, c.HasNext())
	assert.Equal(t, []string{"item 6", "item 5"}, names(c.Items()))

	_, err = c.Do(c.BeginNext())
	require.NoError(t, err)
	assert.Equal(t, 2, c.CurrentPage())
	assert.Equal(t, []string{"item 4", "item 3"}, names(c.Items()))

	s.failNext = errors.New("connection refused")
	_, err = c.Do(c.BeginPrev())
	require.Error(t, err)
	assert.Equal(t, 2, c.CurrentPage())

	_, err = c.Do(c.BeginRefresh())
	require.NoError(t, err)
	assert.Equal(t, []string{"item 4", "item 3"}, names(c.Items()))
}

func TestAdd_CreateThenRefetchShowsRecordOnce(t *testing.T) {
	s := &memStore{}
	s.seed(10)
	c := newController(s, 10)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	require.NoError(t, c.OpenAdd())
	assert.Equal(t, StateModalOpen, c.State())
	assert.Equal(t, ModeAdd, c.Mode())

	draft := c.Draft()
	draft.Name = "Review"
	notice, err := c.Do(c.BeginSubmit(draft))
	require.NoError(t, err)
	assert.Equal(t, Notice{Kind: NoticeSuccess, Text: MsgCreated}, notice)
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, ModeNone, c.Mode())

	count := 0
	for _, it := range c.Items() {
		if it.Name == "Review" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "Review", c.Items()[0].Name)
	assert.Equal(t, 2, c.TotalPages())
}

func TestEdit_UpdatesRecord(t *testing.T) {
	s := &memStore{}
	s.seed(2)
	c := newController(s, 10)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	target := c.Items()[1]
	require.NoError(t, c.OpenEdit(target))
	assert.Equal(t, ModeEdit, c.Mode())
	assert.Equal(t, target.ID, c.EditingID())

	target.Name = "renamed"
	notice, err := c.Do(c.BeginSubmit(target))
	require.NoError(t, err)
	assert.Equal(t, MsgUpdated, notice.Text)
	assert.Equal(t, "renamed", c.Items()[1].Name)
}

func TestCancel_DiscardsDraftWithoutBackendCall(t *testing.T) {
	s := &memStore{}
	s.seed(1)
	c := newController(s, 10)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)
	before := s.fetches

	require.NoError(t, c.OpenAdd())
	c.Cancel()
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, ModeNone, c.Mode())
	assert.Equal(t, before, s.fetches)
	assert.Len(t, s.items, 1)

	_, err = c.BeginSubmit(item{Name: "late"})
	assert.ErrorIs(t, err, ErrNoModal)
}

func TestModal_BlocksPaging(t *testing.T) {
	s := &memStore{}
	s.seed(1)
	c := newController(s, 10)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)
	require.NoError(t, c.OpenAdd())

	_, err = c.BeginFetch(1)
	assert.ErrorIs(t, err, ErrModalOpen)
	assert.ErrorIs(t, c.OpenEdit(c.Items()[0]), ErrModalOpen)
}

func TestDelete_RecordNeverReappears(t *testing.T) {
	s := &memStore{}
	s.seed(5)
	c := newController(s, 2)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	victim := c.Items()[0]
	notice, err := c.Do(c.BeginDelete(victim))
	require.NoError(t, err)
	assert.Equal(t, MsgDeleted, notice.Text)

	for p := 1; p <= c.TotalPages(); p++ {
		_, err := c.Do(c.BeginFetch(p))
		require.NoError(t, err)
		assert.NotContains(t, c.Items(), victim)
	}
}

func TestDelete_LastItemOnLastPageClampsPage(t *testing.T) {
	s := &memStore{}
	s.seed(3)
	c := newController(s, 2)
	_, err := c.Do(c.BeginFetch(2))
	require.NoError(t, err)
	require.Len(t, c.Items(), 1)

	_, err = c.Do(c.BeginDelete(c.Items()[0]))
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentPage())
	assert.Equal(t, 1, c.TotalPages())
	assert.Len(t, c.Items(), 2)
}

func TestFailedMutationsLeaveListUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		run     func(c *Controller[item]) (Request[item], error)
	}{
		{"create forbidden", backend.ErrNotFound(), errclass.MsgForbidden, func(c *Controller[item]) (Request[item], error) {
			if err := c.OpenAdd(); err != nil {
				return Request[item]{}, err
			}
			return c.BeginSubmit(item{Name: "new"})
		}},
		{"update server error", backend.NewError(500, "boom"), errclass.MsgGeneric, func(c *Controller[item]) (Request[item], error) {
			if err := c.OpenEdit(c.Items()[0]); err != nil {
				return Request[item]{}, err
			}
			return c.BeginSubmit(item{ID: c.EditingID(), Name: "changed"})
		}},
		{"delete forbidden", backend.NewError(403, "no"), errclass.MsgForbidden, func(c *Controller[item]) (Request[item], error) {
			return c.BeginDelete(c.Items()[0])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &memStore{}
			s.seed(3)
			c := newController(s, 10)
			_, err := c.Do(c.BeginFetch(1))
			require.NoError(t, err)
			before := c.Page()
			fetches := s.fetches

			s.failNext = tt.err
			notice, err := c.Do(tt.run(c))
			require.Error(t, err)
			assert.Equal(t, tt.message, notice.Text)
			assert.Equal(t, before, c.Page())
			assert.Equal(t, fetches, s.fetches, "no refetch after a failed mutation")
			assert.Equal(t, StateLoaded, c.State())
			assert.Equal(t, ModeNone, c.Mode(), "form closes even on failure")
			assert.False(t, c.Loading())
		})
	}
}

func TestUnsupportedOps(t *testing.T) {
	s := &memStore{}
	s.seed(1)
	c := New(Ops[item]{
		Fetch:  s.fetch,
		Update: s.update,
		ID:     func(it item) string { return it.ID },
		Blank:  func() item { return item{} },
	})
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	assert.False(t, c.CanCreate())
	assert.False(t, c.CanDelete())
	assert.True(t, c.CanUpdate())
	assert.ErrorIs(t, c.OpenAdd(), ErrUnsupported)
	_, err = c.BeginDelete(c.Items()[0])
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	s := &memStore{}
	s.seed(5)
	c := newController(s, 2)
	_, err := c.Do(c.BeginFetch(1))
	require.NoError(t, err)

	older, err := c.BeginFetch(2)
	require.NoError(t, err)
	newer, err := c.BeginFetch(3)
	require.NoError(t, err)
	olderRes, newerRes := older.Run(), newer.Run()

	_, applied := c.Complete(newerRes)
	assert.True(t, applied)
	assert.True(t, c.Loading(), "older request still outstanding")

	_, applied = c.Complete(olderRes)
	assert.False(t, applied)
	assert.False(t, c.Loading())
	assert.Equal(t, 3, c.CurrentPage())
	assert.Equal(t, StateLoaded, c.State())
}

func TestClose_DropsInFlightResults(t *testing.T) {
	s := &memStore{}
	s.seed(2)
	c := newController(s, 10)

	req, err := c.BeginFetch(1)
	require.NoError(t, err)
	c.Close()
	assert.True(t, c.Closed())
	assert.False(t, c.Loading())

	res := req.Run()
	notice, applied := c.Complete(res)
	assert.False(t, applied)
	assert.Equal(t, Notice{}, notice)
	assert.Empty(t, c.Items())

	_, err = c.BeginFetch(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_CancelsRequestContext(t *testing.T) {
	seen := make(chan error, 1)
	c := New(Ops[item]{
		Fetch: func(ctx context.Context, page, perPage int) (domain.Page[item], error) {
			<-ctx.Done()
			seen <- ctx.Err()
			return domain.Page[item]{}, ctx.Err()
		},
		ID:    func(it item) string { return it.ID },
		Blank: func() item { return item{} },
	})
	req, err := c.BeginFetch(1)
	require.NoError(t, err)

	done := make(chan Result[item], 1)
	go func() { done <- req.Run() }()
	c.Close()

	assert.ErrorIs(t, <-seen, context.Canceled)
	res := <-done
	assert.ErrorIs(t, res.Err(), context.Canceled)
}
