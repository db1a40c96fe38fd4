package controller

import (
	"context"

	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
)

// Request is one issued operation. The zero Request is invalid.
type Request[T any] struct {
	ctx     context.Context
	gen     uint64
	op      errclass.Op
	page    int
	perPage int
	fetch   func(ctx context.Context, page, perPage int) (domain.Page[T], error)
	mutate  func(ctx context.Context) error
}

func (r Request[T]) Op() errclass.Op { return r.op }

// Result is the outcome of Request.Run, applied with Controller.Complete.
type Result[T any] struct {
	gen       uint64
	op        errclass.Op
	page      domain.Page[T]
	fetched   bool
	mutateErr error
	fetchErr  error
}

func (r Result[T]) Op() errclass.Op { return r.op }

// Err returns the first failure of the request, if any.
func (r Result[T]) Err() error {
	if r.mutateErr != nil {
		return r.mutateErr
	}
	return r.fetchErr
}

// Run performs the backend I/O. A mutation that fails skips the refetch so
// the displayed list stays as it was. A refetch that lands past the last
// page, because the mutation removed it, falls back to the new last page.
func (r Request[T]) Run() Result[T] {
	res := Result[T]{gen: r.gen, op: r.op}
	if r.mutate != nil {
		if err := r.mutate(r.ctx); err != nil {
			res.mutateErr = err
			return res
		}
	}

	page, err := r.fetch(r.ctx, r.page, r.perPage)
	if err == nil && r.mutate != nil && page.TotalPages > 0 && r.page > page.TotalPages {
		page, err = r.fetch(r.ctx, page.TotalPages, r.perPage)
	}
	if err != nil {
		res.fetchErr = err
		return res
	}
	if page.Page == 0 {
		page.Page = r.page
	}
	res.page = page
	res.fetched = true
	return res
}
