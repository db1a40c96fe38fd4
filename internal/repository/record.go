package repository

import (
	"context"
	"fmt"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

// Backend collection names.
const (
	ProjectsCollection = "ait_whm_projects"
	TasksCollection    = "ait_whm_tasks"
	WorksCollection    = "ait_whm_works"
	UsersCollection    = backend.UsersCollection
)

// NewestFirst is the sort applied to every list.
const NewestFirst = "-created"

// recordRepo maps one backend collection onto the domain type T.
type recordRepo[T any] struct {
	client  backend.Client
	name    string
	noun    string
	expand  string
	payload func(*T) backend.Record
}

func (r *recordRepo[T]) collection() backend.Collection {
	return r.client.Collection(r.name)
}

func (r *recordRepo[T]) List(ctx context.Context, q ListQuery) (domain.Page[T], error) {
	res, err := r.collection().GetList(ctx, q.Page, q.PerPage, backend.ListOptions{
		Sort:   NewestFirst,
		Expand: r.expand,
		Filter: q.Filter,
	})
	if err != nil {
		return domain.Page[T]{}, fmt.Errorf("listing %ss: %w", r.noun, err)
	}
	items := make([]T, 0, len(res.Items))
	for _, rec := range res.Items {
		var item T
		if err := backend.Decode(rec, &item); err != nil {
			return domain.Page[T]{}, fmt.Errorf("decoding %s %s: %w", r.noun, rec.ID(), err)
		}
		items = append(items, item)
	}
	return domain.Page[T]{
		Items:      items,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalItems: res.TotalItems,
		TotalPages: res.TotalPages,
	}, nil
}

func (r *recordRepo[T]) Get(ctx context.Context, id string) (*T, error) {
	rec, err := r.collection().GetOne(ctx, id, backend.ListOptions{Expand: r.expand})
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", r.noun, id, err)
	}
	return r.decode(rec)
}

func (r *recordRepo[T]) Create(ctx context.Context, item *T) (*T, error) {
	rec, err := r.collection().Create(ctx, r.payload(item))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", r.noun, err)
	}
	return r.decode(rec)
}

func (r *recordRepo[T]) Update(ctx context.Context, id string, item *T) (*T, error) {
	return r.patch(ctx, id, r.payload(item))
}

func (r *recordRepo[T]) patch(ctx context.Context, id string, data backend.Record) (*T, error) {
	rec, err := r.collection().Update(ctx, id, data)
	if err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", r.noun, id, err)
	}
	return r.decode(rec)
}

func (r *recordRepo[T]) Delete(ctx context.Context, id string) error {
	if err := r.collection().Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting %s %s: %w", r.noun, id, err)
	}
	return nil
}

func (r *recordRepo[T]) decode(rec backend.Record) (*T, error) {
	var item T
	if err := backend.Decode(rec, &item); err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", r.noun, rec.ID(), err)
	}
	return &item, nil
}

// nonNil keeps multi-relation fields serialized as [] rather than null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
