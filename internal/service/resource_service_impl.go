package service

import (
	"context"

	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/repository"
)

// allPageSize is the page size used when walking a whole collection.
const allPageSize = 200

type recordStore[T any] interface {
	List(ctx context.Context, q repository.ListQuery) (domain.Page[T], error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) error
}

type resourceService[T any] struct {
	store    recordStore[T]
	noun     string
	validate func(*T) error
	prepare  func(*T)
	observer UseCaseObserver
}

func NewProjectService(projects repository.ProjectRepo, observers ...UseCaseObserver) ProjectService {
	return &resourceService[domain.Project]{
		store:    projects,
		noun:     "project",
		validate: (*domain.Project).Validate,
		observer: useCaseObserverOrNoop(observers),
	}
}

func NewTaskService(tasks repository.TaskRepo, observers ...UseCaseObserver) TaskService {
	return &resourceService[domain.Task]{
		store:    tasks,
		noun:     "task",
		validate: (*domain.Task).Validate,
		observer: useCaseObserverOrNoop(observers),
	}
}

// UserIDSource yields the id of the signed-in user.
type UserIDSource interface {
	UserID() string
}

func NewWorkService(works repository.WorkRepo, sess UserIDSource, observers ...UseCaseObserver) WorkService {
	return &resourceService[domain.Work]{
		store:    works,
		noun:     "work",
		validate: (*domain.Work).Validate,
		prepare: func(w *domain.Work) {
			if w.OwnUser == "" {
				w.OwnUser = sess.UserID()
			}
		},
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *resourceService[T]) List(ctx context.Context, page, perPage int) (out domain.Page[T], err error) {
	done := track(ctx, s.observer, s.noun+".list", map[string]any{"page": page, "per_page": perPage})
	defer func() { done(err) }()
	return s.store.List(ctx, repository.ListQuery{Page: page, PerPage: perPage})
}

func (s *resourceService[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	for page := 1; ; page++ {
		res, err := s.store.List(ctx, repository.ListQuery{Page: page, PerPage: allPageSize})
		if err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
		if page >= res.TotalPages {
			return items, nil
		}
	}
}

func (s *resourceService[T]) Get(ctx context.Context, id string) (*T, error) {
	return s.store.Get(ctx, id)
}

func (s *resourceService[T]) Create(ctx context.Context, item *T) (out *T, err error) {
	done := track(ctx, s.observer, s.noun+".create", nil)
	defer func() { done(err) }()
	if s.prepare != nil {
		s.prepare(item)
	}
	if err := s.validate(item); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, item)
}

func (s *resourceService[T]) Update(ctx context.Context, id string, item *T) (out *T, err error) {
	done := track(ctx, s.observer, s.noun+".update", map[string]any{"id": id})
	defer func() { done(err) }()
	if err := s.validate(item); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, item)
}

func (s *resourceService[T]) Delete(ctx context.Context, id string) (err error) {
	done := track(ctx, s.observer, s.noun+".delete", map[string]any{"id": id})
	defer func() { done(err) }()
	return s.store.Delete(ctx, id)
}
