package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aitteam/whm/internal/domain"
)

var testNameCounter atomic.Int64

// UniqueName appends a process-wide counter to prefix.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s %02d", prefix, testNameCounter.Add(1))
}

// Project options
type ProjectOption func(*domain.Project)

func WithSchedule(start, end time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.StartTime = domain.NewDateTime(start)
		p.EndTime = domain.NewDateTime(end)
	}
}

func WithDisabled() ProjectOption {
	return func(p *domain.Project) {
		p.Enable = false
	}
}

func WithOwnTasks(ids ...string) ProjectOption {
	return func(p *domain.Project) {
		p.OwnTasks = ids
	}
}

func WithProjectNote(note string) ProjectOption {
	return func(p *domain.Project) {
		p.Note = note
	}
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	p := &domain.Project{
		Name:        name,
		Description: "test project",
		StartTime:   domain.NewDateTime(now),
		EndTime:     domain.NewDateTime(now.AddDate(0, 1, 0)),
		Enable:      true,
		OwnTasks:    []string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Task options
type TaskOption func(*domain.Task)

func WithTaskType(tt domain.TaskType) TaskOption {
	return func(t *domain.Task) {
		t.Type = tt
	}
}

func WithTaskNote(note string) TaskOption {
	return func(t *domain.Task) {
		t.Note = note
	}
}

func NewTestTask(name string, opts ...TaskOption) *domain.Task {
	t := &domain.Task{
		Name: name,
		Type: domain.TaskCommon,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Work options
type WorkOption func(*domain.Work)

func WithHour(h float64) WorkOption {
	return func(w *domain.Work) {
		w.Hour = h
	}
}

func WithOwner(userID string) WorkOption {
	return func(w *domain.Work) {
		w.OwnUser = userID
	}
}

func WithProject(projectID string) WorkOption {
	return func(w *domain.Work) {
		w.OwnProject = projectID
	}
}

func WithTask(taskID string) WorkOption {
	return func(w *domain.Work) {
		w.OwnTask = taskID
	}
}

func WithWorkDates(start, end time.Time) WorkOption {
	return func(w *domain.Work) {
		w.StartDate = domain.NewDateTime(start)
		w.EndDate = domain.NewDateTime(end)
	}
}

func NewTestWork(name string, opts ...WorkOption) *domain.Work {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	w := &domain.Work{
		Name:      name,
		Hour:      1,
		StartDate: domain.NewDateTime(today),
		EndDate:   domain.NewDateTime(today),
		Files:     []string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}
