package repository

import (
	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

// WorkExpand names the relations expanded on every work read.
const WorkExpand = "own_users,own_projects,own_tasks"

type BackendWorkRepo struct {
	recordRepo[domain.Work]
}

func NewBackendWorkRepo(client backend.Client) *BackendWorkRepo {
	return &BackendWorkRepo{recordRepo[domain.Work]{
		client:  client,
		name:    WorksCollection,
		noun:    "work",
		expand:  WorkExpand,
		payload: workPayload,
	}}
}

func workPayload(w *domain.Work) backend.Record {
	return backend.Record{
		"name":         w.Name,
		"own_users":    w.OwnUser,
		"own_projects": w.OwnProject,
		"own_tasks":    w.OwnTask,
		"note":         w.Note,
		"hour":         w.Hour,
		"start_date":   w.StartDate.String(),
		"end_date":     w.EndDate.String(),
	}
}
