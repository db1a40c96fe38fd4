package repository

import (
	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

type BackendTaskRepo struct {
	recordRepo[domain.Task]
}

func NewBackendTaskRepo(client backend.Client) *BackendTaskRepo {
	return &BackendTaskRepo{recordRepo[domain.Task]{
		client:  client,
		name:    TasksCollection,
		noun:    "task",
		payload: taskPayload,
	}}
}

func taskPayload(t *domain.Task) backend.Record {
	typ := t.Type
	if typ == "" {
		typ = domain.TaskCommon
	}
	return backend.Record{
		"name": t.Name,
		"note": t.Note,
		"type": string(typ),
	}
}
