package domain

import "strings"

// Work is one work-log entry: hours spent by a user on a task of a project.
type Work struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	OwnUser    string      `json:"own_users"`
	OwnProject string      `json:"own_projects"`
	OwnTask    string      `json:"own_tasks"`
	Note       string      `json:"note"`
	Hour       float64     `json:"hour"`
	StartDate  DateTime    `json:"start_date"`
	EndDate    DateTime    `json:"end_date"`
	Files      []string    `json:"files"`
	Created    DateTime    `json:"created"`
	Updated    DateTime    `json:"updated"`
	Expand     *WorkExpand `json:"expand,omitempty"`
}

// WorkExpand holds the related records returned when a list is fetched
// with relation expansion.
type WorkExpand struct {
	User    *User    `json:"own_users,omitempty"`
	Project *Project `json:"own_projects,omitempty"`
	Task    *Task    `json:"own_tasks,omitempty"`
}

func (w *Work) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return &ValidationError{Field: "name", Message: "工時名稱不可為空"}
	}
	if w.Hour < 0 {
		return &ValidationError{Field: "hour", Message: "工時不可為負數"}
	}
	if !w.StartDate.IsZero() && !w.EndDate.IsZero() && w.EndDate.Before(w.StartDate.Time) {
		return &ValidationError{Field: "end_date", Message: "結束日期不可早於開始日期"}
	}
	return nil
}

// UserLabel prefers the expanded user name over the raw relation id.
func (w *Work) UserLabel() string {
	if w.Expand != nil && w.Expand.User != nil {
		return w.Expand.User.DisplayName()
	}
	return w.OwnUser
}

func (w *Work) ProjectLabel() string {
	if w.Expand != nil && w.Expand.Project != nil {
		return w.Expand.Project.Name
	}
	return w.OwnProject
}

func (w *Work) TaskLabel() string {
	if w.Expand != nil && w.Expand.Task != nil {
		return w.Expand.Task.Name
	}
	return w.OwnTask
}
