package domain

import "strings"

type Task struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Note    string   `json:"note"`
	Type    TaskType `json:"type"`
	Created DateTime `json:"created"`
	Updated DateTime `json:"updated"`
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Message: "任務名稱不可為空"}
	}
	if t.Type == "" {
		t.Type = TaskCommon
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Message: "任務類型不合法"}
	}
	return nil
}
