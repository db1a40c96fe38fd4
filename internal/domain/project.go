package domain

import "strings"

type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	StartTime   DateTime `json:"start_time"`
	EndTime     DateTime `json:"end_time"`
	Enable      bool     `json:"enable"`
	Note        string   `json:"note"`
	OwnTasks    []string `json:"own_tasks"`
	Created     DateTime `json:"created"`
	Updated     DateTime `json:"updated"`
}

// Validate checks the fields a project must carry before it is written.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "專案名稱不可為空"}
	}
	if !p.StartTime.IsZero() && !p.EndTime.IsZero() && p.EndTime.Before(p.StartTime.Time) {
		return &ValidationError{Field: "end_time", Message: "結束時間不可早於開始時間"}
	}
	return nil
}

// Status returns a short label for the enable flag.
func (p *Project) Status() string {
	if p.Enable {
		return "enabled"
	}
	return "disabled"
}
