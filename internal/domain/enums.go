package domain

import (
	"fmt"
	"strings"
)

type TaskType string

const (
	TaskCommon    TaskType = "COMMON"
	TaskUrgent    TaskType = "URGENT"
	TaskImportant TaskType = "IMPORTANT"
)

// TaskTypes lists every task type in display order.
var TaskTypes = []TaskType{TaskCommon, TaskUrgent, TaskImportant}

func (t TaskType) Valid() bool {
	switch t {
	case TaskCommon, TaskUrgent, TaskImportant:
		return true
	}
	return false
}

func (t TaskType) Label() string {
	switch t {
	case TaskCommon:
		return "Common"
	case TaskUrgent:
		return "Urgent"
	case TaskImportant:
		return "Important"
	}
	return string(t)
}

// ParseTaskType accepts the wire value case-insensitively. Empty means COMMON.
func ParseTaskType(s string) (TaskType, error) {
	if s == "" {
		return TaskCommon, nil
	}
	for _, t := range TaskTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q (must be COMMON, URGENT or IMPORTANT)", s)
}

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleNormal Role = "Normal"
	RoleOther  Role = "Other"
)

var Roles = []Role{RoleAdmin, RoleNormal, RoleOther}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNormal, RoleOther:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid role %q (must be Admin, Normal or Other)", s)
}

// LoginType records how the current session was established.
type LoginType string

const (
	LoginNormal LoginType = "NORMAL"
	LoginGoogle LoginType = "GOOGLE"
)
