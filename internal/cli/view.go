package cli

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewID identifies each type of view in the TUI.
type ViewID int

const (
	ViewLogin ViewID = iota
	ViewSignup
	ViewProjects
	ViewTasks
	ViewWorks
	ViewUsers
	ViewForm
	ViewUserInfo
)

// View is the interface that all TUI views must implement.
// It extends tea.Model with navigation and help metadata.
type View interface {
	tea.Model
	ID() ViewID
	ShortHelp() []key.Binding // key hints shown in the bottom bar
	Title() string            // breadcrumb segment for this view
}

// closer is implemented by views that own in-flight work and must release it
// when they leave the stack.
type closer interface {
	Close()
}

func closeView(v View) {
	if c, ok := v.(closer); ok {
		c.Close()
	}
}

// viewCapturesInput returns true if the view has its own text input and
// should receive all key events, bypassing global keys like q and esc.
func viewCapturesInput(v View) bool {
	if v == nil {
		return false
	}
	switch v.ID() {
	case ViewLogin, ViewSignup, ViewForm:
		return true
	}
	return false
}

// section is one sidebar entry of the signed-in shell.
type section struct {
	id    ViewID
	label string
	key   string
}

var sections = []section{
	{ViewProjects, "專案", "1"},
	{ViewTasks, "任務", "2"},
	{ViewWorks, "工時", "3"},
	{ViewUsers, "人員", "4"},
}

func sectionIndex(id ViewID) int {
	for i, s := range sections {
		if s.id == id {
			return i
		}
	}
	return -1
}

func isSection(id ViewID) bool { return sectionIndex(id) >= 0 }
