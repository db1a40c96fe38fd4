// Package loading is the spinner overlay shown while backend requests are
// in flight.
package loading

import (
	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultLabel is shown next to the spinner when no label is given.
const DefaultLabel = "載入中..."

// Overlay counts outstanding operations. It is active while the count is
// above zero, so overlapping requests cannot clear it early.
type Overlay struct {
	spinner spinner.Model
	depth   int
	label   string
}

func New() Overlay {
	s := spinner.New(spinner.WithSpinner(spinner.Spinner{
		Frames: formatter.SpinnerFrames,
		FPS:    formatter.SpinnerInterval,
	}))
	s.Style = formatter.StylePurple
	return Overlay{spinner: s}
}

// Begin registers one operation and returns the spinner tick when the
// overlay turns on.
func (o *Overlay) Begin(label string) tea.Cmd {
	o.depth++
	if label != "" {
		o.label = label
	}
	if o.depth == 1 {
		return o.spinner.Tick
	}
	return nil
}

// End releases one operation. Extra calls are ignored.
func (o *Overlay) End() {
	if o.depth > 0 {
		o.depth--
	}
	if o.depth == 0 {
		o.label = ""
	}
}

// Reset clears every outstanding operation.
func (o *Overlay) Reset() {
	o.depth = 0
	o.label = ""
}

func (o Overlay) Active() bool { return o.depth > 0 }

// Update advances the spinner while active.
func (o *Overlay) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(spinner.TickMsg); !ok || !o.Active() {
		return nil
	}
	var cmd tea.Cmd
	o.spinner, cmd = o.spinner.Update(msg)
	return cmd
}

// View renders the spinner line, or "" when idle.
func (o Overlay) View() string {
	if !o.Active() {
		return ""
	}
	label := o.label
	if label == "" {
		label = DefaultLabel
	}
	return o.spinner.View() + " " + formatter.Dim(label)
}
