// Package message is the single dismissible notification shown at the top
// of the dashboard.
package message

import (
	"fmt"
	"time"

	"github.com/aitteam/whm/internal/cli/formatter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultDuration is how long a message stays up without an explicit close.
const DefaultDuration = 5000 * time.Millisecond

type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity accepts the lower-case names returned by String.
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range []Severity{Info, Success, Warning, Error} {
		if sev.String() == s {
			return sev, nil
		}
	}
	return Info, fmt.Errorf("unknown severity %q", s)
}

var box = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	PaddingLeft(1).
	PaddingRight(1)

func renderInfo(text string) string {
	return box.BorderForeground(formatter.ColorBlue).Render(formatter.StyleBlue.Render("ℹ ") + text)
}

func renderSuccess(text string) string {
	return box.BorderForeground(formatter.ColorGreen).Render(formatter.StyleGreen.Render("✔ ") + text)
}

func renderWarning(text string) string {
	return box.BorderForeground(formatter.ColorYellow).Render(formatter.StyleYellow.Render("▲ ") + text)
}

func renderError(text string) string {
	return box.BorderForeground(formatter.ColorRed).Render(formatter.StyleRed.Render("✖ ") + text)
}

// Render draws text in the style of sev.
func Render(sev Severity, text string) string {
	switch sev {
	case Info:
		return renderInfo(text)
	case Success:
		return renderSuccess(text)
	case Warning:
		return renderWarning(text)
	case Error:
		return renderError(text)
	}
	panic(fmt.Sprintf("message: unhandled severity %d", int(sev)))
}

// Message is the notification currently on screen.
type Message struct {
	ID       int
	Severity Severity
	Text     string
	ShownAt  time.Time
	Duration time.Duration
}

// DismissMsg is delivered when a message's timer fires. It only removes the
// message it was scheduled for.
type DismissMsg struct {
	ID int
}

// Surface holds at most one message. A new Show replaces the current one.
type Surface struct {
	duration time.Duration
	now      func() time.Time
	current  *Message
	nextID   int
}

type Option func(*Surface)

func WithDuration(d time.Duration) Option {
	return func(s *Surface) {
		if d > 0 {
			s.duration = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Surface) { s.now = now }
}

func New(opts ...Option) *Surface {
	s := &Surface{duration: DefaultDuration, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Surface) Duration() time.Duration { return s.duration }

// Show displays text and returns the command that dismisses it later.
func (s *Surface) Show(sev Severity, text string) tea.Cmd {
	s.nextID++
	id := s.nextID
	s.current = &Message{
		ID:       id,
		Severity: sev,
		Text:     text,
		ShownAt:  s.now(),
		Duration: s.duration,
	}
	return tea.Tick(s.duration, func(time.Time) tea.Msg {
		return DismissMsg{ID: id}
	})
}

func (s *Surface) Info(text string) tea.Cmd { return s.Show(Info, text) }
func (s *Surface) Success(text string) tea.Cmd { return s.Show(Success, text) }
func (s *Surface) Warning(text string) tea.Cmd { return s.Show(Warning, text) }
func (s *Surface) Error(text string) tea.Cmd { return s.Show(Error, text) }

// Close removes the current message.
func (s *Surface) Close() {
	s.current = nil
}

// Update consumes DismissMsg. It reports whether msg was handled.
func (s *Surface) Update(msg tea.Msg) bool {
	d, ok := msg.(DismissMsg)
	if !ok {
		return false
	}
	if s.current != nil && s.current.ID == d.ID {
		s.current = nil
	}
	return true
}

// Current returns the message on screen.
func (s *Surface) Current() (Message, bool) {
	if s.current == nil {
		return Message{}, false
	}
	return *s.current, true
}

// VisibleAt reports whether a message is still shown at now, whether or not
// its dismiss timer has been delivered yet.
func (s *Surface) VisibleAt(now time.Time) bool {
	if s.current == nil {
		return false
	}
	return now.Before(s.current.ShownAt.Add(s.current.Duration))
}

// View renders the current message, or "" when none is shown.
func (s *Surface) View() string {
	if s.current == nil {
		return ""
	}
	return Render(s.current.Severity, s.current.Text)
}
