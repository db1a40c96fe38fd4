package formatter

import (
	"fmt"
	"strings"

	"github.com/aitteam/whm/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
	ColorBg     = lipgloss.Color("#3c3836")
)

// Predefined lipgloss styles.
var (
	StyleGreen    = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow   = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed      = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue     = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple   = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim      = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg       = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader   = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold     = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
	StyleSelected = lipgloss.NewStyle().Foreground(ColorFg).Background(ColorBg).Bold(true)
)

// TaskTypeColor returns the style used for a task type.
func TaskTypeColor(t domain.TaskType) lipgloss.Style {
	switch t {
	case domain.TaskUrgent:
		return StyleRed
	case domain.TaskImportant:
		return StyleYellow
	case domain.TaskCommon:
		return StyleBlue
	default:
		return StyleDim
	}
}

// TaskTypeBadge returns a colored label such as "● Urgent".
func TaskTypeBadge(t domain.TaskType) string {
	return TaskTypeColor(t).Render("● " + t.Label())
}

// RoleBadges renders each role in its own color.
func RoleBadges(roles []domain.Role) string {
	if len(roles) == 0 {
		return StyleDim.Render("--")
	}
	parts := make([]string, len(roles))
	for i, r := range roles {
		switch r {
		case domain.RoleAdmin:
			parts[i] = StylePurple.Render(string(r))
		case domain.RoleNormal:
			parts[i] = StyleGreen.Render(string(r))
		default:
			parts[i] = StyleDim.Render(string(r))
		}
	}
	return strings.Join(parts, " ")
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
