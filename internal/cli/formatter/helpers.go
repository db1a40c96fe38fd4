package formatter

import (
	"strconv"
	"strings"

	"github.com/aitteam/whm/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		inner := titleRendered + "\n\n" + content
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(content)
}

// EnablePill returns a colored indicator for a project's enable flag.
func EnablePill(enabled bool) string {
	if enabled {
		return StyleGreen.Render("● 啟用")
	}
	return StyleDim.Render("○ 停用")
}

// DateCell renders a date or a dim placeholder.
func DateCell(d domain.DateTime) string {
	if d.IsZero() {
		return StyleDim.Render("--")
	}
	return d.Date()
}

// FormatHour renders hours without trailing zeros, e.g. "2.5h".
func FormatHour(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// Truncate shortens s to at most width visible cells, ending with "…".
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// Placeholder renders empty values as a dim "--".
func Placeholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return StyleDim.Render("--")
	}
	return s
}
