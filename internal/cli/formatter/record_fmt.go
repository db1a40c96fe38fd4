package formatter

import (
	"fmt"
	"strings"

	"github.com/aitteam/whm/internal/domain"
)

var (
	ProjectHeaders = []string{"ID", "名稱", "描述", "開始", "結束", "狀態", "任務數"}
	TaskHeaders    = []string{"ID", "名稱", "類型", "備註", "建立時間"}
	WorkHeaders    = []string{"ID", "名稱", "人員", "專案", "任務", "工時", "開始", "結束"}
	UserHeaders    = []string{"ID", "名稱", "帳號", "Email", "角色"}
)

const cellWidth = 24

func ProjectRow(p domain.Project) []string {
	return []string{
		TruncID(p.ID),
		Truncate(p.Name, cellWidth),
		Placeholder(Truncate(p.Description, cellWidth)),
		DateCell(p.StartTime),
		DateCell(p.EndTime),
		EnablePill(p.Enable),
		fmt.Sprintf("%d", len(p.OwnTasks)),
	}
}

func TaskRow(t domain.Task) []string {
	return []string{
		TruncID(t.ID),
		Truncate(t.Name, cellWidth),
		TaskTypeBadge(t.Type),
		Placeholder(Truncate(t.Note, cellWidth)),
		DateCell(t.Created),
	}
}

func WorkRow(w domain.Work) []string {
	return []string{
		TruncID(w.ID),
		Truncate(w.Name, cellWidth),
		Placeholder(w.UserLabel()),
		Placeholder(Truncate(w.ProjectLabel(), cellWidth)),
		Placeholder(Truncate(w.TaskLabel(), cellWidth)),
		FormatHour(w.Hour),
		DateCell(w.StartDate),
		DateCell(w.EndDate),
	}
}

func UserRow(u domain.User) []string {
	return []string{
		TruncID(u.ID),
		Placeholder(u.Name),
		Placeholder(u.Username),
		Placeholder(u.Email),
		RoleBadges(u.Roles),
	}
}

// Rows maps items through row.
func Rows[T any](items []T, row func(T) []string) [][]string {
	out := make([][]string, len(items))
	for i, it := range items {
		out[i] = row(it)
	}
	return out
}

// PageFooter renders "page p / n · k items".
func PageFooter[T any](p domain.Page[T]) string {
	total := max(p.TotalPages, 1)
	current := max(p.Page, 1)
	return Dim(fmt.Sprintf("page %d / %d · %d items", current, total, p.TotalItems))
}

// FormatPage renders a page of records as a table plus footer, or an empty
// notice.
func FormatPage[T any](headers []string, p domain.Page[T], row func(T) []string) string {
	if len(p.Items) == 0 {
		return Dim("沒有資料") + "\n" + PageFooter(p) + "\n"
	}
	return RenderTable(headers, Rows(p.Items, row)) + PageFooter(p) + "\n"
}

// FormatUserInfo renders the current-user card.
func FormatUserInfo(u *domain.User, lt domain.LoginType) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render(fmt.Sprintf("%-8s", label)), value))
	}
	line("名稱", Placeholder(u.Name))
	line("帳號", Placeholder(u.Username))
	line("Email", Placeholder(u.Email))
	line("角色", RoleBadges(u.Roles))
	verified := StyleYellow.Render("未驗證")
	if u.Verified {
		verified = StyleGreen.Render("已驗證")
	}
	line("驗證", verified)
	if lt != "" {
		line("登入方式", string(lt))
	}
	line("建立時間", DateCell(u.Created))
	return RenderBox("使用者資訊", strings.TrimRight(b.String(), "\n"))
}
