package notifications

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
)

// Item wraps a model.Notification for bubbles/list.
type Item struct {
	Notification model.Notification
	now          time.Time
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Title returns the notification headline.
func (i Item) Title() string { return i.Notification.Title }

// Description returns the message and its age.
func (i Item) Description() string {
	parts := []string{relativeTime(i.Notification.CreatedAt, i.now)}
	if i.Notification.Message != "" {
		parts = append([]string{i.Notification.Message}, parts...)
	}
	return strings.Join(parts, " | ")
}

// Delegate renders one notification per line.
type Delegate struct{}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d Delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render draws the headline and the message line of a notification.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	marker := " "
	if !n.Read {
		marker = theme.UnreadMarkerStyle.Render("●")
	}
	icon := theme.NotificationStyle(n.Type).Render(theme.NotificationIcon(n.Type))
	headline := fmt.Sprintf("%s %s %s", marker, icon, n.Title)
	detail := "    " + it.Description()

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	if n.Read {
		detail = theme.DimmedStyle.Render(detail)
	}
	fmt.Fprintf(w, "%s\n%s", style.Render(headline), detail)
}

// relativeTime formats how long ago t was, relative to now.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("Jan 2 15:04")
	}
}
