package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
	gosync "github.com/nhle/taskflow/internal/sync"
)

// shortIDLen is how many id characters tables show. Any unique prefix is
// accepted as input.
const shortIDLen = 8

// writeJSON prints v as a {"data": v} envelope.
func (e *Env) writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(map[string]any{"data": v})
}

// emit prints v as JSON, or text for humans.
func (e *Env) emit(cmd *cobra.Command, v any, text string) error {
	if e.JSON {
		return e.writeJSON(cmd, v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// printNotices writes the notifications raised during a command to
// stderr, oldest first.
func (e *Env) printNotices(cmd *cobra.Command, a *app.App) {
	if e.JSON {
		return
	}
	items := a.Center.Items()
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		if n.Read {
			continue
		}
		line := theme.NotificationStyle(n.Type).Render(theme.NotificationIcon(n.Type) + " " + n.Title)
		if n.Message != "" {
			line += ": " + n.Message
		}
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}
}

// renderTable lays rows out under headers.
func renderTable(headers []string, rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// resolveID expands a unique id prefix among items.
func resolveID[T any](items []T, id func(T) string, kind, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%s id must not be empty", kind)
	}

	var matches []string
	for _, it := range items {
		v := id(it)
		if v == prefix {
			return v, nil
		}
		if strings.HasPrefix(v, prefix) {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q not found", kind, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s id %q is ambiguous (%d matches)", kind, prefix, len(matches))
	}
}

// unwrap turns a failed Result into an error.
func unwrap[T any](r gosync.Result[T]) (T, error) {
	if !r.Success {
		if r.Err == nil {
			return r.Data, fmt.Errorf("operation failed")
		}
		return r.Data, r.Err
	}
	return r.Data, nil
}

// dueLayouts are the accepted --due formats. A bare date means the end of
// that day in local time.
var dueLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

func parseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 0, 0, time.Local), nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date %q; use YYYY-MM-DD or \"YYYY-MM-DD HH:MM\"", s)
}

func formatDue(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}
	local := t.Local()
	s := local.Format("2006-01-02 15:04")
	if now.After(*t) {
		s += " (overdue)"
	}
	return s
}

func checkMark(done bool) string {
	if done {
		return "✓"
	}
	return " "
}

func categoryName(cats []model.Category, id *string) string {
	if id == nil {
		return ""
	}
	for _, c := range cats {
		if c.ID == *id {
			return c.Name
		}
	}
	return shortID(*id)
}
