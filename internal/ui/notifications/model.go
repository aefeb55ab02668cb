// Package notifications is the notification-centre list view.
package notifications

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/theme"
)

// ChangedMsg reports that the Center's contents changed.
type ChangedMsg struct{}

// Watch subscribes to center and returns a channel that receives a value
// whenever it changes. Bursts collapse into one pending signal.
func Watch(center *notify.Center) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	unsubscribe := center.Subscribe(func(notify.Snapshot) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, unsubscribe
}

// WaitForChange blocks until ch signals and then reports a ChangedMsg.
// It returns nil once ch is closed.
func WaitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return ChangedMsg{}
	}
}

// Model lists the Center's notifications, newest first.
type Model struct {
	list   list.Model
	center *notify.Center
	keys   *keys.KeyMap
	now    func() time.Time
	width  int
	height int
}

// New creates the list view and loads the current contents of center.
func New(center *notify.Center, k *keys.KeyMap, now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	l := list.New([]list.Item{}, Delegate{}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	m := Model{list: l, center: center, keys: k, now: now, width: width, height: height}
	m.Reload()
	return m
}

// Reload copies the Center's items into the list, keeping the cursor
// in range.
func (m *Model) Reload() {
	snap := m.center.Snapshot()
	now := m.now()
	items := make([]list.Item, len(snap.Items))
	for i, n := range snap.Items {
		items[i] = Item{Notification: n, now: now}
	}
	m.list.SetItems(items)
	if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	m.list.Title = fmt.Sprintf("Notifications (%d unread)", snap.Unread)
}

// Selected returns the id of the highlighted notification.
func (m Model) Selected() (string, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return "", false
	}
	return it.Notification.ID, true
}

// Init returns no command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation and the per-item actions.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		m.Reload()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Read):
			if id, ok := m.Selected(); ok {
				m.center.MarkAsRead(id)
			}
			m.Reload()
			return m, nil
		case key.Matches(msg, m.keys.ReadAll):
			m.center.MarkAllAsRead()
			m.Reload()
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if id, ok := m.Selected(); ok {
				m.center.Delete(id)
			}
			m.Reload()
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.center.ClearAll()
			m.Reload()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list or an empty-state hint.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notifications.\n\nReminders and task activity will show up here.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
