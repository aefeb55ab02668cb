package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/theme"
	"github.com/nhle/taskflow/internal/ui"
	helpview "github.com/nhle/taskflow/internal/ui/help"
	"github.com/nhle/taskflow/internal/ui/notifications"
	"github.com/nhle/taskflow/internal/ui/prefsform"
)

// statusRefresh is how often the header's reminder state is redrawn.
const statusRefresh = 15 * time.Second

// ViewState represents the current active view in the notification centre.
type ViewState int

const (
	ViewNotifications ViewState = iota
	ViewHelp
	ViewPrefs
)

type checkDoneMsg struct {
	emitted int
	err     error
}

type permissionMsg struct {
	granted bool
}

type tickMsg time.Time

// Model is the root Bubble Tea model of `taskflow watch`.
type Model struct {
	app     *App
	profile *model.Profile

	currentView ViewState
	layout      ui.Layout
	keys        *keys.KeyMap
	list        notifications.Model
	helpView    helpview.Model
	prefsView   prefsform.Model

	changes     <-chan struct{}
	unsubscribe func()
	flash       string
	flashErr    bool
	ready       bool
}

// NewModel creates the notification centre for a signed-in user. The
// caller must call Release once the program exits.
func NewModel(a *App, profile *model.Profile) Model {
	k := keys.DefaultKeyMap()
	changes, unsubscribe := notifications.Watch(a.Center)
	return Model{
		app:         a,
		profile:     profile,
		currentView: ViewNotifications,
		keys:        k,
		list:        notifications.New(a.Center, k, a.Now, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		prefsView:   prefsform.New(80, 22),
		changes:     changes,
		unsubscribe: unsubscribe,
	}
}

// Release detaches the model from the notification Center.
func (m Model) Release() {
	m.unsubscribe()
}

// Init waits for Center changes and starts the header refresh tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		notifications.WaitForChange(m.changes),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(statusRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.list.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.prefsView.SetSize(w, h)
		return m.updateActiveView(msg)

	case notifications.ChangedMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, tea.Batch(cmd, notifications.WaitForChange(m.changes))

	case tickMsg:
		return m, tick()

	case checkDoneMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("reminder check failed: %v", msg.err), true)
		} else {
			m.setFlash(fmt.Sprintf("reminder check: %d new", msg.emitted), false)
		}
		return m, nil

	case permissionMsg:
		if msg.granted {
			m.setFlash("notifications allowed", false)
		} else {
			m.setFlash(fmt.Sprintf("notifications %s", m.app.Gate.Permission()), true)
		}
		return m, nil

	case prefsform.SavedMsg:
		m.currentView = ViewNotifications
		m.app.Center.UpdatePreferences(msg.Patch)
		m.setFlash("settings saved", false)
		return m, nil

	case prefsform.CancelMsg:
		m.currentView = ViewNotifications
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewPrefs {
			return m.updateActiveView(msg)
		}
		m.flash = ""

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = ViewNotifications
			} else {
				m.currentView = ViewHelp
			}
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.currentView = ViewNotifications
			return m, nil
		}

		if m.currentView == ViewHelp {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Check):
			return m, m.checkNow()
		case key.Matches(msg, m.keys.Permission):
			return m, m.requestPermission()
		case key.Matches(msg, m.keys.Prefs):
			m.currentView = ViewPrefs
			return m, m.prefsView.Start(m.app.Center.Preferences())
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewNotifications:
		m.list, cmd = m.list.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewPrefs:
		m.prefsView, cmd = m.prefsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "taskflow"
	if m.profile != nil {
		title = fmt.Sprintf("taskflow · %s", m.profile.Email)
	}
	if n := m.app.Center.UnreadCount(); n > 0 {
		title = fmt.Sprintf("%s [%d new]", title, n)
	}

	header := m.layout.RenderHeader(title, m.reminderState())
	statusBar := m.layout.RenderStatusBar(m.statusText())
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewPrefs:
		return m.prefsView.View()
	default:
		return m.list.View()
	}
}

// reminderState summarizes the Controller for the header.
func (m Model) reminderState() string {
	st := m.app.Controller.Status()
	switch {
	case st.Permission != notify.PermissionGranted:
		return fmt.Sprintf("display %s", st.Permission)
	case !st.SchedulerRunning:
		return "reminders off"
	case st.LastCheck.State == notify.CheckError:
		return "⚠ reminder check failed"
	case st.LastCheck.LastCheck.IsZero():
		return "reminders on"
	default:
		return fmt.Sprintf("checked %s", st.LastCheck.LastCheck.Local().Format("15:04"))
	}
}

// statusText returns the last action's outcome or the key hints.
func (m Model) statusText() string {
	if m.flash != "" {
		if m.flashErr {
			return theme.ErrorStyle.Render(m.flash)
		}
		return m.flash
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewPrefs:
		return "enter next | esc cancel"
	default:
		return "q quit | ? help | enter read | A read all | d delete | r check | s settings"
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// checkNow runs one reminder pass off the UI goroutine.
func (m Model) checkNow() tea.Cmd {
	c := m.app.Controller
	return func() tea.Msg {
		n, err := c.CheckNow(context.Background())
		return checkDoneMsg{emitted: n, err: err}
	}
}

// requestPermission asks the display channels for permission.
func (m Model) requestPermission() tea.Cmd {
	c := m.app.Controller
	return func() tea.Msg {
		return permissionMsg{granted: c.RequestPermission(context.Background())}
	}
}
