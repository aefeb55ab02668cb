// Package prefsform edits notification preferences with a huh form, either
// embedded in the notification centre or standalone from the CLI.
package prefsform

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
)

// SavedMsg is dispatched when the form is submitted.
type SavedMsg struct {
	Patch model.PreferencesPatch
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// ErrCancelled is returned by Edit when the user aborts.
var ErrCancelled = errors.New("preferences form cancelled")

// ReminderChoices are the lead times offered for due-soon reminders.
var ReminderChoices = []int{5, 15, 30, 60, 120, 1440}

// bindings keeps field values on the heap so huh's Value pointers stay
// valid across Bubble Tea model copies.
type bindings struct {
	display         bool
	reminders       bool
	dueAlerts       bool
	completions     bool
	reminderMinutes int
}

func bind(p model.NotificationPreferences) *bindings {
	return &bindings{
		display:         p.BrowserNotifications,
		reminders:       p.TaskReminders,
		dueAlerts:       p.DueDateAlerts,
		completions:     p.TaskCompletions,
		reminderMinutes: p.ReminderMinutes,
	}
}

// patch returns every field, so saving an unchanged form is a no-op merge.
func (b *bindings) patch() model.PreferencesPatch {
	display, reminders, dueAlerts, completions, minutes :=
		b.display, b.reminders, b.dueAlerts, b.completions, b.reminderMinutes
	return model.PreferencesPatch{
		BrowserNotifications: &display,
		TaskReminders:        &reminders,
		DueDateAlerts:        &dueAlerts,
		TaskCompletions:      &completions,
		ReminderMinutes:      &minutes,
	}
}

func buildForm(b *bindings) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Display notifications").
				Description("Show reminders on the configured channels").
				Value(&b.display),
			huh.NewConfirm().
				Title("Task reminders").
				Description("Remind me before a task is due, and when tasks are created").
				Value(&b.reminders),
			huh.NewConfirm().
				Title("Due date alerts").
				Description("Alert me when a task becomes overdue").
				Value(&b.dueAlerts),
			huh.NewConfirm().
				Title("Completion notices").
				Description("Notify me when a task is completed").
				Value(&b.completions),
			huh.NewSelect[int]().
				Title("Remind me").
				Options(reminderOptions(b.reminderMinutes)...).
				Value(&b.reminderMinutes),
		),
	)
}

// reminderOptions lists ReminderChoices plus current, if it is not one
// of them.
func reminderOptions(current int) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(ReminderChoices)+1)
	found := false
	for _, m := range ReminderChoices {
		opts = append(opts, huh.NewOption(LeadTime(m), m))
		found = found || m == current
	}
	if !found && current > 0 {
		opts = append(opts, huh.NewOption(LeadTime(current), current))
	}
	return opts
}

// LeadTime renders a reminder lead time in minutes.
func LeadTime(minutes int) string {
	switch {
	case minutes%1440 == 0:
		if minutes == 1440 {
			return "1 day before"
		}
		return fmt.Sprintf("%d days before", minutes/1440)
	case minutes%60 == 0:
		if minutes == 60 {
			return "1 hour before"
		}
		return fmt.Sprintf("%d hours before", minutes/60)
	default:
		return fmt.Sprintf("%d minutes before", minutes)
	}
}

// Edit runs the form standalone and returns the resulting patch.
func Edit(current model.NotificationPreferences) (model.PreferencesPatch, error) {
	b := bind(current)
	if err := buildForm(b).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return model.PreferencesPatch{}, ErrCancelled
		}
		return model.PreferencesPatch{}, fmt.Errorf("running preferences form: %w", err)
	}
	return b.patch(), nil
}

// Model embeds the form in a Bubble Tea program.
type Model struct {
	form   *huh.Form
	fb     *bindings
	width  int
	height int
}

// New creates an idle form view.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// Start loads current into the form and focuses it.
func (m *Model) Start(current model.NotificationPreferences) tea.Cmd {
	m.fb = bind(current)
	m.form = buildForm(m.fb).WithWidth(m.formWidth()).WithShowHelp(true)
	return m.form.Init()
}

// Update forwards to the form and reports submit or abort.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		patch := m.fb.patch()
		m.form = nil
		return m, func() tea.Msg { return SavedMsg{Patch: patch} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Notification Settings")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}
