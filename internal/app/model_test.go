package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/ui/prefsform"
	"github.com/nhle/taskflow/internal/validate"
)

func newTestModel(t *testing.T) (Model, *App) {
	t.Helper()
	a := newTestApp(t, &recordingNotifier{})
	profile, err := a.Auth.SignUp(context.Background(), validate.SignUpInput{
		Email:    "fay@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	a.SetUser(profile.ID)

	m := NewModel(a, profile)
	t.Cleanup(m.Release)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), a
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestModel_HeaderShowsUserAndUnread(t *testing.T) {
	m, a := newTestModel(t)
	a.Center.Add(model.NotificationDraft{Type: model.NotificationTaskDue, Title: "Task Due Soon"})

	view := m.View()
	if !strings.Contains(view, "fay@example.com") {
		t.Fatalf("expected email in header")
	}
	if !strings.Contains(view, "[1 new]") {
		t.Fatalf("expected unread count in header")
	}
	if !strings.Contains(view, "display default") {
		t.Fatalf("expected permission state before any request")
	}
}

func TestModel_ViewRouting(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	if m.currentView != ViewHelp {
		t.Fatalf("expected help view")
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.currentView != ViewNotifications {
		t.Fatalf("expected back to notifications")
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if m.currentView != ViewPrefs {
		t.Fatalf("expected preferences view")
	}
	// q belongs to the form while it is open.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if m.currentView != ViewPrefs {
		t.Fatalf("expected to stay in preferences")
	}
}

func TestModel_SavedPreferencesApply(t *testing.T) {
	m, a := newTestModel(t)

	off := false
	minutes := 15
	m = send(t, m, prefsform.SavedMsg{Patch: model.PreferencesPatch{
		TaskCompletions: &off,
		ReminderMinutes: &minutes,
	}})

	prefs := a.Center.Preferences()
	if prefs.TaskCompletions || prefs.ReminderMinutes != 15 {
		t.Fatalf("preferences not applied: %+v", prefs)
	}
	if !strings.Contains(m.View(), "settings saved") {
		t.Fatalf("expected confirmation in status bar")
	}
}

func TestModel_CheckAndPermissionOutcomes(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, checkDoneMsg{emitted: 2})
	if !strings.Contains(m.View(), "reminder check: 2 new") {
		t.Fatalf("expected check summary")
	}

	m = send(t, m, checkDoneMsg{err: errors.New("boom")})
	if !strings.Contains(m.View(), "reminder check failed: boom") {
		t.Fatalf("expected check failure")
	}

	msg := m.requestPermission()()
	m = send(t, m, msg)
	if !strings.Contains(m.View(), "notifications allowed") {
		t.Fatalf("expected permission granted message")
	}
}

func TestModel_QuitKey(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
