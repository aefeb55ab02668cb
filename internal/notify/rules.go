package notify

import (
	"fmt"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

// ClassifyDue decides whether an open task deserves a due-date reminder at
// now. Overdue wins over due-soon; at most one type is returned.
func ClassifyDue(
	task model.Task,
	now time.Time,
	prefs model.NotificationPreferences,
) (model.NotificationType, bool) {
	if task.DueDate == nil || task.IsCompleted {
		return "", false
	}
	due := *task.DueDate

	if now.After(due) {
		if prefs.DueDateAlerts {
			return model.NotificationTaskOverdue, true
		}
		return "", false
	}
	if prefs.TaskReminders && inReminderWindow(due, now, prefs) {
		return model.NotificationTaskDue, true
	}
	return "", false
}

// ClassifyChange maps a task change event to a notification type. Rules
// are evaluated in order and the first match wins:
//
//  1. insert of a task with id and title: created
//  2. update that completes the task: completed
//  3. update of an open task with a due date: overdue, or due when inside
//     the reminder window
//
// Each type is then gated by its preference.
func ClassifyChange(
	e model.ChangeEvent,
	now time.Time,
	prefs model.NotificationPreferences,
) (model.NotificationType, bool) {
	task := e.NewTask
	if e.Table != model.TableTasks || task == nil {
		return "", false
	}

	switch e.Type {
	case model.ChangeInsert:
		if task.ID == "" || task.Title == "" {
			return "", false
		}
		return model.NotificationTaskCreated, prefs.TaskReminders

	case model.ChangeUpdate:
		if task.IsCompleted && e.OldTask != nil && !e.OldTask.IsCompleted {
			return model.NotificationTaskCompleted, prefs.TaskCompletions
		}
		if task.DueDate == nil || task.IsCompleted || task.IsDeleted() {
			return "", false
		}
		due := *task.DueDate
		if now.After(due) {
			return model.NotificationTaskOverdue, prefs.DueDateAlerts
		}
		if inReminderWindow(due, now, prefs) {
			return model.NotificationTaskDue, prefs.DueDateAlerts
		}
	}
	return "", false
}

// inReminderWindow reports whether now lies in [due-reminder, due].
func inReminderWindow(due, now time.Time, prefs model.NotificationPreferences) bool {
	start := due.Add(-prefs.ReminderWindow())
	return !now.Before(start) && !now.After(due)
}

// Draft builds the notification text for a task.
func Draft(kind model.NotificationType, task model.Task, now time.Time) model.NotificationDraft {
	d := model.NotificationDraft{Type: kind, TaskID: task.ID}

	switch kind {
	case model.NotificationTaskDue:
		d.Title = "Task Due Soon"
		d.Message = fmt.Sprintf("%q is due %s", task.Title, untilText(*task.DueDate, now))
	case model.NotificationTaskOverdue:
		d.Title = "Task Overdue"
		d.Message = fmt.Sprintf("%q was due %s", task.Title, task.DueDate.Local().Format("Jan 2 15:04"))
	case model.NotificationTaskCompleted:
		d.Title = "Task Completed"
		d.Message = fmt.Sprintf("Great job! You completed %q", task.Title)
	case model.NotificationTaskCreated:
		d.Title = "New Task Created"
		d.Message = fmt.Sprintf("%q has been added to your tasks", task.Title)
	}
	return d
}

// DisplayFor builds the display for a draft. Overdue notifications stay
// on screen until dismissed.
func DisplayFor(d model.NotificationDraft) Display {
	return Display{
		Title:              d.Title,
		Body:               d.Message,
		Tag:                Tag(d.Type, d.TaskID),
		RequireInteraction: d.Type == model.NotificationTaskOverdue,
	}
}

// Tag is the display tag for a notification about a task, e.g.
// "task-due-<id>".
func Tag(kind model.NotificationType, taskID string) string {
	switch kind {
	case model.NotificationTaskDue:
		return "task-due-" + taskID
	case model.NotificationTaskOverdue:
		return "task-overdue-" + taskID
	case model.NotificationTaskCompleted:
		return "task-completed-" + taskID
	case model.NotificationTaskCreated:
		return "task-created-" + taskID
	}
	return string(kind) + "-" + taskID
}

func untilText(due, now time.Time) string {
	mins := int(due.Sub(now).Round(time.Minute) / time.Minute)
	switch {
	case mins <= 0:
		return "now"
	case mins == 1:
		return "in 1 minute"
	case mins < 60:
		return fmt.Sprintf("in %d minutes", mins)
	}
	h := mins / 60
	if h == 1 {
		return "in 1 hour"
	}
	return fmt.Sprintf("in %d hours", h)
}
