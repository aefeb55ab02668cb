package model

import "time"

// NotificationType classifies a notification item.
type NotificationType string

// Notification type constants.
const (
	NotificationTaskDue       NotificationType = "task_due"
	NotificationTaskOverdue   NotificationType = "task_overdue"
	NotificationTaskCompleted NotificationType = "task_completed"
	NotificationTaskCreated   NotificationType = "task_created"
)

// Notification represents an alert surfaced to the user about activity
// on one of their tasks.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Type identifies which rule produced this notification.
	Type NotificationType `json:"type"`

	// Title is the short headline. Never empty.
	Title string `json:"title"`

	// Message is the optional human-readable body.
	Message string `json:"message,omitempty"`

	// TaskID links this notification to the originating task, if any.
	TaskID string `json:"task_id,omitempty"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}

// NotificationDraft is the caller-supplied part of a new notification.
type NotificationDraft struct {
	Type    NotificationType
	Title   string
	Message string
	TaskID  string
}

// NotificationPreferences are the user's notification switches.
type NotificationPreferences struct {
	BrowserNotifications bool `json:"browserNotifications"`
	TaskReminders        bool `json:"taskReminders"`
	DueDateAlerts        bool `json:"dueDateAlerts"`
	TaskCompletions      bool `json:"taskCompletions"`
	ReminderMinutes      int  `json:"reminderMinutes"`
}

// DefaultNotificationPreferences returns the preferences used when none
// have been saved.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		BrowserNotifications: true,
		TaskReminders:        true,
		DueDateAlerts:        true,
		TaskCompletions:      true,
		ReminderMinutes:      60,
	}
}

// RemindersWanted reports whether either kind of due-date reminder is on.
func (p NotificationPreferences) RemindersWanted() bool {
	return p.TaskReminders || p.DueDateAlerts
}

// ReminderWindow returns the reminder lead time as a duration.
func (p NotificationPreferences) ReminderWindow() time.Duration {
	return time.Duration(p.ReminderMinutes) * time.Minute
}

// PreferencesPatch is a shallow partial update. Nil fields are kept.
type PreferencesPatch struct {
	BrowserNotifications *bool `json:"browserNotifications,omitempty"`
	TaskReminders        *bool `json:"taskReminders,omitempty"`
	DueDateAlerts        *bool `json:"dueDateAlerts,omitempty"`
	TaskCompletions      *bool `json:"taskCompletions,omitempty"`
	ReminderMinutes      *int  `json:"reminderMinutes,omitempty"`
}

// Merge returns p with every non-nil patch field applied.
func (p NotificationPreferences) Merge(patch PreferencesPatch) NotificationPreferences {
	if patch.BrowserNotifications != nil {
		p.BrowserNotifications = *patch.BrowserNotifications
	}
	if patch.TaskReminders != nil {
		p.TaskReminders = *patch.TaskReminders
	}
	if patch.DueDateAlerts != nil {
		p.DueDateAlerts = *patch.DueDateAlerts
	}
	if patch.TaskCompletions != nil {
		p.TaskCompletions = *patch.TaskCompletions
	}
	if patch.ReminderMinutes != nil {
		p.ReminderMinutes = *patch.ReminderMinutes
	}
	return p
}
