package habit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeReminder    NotificationType = "reminder"
	TypeAchievement NotificationType = "achievement"
	TypeAlert       NotificationType = "alert"
)

// ParseNotificationType validates a notification type filter.
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case TypeReminder, TypeAchievement, TypeAlert:
		return t, nil
	}
	return "", NewValidationError("type", fmt.Sprintf("unknown notification type %q", s))
}

// Notification is a reminder, achievement or alert addressed to the user.
type Notification struct {
	ID           string           `json:"id"`
	Habit        Slug             `json:"habitId"`
	Type         NotificationType `json:"type"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	Date         Date             `json:"date"`
	ScheduledFor *time.Time       `json:"scheduledFor,omitempty"`
	Read         bool             `json:"read"`
	ReadAt       *time.Time       `json:"readAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// CheckTransition returns an achievement when a habit goes from incomplete to
// complete, and nil otherwise.
func CheckTransition(habit Slug, previous, next Summary, day Date, now time.Time) *Notification {
	if previous.IsComplete || !next.IsComplete {
		return nil
	}
	meta := MetaOf(habit)
	return &Notification{
		ID:        uuid.NewString(),
		Habit:     habit,
		Type:      TypeAchievement,
		Title:     "¡Meta cumplida!",
		Message:   fmt.Sprintf("Completaste tu meta de %s de hoy: %s.", meta.Name, next.ProgressText),
		Date:      day,
		Read:      false,
		CreatedAt: now,
	}
}

// ReminderNotification converts a scheduled reminder into its notification form.
func ReminderNotification(r Reminder, day Date, now time.Time) Notification {
	at := r.ScheduledFor
	return Notification{
		ID:           r.ID,
		Habit:        r.Habit,
		Type:         TypeReminder,
		Title:        r.Title,
		Message:      r.Message,
		Date:         day,
		ScheduledFor: &at,
		Read:         r.Read,
		CreatedAt:    now,
	}
}

// AsReminder converts a stored reminder notification back to a Reminder.
func (n Notification) AsReminder() Reminder {
	r := Reminder{ID: n.ID, Habit: n.Habit, Title: n.Title, Message: n.Message, Read: n.Read}
	if n.ScheduledFor != nil {
		r.ScheduledFor = *n.ScheduledFor
	}
	return r
}
