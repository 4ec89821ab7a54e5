package models

import (
	"time"

	"habitd/internal/habit"
)

type User struct {
	ID           int              `json:"id"`
	Username     string           `json:"username"`
	PasswordHash string           `json:"-"`
	Timezone     string           `json:"timezone"`
	Biometrics   habit.Biometrics `json:"biometrics"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Location returns the user's time zone, falling back to UTC.
func (u User) Location() *time.Location {
	if loc, err := time.LoadLocation(u.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Habit is the parent habit row carrying the resolved target.
type Habit struct {
	ID          int        `json:"id"`
	UserID      int        `json:"-"`
	Slug        habit.Slug `json:"slug"`
	TargetValue float64    `json:"targetValue"`
	TargetUnit  string     `json:"targetUnit"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type PushSubscription struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type RegisterRequest struct {
	Username   string            `json:"username"`
	Password   string            `json:"password"`
	Remember   bool              `json:"remember,omitempty"`
	Timezone   string            `json:"timezone,omitempty"`
	Biometrics *habit.Biometrics `json:"biometrics,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type AppendLogRequest struct {
	Value    *float64 `json:"value"`
	Notes    *string  `json:"notes"`
	LoggedAt *string  `json:"loggedAt"`
}

type UpdateBiometricsRequest struct {
	Height *float64 `json:"height"`
	Weight *float64 `json:"weight"`
	Age    *int     `json:"age"`
}

type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

type SettingsResponse struct {
	HabitID  int            `json:"habitId"`
	Slug     habit.Slug     `json:"slug"`
	Settings habit.Settings `json:"settings"`
}

type HabitView struct {
	habit.Meta
	ID          int            `json:"id"`
	TargetValue float64        `json:"targetValue"`
	Settings    habit.Settings `json:"settings"`
}

type Dashboard struct {
	habit.DailySnapshot
	Habits        []habit.Summary      `json:"habits"`
	Reminders     []habit.Reminder     `json:"reminders"`
	Notifications []habit.Notification `json:"notifications"`
}

type ReadResponse struct {
	ID     string    `json:"id"`
	ReadAt time.Time `json:"readAt"`
}
