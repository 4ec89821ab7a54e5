package habit

import (
	"encoding/json"
	"fmt"
)

// Settings is the per-habit configuration. Exactly one variant exists per slug.
type Settings interface {
	Slug() Slug
	Validate() error
	isSettings()
}

type WaterSettings struct {
	ReminderIntervalMinutes int  `json:"reminderIntervalMinutes"`
	UseRecommendedTarget    bool `json:"useRecommendedTarget"`
	CustomTarget            *int `json:"customTarget"`
	RecommendedTarget       int  `json:"recommendedTarget"`
}

type SleepSettings struct {
	BedTime                string   `json:"bedTime"`
	WakeTime               string   `json:"wakeTime"`
	ReminderEnabled        bool     `json:"reminderEnabled"`
	ReminderAdvanceMinutes int      `json:"reminderAdvanceMinutes"`
	TargetOverride         *float64 `json:"targetValue,omitempty"`
}

type Meal struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Time    string `json:"time"`
	Enabled bool   `json:"enabled"`
}

type NutritionSettings struct {
	RemindersEnabled bool   `json:"remindersEnabled"`
	Meals            []Meal `json:"meals"`
}

type ExerciseSettings struct {
	DailyGoalMinutes int    `json:"dailyGoalMinutes"`
	ReminderEnabled  bool   `json:"reminderEnabled"`
	ReminderTime     string `json:"reminderTime"`
}

func (WaterSettings) Slug() Slug     { return Water }
func (SleepSettings) Slug() Slug     { return Sleep }
func (NutritionSettings) Slug() Slug { return Nutrition }
func (ExerciseSettings) Slug() Slug  { return Exercise }

func (WaterSettings) isSettings()     {}
func (SleepSettings) isSettings()     {}
func (NutritionSettings) isSettings() {}
func (ExerciseSettings) isSettings()  {}

// Validate checks a complete water settings value. An interval of 0 disables reminders.
func (s WaterSettings) Validate() error {
	if s.ReminderIntervalMinutes < 0 {
		return NewValidationError("reminderIntervalMinutes", "must not be negative")
	}
	if s.CustomTarget != nil && *s.CustomTarget <= 0 {
		return NewValidationError("customTarget", "must be greater than 0")
	}
	if s.RecommendedTarget <= 0 {
		return NewValidationError("recommendedTarget", "must be greater than 0")
	}
	return nil
}

func (s SleepSettings) Validate() error {
	if _, err := ParseClock("bedTime", s.BedTime); err != nil {
		return err
	}
	if _, err := ParseClock("wakeTime", s.WakeTime); err != nil {
		return err
	}
	if s.ReminderAdvanceMinutes < 0 {
		return NewValidationError("reminderAdvanceMinutes", "must not be negative")
	}
	if s.TargetOverride != nil && *s.TargetOverride <= 0 {
		return NewValidationError("targetValue", "must be greater than 0")
	}
	return nil
}

func (s NutritionSettings) Validate() error {
	seen := make(map[string]bool, len(s.Meals))
	for i, m := range s.Meals {
		field := fmt.Sprintf("meals[%d]", i)
		if m.ID == "" {
			return NewValidationError(field+".id", "is required")
		}
		if seen[m.ID] {
			return NewValidationError(field+".id", fmt.Sprintf("duplicate meal id %q", m.ID))
		}
		seen[m.ID] = true
		if m.Label == "" {
			return NewValidationError(field+".label", "is required")
		}
		if _, err := ParseClock(field+".time", m.Time); err != nil {
			return err
		}
	}
	return nil
}

func (s ExerciseSettings) Validate() error {
	if s.DailyGoalMinutes <= 0 {
		return NewValidationError("dailyGoalMinutes", "must be greater than 0")
	}
	if _, err := ParseClock("reminderTime", s.ReminderTime); err != nil {
		return err
	}
	return nil
}

// The JSON forms carry the variant tag so echoes are self-describing.

func (s WaterSettings) MarshalJSON() ([]byte, error) {
	type plain WaterSettings
	return json.Marshal(struct {
		Type Slug `json:"type"`
		plain
	}{Water, plain(s)})
}

func (s SleepSettings) MarshalJSON() ([]byte, error) {
	type plain SleepSettings
	return json.Marshal(struct {
		Type Slug `json:"type"`
		plain
	}{Sleep, plain(s)})
}

func (s NutritionSettings) MarshalJSON() ([]byte, error) {
	type plain NutritionSettings
	if s.Meals == nil {
		s.Meals = []Meal{}
	}
	return json.Marshal(struct {
		Type Slug `json:"type"`
		plain
	}{Nutrition, plain(s)})
}

func (s ExerciseSettings) MarshalJSON() ([]byte, error) {
	type plain ExerciseSettings
	return json.Marshal(struct {
		Type Slug `json:"type"`
		plain
	}{Exercise, plain(s)})
}

// AllSettings holds one settings variant per habit.
type AllSettings struct {
	Water     WaterSettings
	Sleep     SleepSettings
	Exercise  ExerciseSettings
	Nutrition NutritionSettings
}

// Get returns the variant for slug.
func (a AllSettings) Get(slug Slug) Settings {
	switch slug {
	case Water:
		return a.Water
	case Sleep:
		return a.Sleep
	case Exercise:
		return a.Exercise
	case Nutrition:
		return a.Nutrition
	}
	return nil
}

// With returns a copy of a with s replacing the variant of the same slug.
func (a AllSettings) With(s Settings) AllSettings {
	switch v := s.(type) {
	case WaterSettings:
		a.Water = v
	case SleepSettings:
		a.Sleep = v
	case ExerciseSettings:
		a.Exercise = v
	case NutritionSettings:
		a.Nutrition = v
	}
	return a
}

// DefaultWaterTarget is the hydration goal used until biometrics are known.
const DefaultWaterTarget = 2000

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(b Biometrics) AllSettings {
	recommended := DefaultWaterTarget
	if b.Validate() == nil {
		recommended = RecommendedWaterTarget(b)
	}
	return AllSettings{
		Water: WaterSettings{
			ReminderIntervalMinutes: 60,
			UseRecommendedTarget:    true,
			RecommendedTarget:       recommended,
		},
		Sleep: SleepSettings{
			BedTime:                "23:00",
			WakeTime:               "07:00",
			ReminderEnabled:        true,
			ReminderAdvanceMinutes: 30,
		},
		Exercise: ExerciseSettings{
			DailyGoalMinutes: 30,
			ReminderEnabled:  true,
			ReminderTime:     "18:00",
		},
		Nutrition: NutritionSettings{
			RemindersEnabled: true,
			Meals: []Meal{
				{ID: "breakfast", Label: "Desayuno", Time: "08:00", Enabled: true},
				{ID: "lunch", Label: "Almuerzo", Time: "13:00", Enabled: true},
				{ID: "dinner", Label: "Cena", Time: "20:00", Enabled: true},
			},
		},
	}
}
