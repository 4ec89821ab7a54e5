package habit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Optional records whether a JSON field was present, and whether it was null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// Null returns a present Optional carrying an explicit null.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

func take[T any](o Optional[T], field string, dst *T) error {
	if !o.Set {
		return nil
	}
	if o.Null {
		return NewValidationError(field, "must not be null")
	}
	*dst = o.Value
	return nil
}

// Patch is a partial settings update. Fields left unset keep their current value.
type Patch interface {
	Slug() Slug
	Apply(current Settings) (Settings, error)
}

type WaterPatch struct {
	ReminderIntervalMinutes Optional[int]  `json:"reminderIntervalMinutes"`
	UseRecommendedTarget    Optional[bool] `json:"useRecommendedTarget"`
	CustomTarget            Optional[int]  `json:"customTarget"`
}

type SleepPatch struct {
	BedTime                Optional[string]  `json:"bedTime"`
	WakeTime               Optional[string]  `json:"wakeTime"`
	ReminderEnabled        Optional[bool]    `json:"reminderEnabled"`
	ReminderAdvanceMinutes Optional[int]     `json:"reminderAdvanceMinutes"`
	TargetValue            Optional[float64] `json:"targetValue"`
}

type NutritionPatch struct {
	RemindersEnabled Optional[bool]   `json:"remindersEnabled"`
	Meals            Optional[[]Meal] `json:"meals"`
}

type ExercisePatch struct {
	DailyGoalMinutes Optional[int]    `json:"dailyGoalMinutes"`
	ReminderEnabled  Optional[bool]   `json:"reminderEnabled"`
	ReminderTime     Optional[string] `json:"reminderTime"`
}

func (WaterPatch) Slug() Slug     { return Water }
func (SleepPatch) Slug() Slug     { return Sleep }
func (NutritionPatch) Slug() Slug { return Nutrition }
func (ExercisePatch) Slug() Slug  { return Exercise }

func mismatch(want Slug, got Settings) error {
	return NewValidationError("type", fmt.Sprintf("cannot apply %s settings to %T", want, got))
}

func (p WaterPatch) Apply(current Settings) (Settings, error) {
	s, ok := current.(WaterSettings)
	if !ok {
		return nil, mismatch(Water, current)
	}
	if err := take(p.ReminderIntervalMinutes, "reminderIntervalMinutes", &s.ReminderIntervalMinutes); err != nil {
		return nil, err
	}
	if err := take(p.UseRecommendedTarget, "useRecommendedTarget", &s.UseRecommendedTarget); err != nil {
		return nil, err
	}
	if p.CustomTarget.Set {
		if p.CustomTarget.Null {
			s.CustomTarget = nil
		} else {
			if p.CustomTarget.Value <= 0 {
				return nil, NewValidationError("customTarget", "must be greater than 0")
			}
			v := p.CustomTarget.Value
			s.CustomTarget = &v
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p SleepPatch) Apply(current Settings) (Settings, error) {
	s, ok := current.(SleepSettings)
	if !ok {
		return nil, mismatch(Sleep, current)
	}
	if err := take(p.BedTime, "bedTime", &s.BedTime); err != nil {
		return nil, err
	}
	if err := take(p.WakeTime, "wakeTime", &s.WakeTime); err != nil {
		return nil, err
	}
	if err := take(p.ReminderEnabled, "reminderEnabled", &s.ReminderEnabled); err != nil {
		return nil, err
	}
	if err := take(p.ReminderAdvanceMinutes, "reminderAdvanceMinutes", &s.ReminderAdvanceMinutes); err != nil {
		return nil, err
	}
	if p.TargetValue.Set {
		if p.TargetValue.Null {
			s.TargetOverride = nil
		} else {
			if p.TargetValue.Value <= 0 {
				return nil, NewValidationError("targetValue", "must be greater than 0")
			}
			v := p.TargetValue.Value
			s.TargetOverride = &v
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p NutritionPatch) Apply(current Settings) (Settings, error) {
	s, ok := current.(NutritionSettings)
	if !ok {
		return nil, mismatch(Nutrition, current)
	}
	if err := take(p.RemindersEnabled, "remindersEnabled", &s.RemindersEnabled); err != nil {
		return nil, err
	}
	if p.Meals.Set {
		if p.Meals.Null {
			return nil, NewValidationError("meals", "must not be null")
		}
		s.Meals = append([]Meal(nil), p.Meals.Value...)
	} else {
		s.Meals = append([]Meal(nil), s.Meals...)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p ExercisePatch) Apply(current Settings) (Settings, error) {
	s, ok := current.(ExerciseSettings)
	if !ok {
		return nil, mismatch(Exercise, current)
	}
	if err := take(p.DailyGoalMinutes, "dailyGoalMinutes", &s.DailyGoalMinutes); err != nil {
		return nil, err
	}
	if err := take(p.ReminderEnabled, "reminderEnabled", &s.ReminderEnabled); err != nil {
		return nil, err
	}
	if err := take(p.ReminderTime, "reminderTime", &s.ReminderTime); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodePatch reads a `{type, ...fields}` request body into the matching patch variant.
func DecodePatch(data []byte) (Patch, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := DecodeJSON(data, &head); err != nil {
		return nil, err
	}
	if head.Type == "" {
		return nil, NewValidationError("type", "is required")
	}
	slug, err := ParseSlug(head.Type)
	if err != nil {
		return nil, err
	}

	var p Patch
	switch slug {
	case Water:
		var wp WaterPatch
		err, p = DecodeJSON(data, &wp), &wp
	case Sleep:
		var sp SleepPatch
		err, p = DecodeJSON(data, &sp), &sp
	case Nutrition:
		var np NutritionPatch
		err, p = DecodeJSON(data, &np), &np
	case Exercise:
		var ep ExercisePatch
		err, p = DecodeJSON(data, &ep), &ep
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeJSON unmarshals a request body, reporting type mismatches as ValidationError.
func DecodeJSON(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewValidationError("body", "request body is required")
	}
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return NewValidationError(field, fmt.Sprintf("must be of type %s", typeErr.Type))
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr
	}
	return NewValidationError("body", "malformed JSON body")
}
