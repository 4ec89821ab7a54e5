package habit

import "math"

// Biometrics feeds the hydration recommendation. The zero value means unknown.
type Biometrics struct {
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	Age    int     `json:"age"`
}

func (b Biometrics) Validate() error {
	if !(b.Height > 0) || math.IsInf(b.Height, 0) {
		return NewValidationError("height", "must be greater than 0")
	}
	if !(b.Weight > 0) || math.IsInf(b.Weight, 0) {
		return NewValidationError("weight", "must be greater than 0")
	}
	if b.Age <= 0 {
		return NewValidationError("age", "must be greater than 0")
	}
	return nil
}

const (
	DefaultSleepHours  = 8
	MinNutritionTarget = 3
)

// RecommendedWaterTarget is the daily hydration goal in millilitres.
func RecommendedWaterTarget(b Biometrics) int {
	return int(math.Round(b.Weight*35 + math.Max(0, b.Height-150)*5))
}

// Targets maps each habit to its resolved daily target.
type Targets map[Slug]float64

// ResolveTarget computes the daily target for s. previous is the last resolved
// target of the same habit and is only consulted when nutrition has no enabled meals.
// Biometrics reach the hydration target through WaterSettings.WithBiometrics.
func ResolveTarget(s Settings, _ Biometrics, previous float64) (float64, error) {
	if s == nil {
		return 0, NewValidationError("settings", "is required")
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	switch v := s.(type) {
	case WaterSettings:
		if !v.UseRecommendedTarget && v.CustomTarget != nil && *v.CustomTarget > 0 {
			return float64(*v.CustomTarget), nil
		}
		return float64(v.RecommendedTarget), nil
	case SleepSettings:
		if v.TargetOverride != nil {
			return *v.TargetOverride, nil
		}
		return DefaultSleepHours, nil
	case ExerciseSettings:
		return float64(v.DailyGoalMinutes), nil
	case NutritionSettings:
		enabled := 0
		for _, m := range v.Meals {
			if m.Enabled {
				enabled++
			}
		}
		if enabled > 0 {
			return float64(enabled), nil
		}
		if previous > 0 {
			return previous, nil
		}
		return MinNutritionTarget, nil
	}
	return 0, NewValidationError("type", "unsupported settings variant")
}

// ResolveAll resolves every habit, falling back to previous targets for nutrition.
func ResolveAll(all AllSettings, b Biometrics, previous Targets) (Targets, error) {
	out := make(Targets, len(Slugs))
	for _, slug := range Slugs {
		t, err := ResolveTarget(all.Get(slug), b, previous[slug])
		if err != nil {
			return nil, err
		}
		out[slug] = t
	}
	return out, nil
}

// WithBiometrics re-derives the recommended hydration target from b.
func (s WaterSettings) WithBiometrics(b Biometrics) WaterSettings {
	s.RecommendedTarget = RecommendedWaterTarget(b)
	return s
}
