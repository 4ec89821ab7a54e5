package habit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Field
}

func TestDecodePatch_Variants(t *testing.T) {
	p, err := DecodePatch([]byte(`{"type":"exercise","dailyGoalMinutes":45}`))
	require.NoError(t, err)
	assert.Equal(t, Exercise, p.Slug())

	p, err = DecodePatch([]byte(`{"type":"nutrition","meals":[]}`))
	require.NoError(t, err)
	assert.Equal(t, Nutrition, p.Slug())

	_, err = DecodePatch([]byte(`{"dailyGoalMinutes":45}`))
	assert.Equal(t, "type", fieldOf(t, err))

	_, err = DecodePatch([]byte(`{"type":"meditation"}`))
	assert.Equal(t, "type", fieldOf(t, err))

	_, err = DecodePatch([]byte(`{"type":"water","customTarget":"lots"}`))
	assert.Error(t, err)
	fieldOf(t, err)

	_, err = DecodePatch([]byte(`{not json`))
	assert.Equal(t, "body", fieldOf(t, err))
}

func TestWaterPatch_ShallowMerge(t *testing.T) {
	current := WaterSettings{ReminderIntervalMinutes: 60, UseRecommendedTarget: true, RecommendedTarget: 2375}

	p, err := DecodePatch([]byte(`{"type":"water","useRecommendedTarget":false,"customTarget":2500}`))
	require.NoError(t, err)
	got, err := p.Apply(current)
	require.NoError(t, err)

	w := got.(WaterSettings)
	assert.Equal(t, 60, w.ReminderIntervalMinutes, "unspecified fields are kept")
	assert.False(t, w.UseRecommendedTarget)
	require.NotNil(t, w.CustomTarget)
	assert.Equal(t, 2500, *w.CustomTarget)
	assert.Equal(t, 2375, w.RecommendedTarget)

	p, err = DecodePatch([]byte(`{"type":"water","customTarget":null}`))
	require.NoError(t, err)
	got, err = p.Apply(w)
	require.NoError(t, err)
	assert.Nil(t, got.(WaterSettings).CustomTarget)
}

func TestWaterPatch_ZeroCustomTargetRejected(t *testing.T) {
	current := WaterSettings{ReminderIntervalMinutes: 60, UseRecommendedTarget: true, RecommendedTarget: 2000}
	p, err := DecodePatch([]byte(`{"type":"water","useRecommendedTarget":false,"customTarget":0}`))
	require.NoError(t, err)

	_, err = p.Apply(current)
	assert.Equal(t, "customTarget", fieldOf(t, err))
}

func TestSleepPatch(t *testing.T) {
	current := DefaultSettings(Biometrics{}).Sleep

	got, err := SleepPatch{BedTime: Some("22:30"), TargetValue: Some(7.0)}.Apply(current)
	require.NoError(t, err)
	s := got.(SleepSettings)
	assert.Equal(t, "22:30", s.BedTime)
	assert.Equal(t, current.WakeTime, s.WakeTime)
	require.NotNil(t, s.TargetOverride)
	assert.Equal(t, 7.0, *s.TargetOverride)

	_, err = SleepPatch{BedTime: Some("10pm")}.Apply(current)
	assert.Equal(t, "bedTime", fieldOf(t, err))

	_, err = SleepPatch{WakeTime: Null[string]()}.Apply(current)
	assert.Equal(t, "wakeTime", fieldOf(t, err))

	_, err = SleepPatch{TargetValue: Some(0.0)}.Apply(current)
	assert.Equal(t, "targetValue", fieldOf(t, err))

	got, err = SleepPatch{TargetValue: Null[float64]()}.Apply(s)
	require.NoError(t, err)
	assert.Nil(t, got.(SleepSettings).TargetOverride)
}

func TestNutritionPatch(t *testing.T) {
	current := DefaultSettings(Biometrics{}).Nutrition

	got, err := NutritionPatch{RemindersEnabled: Some(false)}.Apply(current)
	require.NoError(t, err)
	n := got.(NutritionSettings)
	assert.False(t, n.RemindersEnabled)
	assert.Len(t, n.Meals, 3)

	dup := []Meal{
		{ID: "x", Label: "A", Time: "08:00", Enabled: true},
		{ID: "x", Label: "B", Time: "09:00", Enabled: true},
	}
	_, err = NutritionPatch{Meals: Some(dup)}.Apply(current)
	assert.Equal(t, "meals[1].id", fieldOf(t, err))

	bad := []Meal{{ID: "x", Label: "A", Time: "8:00", Enabled: true}}
	_, err = NutritionPatch{Meals: Some(bad)}.Apply(current)
	assert.Equal(t, "meals[0].time", fieldOf(t, err))
}

func TestExercisePatch(t *testing.T) {
	current := DefaultSettings(Biometrics{}).Exercise

	_, err := ExercisePatch{DailyGoalMinutes: Some(-5)}.Apply(current)
	assert.Equal(t, "dailyGoalMinutes", fieldOf(t, err))

	_, err = ExercisePatch{ReminderTime: Some("24:00")}.Apply(current)
	assert.Equal(t, "reminderTime", fieldOf(t, err))

	_, err = ExercisePatch{}.Apply(DefaultSettings(Biometrics{}).Water)
	assert.Error(t, err)
}

func TestSettingsJSONCarriesType(t *testing.T) {
	b, err := json.Marshal(DefaultSettings(Biometrics{}).Exercise)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"exercise","dailyGoalMinutes":30,"reminderEnabled":true,"reminderTime":"18:00"}`, string(b))
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("t", "07:05")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 7, Minute: 5}, c)
	assert.Equal(t, "07:05", c.String())

	for _, s := range []string{"", "7:05", "24:00", "12:60", "ab:cd", "12-30"} {
		_, err := ParseClock("t", s)
		assert.Error(t, err, s)
	}
}
