package habit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() AllSettings {
	s := DefaultSettings(Biometrics{})
	s.Sleep.BedTime = "22:30"
	s.Sleep.ReminderAdvanceMinutes = 30
	return s
}

func TestSchedule_SleepReminder(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC)
	all := testSettings()
	all.Water.ReminderIntervalMinutes = 0
	all.Nutrition.RemindersEnabled = false
	all.Exercise.ReminderEnabled = false

	reminders := Schedule(all, Targets{}, "2024-05-10", now)
	require.Len(t, reminders, 1)
	assert.Equal(t, Sleep, reminders[0].Habit)
	assert.Equal(t, time.Date(2024, 5, 10, 22, 0, 0, 0, time.UTC), reminders[0].ScheduledFor)
}

func TestSchedule_UsesQueriedDateAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	now := time.Date(2024, 5, 10, 9, 15, 0, 0, loc)
	all := testSettings()

	reminders := Schedule(all, Targets{Water: 2000}, "2024-05-12", now)
	require.NotEmpty(t, reminders)
	for _, r := range reminders {
		assert.NotEqual(t, Water, r.Habit)
		assert.Equal(t, 12, r.ScheduledFor.Day())
		assert.Equal(t, loc, r.ScheduledFor.Location())
	}
}

func TestSchedule_HydrationOnlyOnCurrentDay(t *testing.T) {
	now := time.Date(2024, 5, 10, 23, 30, 0, 0, time.UTC)
	all := testSettings()
	all.Sleep.ReminderEnabled = false
	all.Nutrition.RemindersEnabled = false
	all.Exercise.ReminderEnabled = false

	assert.Empty(t, Schedule(all, Targets{Water: 2000}, "2024-05-01", now))

	today := Schedule(all, Targets{Water: 2000}, "2024-05-10", now)
	require.Len(t, today, 1)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 30, 0, 0, time.UTC), today[0].ScheduledFor)

	bogota := time.FixedZone("UTC-5", -5*3600)
	local := Schedule(all, Targets{Water: 2000}, "2024-05-10", now.In(bogota))
	require.Len(t, local, 1, "18:30 at UTC-5 is still the 10th")
}

func TestSchedule_AllHabitsOrdered(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 15, 30, 0, time.UTC)
	all := testSettings()
	all.Nutrition.Meals[1].Enabled = false

	reminders := Schedule(all, Targets{Water: 2375}, "2024-05-10", now)

	var got []string
	for _, r := range reminders {
		got = append(got, string(r.Habit)+"@"+r.ScheduledFor.Format("15:04"))
	}
	assert.Equal(t, []string{
		"nutrition@08:00",
		"water@10:15",
		"exercise@18:00",
		"nutrition@20:00",
		"sleep@22:00",
	}, got)

	assert.Contains(t, reminders[1].Message, "2.4L")
	assert.Contains(t, reminders[2].Message, "30 min")
}

func TestSchedule_DisabledHabitsProduceNothing(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	all := testSettings()
	all.Water.ReminderIntervalMinutes = 0
	all.Sleep.ReminderEnabled = false
	all.Nutrition.RemindersEnabled = false
	all.Exercise.ReminderEnabled = false

	assert.Empty(t, Schedule(all, Targets{}, "2024-05-10", now))
}

func TestSchedule_StableTies(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	all := testSettings()
	all.Water.ReminderIntervalMinutes = 0
	all.Sleep.ReminderEnabled = false
	all.Exercise.ReminderTime = "13:00"

	reminders := Schedule(all, Targets{}, "2024-05-10", now)
	require.Len(t, reminders, 4)
	assert.Equal(t, Nutrition, reminders[1].Habit, "meal emitted before exercise at the same time")
	assert.Equal(t, Exercise, reminders[2].Habit)
}

func TestReconcile_PreservesReadState(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	all := testSettings()
	all.Water.ReminderIntervalMinutes = 0

	first := Reconcile(nil, Schedule(all, Targets{}, "2024-05-10", now))
	require.NotEmpty(t, first)
	for _, r := range first {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.Read)
	}
	first[0].Read = true

	all.Exercise.ReminderTime = "19:00"
	second := Reconcile(first, Schedule(all, Targets{}, "2024-05-10", now))
	require.Len(t, second, len(first))

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].Read)

	var exercise Reminder
	for _, r := range second {
		if r.Habit == Exercise {
			exercise = r
		}
	}
	for _, r := range first {
		assert.NotEqual(t, r.ID, exercise.ID, "moved reminder gets a new identity")
	}
	assert.False(t, exercise.Read)
}

func TestReconcile_SameMinuteKeepsDistinctIDs(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	all := testSettings()
	all.Water.ReminderIntervalMinutes = 0
	all.Nutrition.Meals = []Meal{
		{ID: "a", Label: "Desayuno", Time: "08:00", Enabled: true},
		{ID: "b", Label: "Café", Time: "08:00", Enabled: true},
	}

	first := Reconcile(nil, Schedule(all, Targets{}, "2024-05-10", now))
	second := Reconcile(first, Schedule(all, Targets{}, "2024-05-10", now))
	require.Len(t, second, len(first))

	seen := map[string]bool{}
	for _, r := range second {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
}
