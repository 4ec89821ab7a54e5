package store_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"habitd/internal/database"
	"habitd/internal/habit"
	"habitd/internal/models"
	"habitd/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Initialize(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(db, zap.NewNop())
}

func newUser(t *testing.T, s *store.Store, name string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "hash", "UTC", habit.Biometrics{}, now)
	require.NoError(t, err)
	return u
}

func TestCreateUser_SeedsHabits(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	p, err := s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, p.Habits, 4)
	assert.Equal(t, habit.Slugs, []habit.Slug{p.Habits[0].Slug, p.Habits[1].Slug, p.Habits[2].Slug, p.Habits[3].Slug})

	assert.Equal(t, float64(habit.DefaultWaterTarget), p.Targets[habit.Water])
	assert.Equal(t, 8.0, p.Targets[habit.Sleep])
	assert.Equal(t, 30.0, p.Targets[habit.Exercise])
	assert.Equal(t, 3.0, p.Targets[habit.Nutrition])
	assert.Equal(t, habit.DefaultSettings(habit.Biometrics{}), p.Settings)

	_, err = s.CreateUser(ctx, "ana", "hash", "UTC", habit.Biometrics{}, now)
	assert.ErrorIs(t, err, store.ErrUsernameTaken)
}

func TestCreateUser_WithBiometrics(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "bea", "hash", "Europe/Madrid", habit.Biometrics{Height: 175, Weight: 70, Age: 30}, now)
	require.NoError(t, err)

	got, err := s.UserByUsername(ctx, "bea")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Europe/Madrid", got.Timezone)
	assert.Equal(t, 70.0, got.Biometrics.Weight)

	p, err := s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2575.0, p.Targets[habit.Water])
}

func TestResolveHabit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ana := newUser(t, s, "ana")
	bob := newUser(t, s, "bob")

	bySlug, err := s.ResolveHabit(ctx, ana.ID, "sleep")
	require.NoError(t, err)
	byID, err := s.ResolveHabit(ctx, ana.ID, itoa(bySlug.ID))
	require.NoError(t, err)
	assert.Equal(t, bySlug, byID)

	var nf *habit.NotFoundError
	_, err = s.ResolveHabit(ctx, bob.ID, itoa(bySlug.ID))
	assert.ErrorAs(t, err, &nf)
	_, err = s.ResolveHabit(ctx, ana.ID, "reading")
	assert.ErrorAs(t, err, &nf)
}

func TestSaveSettings_CustomWaterTarget(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	p, err := s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	water, err := (&habit.WaterPatch{
		UseRecommendedTarget: habit.Some(false),
		CustomTarget:         habit.Some(2500),
	}).Apply(p.Settings.Water)
	require.NoError(t, err)

	h, err := s.SaveSettings(ctx, u.ID, water, 2500, now)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, h.TargetValue)
	assert.Equal(t, habit.Water, h.Slug)

	p, err = s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, p.Targets[habit.Water])
	require.NotNil(t, p.Settings.Water.CustomTarget)
	assert.Equal(t, 2500, *p.Settings.Water.CustomTarget)

	var verr *habit.ValidationError
	_, err = s.SaveSettings(ctx, u.ID, p.Settings.Water, 0, now)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "targetValue", verr.Field)

	bad := p.Settings.Water
	bad.ReminderIntervalMinutes = -1
	_, err = s.SaveSettings(ctx, u.ID, bad, 2500, now)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reminderIntervalMinutes", verr.Field)
}

func TestSaveSettings_RollsBackWhenSettingsWriteFails(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	_, err := s.DB().Exec(`CREATE TRIGGER fail_water BEFORE UPDATE ON water_settings
		BEGIN SELECT RAISE(ABORT, 'water settings locked'); END`)
	require.NoError(t, err)

	custom := 3100
	water := habit.DefaultSettings(habit.Biometrics{}).Water
	water.UseRecommendedTarget = false
	water.CustomTarget = &custom
	_, err = s.SaveSettings(ctx, u.ID, water, 3100, now)
	var conflict *habit.ConflictError
	require.ErrorAs(t, err, &conflict)

	p, err := s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(habit.DefaultWaterTarget), p.Targets[habit.Water], "parent target must not change")
	assert.Nil(t, p.Settings.Water.CustomTarget)
	assert.True(t, p.Settings.Water.UseRecommendedTarget)
}

func TestSaveSettings_NutritionMeals(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	meals := []habit.Meal{
		{ID: "breakfast", Label: "Desayuno", Time: "07:30", Enabled: true},
		{ID: "snack", Label: "Merienda", Time: "17:00", Enabled: true},
	}
	nutrition := habit.DefaultSettings(habit.Biometrics{}).Nutrition
	nutrition.Meals = meals
	h, err := s.SaveSettings(ctx, u.ID, nutrition, 2, now)
	require.NoError(t, err)
	assert.Equal(t, 2.0, h.TargetValue)

	p, err := s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, meals, p.Settings.Nutrition.Meals)
	assert.Equal(t, 2.0, p.Targets[habit.Nutrition])
}

func TestUpdateBiometrics_StoresWaterTarget(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	bio := habit.Biometrics{Height: 150, Weight: 64.5, Age: 40}
	water := habit.DefaultSettings(habit.Biometrics{}).Water.WithBiometrics(bio)
	require.NoError(t, s.UpdateBiometrics(ctx, u.ID, bio, water, 2258, now))

	p, err := s.LoadProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2258.0, p.Targets[habit.Water])
	assert.Equal(t, 2258, p.Settings.Water.RecommendedTarget)
	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, bio, got.Biometrics)

	err = s.UpdateBiometrics(ctx, u.ID, habit.Biometrics{Height: 0, Weight: 64.5, Age: 40}, water, 2258, now)
	var verr *habit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "height", verr.Field)
}

func TestUpdateTimezone(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	require.NoError(t, s.UpdateTimezone(ctx, u.ID, "America/Bogota"))
	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", got.Timezone)

	var verr *habit.ValidationError
	assert.ErrorAs(t, s.UpdateTimezone(ctx, u.ID, "Mars/Olympus"), &verr)
}

func TestLogs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")
	water, err := s.ResolveHabit(ctx, u.ID, "water")
	require.NoError(t, err)

	note := "after run"
	for i, v := range []float64{250, 500, 300} {
		l, err := habit.NewLog(habit.Water, v, nil, nil, now.Add(time.Duration(i)*time.Minute), time.UTC)
		require.NoError(t, err)
		if i == 1 {
			l.Notes = &note
		}
		require.NoError(t, s.InsertLog(ctx, u.ID, water.ID, l, now))
	}
	yesterday, err := habit.NewLog(habit.Water, 1000, nil, nil, now.Add(-24*time.Hour), time.UTC)
	require.NoError(t, err)
	require.NoError(t, s.InsertLog(ctx, u.ID, water.ID, yesterday, now))

	day := habit.DateOf(now, time.UTC)
	logs, err := s.LogsForDay(ctx, u.ID, day)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, 300.0, logs[0].Value)
	assert.Equal(t, 1050.0, habit.SumLogs(logs))
	assert.Greater(t, logs[0].Seq, logs[1].Seq)
	assert.Greater(t, logs[1].Seq, logs[2].Seq)
	require.NotNil(t, logs[1].Notes)
	assert.Equal(t, note, *logs[1].Notes)

	all, err := s.ListLogs(ctx, water.ID, nil, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = s.ListLogs(ctx, water.ID, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 1000.0, all[3].Value)
}

func TestSyncReminders_KeepsReadState(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")
	day := habit.DateOf(now, time.UTC)
	all := habit.DefaultSettings(habit.Biometrics{})
	all.Water.ReminderIntervalMinutes = 0
	targets, err := habit.ResolveAll(all, habit.Biometrics{}, nil)
	require.NoError(t, err)

	first, err := s.SyncReminders(ctx, u.ID, day, habit.Schedule(all, targets, day, now), now)
	require.NoError(t, err)
	require.Len(t, first, 5)

	readAt, err := s.MarkNotificationRead(ctx, u.ID, first[0].ID, now)
	require.NoError(t, err)
	again, err := s.MarkNotificationRead(ctx, u.ID, first[0].ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, readAt.Equal(again))

	second, err := s.SyncReminders(ctx, u.ID, day, habit.Schedule(all, targets, day, now.Add(time.Minute)), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].Read)

	stored, err := s.NotificationsForDay(ctx, u.ID, day)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.True(t, stored[0].Read)
	require.NotNil(t, stored[0].ReadAt)

	unread, err := s.ListNotifications(ctx, u.ID, store.NotificationFilter{Type: habit.TypeReminder})
	require.NoError(t, err)
	assert.Len(t, unread, 4)

	other := newUser(t, s, "bob")
	_, err = s.MarkNotificationRead(ctx, other.ID, first[0].ID, now)
	var nf *habit.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestInsertAchievement_OncePerDay(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")
	day := habit.DateOf(now, time.UTC)

	prev := habit.SummarizeTarget(habit.Exercise, 30, nil)
	next := prev
	next.IsComplete = true
	n := habit.CheckTransition(habit.Exercise, prev, next, day, now)
	require.NotNil(t, n)

	ok, err := s.InsertAchievement(ctx, u.ID, *n)
	require.NoError(t, err)
	assert.True(t, ok)

	dup := habit.CheckTransition(habit.Exercise, prev, next, day, now.Add(time.Hour))
	ok, err = s.InsertAchievement(ctx, u.ID, *dup)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListNotifications(ctx, u.ID, store.NotificationFilter{IncludeRead: true, Type: habit.TypeAchievement})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSnapshots(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	require.NoError(t, s.UpsertSnapshot(ctx, u.ID, habit.DailySnapshot{Date: "2024-05-09", TotalHabits: 4, CompletedHabits: 1, CompletionPercentage: 25}, now))
	require.NoError(t, s.UpsertSnapshot(ctx, u.ID, habit.DailySnapshot{Date: "2024-05-10", TotalHabits: 4, CompletedHabits: 1, CompletionPercentage: 25}, now))
	require.NoError(t, s.UpsertSnapshot(ctx, u.ID, habit.DailySnapshot{Date: "2024-05-10", TotalHabits: 4, CompletedHabits: 3, CompletionPercentage: 75}, now))

	got, err := s.ListSnapshots(ctx, u.ID, "2024-05-01", "2024-05-31")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, habit.Date("2024-05-09"), got[0].Date)
	assert.Equal(t, 75, got[1].CompletionPercentage)
}

func TestRefreshTokens(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	require.NoError(t, s.StoreRefreshToken(ctx, u.ID, "tok", now.Add(24*time.Hour), 7))
	id, ttl, err := s.ValidateRefreshToken(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, 7, ttl)

	_, _, err = s.ValidateRefreshToken(ctx, "tok", now.Add(48*time.Hour))
	assert.True(t, errors.Is(err, store.ErrRefreshExpired))

	require.NoError(t, s.RevokeRefreshToken(ctx, "tok"))
	_, _, err = s.ValidateRefreshToken(ctx, "tok", now)
	assert.ErrorIs(t, err, store.ErrRefreshRevoked)

	_, _, err = s.ValidateRefreshToken(ctx, "missing", now)
	assert.ErrorIs(t, err, store.ErrRefreshNotFound)
}

func TestPushSubscriptions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ana")

	sub := models.PushSubscription{Endpoint: "https://push.example/1", P256dh: "k", Auth: "a"}
	require.NoError(t, s.SavePushSubscription(ctx, u.ID, sub))
	sub.Auth = "b"
	require.NoError(t, s.SavePushSubscription(ctx, u.ID, sub))

	subs, err := s.PushSubscriptions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "b", subs[0].Auth)

	require.NoError(t, s.DeletePushSubscription(ctx, u.ID, sub.Endpoint))
	subs, err = s.PushSubscriptions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func itoa(i int) string { return strconv.Itoa(i) }
