// Package tracker runs the habit engine against persistence: every operation
// restores the affected day as a habit.DashboardState, applies the transition
// there and stores the result.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"habitd/internal/habit"
	"habitd/internal/metrics"
	"habitd/internal/models"
	"habitd/internal/store"

	"go.uber.org/zap"
)

// DefaultNotifyTimeout bounds one achievement delivery.
const DefaultNotifyTimeout = 10 * time.Second

// Notifier delivers achievement notifications outside the request, best effort.
type Notifier interface {
	NotifyAchievement(ctx context.Context, userID int, n habit.Notification)
}

type Service struct {
	store         *store.Store
	notifier      Notifier
	notifyTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time
	pending       sync.WaitGroup
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

func New(st *store.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: st, logger: logger, now: time.Now, notifyTimeout: DefaultNotifyTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until in-flight achievement deliveries finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Now returns the current instant in the user's zone.
func (s *Service) Now(u models.User) time.Time {
	return s.now().In(u.Location())
}

// Today is the user's current calendar day.
func (s *Service) Today(u models.User) habit.Date {
	return habit.DateOf(s.Now(u), u.Location())
}

// Dashboard recomputes and returns the full view of day. A nil day means today.
func (s *Service) Dashboard(ctx context.Context, u models.User, day *habit.Date) (models.Dashboard, error) {
	d := s.Today(u)
	if day != nil {
		d = *day
	}
	now := s.Now(u)
	st, err := s.load(ctx, u, d, now)
	if err != nil {
		return models.Dashboard{}, err
	}
	return s.save(ctx, u, st, now)
}

// load restores the stored state of day.
func (s *Service) load(ctx context.Context, u models.User, day habit.Date, now time.Time) (habit.DashboardState, error) {
	profile, err := s.store.LoadProfile(ctx, u.ID)
	if err != nil {
		return habit.DashboardState{}, err
	}
	logs, err := s.store.LogsForDay(ctx, u.ID, day)
	if err != nil {
		return habit.DashboardState{}, err
	}
	stored, err := s.store.NotificationsForDay(ctx, u.ID, day)
	if err != nil {
		return habit.DashboardState{}, err
	}

	var reminders []habit.Reminder
	var notifications []habit.Notification
	for _, n := range stored {
		if n.Type == habit.TypeReminder {
			reminders = append(reminders, n.AsReminder())
			continue
		}
		notifications = append(notifications, n)
	}

	return habit.Restore(habit.StoredDay{
		Date:          day,
		Location:      u.Location(),
		Biometrics:    u.Biometrics,
		Settings:      profile.Settings,
		Targets:       profile.Targets,
		Logs:          logs,
		Reminders:     reminders,
		Notifications: notifications,
	}, now), nil
}

// save stores the reminders and snapshot of st and returns the dashboard.
func (s *Service) save(ctx context.Context, u models.User, st habit.DashboardState, now time.Time) (models.Dashboard, error) {
	reminders, err := s.store.SyncReminders(ctx, u.ID, st.Date, st.Reminders, now)
	if err != nil {
		return models.Dashboard{}, err
	}
	if err := s.store.UpsertSnapshot(ctx, u.ID, st.Snapshot, now); err != nil {
		return models.Dashboard{}, err
	}

	stored, err := s.store.NotificationsForDay(ctx, u.ID, st.Date)
	if err != nil {
		return models.Dashboard{}, err
	}
	notifications := make([]habit.Notification, 0, len(stored))
	for _, n := range stored {
		if n.Type != habit.TypeReminder {
			notifications = append(notifications, n)
		}
	}
	if reminders == nil {
		reminders = []habit.Reminder{}
	}

	return models.Dashboard{
		DailySnapshot: st.Snapshot,
		Habits:        st.Summaries,
		Reminders:     reminders,
		Notifications: notifications,
	}, nil
}

// refresh saves st, logging instead of failing: the triggering write is already
// committed.
func (s *Service) refresh(ctx context.Context, u models.User, st habit.DashboardState, now time.Time) {
	if _, err := s.save(ctx, u, st, now); err != nil {
		s.logger.Error("Failed to refresh day",
			zap.Int("user_id", u.ID),
			zap.String("date", string(st.Date)),
			zap.Error(err),
		)
	}
}

// LogInput is a validated append request. A nil LoggedAt means now.
type LogInput struct {
	Value    float64
	Notes    *string
	LoggedAt *time.Time
}

type AppendResult struct {
	Log         habit.Log
	Summary     habit.Summary
	Achievement *habit.Notification
}

// AppendLog records a log entry for the habit referenced by ref (id or slug) on
// the day of its timestamp. Crossing that day's target from below creates
// exactly one achievement for the day.
func (s *Service) AppendLog(ctx context.Context, u models.User, ref string, in LogInput) (AppendResult, error) {
	h, err := s.store.ResolveHabit(ctx, u.ID, ref)
	if err != nil {
		return AppendResult{}, err
	}
	now := s.Now(u)
	at := now
	if in.LoggedAt != nil {
		at = *in.LoggedAt
	}
	day := habit.DateOf(at, u.Location())

	st, err := s.load(ctx, u, day, now)
	if err != nil {
		return AppendResult{}, err
	}
	next, entry, _, err := st.AppendLog(h.Slug, in.Value, in.Notes, in.LoggedAt, now)
	if err != nil {
		return AppendResult{}, err
	}
	if err := s.store.InsertLog(ctx, u.ID, h.ID, entry, now); err != nil {
		return AppendResult{}, err
	}
	metrics.IncLogsAppended(string(h.Slug))

	// Other writers may have appended to the day since it was loaded; credit
	// the entry against what is stored.
	if fresh, err := s.load(ctx, u, day, now); err != nil {
		s.logger.Error("Failed to reload day after log", zap.Int("user_id", u.ID), zap.String("date", string(day)), zap.Error(err))
	} else {
		next = fresh
	}
	next, n := next.Credit(entry, now)

	result := AppendResult{Log: entry, Summary: next.Summary(h.Slug)}
	result.Achievement = s.award(ctx, u, n)
	s.refresh(ctx, u, next, now)

	s.logger.Debug("Log appended",
		zap.Int("user_id", u.ID),
		zap.String("habit", string(h.Slug)),
		zap.Float64("value", entry.Value),
		zap.Float64("day_total", next.Ledger.SumForDay(h.Slug, day)),
		zap.String("date", string(entry.EntryDate)),
	)
	return result, nil
}

// award persists an achievement and hands it to the notifier. A second
// completion of the same habit and day is ignored by the store.
func (s *Service) award(ctx context.Context, u models.User, n *habit.Notification) *habit.Notification {
	if n == nil {
		return nil
	}
	created, err := s.store.InsertAchievement(ctx, u.ID, *n)
	if err != nil {
		s.logger.Error("Failed to store achievement", zap.Int("user_id", u.ID), zap.String("habit", string(n.Habit)), zap.Error(err))
		return nil
	}
	if !created {
		return nil
	}
	metrics.IncAchievement(string(n.Habit))
	s.notify(ctx, u.ID, *n)
	return n
}

func (s *Service) notify(ctx context.Context, userID int, n habit.Notification) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		s.notifier.NotifyAchievement(ctx, userID, n)
	}()
}

// Logs lists a habit's entries newest first.
func (s *Service) Logs(ctx context.Context, u models.User, ref string, day *habit.Date, limit int) ([]habit.Log, error) {
	h, err := s.store.ResolveHabit(ctx, u.ID, ref)
	if err != nil {
		return nil, err
	}
	return s.store.ListLogs(ctx, h.ID, day, limit)
}

type SettingsResult struct {
	Habit       models.Habit
	Settings    habit.Settings
	Achievement *habit.Notification
}

// UpdateSettings applies a partial update to one habit's settings and
// re-evaluates today's completion against the new target. The target and the
// settings row change together or not at all.
func (s *Service) UpdateSettings(ctx context.Context, u models.User, p habit.Patch) (SettingsResult, error) {
	res, err := s.updateSettings(ctx, u, p)
	metrics.IncSettingsUpdate(string(p.Slug()), settingsOutcome(err))
	return res, err
}

func (s *Service) updateSettings(ctx context.Context, u models.User, p habit.Patch) (SettingsResult, error) {
	now := s.Now(u)
	st, err := s.load(ctx, u, habit.DateOf(now, u.Location()), now)
	if err != nil {
		return SettingsResult{}, err
	}
	next, n, err := st.UpdateSettings(p, now)
	if err != nil {
		return SettingsResult{}, err
	}
	slug := p.Slug()
	settings := next.Settings.Get(slug)
	h, err := s.store.SaveSettings(ctx, u.ID, settings, next.Targets[slug], now)
	if err != nil {
		return SettingsResult{}, err
	}

	res := SettingsResult{Habit: h, Settings: settings}
	res.Achievement = s.award(ctx, u, n)
	s.refresh(ctx, u, next, now)
	return res, nil
}

func settingsOutcome(err error) string {
	var verr *habit.ValidationError
	var conflict *habit.ConflictError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &conflict):
		return "rolled_back"
	}
	return "error"
}

// UpdateBiometrics stores biometrics and re-derives the hydration target.
func (s *Service) UpdateBiometrics(ctx context.Context, u models.User, b habit.Biometrics) (habit.WaterSettings, error) {
	now := s.Now(u)
	st, err := s.load(ctx, u, habit.DateOf(now, u.Location()), now)
	if err != nil {
		return habit.WaterSettings{}, err
	}
	next, n, err := st.UpdateBiometrics(b, now)
	if err != nil {
		return habit.WaterSettings{}, err
	}
	if err := s.store.UpdateBiometrics(ctx, u.ID, b, next.Settings.Water, next.Targets[habit.Water], now); err != nil {
		return habit.WaterSettings{}, err
	}
	s.award(ctx, u, n)
	s.refresh(ctx, u, next, now)
	return next.Settings.Water, nil
}

// Habits returns catalog metadata with the user's resolved target and settings.
func (s *Service) Habits(ctx context.Context, u models.User) ([]models.HabitView, error) {
	profile, err := s.store.LoadProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := make([]models.HabitView, 0, len(profile.Habits))
	for _, h := range profile.Habits {
		out = append(out, models.HabitView{
			Meta:        habit.MetaOf(h.Slug),
			ID:          h.ID,
			TargetValue: h.TargetValue,
			Settings:    profile.Settings.Get(h.Slug),
		})
	}
	return out, nil
}

// Settings returns every settings variant of the user.
func (s *Service) Settings(ctx context.Context, u models.User) ([]models.SettingsResponse, error) {
	profile, err := s.store.LoadProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := make([]models.SettingsResponse, 0, len(profile.Habits))
	for _, h := range profile.Habits {
		out = append(out, models.SettingsResponse{HabitID: h.ID, Slug: h.Slug, Settings: profile.Settings.Get(h.Slug)})
	}
	return out, nil
}

func (s *Service) Notifications(ctx context.Context, u models.User, f store.NotificationFilter) ([]habit.Notification, error) {
	return s.store.ListNotifications(ctx, u.ID, f)
}

func (s *Service) MarkRead(ctx context.Context, u models.User, id string) (models.ReadResponse, error) {
	at, err := s.store.MarkNotificationRead(ctx, u.ID, id, s.now())
	if err != nil {
		return models.ReadResponse{}, err
	}
	return models.ReadResponse{ID: id, ReadAt: at}, nil
}

// DefaultSnapshotDays is the history window when no range is given.
const DefaultSnapshotDays = 30

// Snapshots lists recorded days between from and to inclusive.
func (s *Service) Snapshots(ctx context.Context, u models.User, from, to *habit.Date) ([]habit.DailySnapshot, error) {
	end := s.Today(u)
	if to != nil {
		end = *to
	}
	var start habit.Date
	if from != nil {
		start = *from
	} else {
		t, _ := time.Parse("2006-01-02", string(end))
		start = habit.Date(t.AddDate(0, 0, -(DefaultSnapshotDays - 1)).Format("2006-01-02"))
	}
	if start > end {
		return nil, habit.NewValidationError("from", "must not be after to")
	}
	return s.store.ListSnapshots(ctx, u.ID, start, end)
}
