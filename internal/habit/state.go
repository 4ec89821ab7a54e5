package habit

import "time"

// DashboardState is the full derived view of one user's day. Every transition
// returns a new state with summaries, reminders and snapshot recomputed from the
// ledger and settings; the receiver is never modified.
type DashboardState struct {
	Date          Date
	Location      *time.Location
	Biometrics    Biometrics
	Settings      AllSettings
	Targets       Targets
	Ledger        Ledger
	Summaries     []Summary
	Reminders     []Reminder
	Notifications []Notification
	Snapshot      DailySnapshot
}

// NewDashboardState resolves targets and computes the initial view of day.
func NewDashboardState(day Date, loc *time.Location, b Biometrics, settings AllSettings, ledger Ledger, now time.Time) (DashboardState, error) {
	targets, err := ResolveAll(settings, b, nil)
	if err != nil {
		return DashboardState{}, err
	}
	return Restore(StoredDay{
		Date:       day,
		Location:   loc,
		Biometrics: b,
		Settings:   settings,
		Targets:    targets,
		Logs:       ledger.entries,
	}, now), nil
}

// StoredDay is one persisted day of a user.
type StoredDay struct {
	Date          Date
	Location      *time.Location
	Biometrics    Biometrics
	Settings      AllSettings
	Targets       Targets
	Logs          []Log
	Reminders     []Reminder
	Notifications []Notification
}

// Restore rebuilds the state of a stored day. Stored targets are kept as they
// are, so a nutrition target without enabled meals survives. Stored reminders
// keep their ids and read state where the schedule still matches them.
func Restore(d StoredDay, now time.Time) DashboardState {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	s := DashboardState{
		Date:          d.Date,
		Location:      loc,
		Biometrics:    d.Biometrics,
		Settings:      d.Settings,
		Targets:       d.Targets,
		Ledger:        NewLedger(loc, d.Logs...),
		Reminders:     append([]Reminder(nil), d.Reminders...),
		Notifications: append([]Notification(nil), d.Notifications...),
	}
	return s.recompute(now)
}

// Summary returns the current summary of slug.
func (s DashboardState) Summary(slug Slug) Summary {
	for _, sum := range s.Summaries {
		if sum.Habit == slug {
			return sum
		}
	}
	return SummarizeTarget(slug, s.Targets[slug], nil)
}

// AppendLog records a log entry. The returned notification is non-nil when the
// entry completes its habit for the state's day. An entry dated on another day
// is kept in the ledger but credits nothing here; that day's own state does.
func (s DashboardState) AppendLog(habit Slug, value float64, notes *string, loggedAt *time.Time, now time.Time) (DashboardState, Log, *Notification, error) {
	ledger, entry, err := s.Ledger.Append(habit, value, notes, loggedAt, now)
	if err != nil {
		return s, Log{}, nil, err
	}
	next := s
	next.Ledger = ledger
	next = next.recompute(now)
	next, n := next.Credit(entry, now)
	return next, entry, n, nil
}

// Credit reports the achievement earned by an entry already in the ledger.
// Progress before the entry counts only entries recorded ahead of it, so of
// several entries that land together exactly one is credited.
func (s DashboardState) Credit(entry Log, now time.Time) (DashboardState, *Notification) {
	stored, ok := s.Ledger.Find(entry.ID)
	if !ok || stored.EntryDate != s.Date {
		return s, nil
	}
	var before, through []Log
	for _, l := range s.Ledger.ForDay(stored.Habit, s.Date) {
		if l.Seq < stored.Seq {
			before = append(before, l)
		}
		if l.Seq <= stored.Seq {
			through = append(through, l)
		}
	}
	target := s.Targets[stored.Habit]
	return s.award(CheckTransition(stored.Habit,
		SummarizeTarget(stored.Habit, target, before),
		SummarizeTarget(stored.Habit, target, through),
		s.Date, now))
}

// UpdateSettings applies a partial settings update. A failed validation leaves
// the state untouched.
func (s DashboardState) UpdateSettings(p Patch, now time.Time) (DashboardState, *Notification, error) {
	slug := p.Slug()
	updated, err := p.Apply(s.Settings.Get(slug))
	if err != nil {
		return s, nil, err
	}
	target, err := ResolveTarget(updated, s.Biometrics, s.Targets[slug])
	if err != nil {
		return s, nil, err
	}
	before := s.Summary(slug)

	next := s
	next.Settings = s.Settings.With(updated)
	next.Targets = s.Targets.with(slug, target)
	next = next.recompute(now)
	next, n := next.achieve(slug, before, now)
	return next, n, nil
}

// UpdateBiometrics replaces the biometrics and re-derives the hydration target.
func (s DashboardState) UpdateBiometrics(b Biometrics, now time.Time) (DashboardState, *Notification, error) {
	if err := b.Validate(); err != nil {
		return s, nil, err
	}
	water := s.Settings.Water.WithBiometrics(b)
	target, err := ResolveTarget(water, b, s.Targets[Water])
	if err != nil {
		return s, nil, err
	}
	before := s.Summary(Water)

	next := s
	next.Biometrics = b
	next.Settings = s.Settings.With(water)
	next.Targets = s.Targets.with(Water, target)
	next = next.recompute(now)
	next, n := next.achieve(Water, before, now)
	return next, n, nil
}

func (s DashboardState) recompute(now time.Time) DashboardState {
	var logs []Log
	for _, slug := range Slugs {
		logs = append(logs, s.Ledger.ForDay(slug, s.Date)...)
	}
	s.Summaries = SummarizeAll(s.Targets, logs)
	s.Reminders = Reconcile(s.Reminders, Schedule(s.Settings, s.Targets, s.Date, now.In(s.loc())))
	s.Snapshot = Snapshot(s.Date, s.Summaries)
	return s
}

func (s DashboardState) achieve(habit Slug, before Summary, now time.Time) (DashboardState, *Notification) {
	return s.award(CheckTransition(habit, before, s.Summary(habit), s.Date, now))
}

func (s DashboardState) award(n *Notification) (DashboardState, *Notification) {
	if n == nil || s.hasAchievement(n.Habit) {
		return s, nil
	}
	s.Notifications = append(s.Notifications[:len(s.Notifications):len(s.Notifications)], *n)
	return s, n
}

func (s DashboardState) hasAchievement(habit Slug) bool {
	for _, n := range s.Notifications {
		if n.Type == TypeAchievement && n.Habit == habit && n.Date == s.Date {
			return true
		}
	}
	return false
}

func (s DashboardState) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (t Targets) with(slug Slug, v float64) Targets {
	out := make(Targets, len(t)+1)
	for k, val := range t {
		out[k] = val
	}
	out[slug] = v
	return out
}
