package habit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Reminder is a scheduled prompt derived from settings.
type Reminder struct {
	ID           string    `json:"id"`
	Habit        Slug      `json:"habitId"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Read         bool      `json:"read"`
}

// ReminderKey identifies a reminder across recomputations.
type ReminderKey struct {
	Habit Slug
	At    int64
}

func (r Reminder) Key() ReminderKey {
	return ReminderKey{Habit: r.Habit, At: r.ScheduledFor.UTC().Truncate(time.Minute).Unix()}
}

// Schedule derives the reminders of day from all settings. Time-of-day reminders
// land on day in now's location. The hydration reminder is now plus the interval
// and only exists while day is the current day.
// The result is ordered by scheduled time, ties keeping emission order.
func Schedule(all AllSettings, targets Targets, day Date, now time.Time) []Reminder {
	loc := now.Location()
	var out []Reminder

	if w := all.Water; w.ReminderIntervalMinutes > 0 && DateOf(now, loc) == day {
		liters := math.Round(targets[Water]/100) / 10
		out = append(out, Reminder{
			Habit:        Water,
			Title:        "Hora de beber agua",
			Message:      fmt.Sprintf("Mantente hidratado: tu meta de hoy es %sL.", formatNumber(liters)),
			ScheduledFor: now.Add(time.Duration(w.ReminderIntervalMinutes) * time.Minute).Truncate(time.Minute),
		})
	}

	if s := all.Sleep; s.ReminderEnabled {
		if bed, err := ParseClock("bedTime", s.BedTime); err == nil {
			at := day.At(bed, loc).Add(-time.Duration(s.ReminderAdvanceMinutes) * time.Minute)
			out = append(out, Reminder{
				Habit:        Sleep,
				Title:        "Prepárate para dormir",
				Message:      fmt.Sprintf("Tu hora de dormir es a las %s.", bed),
				ScheduledFor: at,
			})
		}
	}

	if n := all.Nutrition; n.RemindersEnabled {
		for _, m := range n.Meals {
			if !m.Enabled {
				continue
			}
			c, err := ParseClock("time", m.Time)
			if err != nil {
				continue
			}
			out = append(out, Reminder{
				Habit:        Nutrition,
				Title:        fmt.Sprintf("Hora de %s", m.Label),
				Message:      fmt.Sprintf("No olvides registrar tu comida: %s (%s).", m.Label, c),
				ScheduledFor: day.At(c, loc),
			})
		}
	}

	if e := all.Exercise; e.ReminderEnabled {
		if c, err := ParseClock("reminderTime", e.ReminderTime); err == nil {
			out = append(out, Reminder{
				Habit:        Exercise,
				Title:        "Hora de moverte",
				Message:      fmt.Sprintf("Tu meta de hoy: %d min de ejercicio.", e.DailyGoalMinutes),
				ScheduledFor: day.At(c, loc),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	return out
}

// Reconcile carries id and read state from prev into next for reminders with the
// same key. Each previous reminder is matched at most once, in order. Unmatched
// reminders get a fresh id and start unread.
func Reconcile(prev, next []Reminder) []Reminder {
	known := make(map[ReminderKey][]Reminder, len(prev))
	for _, r := range prev {
		known[r.Key()] = append(known[r.Key()], r)
	}
	out := make([]Reminder, len(next))
	for i, r := range next {
		if queue := known[r.Key()]; len(queue) > 0 {
			r.ID = queue[0].ID
			r.Read = queue[0].Read
			known[r.Key()] = queue[1:]
		} else {
			r.ID = uuid.NewString()
			r.Read = false
		}
		out[i] = r
	}
	return out
}
