package habit

import "math"

// DailySnapshot aggregates completion across all habits for one day.
type DailySnapshot struct {
	Date                 Date `json:"date"`
	TotalHabits          int  `json:"totalHabits"`
	CompletedHabits      int  `json:"completedHabits"`
	CompletionPercentage int  `json:"completionPercentage"`
}

func Snapshot(day Date, summaries []Summary) DailySnapshot {
	snap := DailySnapshot{Date: day, TotalHabits: len(summaries)}
	for _, s := range summaries {
		if s.IsComplete {
			snap.CompletedHabits++
		}
	}
	if snap.TotalHabits > 0 {
		snap.CompletionPercentage = int(math.Round(float64(snap.CompletedHabits) * 100 / float64(snap.TotalHabits)))
	}
	return snap
}
