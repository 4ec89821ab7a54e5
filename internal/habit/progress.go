package habit

import (
	"fmt"
	"math"
	"strconv"
)

// Summary is the derived progress of one habit on one day.
type Summary struct {
	Habit          Slug    `json:"habitId"`
	Name           string  `json:"name"`
	Icon           string  `json:"icon"`
	Color          string  `json:"color"`
	TargetValue    float64 `json:"targetValue"`
	TargetUnit     string  `json:"targetUnit"`
	ProgressValue  float64 `json:"progressValue"`
	CompletionRate float64 `json:"completionRate"`
	IsComplete     bool    `json:"isComplete"`
	ProgressText   string  `json:"progressText"`
}

// Summarize resolves the target from settings and aggregates logs. Settings that
// fail to resolve yield a zero target and therefore a zero completion rate.
func Summarize(s Settings, b Biometrics, logs []Log) Summary {
	target, err := ResolveTarget(s, b, 0)
	if err != nil {
		target = 0
	}
	return SummarizeTarget(s.Slug(), target, logs)
}

// SummarizeTarget aggregates the logs of slug against an already resolved target.
func SummarizeTarget(slug Slug, target float64, logs []Log) Summary {
	meta := MetaOf(slug)
	var own []Log
	for _, l := range logs {
		if l.Habit == slug {
			own = append(own, l)
		}
	}
	progress := math.Max(0, SumLogs(own))

	rate := 0.0
	if target > 0 {
		rate = math.Min(progress/target, 1)
	}
	return Summary{
		Habit:          slug,
		Name:           meta.Name,
		Icon:           meta.Icon,
		Color:          meta.Color,
		TargetValue:    target,
		TargetUnit:     meta.Unit,
		ProgressValue:  progress,
		CompletionRate: rate,
		IsComplete:     rate >= 1,
		ProgressText:   ProgressText(progress, target, meta.Unit),
	}
}

// SummarizeAll builds one summary per habit in catalog order.
func SummarizeAll(targets Targets, logs []Log) []Summary {
	out := make([]Summary, 0, len(Slugs))
	for _, slug := range Slugs {
		out = append(out, SummarizeTarget(slug, targets[slug], logs))
	}
	return out
}

// ProgressText renders "value de target" in the habit's unit. Millilitres switch
// to litres with one decimal once progress reaches 1000.
func ProgressText(value, target float64, unit string) string {
	if unit == "ml" {
		if value >= 1000 {
			return fmt.Sprintf("%.1fL de %.1fL", value/1000, target/1000)
		}
		return fmt.Sprintf("%sml de %sml", formatNumber(value), formatNumber(target))
	}
	return fmt.Sprintf("%s %s de %s %s", formatNumber(value), unit, formatNumber(target), unit)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
