package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habitd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	LogsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitd_logs_appended_total",
			Help: "Habit log entries appended",
		},
		[]string{"habit"},
	)

	AchievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitd_achievements_total",
			Help: "Achievement notifications created",
		},
		[]string{"habit"},
	)

	SettingsUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitd_settings_updates_total",
			Help: "Settings updates by outcome",
		},
		[]string{"habit", "result"}, // result: ok, invalid, rolled_back
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitd_push_deliveries_total",
			Help: "Web push deliveries by outcome",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequestDuration(method, path string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

func IncLogsAppended(habit string)           { LogsAppended.WithLabelValues(habit).Inc() }
func IncAchievement(habit string)            { AchievementsUnlocked.WithLabelValues(habit).Inc() }
func IncSettingsUpdate(habit, result string) { SettingsUpdates.WithLabelValues(habit, result).Inc() }
func IncPushDelivery(result string)          { PushDeliveries.WithLabelValues(result).Inc() }

// Middleware observes the duration of every request, labelled by route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		RecordHTTPRequestDuration(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
