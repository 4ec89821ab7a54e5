package api

import (
	"time"

	"habitd/internal/auth"
	"habitd/internal/push"
	"habitd/internal/store"
	"habitd/internal/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Store               *store.Store
	Tracker             *tracker.Service
	Tokens              *auth.Manager
	Push                *push.Sender
	Logger              *zap.Logger
	DefaultTimezone     string
	DisableRegistration bool
	Now                 func() time.Time
}

func SetupRoutes(app *fiber.App, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	api := app.Group("/api")

	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": d.DisableRegistration,
			"pushEnabled":         d.Push.Enabled(),
		})
	})

	authHandlers := &AuthHandlers{
		Store:           d.Store,
		Tokens:          d.Tokens,
		Logger:          d.Logger,
		DefaultTimezone: d.DefaultTimezone,
		Now:             d.Now,
	}
	authGroup := api.Group("/auth")
	if !d.DisableRegistration {
		authGroup.Post("/register", authHandlers.Register())
	}
	authGroup.Post("/login", authHandlers.Login())
	authGroup.Post("/refresh", authHandlers.Refresh())
	authGroup.Post("/logout", authHandlers.Logout())

	// Public so the service worker can subscribe before login.
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler(d.Push))

	protected := api.Group("/", AuthMiddleware(d.Tokens), LoadUser(d.Store))

	protected.Get("/dashboard", DashboardHandler(d.Tracker))

	habits := protected.Group("/habits")
	habits.Get("/", ListHabitsHandler(d.Tracker))
	habits.Get("/settings", GetSettingsHandler(d.Tracker))
	habits.Patch("/settings", UpdateSettingsHandler(d.Tracker))
	habits.Get("/:id/logs", ListLogsHandler(d.Tracker))
	habits.Post("/:id/logs", AppendLogHandler(d.Tracker))

	notifications := protected.Group("/notifications")
	notifications.Get("/", ListNotificationsHandler(d.Tracker))
	notifications.Patch("/:id/read", MarkNotificationReadHandler(d.Tracker))

	protected.Get("/snapshots", ListSnapshotsHandler(d.Tracker))

	profile := protected.Group("/profile")
	profile.Get("/", GetProfileHandler())
	profile.Put("/biometrics", UpdateBiometricsHandler(d.Tracker))
	profile.Put("/timezone", UpdateTimezoneHandler(d.Store))

	pushGroup := protected.Group("/push")
	pushGroup.Post("/subscribe", SubscribePushHandler(d.Store))
	pushGroup.Delete("/unsubscribe", UnsubscribePushHandler(d.Store))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
