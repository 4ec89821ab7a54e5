package api

import (
	"strconv"

	"habitd/internal/habit"
	"habitd/internal/models"
	"habitd/internal/tracker"

	"github.com/gofiber/fiber/v2"
)

func optionalDate(c *fiber.Ctx, key string) (*habit.Date, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := habit.ParseDate(raw)
	if err != nil {
		return nil, habit.NewValidationError(key, "must be a YYYY-MM-DD date")
	}
	return &d, nil
}

func DashboardHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := optionalDate(c, "date")
		if err != nil {
			return err
		}
		d, err := svc.Dashboard(c.UserContext(), currentUser(c), day)
		if err != nil {
			return err
		}
		return c.JSON(d)
	}
}

func ListHabitsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		views, err := svc.Habits(c.UserContext(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(views)
	}
}

func ListLogsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := optionalDate(c, "date")
		if err != nil {
			return err
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				return habit.NewValidationError("limit", "must be a positive integer")
			}
		}
		logs, err := svc.Logs(c.UserContext(), currentUser(c), c.Params("id"), day, limit)
		if err != nil {
			return err
		}
		return c.JSON(logs)
	}
}

func AppendLogHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.AppendLogRequest
		if err := habit.DecodeJSON(c.Body(), &req); err != nil {
			return err
		}
		if req.Value == nil {
			return habit.NewValidationError("value", "is required")
		}

		in := tracker.LogInput{Value: *req.Value, Notes: req.Notes}
		if req.LoggedAt != nil {
			at, err := habit.ParseLoggedAt(*req.LoggedAt)
			if err != nil {
				return err
			}
			in.LoggedAt = &at
		}

		res, err := svc.AppendLog(c.UserContext(), currentUser(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res.Log)
	}
}

func GetSettingsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings, err := svc.Settings(c.UserContext(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(settings)
	}
}

// UpdateSettingsHandler applies a `{type, ...fields}` partial update and echoes
// the resulting variant.
func UpdateSettingsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := habit.DecodePatch(c.Body())
		if err != nil {
			return err
		}
		res, err := svc.UpdateSettings(c.UserContext(), currentUser(c), p)
		if err != nil {
			return err
		}
		return c.JSON(models.SettingsResponse{
			HabitID:  res.Habit.ID,
			Slug:     res.Habit.Slug,
			Settings: res.Settings,
		})
	}
}
