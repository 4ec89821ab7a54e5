package api

import (
	"strconv"

	"habitd/internal/habit"
	"habitd/internal/store"
	"habitd/internal/tracker"

	"github.com/gofiber/fiber/v2"
)

// ListNotificationsHandler supports ?includeRead=true|false&type=reminder|achievement|alert&date=.
func ListNotificationsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f store.NotificationFilter
		if raw := c.Query("includeRead"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return habit.NewValidationError("includeRead", "must be true or false")
			}
			f.IncludeRead = v
		}
		if raw := c.Query("type"); raw != "" {
			t, err := habit.ParseNotificationType(raw)
			if err != nil {
				return err
			}
			f.Type = t
		}
		day, err := optionalDate(c, "date")
		if err != nil {
			return err
		}
		if day != nil {
			f.Day = *day
		}

		list, err := svc.Notifications(c.UserContext(), currentUser(c), f)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

func MarkNotificationReadHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.MarkRead(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func ListSnapshotsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := optionalDate(c, "from")
		if err != nil {
			return err
		}
		to, err := optionalDate(c, "to")
		if err != nil {
			return err
		}
		snaps, err := svc.Snapshots(c.UserContext(), currentUser(c), from, to)
		if err != nil {
			return err
		}
		return c.JSON(snaps)
	}
}
