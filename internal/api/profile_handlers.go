package api

import (
	"habitd/internal/habit"
	"habitd/internal/models"
	"habitd/internal/store"
	"habitd/internal/tracker"

	"github.com/gofiber/fiber/v2"
)

// GetProfileHandler returns the current user's profile information
func GetProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(currentUser(c))
	}
}

// UpdateBiometricsHandler requires all three measurements and returns the
// re-derived hydration settings.
func UpdateBiometricsHandler(svc *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateBiometricsRequest
		if err := habit.DecodeJSON(c.Body(), &req); err != nil {
			return err
		}
		switch {
		case req.Height == nil:
			return habit.NewValidationError("height", "is required")
		case req.Weight == nil:
			return habit.NewValidationError("weight", "is required")
		case req.Age == nil:
			return habit.NewValidationError("age", "is required")
		}

		b := habit.Biometrics{Height: *req.Height, Weight: *req.Weight, Age: *req.Age}
		water, err := svc.UpdateBiometrics(c.UserContext(), currentUser(c), b)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"biometrics": b,
			"water":      water,
		})
	}
}

func UpdateTimezoneHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateTimezoneRequest
		if err := habit.DecodeJSON(c.Body(), &req); err != nil {
			return err
		}
		u := currentUser(c)
		if err := st.UpdateTimezone(c.UserContext(), u.ID, req.Timezone); err != nil {
			return err
		}
		u.Timezone = req.Timezone
		return c.JSON(u)
	}
}
