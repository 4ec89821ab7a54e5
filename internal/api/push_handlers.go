package api

import (
	"habitd/internal/habit"
	"habitd/internal/models"
	"habitd/internal/push"
	"habitd/internal/store"

	"github.com/gofiber/fiber/v2"
)

func SubscribePushHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub models.PushSubscription
		if err := habit.DecodeJSON(c.Body(), &sub); err != nil {
			return err
		}
		if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing subscription fields")
		}
		if err := st.SavePushSubscription(c.UserContext(), currentUser(c).ID, sub); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func UnsubscribePushHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := habit.DecodeJSON(c.Body(), &body); err != nil {
			return err
		}
		if err := st.DeletePushSubscription(c.UserContext(), currentUser(c).ID, body.Endpoint); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// VapidPublicKeyHandler returns the VAPID public key for client subscription
func VapidPublicKeyHandler(sender *push.Sender) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !sender.Enabled() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured")
		}
		return c.JSON(fiber.Map{"publicKey": sender.PublicKey()})
	}
}
