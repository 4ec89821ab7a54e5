package api

import (
	"errors"
	"strings"

	"habitd/internal/auth"
	"habitd/internal/habit"
	"habitd/internal/models"
	"habitd/internal/store"

	"github.com/gofiber/fiber/v2"
)

func AuthMiddleware(tokens *auth.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing authorization header")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		return c.Next()
	}
}

// LoadUser resolves the authenticated user row so handlers see the current
// timezone and biometrics.
func LoadUser(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(int)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing user")
		}
		u, err := st.UserByID(c.UserContext(), userID)
		if err != nil {
			var nf *habit.NotFoundError
			if errors.As(err, &nf) {
				return fiber.NewError(fiber.StatusUnauthorized, "Unknown user")
			}
			return err
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) models.User {
	u, _ := c.Locals("user").(models.User)
	return u
}
