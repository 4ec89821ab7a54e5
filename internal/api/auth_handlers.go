package api

import (
	"errors"
	"time"

	"habitd/internal/auth"
	"habitd/internal/habit"
	"habitd/internal/models"
	"habitd/internal/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandlers issues access tokens and rotating refresh cookies.
type AuthHandlers struct {
	Store           *store.Store
	Tokens          *auth.Manager
	Logger          *zap.Logger
	DefaultTimezone string
	Now             func() time.Time
}

func (h *AuthHandlers) setRefreshCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.Tokens.CookieSecure,
		SameSite: "Lax",
		Path:     "/api/auth",
	})
}

// issue generates both tokens, persists the refresh token and sets its cookie.
func (h *AuthHandlers) issue(c *fiber.Ctx, u models.User, days int) (string, error) {
	accessToken, err := h.Tokens.GenerateToken(u.ID, u.Username)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token")
	}
	refreshToken, err := h.Tokens.GenerateRefreshToken(u.ID, u.Username, days)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to generate refresh token")
	}
	expiresAt := h.Now().Add(time.Duration(days) * 24 * time.Hour)
	if err := h.Store.StoreRefreshToken(c.UserContext(), u.ID, refreshToken, expiresAt, days); err != nil {
		h.Logger.Error("Failed to store refresh token", zap.Int("user_id", u.ID), zap.Error(err))
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to store refresh token")
	}
	h.setRefreshCookie(c, refreshToken, expiresAt)
	return accessToken, nil
}

func (h *AuthHandlers) Register() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := habit.DecodeJSON(c.Body(), &req); err != nil {
			return err
		}
		if req.Username == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
		}

		tz := req.Timezone
		if tz == "" {
			tz = h.DefaultTimezone
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return habit.NewValidationError("timezone", "must be an IANA time zone name")
		}
		var bio habit.Biometrics
		if req.Biometrics != nil {
			if err := req.Biometrics.Validate(); err != nil {
				return err
			}
			bio = *req.Biometrics
		}

		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to hash password")
		}

		u, err := h.Store.CreateUser(c.UserContext(), req.Username, hashedPassword, tz, bio, h.Now())
		if errors.Is(err, store.ErrUsernameTaken) {
			return fiber.NewError(fiber.StatusConflict, "Username already exists")
		}
		if err != nil {
			return err
		}

		token, err := h.issue(c, u, h.Tokens.RefreshDays(req.Remember))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{Token: token, User: u})
	}
}

func (h *AuthHandlers) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := habit.DecodeJSON(c.Body(), &req); err != nil {
			return err
		}

		u, err := h.Store.UserByUsername(c.UserContext(), req.Username)
		var nf *habit.NotFoundError
		if errors.As(err, &nf) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}
		if err != nil {
			return err
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}

		token, err := h.issue(c, u, h.Tokens.RefreshDays(req.Remember))
		if err != nil {
			return err
		}
		return c.JSON(models.AuthResponse{Token: token, User: u})
	}
}

// Refresh exchanges a valid refresh cookie for a new access token and rotates the cookie.
func (h *AuthHandlers) Refresh() fiber.Handler {
	return func(c *fiber.Ctx) error {
		refreshToken := c.Cookies("refresh_token")
		if refreshToken == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not found")
		}

		claims, err := h.Tokens.ValidateRefreshToken(refreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired refresh token")
		}

		ctx := c.UserContext()
		dbUserID, ttlDays, err := h.Store.ValidateRefreshToken(ctx, refreshToken, h.Now())
		if err != nil {
			h.Logger.Debug("Refresh token rejected", zap.Int("user_id", claims.UserID), zap.Error(err))
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not valid")
		}
		if dbUserID != claims.UserID {
			return fiber.NewError(fiber.StatusUnauthorized, "Token user mismatch")
		}

		token, err := h.issue(c, models.User{ID: claims.UserID, Username: claims.Username}, ttlDays)
		if err != nil {
			return err
		}
		if err := h.Store.RevokeRefreshToken(ctx, refreshToken); err != nil {
			h.Logger.Warn("Failed to revoke rotated refresh token", zap.Int("user_id", claims.UserID), zap.Error(err))
		}
		return c.JSON(fiber.Map{"token": token})
	}
}

// Logout revokes the refresh token, if any, and clears the cookie.
func (h *AuthHandlers) Logout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if old := c.Cookies("refresh_token"); old != "" {
			if err := h.Store.RevokeRefreshToken(c.UserContext(), old); err != nil {
				h.Logger.Warn("Failed to revoke refresh token on logout", zap.Error(err))
			}
		}
		h.setRefreshCookie(c, "", h.Now().Add(-time.Hour))
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}
