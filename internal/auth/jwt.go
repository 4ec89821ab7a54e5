package auth

import (
	"errors"
	"fmt"
	"time"

	"habitd/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Claims struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type,omitempty"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// Manager issues and validates access and refresh tokens.
type Manager struct {
	jwtSecret           []byte
	refreshSecret       []byte
	accessTokenMinutes  int
	refreshTokenDays    int
	rememberRefreshDays int
	CookieSecure        bool
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 characters long")
	}
	refresh := cfg.RefreshSecret
	if refresh == "" {
		refresh = cfg.JWTSecret + "-refresh"
	}
	m := &Manager{
		jwtSecret:           []byte(cfg.JWTSecret),
		refreshSecret:       []byte(refresh),
		accessTokenMinutes:  cfg.AccessTokenMinutes,
		refreshTokenDays:    cfg.RefreshTokenDays,
		rememberRefreshDays: cfg.RememberRefreshDays,
		CookieSecure:        cfg.CookieSecure,
	}
	if m.accessTokenMinutes <= 0 {
		m.accessTokenMinutes = 15
	}
	if m.refreshTokenDays <= 0 {
		m.refreshTokenDays = 7
	}
	if m.rememberRefreshDays <= 0 {
		m.rememberRefreshDays = 30
	}
	return m, nil
}

// GenerateToken creates a short-lived access token
func (m *Manager) GenerateToken(userID int, username string) (string, error) {
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(m.accessTokenMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.jwtSecret)
}

// GenerateRefreshToken creates a refresh token that expires after the given number of days.
// Each token carries a unique id so rotation never reissues the same string.
func (m *Manager) GenerateRefreshToken(userID int, username string, days int) (string, error) {
	if days <= 0 {
		days = m.refreshTokenDays
	}
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(days) * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.refreshSecret)
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	return parse(tokenString, m.jwtSecret, "access")
}

func (m *Manager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return parse(tokenString, m.refreshSecret, "refresh")
}

func parse(tokenString string, secret []byte, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != tokenType {
			return nil, errors.New("invalid token type")
		}
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// RefreshDays returns configured refresh token TTL in days depending on remember flag
func (m *Manager) RefreshDays(remember bool) int {
	if remember {
		return m.rememberRefreshDays
	}
	return m.refreshTokenDays
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
