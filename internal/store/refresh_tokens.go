package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrRefreshRevoked  = errors.New("refresh token revoked")
	ErrRefreshExpired  = errors.New("refresh token expired")
)

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// StoreRefreshToken records the hash of a refresh token. Storing the same token
// twice refreshes its expiry and clears revocation.
func (s *Store) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time, ttlDays int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, ttl_days) VALUES (?, ?, ?, ?)
		ON CONFLICT(token_hash) DO UPDATE SET
			expires_at = excluded.expires_at,
			ttl_days = excluded.ttl_days,
			revoked = 0`,
		userID, hashToken(token), formatTS(expiresAt), ttlDays,
	)
	if err != nil {
		return wrap("store refresh token", err)
	}
	return nil
}

// ValidateRefreshToken returns the owner and ttl of a live refresh token.
func (s *Store) ValidateRefreshToken(ctx context.Context, token string, now time.Time) (userID, ttlDays int, err error) {
	var revoked bool
	var expiresAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked, ttl_days FROM refresh_tokens WHERE token_hash = ?",
		hashToken(token)).Scan(&userID, &expiresAt, &revoked, &ttlDays)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrRefreshNotFound
	}
	if err != nil {
		return 0, 0, wrap("validate refresh token", err)
	}
	if revoked {
		return 0, 0, ErrRefreshRevoked
	}
	exp, err := parseTS(expiresAt)
	if err != nil {
		return 0, 0, wrap("parse refresh expiry", err)
	}
	if now.After(exp) {
		return 0, 0, ErrRefreshExpired
	}
	return userID, ttlDays, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?", hashToken(token))
	if err != nil {
		return wrap("revoke refresh token", err)
	}
	return nil
}
