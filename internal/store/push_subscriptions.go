package store

import (
	"context"

	"habitd/internal/models"
)

// SavePushSubscription upserts a browser subscription for the user.
func (s *Store) SavePushSubscription(ctx context.Context, userID int, sub models.PushSubscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth`,
		userID, sub.Endpoint, sub.P256dh, sub.Auth,
	)
	if err != nil {
		return wrap("save push subscription", err)
	}
	return nil
}

func (s *Store) DeletePushSubscription(ctx context.Context, userID int, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?", userID, endpoint)
	if err != nil {
		return wrap("delete push subscription", err)
	}
	return nil
}

// PushSubscriptions lists the user's active subscriptions.
func (s *Store) PushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, endpoint, p256dh, auth FROM push_subscriptions WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, wrap("list push subscriptions", err)
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth); err != nil {
			return nil, wrap("scan push subscription", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeletePushSubscriptionByID removes a subscription the push service rejected.
func (s *Store) DeletePushSubscriptionByID(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE id = ?", id)
	if err != nil {
		return wrap("delete push subscription", err)
	}
	return nil
}
