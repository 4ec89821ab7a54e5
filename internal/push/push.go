package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"habitd/internal/config"
	"habitd/internal/habit"
	"habitd/internal/metrics"
	"habitd/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when VAPID keys are missing.
var ErrNotConfigured = errors.New("web push not configured")

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Subscriptions is the storage the sender reads from and prunes.
type Subscriptions interface {
	PushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error)
	DeletePushSubscriptionByID(ctx context.Context, id int) error
}

type sendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// Sender delivers web push notifications to every subscription of a user.
type Sender struct {
	cfg    config.PushConfig
	subs   Subscriptions
	logger *zap.Logger
	send   sendFunc
}

func NewSender(cfg config.PushConfig, subs Subscriptions, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{cfg: cfg, subs: subs, logger: logger, send: webpush.SendNotificationWithContext}
}

func (s *Sender) Enabled() bool { return s != nil && s.cfg.PushEnabled() }

func (s *Sender) PublicKey() string { return s.cfg.VAPIDPublicKey }

func (s *Sender) options() *webpush.Options {
	return &webpush.Options{
		Subscriber:      s.cfg.VAPIDSubject,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	}
}

// AchievementPayload renders an achievement notification for the browser.
func AchievementPayload(n habit.Notification) Payload {
	return Payload{
		Title: n.Title,
		Body:  n.Message,
		Icon:  habit.MetaOf(n.Habit).Icon,
		Tag:   fmt.Sprintf("achievement-%s-%s", n.Habit, n.Date),
		Data: map[string]any{
			"notificationId": n.ID,
			"habitId":        n.Habit,
			"date":           n.Date,
		},
	}
}

// SendToUser pushes payload to all of the user's subscriptions. Subscriptions the
// push service reports as gone (404, 410) or mismatched (403) are deleted.
func (s *Sender) SendToUser(ctx context.Context, userID int, payload Payload) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}

	subs, err := s.subs.PushSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	options := s.options()
	sent, failed := 0, 0
	for _, sub := range subs {
		resp, err := s.send(ctx, body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, options)
		if err != nil {
			failed++
			metrics.IncPushDelivery("error")
			s.logger.Warn("Push delivery failed", zap.Int("user_id", userID), zap.Error(err))
			continue
		}

		status := resp.StatusCode
		if status >= 400 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			s.logger.Warn("Push service rejected notification",
				zap.Int("user_id", userID),
				zap.Int("status", status),
				zap.ByteString("response", detail),
			)
		}
		resp.Body.Close()

		switch {
		case status == http.StatusNotFound || status == http.StatusGone || status == http.StatusForbidden:
			failed++
			metrics.IncPushDelivery("expired")
			if err := s.subs.DeletePushSubscriptionByID(ctx, sub.ID); err != nil {
				s.logger.Error("Failed to delete subscription", zap.Int("subscription_id", sub.ID), zap.Error(err))
			} else {
				s.logger.Info("Removed stale push subscription", zap.Int("subscription_id", sub.ID), zap.Int("status", status))
			}
		case status >= 400:
			failed++
			metrics.IncPushDelivery("error")
		default:
			sent++
			metrics.IncPushDelivery("ok")
		}
	}

	s.logger.Debug("Push summary",
		zap.Int("user_id", userID),
		zap.Int("subscriptions", len(subs)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	if sent == 0 && failed > 0 {
		return fmt.Errorf("failed to send any push notifications (attempted %d)", failed)
	}
	return nil
}

// NotifyAchievement delivers n without failing the caller; errors are logged.
func (s *Sender) NotifyAchievement(ctx context.Context, userID int, n habit.Notification) {
	if !s.Enabled() {
		return
	}
	if err := s.SendToUser(ctx, userID, AchievementPayload(n)); err != nil {
		s.logger.Warn("Achievement push not delivered",
			zap.Int("user_id", userID),
			zap.String("habit", string(n.Habit)),
			zap.Error(err),
		)
	}
}
