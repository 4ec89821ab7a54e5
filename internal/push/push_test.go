package push

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"habitd/internal/config"
	"habitd/internal/habit"
	"habitd/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubs struct {
	subs    []models.PushSubscription
	deleted []int
}

func (f *fakeSubs) PushSubscriptions(_ context.Context, _ int) ([]models.PushSubscription, error) {
	return f.subs, nil
}

func (f *fakeSubs) DeletePushSubscriptionByID(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

var enabled = config.PushConfig{
	VAPIDPublicKey:  "pub",
	VAPIDPrivateKey: "priv",
	VAPIDSubject:    "mailto:ops@example.com",
	TTL:             30,
}

func reply(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

func TestSendToUser_PrunesGoneSubscriptions(t *testing.T) {
	subs := &fakeSubs{subs: []models.PushSubscription{
		{ID: 1, Endpoint: "https://push.example/ok"},
		{ID: 2, Endpoint: "https://push.example/gone"},
		{ID: 3, Endpoint: "https://push.example/forbidden"},
	}}
	s := NewSender(enabled, subs, zap.NewNop())

	var bodies []string
	s.send = func(_ context.Context, msg []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
		bodies = append(bodies, string(msg))
		assert.Equal(t, 30, opts.TTL)
		switch {
		case strings.HasSuffix(sub.Endpoint, "gone"):
			return reply(http.StatusGone), nil
		case strings.HasSuffix(sub.Endpoint, "forbidden"):
			return reply(http.StatusForbidden), nil
		}
		return reply(http.StatusCreated), nil
	}

	require.NoError(t, s.SendToUser(context.Background(), 7, Payload{Title: "t", Body: "b"}))
	assert.Equal(t, []int{2, 3}, subs.deleted)
	assert.Len(t, bodies, 3)
	assert.Contains(t, bodies[0], `"title":"t"`)
}

func TestSendToUser_AllFailed(t *testing.T) {
	subs := &fakeSubs{subs: []models.PushSubscription{{ID: 1, Endpoint: "https://push.example/x"}}}
	s := NewSender(enabled, subs, zap.NewNop())
	s.send = func(context.Context, []byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
		return reply(http.StatusInternalServerError), nil
	}
	assert.Error(t, s.SendToUser(context.Background(), 7, Payload{}))
	assert.Empty(t, subs.deleted)
}

func TestSendToUser_NotConfigured(t *testing.T) {
	s := NewSender(config.PushConfig{}, &fakeSubs{}, nil)
	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.SendToUser(context.Background(), 1, Payload{}), ErrNotConfigured)
}

func TestAchievementPayload(t *testing.T) {
	prev := habit.SummarizeTarget(habit.Water, 2000, nil)
	next := prev
	next.IsComplete = true
	n := habit.CheckTransition(habit.Water, prev, next, "2024-05-10", time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	require.NotNil(t, n)

	p := AchievementPayload(*n)
	assert.Equal(t, n.Title, p.Title)
	assert.Equal(t, "achievement-water-2024-05-10", p.Tag)
	assert.Equal(t, n.ID, p.Data["notificationId"])
}
