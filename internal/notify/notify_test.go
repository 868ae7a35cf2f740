package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers map[uint]*models.User

func (s stubUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	return u, nil
}

func newResendClient(t *testing.T, handler http.HandlerFunc) *resend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := resend.NewClient("test-api-key")
	baseURL, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client.BaseURL = baseURL
	return client
}

func TestMailerSendsFriendRequest(t *testing.T) {
	var got resend.SendEmailRequest
	client := newResendClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-1"})
	})
	users := stubUsers{
		1: {ID: 1, Name: "Ada", Email: "ada@example.com"},
		2: {ID: 2, Name: "Grace", Email: "grace@example.com"},
	}
	m := NewMailer(client, "hello@gatherly.app", users, zerolog.Nop())

	err := m.Notify(context.Background(), models.Notification{
		ID: "n1", Type: models.NotificationFriendRequest, SenderID: 1, RecipientID: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello@gatherly.app", got.From)
	assert.Equal(t, []string{"grace@example.com"}, got.To)
	assert.Equal(t, "Ada sent you a friend request", got.Subject)
	assert.Contains(t, got.Html, "Ada would like to be friends")
}

func TestMailerErrors(t *testing.T) {
	client := newResendClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	})
	m := NewMailer(client, "hello@gatherly.app", stubUsers{2: {ID: 2, Email: "b@example.com"}}, zerolog.Nop())

	err := m.Notify(context.Background(), models.Notification{ID: "n1", Type: models.NotificationEventCancelled, RecipientID: 9})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	err = m.Notify(context.Background(), models.Notification{ID: "n2", Type: models.NotificationEventCancelled, RecipientID: 2, Message: "gone"})
	require.Error(t, err)
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, message.([]byte))
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher(t *testing.T) {
	pub := &fakePublisher{}
	p := NewRedisPublisher(pub, "gatherly")

	n := models.Notification{ID: "n1", Type: models.NotificationFriendRequest, SenderID: 1, RecipientID: 42}
	require.NoError(t, p.Notify(context.Background(), n))

	require.Equal(t, []string{"gatherly:user:42"}, pub.channels)
	var decoded models.Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.SenderID, decoded.SenderID)

	pub.err = errors.New("connection refused")
	require.Error(t, p.Notify(context.Background(), n))
}

type namedChannel struct {
	name string
	err  error
	hits int
}

func (c *namedChannel) Name() string { return c.name }

func (c *namedChannel) Notify(context.Context, models.Notification) error {
	c.hits++
	return c.err
}

func TestFanoutDeliversToEveryChannel(t *testing.T) {
	failing := &namedChannel{name: "email", err: errors.New("down")}
	working := &namedChannel{name: "redis"}
	results := map[string]error{}
	f := NewFanout(func(channel string, err error) { results[channel] = err }, failing, working)

	err := f.Notify(context.Background(), models.Notification{ID: "n1", RecipientID: 1})

	require.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, failing.hits)
	assert.Equal(t, 1, working.hits)
	assert.Error(t, results["email"])
	assert.NoError(t, results["redis"])
	assert.Equal(t, 2, f.Len())
}
