package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hybrid-auth/internal/logging"
)

func TestFormatLine(t *testing.T) {
	ev := AuthEvent{
		Type:       EventRoleChanged,
		UserID:     "u1",
		ActorID:    "a1",
		Role:       "admin",
		OccurredAt: time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC),
	}
	assert.Equal(t,
		`[2025-05-01T08:30:00Z] user.role_changed | user_id="u1" | actor_id="a1" | role="admin"`+"\n",
		FormatLine(ev))
}

func TestConsumer_HandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	c := &Consumer{LogPath: path, Log: logging.Discard()}

	for _, ev := range []AuthEvent{
		{Type: EventRegistered, UserID: "u1", Username: "alice"},
		{Type: EventLogin, UserID: "u1", Mode: "jwt"},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `user.registered | user_id="u1" | username="alice"`)
	assert.Contains(t, string(b), `user.login | user_id="u1" | mode="jwt"`)
}

func TestConsumer_HandleRejectsBadBodies(t *testing.T) {
	c := &Consumer{LogPath: filepath.Join(t.TempDir(), "audit.log"), Log: logging.Discard()}
	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"user_id":"x"}`)))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AuthEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func TestAsync_DeliversOnClose(t *testing.T) {
	rec := &recordingPublisher{}
	a := NewAsync(rec, 8, logging.Discard())
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Publish(context.Background(), AuthEvent{Type: EventLogout}))
	}
	a.Close()

	require.Len(t, rec.events, 3)
	assert.False(t, rec.events[0].OccurredAt.IsZero())
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), AuthEvent{Type: EventLogin}))
}
