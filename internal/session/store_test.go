package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(userID uuid.UUID, ttl time.Duration) Session {
	now := time.Now()
	return Session{
		ID:          uuid.New(),
		UserID:      userID,
		Email:       "user@example.com",
		CreatedAt:   now,
		RefreshedAt: now,
		ExpiresAt:   now.Add(ttl),
	}
}

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case change, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return change
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected change to be delivered")
	}
	return Change{}
}

// TestStoreLifecycle проверяет вход, обновление и выход с уведомлениями.
func TestStoreLifecycle(t *testing.T) {
	store := NewStore()
	defer store.Close()

	userID := uuid.New()
	ch, unsubscribe := store.Subscribe(userID)
	defer unsubscribe()

	sess := newSession(userID, time.Hour)
	store.Put(sess, StateSignedIn)
	assert.Equal(t, StateSignedIn, receive(t, ch).State)
	assert.True(t, store.Active(sess.ID, userID))
	assert.False(t, store.Active(sess.ID, uuid.New()))

	store.Put(sess, StateTokenRefreshed)
	assert.Equal(t, StateTokenRefreshed, receive(t, ch).State)

	removed, ok := store.Remove(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess.ID, removed.ID)
	change := receive(t, ch)
	assert.Equal(t, StateSignedOut, change.State)
	assert.False(t, change.Timestamp.IsZero())
	assert.False(t, store.Active(sess.ID, userID))
}

// TestStoreIgnoresExpired проверяет, что истекшие сессии не считаются активными.
func TestStoreIgnoresExpired(t *testing.T) {
	store := NewStore()
	userID := uuid.New()

	expired := newSession(userID, -time.Minute)
	live := newSession(userID, time.Hour)
	store.Put(expired, StateSignedIn)
	store.Put(live, StateSignedIn)

	_, ok := store.Get(expired.ID)
	assert.False(t, ok)
	assert.Len(t, store.ForUser(userID), 1)

	assert.Equal(t, 1, store.PurgeExpired(time.Now()))
	assert.Equal(t, 1, store.Len())
}

// TestStoreUnsubscribeAfterClose проверяет безопасную отписку после закрытия.
func TestStoreUnsubscribeAfterClose(t *testing.T) {
	store := NewStore()
	ch, unsubscribe := store.Subscribe(uuid.New())

	store.Close()
	_, ok := <-ch
	assert.False(t, ok, "expected channel to be closed")

	assert.NotPanics(t, unsubscribe)
	assert.NotPanics(t, store.Close)

	late, lateUnsubscribe := store.Subscribe(uuid.New())
	_, ok = <-late
	assert.False(t, ok, "subscription after close must be closed")
	assert.NotPanics(t, lateUnsubscribe)
}

// TestStoreSubscribersAreIsolated проверяет, что изменения не уходят чужим пользователям.
func TestStoreSubscribersAreIsolated(t *testing.T) {
	store := NewStore()
	defer store.Close()

	other, unsubscribe := store.Subscribe(uuid.New())
	defer unsubscribe()

	store.Put(newSession(uuid.New(), time.Hour), StateSignedIn)

	select {
	case change := <-other:
		t.Fatalf("unexpected change %v", change)
	case <-time.After(50 * time.Millisecond):
	}
}
