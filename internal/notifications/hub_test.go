package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	bucketID := uuid.New()
	hub.Changed(userID, EventBucketsChanged, bucketID)

	select {
	case event := <-ch:
		if event.Type != EventBucketsChanged {
			t.Fatalf("expected event type %s, got %s", EventBucketsChanged, event.Type)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
		data, ok := event.Data.(map[string]string)
		if !ok || data["id"] != bucketID.String() {
			t.Fatalf("unexpected event data: %v", event.Data)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	if hub.Subscribers(userID) != 1 {
		t.Fatalf("expected one subscriber, got %d", hub.Subscribers(userID))
	}

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	if hub.Subscribers(userID) != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Subscribers(userID))
	}
}

// TestHubNilPublish проверяет, что публикация в nil-хаб не паникует.
func TestHubNilPublish(t *testing.T) {
	var hub *Hub
	hub.Changed(uuid.New(), EventRulesChanged, uuid.New())
}
