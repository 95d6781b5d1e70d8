package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Типы событий, по которым экраны перечитывают данные.
const (
	EventConnected      EventType = "connected"
	EventAuthState      EventType = "auth_state"
	EventBucketsChanged EventType = "buckets_changed"
	EventRulesChanged   EventType = "rules_changed"
	EventProfileChanged EventType = "profile_changed"
)

type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает пользователя на события и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[userID]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам пользователя. Медленные подписчики пропускают событие.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	if h == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Changed публикует сигнал об изменении данных пользователя.
func (h *Hub) Changed(userID uuid.UUID, eventType EventType, id uuid.UUID) {
	h.Publish(userID, Event{
		Type: eventType,
		Data: map[string]string{"id": id.String()},
	})
}

// Subscribers возвращает число активных подписок пользователя.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
