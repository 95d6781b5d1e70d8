package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/auth"
	"example.com/fintant/backend/internal/notifications"
	"example.com/fintant/backend/internal/session"
)

const keepAliveInterval = 25 * time.Second

// EventHandler отдает поток событий: изменения данных и смену состояния входа.
type EventHandler struct {
	Hub      *notifications.Hub
	Sessions SessionStore
}

// NewEventHandler создает SSE-обработчик.
func NewEventHandler(hub *notifications.Hub, sessions SessionStore) *EventHandler {
	return &EventHandler{Hub: hub, Sessions: sessions}
}

// Stream открывает SSE-поток событий для пользователя. Поток закрывается,
// когда завершается сессия, из которой он открыт.
func (h *EventHandler) Stream(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	sessionID, _ := auth.SessionIDFromContext(c)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	events, unsubscribe := h.Hub.Subscribe(userID)
	defer unsubscribe()

	changes, stopChanges := h.Sessions.Subscribe(userID)
	defer stopChanges()

	_ = writeSSE(c, notifications.Event{
		Type:      notifications.EventConnected,
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"user_id": userID.String()},
	})
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Response().Write([]byte(": ping\n\n")); err != nil {
				return nil
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSE(c, event); err != nil {
				return nil
			}
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if err := writeSSE(c, authStateEvent(change)); err != nil {
				return nil
			}
			if change.State == session.StateSignedOut && change.Session.ID == sessionID {
				flusher.Flush()
				return nil
			}
		}
		flusher.Flush()
	}
}

func authStateEvent(change session.Change) notifications.Event {
	return notifications.Event{
		Type:      notifications.EventAuthState,
		Timestamp: change.Timestamp,
		Data: map[string]interface{}{
			"state":      change.State,
			"session_id": change.Session.ID.String(),
		},
	}
}

func writeSSE(c echo.Context, event notifications.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + string(event.Type) + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}
