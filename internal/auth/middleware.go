package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ContextUserIDKey    = "user_id"
	ContextSessionIDKey = "session_id"
)

// SessionChecker отвечает, активна ли сессия пользователя.
type SessionChecker interface {
	Active(sessionID, userID uuid.UUID) bool
}

// Identity описывает аутентифицированного пользователя запроса.
type Identity struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}

// Authenticator проверяет access-токены из заголовка или cookie.
type Authenticator struct {
	manager    *TokenManager
	sessions   SessionChecker
	cookieName string
}

// NewAuthenticator создает проверку токенов с привязкой к хранилищу сессий.
func NewAuthenticator(manager *TokenManager, sessions SessionChecker, cookieName string) *Authenticator {
	return &Authenticator{manager: manager, sessions: sessions, cookieName: cookieName}
}

// Identify извлекает личность из запроса. Второе значение false, если сессии нет.
func (a *Authenticator) Identify(c echo.Context) (Identity, bool) {
	tokenString, ok := a.tokenFromRequest(c)
	if !ok {
		return Identity{}, false
	}

	claims, err := a.manager.ParseAccessToken(tokenString)
	if err != nil {
		return Identity{}, false
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, false
	}

	sessionID, err := claims.Session()
	if err != nil {
		return Identity{}, false
	}

	if a.sessions != nil && !a.sessions.Active(sessionID, userID) {
		return Identity{}, false
	}

	return Identity{UserID: userID, SessionID: sessionID}, true
}

// Required отклоняет запросы без действующей сессии.
func (a *Authenticator) Required() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := a.Identify(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
			}

			setIdentity(c, identity)
			return next(c)
		}
	}
}

// Optional сохраняет личность в контексте, если она есть, и не отклоняет запрос.
func (a *Authenticator) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if identity, ok := a.Identify(c); ok {
				setIdentity(c, identity)
			}
			return next(c)
		}
	}
}

func (a *Authenticator) tokenFromRequest(c echo.Context) (string, bool) {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}

		tokenString := strings.TrimSpace(parts[1])
		return tokenString, tokenString != ""
	}

	if a.cookieName == "" {
		return "", false
	}

	cookie, err := c.Cookie(a.cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}

	return cookie.Value, true
}

func setIdentity(c echo.Context, identity Identity) {
	c.Set(ContextUserIDKey, identity.UserID)
	c.Set(ContextSessionIDKey, identity.SessionID)
}

// UserIDFromContext извлекает идентификатор пользователя из контекста.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextUserIDKey)
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

// SessionIDFromContext извлекает идентификатор сессии из контекста.
func SessionIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextSessionIDKey)
	sessionID, ok := value.(uuid.UUID)
	return sessionID, ok
}
