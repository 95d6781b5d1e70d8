package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/auth"
	"example.com/fintant/backend/internal/config"
	"example.com/fintant/backend/internal/metrics"
	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/repository"
	"example.com/fintant/backend/internal/session"
)

type AuthHandler struct {
	Users        UserStore
	Tokens       TokenStore
	Sessions     SessionStore
	TokenManager *auth.TokenManager
	CookieName   string
	CookieSecure bool
	Logger       *slog.Logger
	Now          Clock
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(users UserStore, tokens TokenStore, sessions SessionStore, manager *auth.TokenManager, cfg config.AuthConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		Sessions:     sessions,
		TokenManager: manager,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		Logger:       logger,
		Now:          time.Now,
	}
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	SessionID       uuid.UUID `json:"session_id"`
	User            AuthUser  `json:"user"`
}

type SignupResponse struct {
	User    AuthUser `json:"user"`
	Message string   `json:"message"`
}

type SessionInfo struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *AuthUser    `json:"user,omitempty"`
	Session       *SessionInfo `json:"session,omitempty"`
}

// Signup регистрирует пользователя. Токены не выдаются: после регистрации нужен вход.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return serverError(c)
	}

	user, err := h.Users.Register(c.Request().Context(), email, passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "user already exists")
		}
		h.Logger.ErrorContext(c.Request().Context(), "failed to register user", slog.String("error", err.Error()))
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, SignupResponse{
		User:    toAuthUser(user),
		Message: "Account created. Please sign in.",
	})
}

// Login выполняет вход, открывает сессию и выдает токены.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.Users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	if err = auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return unauthorized(c)
	}

	response, err := h.issueTokens(c.Request().Context(), user, uuid.New())
	if err != nil {
		h.Logger.ErrorContext(c.Request().Context(), "failed to issue tokens", slog.String("error", err.Error()))
		return serverError(c)
	}

	c.SetCookie(auth.AccessCookie(h.CookieName, response.AccessToken, response.AccessExpiresAt, h.CookieSecure))
	return c.JSON(http.StatusOK, response)
}

// Refresh ротирует refresh-токен и продлевает сессию.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()

	claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}

	refreshID, err := uuid.Parse(claims.ID)
	if err != nil {
		return unauthorized(c)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return unauthorized(c)
	}

	storedToken, err := h.Tokens.GetByID(ctx, refreshID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	if storedToken.RevokedAt != nil || h.Now().After(storedToken.ExpiresAt) {
		return unauthorized(c)
	}
	if storedToken.UserID != userID {
		return unauthorized(c)
	}
	if !auth.CompareTokenHash(storedToken.TokenHash, req.RefreshToken) {
		return unauthorized(c)
	}

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	newRefreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(userID, storedToken.SessionID, newRefreshID)
	if err != nil {
		return serverError(c)
	}

	newToken := models.RefreshToken{
		ID:        newRefreshID,
		UserID:    userID,
		SessionID: storedToken.SessionID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}

	if err := h.Tokens.Rotate(ctx, storedToken.ID, newToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	now := h.Now()
	sess, ok := h.Sessions.Get(storedToken.SessionID)
	if !ok {
		sess = session.Session{ID: storedToken.SessionID, UserID: userID, Email: user.Email, CreatedAt: now}
	}
	sess.RefreshedAt = now
	sess.ExpiresAt = pair.RefreshExpiresAt
	h.Sessions.Put(sess, session.StateTokenRefreshed)
	metrics.RecordSessionChange(string(session.StateTokenRefreshed))

	c.SetCookie(auth.AccessCookie(h.CookieName, pair.AccessToken, pair.AccessExpiresAt, h.CookieSecure))
	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		SessionID:       pair.SessionID,
		User:            toAuthUser(user),
	})
}

// Logout завершает сессию: по access-токену запроса или по refresh-токену из тела.
func (h *AuthHandler) Logout(c echo.Context) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		var req LogoutRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid payload")
		}
		if strings.TrimSpace(req.RefreshToken) == "" {
			return unauthorized(c)
		}

		claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
		if err != nil {
			return unauthorized(c)
		}
		sessionID, err = claims.Session()
		if err != nil {
			return unauthorized(c)
		}
	}

	if err := h.Tokens.RevokeSession(c.Request().Context(), sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return serverError(c)
	}

	if _, removed := h.Sessions.Remove(sessionID); removed {
		metrics.RecordSessionChange(string(session.StateSignedOut))
	}

	c.SetCookie(auth.ExpiredCookie(h.CookieName, h.CookieSecure))
	return c.NoContent(http.StatusNoContent)
}

// Session сообщает, есть ли у запроса действующая сессия.
func (h *AuthHandler) Session(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusOK, SessionResponse{Authenticated: false})
	}
	sessionID, _ := auth.SessionIDFromContext(c)

	user, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, SessionResponse{Authenticated: false})
		}
		return serverError(c)
	}

	response := SessionResponse{Authenticated: true}
	authUser := toAuthUser(user)
	response.User = &authUser

	if sess, ok := h.Sessions.Get(sessionID); ok {
		response.Session = &SessionInfo{
			ID:          sess.ID,
			CreatedAt:   sess.CreatedAt,
			RefreshedAt: sess.RefreshedAt,
			ExpiresAt:   sess.ExpiresAt,
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (h *AuthHandler) issueTokens(ctx context.Context, user models.User, sessionID uuid.UUID) (AuthResponse, error) {
	refreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, sessionID, refreshID)
	if err != nil {
		return AuthResponse{}, err
	}

	refreshToken := models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		SessionID: sessionID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}

	if err := h.Tokens.Create(ctx, refreshToken); err != nil {
		return AuthResponse{}, err
	}

	now := h.Now()
	h.Sessions.Put(session.Session{
		ID:          sessionID,
		UserID:      user.ID,
		Email:       user.Email,
		CreatedAt:   now,
		RefreshedAt: now,
		ExpiresAt:   pair.RefreshExpiresAt,
	}, session.StateSignedIn)
	metrics.RecordSessionChange(string(session.StateSignedIn))

	return AuthResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		SessionID:       sessionID,
		User:            toAuthUser(user),
	}, nil
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
