package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/repository"
	"example.com/fintant/backend/internal/session"
)

// Интерфейсы хранилищ, с которыми работают обработчики. Реализации лежат
// в repository и session.

type UserStore interface {
	Register(ctx context.Context, email, passwordHash string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type TokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)
	Rotate(ctx context.Context, oldID uuid.UUID, newToken models.RefreshToken) error
	RevokeSession(ctx context.Context, sessionID uuid.UUID) error
}

type SessionStore interface {
	Put(sess session.Session, state session.State)
	Get(id uuid.UUID) (session.Session, bool)
	Remove(id uuid.UUID) (session.Session, bool)
	Subscribe(userID uuid.UUID) (<-chan session.Change, func())
}

type BucketStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Bucket, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (models.Bucket, error)
	Create(ctx context.Context, userID uuid.UUID, input repository.BucketInput) (models.Bucket, error)
	Update(ctx context.Context, userID, id uuid.UUID, input repository.BucketInput) (models.Bucket, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Deposit(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (models.Bucket, error)
	Transfer(ctx context.Context, userID, fromID, toID uuid.UUID, amount decimal.Decimal) (repository.TransferResult, error)
}

type RuleStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Rule, error)
	Create(ctx context.Context, userID uuid.UUID, input repository.RuleInput) (models.Rule, error)
	Update(ctx context.Context, userID, id uuid.UUID, input repository.RuleInput) (models.Rule, error)
	Toggle(ctx context.Context, userID, id uuid.UUID) (models.Rule, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID, answers models.OnboardingAnswers) (models.Profile, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, focus *string, settings models.Settings) (models.Profile, error)
}

// Clock возвращает текущее время; в тестах подменяется.
type Clock func() time.Time
