package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fintant/backend/internal/models"
)

type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает репозиторий пользователей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Register создает пользователя и пустой профиль в одной транзакции.
func (r *UserRepository) Register(ctx context.Context, email, passwordHash string) (models.User, error) {
	user := models.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash}
	if err := models.CheckRow(user, models.UserSchemaVersion, models.UserSchemaVersion); err != nil {
		return user, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return user, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, schema_version)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		user.ID, user.Email, user.PasswordHash, models.UserSchemaVersion,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user, ErrConflict
		}
		return user, err
	}

	defaults := models.DefaultSettings()
	_, err = tx.Exec(ctx,
		`INSERT INTO profiles (user_id, currency, expense_autofund_percent, low_balance_alerts, goal_reminders, upcoming_expense_alerts, schema_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID,
		string(defaults.Currency),
		defaults.ExpenseAutofundPercent,
		defaults.LowBalanceAlerts,
		defaults.GoalReminders,
		defaults.UpcomingExpenseAlerts,
		models.ProfileSchemaVersion,
	)
	if err != nil {
		return user, err
	}

	if err := tx.Commit(ctx); err != nil {
		return user, err
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx,
		`SELECT id, email, password_hash, schema_version, created_at, updated_at
		 FROM users
		 WHERE email = $1`,
		email,
	)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return r.getOne(ctx,
		`SELECT id, email, password_hash, schema_version, created_at, updated_at
		 FROM users
		 WHERE id = $1`,
		id,
	)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (models.User, error) {
	var user models.User
	var version int

	err := r.db.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	if err := models.CheckRow(user, version, models.UserSchemaVersion); err != nil {
		return user, err
	}

	return user, nil
}
