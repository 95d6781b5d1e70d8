package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fintant/backend/internal/models"
)

const profileColumns = `user_id, financial_goal, future_goal, payment_behavior, risk_tolerance,
	finance_tracking_frequency, current_situation, top_priority, investment_frequency, finance_personality,
	onboarding_completed, financial_focus, currency, expense_autofund_percent,
	low_balance_alerts, goal_reminders, upcoming_expense_alerts, investment_mode,
	schema_version, created_at, updated_at`

type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository создает репозиторий профилей.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get возвращает профиль пользователя.
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	profile, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, err
	}

	return profile, nil
}

// CompleteOnboarding сохраняет ответы анкеты и отмечает онбординг завершенным.
func (r *ProfileRepository) CompleteOnboarding(ctx context.Context, userID uuid.UUID, answers models.OnboardingAnswers) (models.Profile, error) {
	profile, err := scanProfile(r.db.QueryRow(ctx,
		`UPDATE profiles
		 SET financial_goal = $2,
		     future_goal = $3,
		     payment_behavior = $4,
		     risk_tolerance = $5,
		     finance_tracking_frequency = $6,
		     current_situation = $7,
		     top_priority = $8,
		     investment_frequency = $9,
		     finance_personality = $10,
		     onboarding_completed = TRUE,
		     updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+profileColumns,
		userID,
		answers.FinancialGoal,
		answers.FutureGoal,
		answers.PaymentBehavior,
		answers.RiskTolerance,
		answers.FinanceTrackingFrequency,
		answers.CurrentSituation,
		answers.TopPriority,
		answers.InvestmentFrequency,
		answers.FinancePersonality,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, err
	}

	return profile, nil
}

// UpdateSettings сохраняет настройки и финансовый фокус пользователя.
func (r *ProfileRepository) UpdateSettings(ctx context.Context, userID uuid.UUID, focus *string, settings models.Settings) (models.Profile, error) {
	candidate := models.Profile{UserID: userID, FinancialFocus: focus, Settings: settings}
	if err := models.CheckRow(candidate, models.ProfileSchemaVersion, models.ProfileSchemaVersion); err != nil {
		return candidate, err
	}

	var mode *string
	if settings.InvestmentMode != nil {
		value := string(*settings.InvestmentMode)
		mode = &value
	}

	profile, err := scanProfile(r.db.QueryRow(ctx,
		`UPDATE profiles
		 SET financial_focus = $2,
		     currency = $3,
		     expense_autofund_percent = $4,
		     low_balance_alerts = $5,
		     goal_reminders = $6,
		     upcoming_expense_alerts = $7,
		     investment_mode = $8,
		     updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+profileColumns,
		userID,
		focus,
		string(settings.Currency),
		settings.ExpenseAutofundPercent,
		settings.LowBalanceAlerts,
		settings.GoalReminders,
		settings.UpcomingExpenseAlerts,
		mode,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		if isCheckViolation(err) {
			return profile, ErrInvalid
		}
		return profile, err
	}

	return profile, nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var profile models.Profile
	var currency string
	var mode *string
	var version int

	answers := &profile.Answers
	if err := row.Scan(
		&profile.UserID,
		&answers.FinancialGoal,
		&answers.FutureGoal,
		&answers.PaymentBehavior,
		&answers.RiskTolerance,
		&answers.FinanceTrackingFrequency,
		&answers.CurrentSituation,
		&answers.TopPriority,
		&answers.InvestmentFrequency,
		&answers.FinancePersonality,
		&profile.OnboardingCompleted,
		&profile.FinancialFocus,
		&currency,
		&profile.Settings.ExpenseAutofundPercent,
		&profile.Settings.LowBalanceAlerts,
		&profile.Settings.GoalReminders,
		&profile.Settings.UpcomingExpenseAlerts,
		&mode,
		&version,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return profile, err
	}

	profile.Settings.Currency = models.Currency(currency)
	if mode != nil {
		value := models.InvestmentMode(*mode)
		profile.Settings.InvestmentMode = &value
	}

	if err := models.CheckRow(profile, version, models.ProfileSchemaVersion); err != nil {
		return profile, err
	}

	return profile, nil
}
