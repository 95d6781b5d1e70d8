package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Версии схем строк. Репозитории сверяют schema_version после чтения.
const (
	UserSchemaVersion    = 1
	BucketSchemaVersion  = 1
	RuleSchemaVersion    = 1
	ProfileSchemaVersion = 1
)

type Currency string

type InvestmentMode string

const (
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyGBP Currency = "gbp"

	InvestmentModeAI     InvestmentMode = "ai"
	InvestmentModeManual InvestmentMode = "manual"
)

// Symbol возвращает знак валюты для текстов.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyGBP:
		return "£"
	default:
		return "$"
	}
}

// BucketCategories перечисляет допустимые категории корзин в порядке отображения.
var BucketCategories = []string{
	"Savings",
	"Emergency Fund",
	"Vacation",
	"Home",
	"Education",
	"Healthcare",
	"Investment",
	"Debt Payment",
	"Entertainment",
	"Expenses",
	"Other",
}

type User struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-" validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	SessionID  uuid.UUID  `json:"session_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}

type Bucket struct {
	ID            uuid.UUID        `json:"id" validate:"required"`
	UserID        uuid.UUID        `json:"user_id" validate:"required"`
	Name          string           `json:"name" validate:"required,max=100"`
	Category      string           `json:"category" validate:"required,bucket_category"`
	TargetAmount  *decimal.Decimal `json:"target_amount" validate:"omitempty,gt=0"`
	TimeLimit     *time.Time       `json:"time_limit"`
	CurrentAmount decimal.Decimal  `json:"current_amount" validate:"gte=0"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ProgressPercent возвращает процент накопления. Без цели прогресс равен нулю.
func (b Bucket) ProgressPercent() decimal.Decimal {
	if b.TargetAmount == nil || !b.TargetAmount.IsPositive() {
		return decimal.Zero
	}

	return b.CurrentAmount.Div(*b.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// Remaining возвращает сумму, которой не хватает до цели.
func (b Bucket) Remaining() decimal.Decimal {
	if b.TargetAmount == nil {
		return decimal.Zero
	}

	remaining := b.TargetAmount.Sub(b.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}

	return remaining
}

// IsComplete сообщает, достигнута ли цель корзины.
func (b Bucket) IsComplete() bool {
	return b.TargetAmount != nil && b.CurrentAmount.GreaterThanOrEqual(*b.TargetAmount)
}

type Rule struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=100"`
	Trigger   string    `json:"trigger" validate:"required,max=200"`
	Action    string    `json:"action" validate:"required,max=200"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OnboardingAnswers хранит девять ответов анкеты.
type OnboardingAnswers struct {
	FinancialGoal            *string `json:"financial_goal"`
	FutureGoal               *string `json:"future_goal"`
	PaymentBehavior          *string `json:"payment_behavior"`
	RiskTolerance            *string `json:"risk_tolerance"`
	FinanceTrackingFrequency *string `json:"finance_tracking_frequency"`
	CurrentSituation         *string `json:"current_situation"`
	TopPriority              *string `json:"top_priority"`
	InvestmentFrequency      *string `json:"investment_frequency"`
	FinancePersonality       *string `json:"finance_personality"`
}

// Settings хранит пользовательские настройки приложения.
type Settings struct {
	Currency               Currency        `json:"currency" validate:"required,oneof=usd eur gbp"`
	ExpenseAutofundPercent int             `json:"expense_autofund_percent" validate:"gte=0,lte=100"`
	LowBalanceAlerts       bool            `json:"low_balance_alerts"`
	GoalReminders          bool            `json:"goal_reminders"`
	UpcomingExpenseAlerts  bool            `json:"upcoming_expense_alerts"`
	InvestmentMode         *InvestmentMode `json:"investment_mode" validate:"omitempty,oneof=ai manual"`
}

// DefaultSettings возвращает настройки нового профиля.
func DefaultSettings() Settings {
	return Settings{
		Currency:               CurrencyUSD,
		ExpenseAutofundPercent: 60,
		LowBalanceAlerts:       true,
		GoalReminders:          true,
		UpcomingExpenseAlerts:  false,
	}
}

type Profile struct {
	UserID              uuid.UUID         `json:"user_id" validate:"required"`
	Answers             OnboardingAnswers `json:"answers"`
	OnboardingCompleted bool              `json:"onboarding_completed"`
	FinancialFocus      *string           `json:"financial_focus" validate:"omitempty,oneof=wealth_building savings_security debt_payoff cash_flow mixed"`
	Settings            Settings          `json:"settings"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

type AIRequest struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	RequestType     string          `json:"request_type"`
	Provider        string          `json:"provider"`
	Model           string          `json:"model"`
	Prompt          *string         `json:"prompt,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	Success         bool            `json:"success"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
