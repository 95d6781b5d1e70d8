package planner

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/ledger"
	"example.com/fintant/backend/internal/models"
)

const (
	HorizonDays  = 14
	historyWeeks = 8
)

type ActionKind string

const (
	ActionReserve ActionKind = "reserve"
	ActionSave    ActionKind = "save"
	ActionInvest  ActionKind = "invest"
)

type SafetyType string

const (
	SafetyReschedule     SafetyType = "reschedule_bill"
	SafetyMicroAdvance   SafetyType = "micro_advance"
	SafetyPartialPayment SafetyType = "partial_payment"
)

type NarrativeSource string

const (
	NarrativeTemplate NarrativeSource = "template"
	NarrativeAI       NarrativeSource = "ai"
)

type IncomeForecast struct {
	HorizonDays int             `json:"horizon_days"`
	Expected    decimal.Decimal `json:"expected"`
	P10         decimal.Decimal `json:"p10"`
	P90         decimal.Decimal `json:"p90"`
	Confidence  float64         `json:"confidence"`
	Weeks       int             `json:"weeks"`
}

type UpcomingExpense struct {
	Merchant       string          `json:"merchant"`
	DueDate        time.Time       `json:"due_date"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Certainty      float64         `json:"certainty"`
	Category       string          `json:"category"`
}

type Action struct {
	Kind             ActionKind      `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	Target           string          `json:"target"`
	Rationale        string          `json:"rationale"`
	RequiresApproval bool            `json:"requires_user_approval"`
}

type Plan struct {
	Currency        models.Currency `json:"currency"`
	Shortfall       decimal.Decimal `json:"shortfall"`
	BufferTarget    decimal.Decimal `json:"buffer_target"`
	BufferAfterPlan decimal.Decimal `json:"buffer_after_plan"`
	Actions         []Action        `json:"actions"`
}

type SafetyOption struct {
	Type   SafetyType       `json:"type"`
	Days   int              `json:"days,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Note   string           `json:"note"`
}

// Input данные, по которым строится план на две недели.
type Input struct {
	Currency     models.Currency
	Balances     map[string]decimal.Decimal
	Transactions []Transaction
}

// Transaction операция истории: плюс поступление, минус списание.
type Transaction struct {
	Date     time.Time
	Amount   decimal.Decimal
	Merchant string
	Category string
}

type Result struct {
	IncomeForecast   IncomeForecast    `json:"income_forecast"`
	UpcomingExpenses []UpcomingExpense `json:"upcoming_expenses"`
	Plan             Plan              `json:"allocation_plan"`
	SafetyOptions    []SafetyOption    `json:"safety_options"`
	Narrative        string            `json:"narrative"`
	NarrativeSource  NarrativeSource   `json:"narrative_source"`
}

// Liquid суммирует балансы всех счетов.
func (in Input) Liquid() decimal.Decimal {
	total := decimal.Zero
	for _, balance := range in.Balances {
		total = total.Add(balance)
	}
	return total
}

// FromLedger переводит операции журнала во вход планировщика.
func FromLedger(txs []ledger.Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, Transaction{
			Date:     tx.Date,
			Amount:   tx.Amount,
			Merchant: tx.Merchant,
			Category: tx.Category,
		})
	}
	return out
}
