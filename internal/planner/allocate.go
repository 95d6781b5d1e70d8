package planner

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/models"
)

const (
	targetBills  = "bills_14d"
	targetBuffer = "emergency_buffer"
	targetInvest = "values_index_placeholder"

	cappedSuffix = " (capped by policy)"
)

var (
	minBuffer      = decimal.NewFromInt(200)
	bufferShare    = decimal.RequireFromString("0.25")
	investShare    = decimal.RequireFromString("0.5")
	maxMovePercent = decimal.RequireFromString("0.1")
	maxAdvance     = decimal.NewFromInt(100)
)

// Allocate распределяет деньги между счетами на горизонт планирования.
// Если прогноз остатка ниже буфера, резервируется сумма на счета; иначе
// пополняется буфер и половина остатка предлагается к инвестированию.
func Allocate(currency models.Currency, liquid decimal.Decimal, income IncomeForecast, upcoming []UpcomingExpense, now time.Time) Plan {
	need := decimal.Zero
	for _, expense := range DueWithin(upcoming, now, HorizonDays) {
		need = need.Add(expense.ExpectedAmount)
	}

	bufferTarget := decimal.Max(minBuffer, bufferShare.Mul(decimal.Max(need, minBuffer)))
	projected := liquid.Add(income.P10).Sub(need)

	plan := Plan{
		Currency:        currency,
		Shortfall:       decimal.Zero,
		BufferTarget:    bufferTarget.Round(2),
		BufferAfterPlan: decimal.Max(projected, decimal.Zero).Round(2),
		Actions:         make([]Action, 0, 2),
	}

	if projected.LessThan(bufferTarget) {
		plan.Shortfall = bufferTarget.Sub(projected).Round(2)
		if need.IsPositive() {
			plan.Actions = append(plan.Actions, Action{
				Kind:      ActionReserve,
				Amount:    decimal.Min(need, decimal.Max(liquid, decimal.Zero)),
				Target:    targetBills,
				Rationale: "Cover upcoming bills first",
			})
		}
		return plan
	}

	surplus := projected.Sub(bufferTarget)
	bufferGap := decimal.Max(decimal.Zero, bufferTarget.Sub(decimal.Max(decimal.Zero, liquid.Sub(need))))
	topUp := decimal.Min(bufferGap, surplus)
	if topUp.IsPositive() {
		plan.Actions = append(plan.Actions, Action{
			Kind:             ActionSave,
			Amount:           topUp.Round(2),
			Target:           targetBuffer,
			Rationale:        "Top up emergency buffer",
			RequiresApproval: true,
		})
		surplus = surplus.Sub(topUp)
	}

	invest := decimal.Max(decimal.Zero, surplus.Mul(investShare).Round(2))
	if invest.IsPositive() {
		plan.Actions = append(plan.Actions, Action{
			Kind:             ActionInvest,
			Amount:           invest,
			Target:           targetInvest,
			Rationale:        "Put part of surplus to work (values-aligned index)",
			RequiresApproval: true,
		})
	}

	return plan
}

// ApplyPolicy ограничивает каждое действие десятью процентами ликвидного баланса.
func ApplyPolicy(plan Plan, liquid decimal.Decimal) Plan {
	limit := maxMovePercent.Mul(decimal.Max(liquid, decimal.Zero)).Round(2)

	capped := make([]Action, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if action.Amount.GreaterThan(limit) {
			action.Amount = limit
			action.Rationale += cappedSuffix
		}
		capped = append(capped, action)
	}
	plan.Actions = capped
	return plan
}

// SafetyNet предлагает варианты только при дефиците.
func SafetyNet(plan Plan) []SafetyOption {
	if !plan.Shortfall.IsPositive() {
		return []SafetyOption{}
	}

	advance := decimal.Min(plan.Shortfall, maxAdvance)
	shortfall := plan.Shortfall
	return []SafetyOption{
		{Type: SafetyReschedule, Days: 3, Note: "Ask landlord or utility for 3-day shift"},
		{Type: SafetyMicroAdvance, Amount: &advance, Note: "Offer small, fee-free bridge"},
		{Type: SafetyPartialPayment, Amount: &shortfall, Note: "Split the bill in two"},
	}
}
