package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Narrator переписывает шаблонный текст плана, например через LLM.
type Narrator interface {
	Narrate(ctx context.Context, userID uuid.UUID, result Result) (string, error)
}

type Planner struct {
	narrator Narrator
	logger   *slog.Logger
	now      func() time.Time
}

// New создает планировщик; narrator может быть nil, тогда остается шаблонный текст.
func New(narrator Narrator, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{narrator: narrator, logger: logger, now: time.Now}
}

// Run прогоняет прогноз дохода, радар счетов, распределение, политику,
// подушку безопасности и пересказ.
func (p *Planner) Run(ctx context.Context, userID uuid.UUID, input Input) Result {
	now := p.now()
	liquid := input.Liquid()

	result := Result{
		IncomeForecast:   ForecastIncome(input.Transactions, now),
		UpcomingExpenses: DetectRecurring(input.Transactions, now),
	}

	plan := Allocate(input.Currency, liquid, result.IncomeForecast, result.UpcomingExpenses, now)
	result.Plan = ApplyPolicy(plan, liquid)
	result.SafetyOptions = SafetyNet(result.Plan)

	result.Narrative = Narrate(result, now)
	result.NarrativeSource = NarrativeTemplate

	if p.narrator == nil {
		return result
	}

	rephrased, err := p.narrator.Narrate(ctx, userID, result)
	if err != nil {
		p.logger.WarnContext(ctx, "narrative rephrase failed, using template",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return result
	}

	result.Narrative = rephrased
	result.NarrativeSource = NarrativeAI
	return result
}
