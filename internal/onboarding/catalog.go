package onboarding

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/fintant/backend/internal/models"
)

//go:embed questions.yaml
var questionsYAML []byte

var (
	ErrUnknownStep = errors.New("unknown onboarding step")
	ErrIncomplete  = errors.New("onboarding answers are incomplete")
)

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type Question struct {
	Field   string   `yaml:"field" json:"field"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Hint    string   `yaml:"hint,omitempty" json:"hint,omitempty"`
	Options []Option `yaml:"options" json:"options"`
}

// Accepts сообщает, входит ли значение в варианты ответа.
func (q Question) Accepts(value string) bool {
	for _, option := range q.Options {
		if option.Value == value {
			return true
		}
	}
	return false
}

type Step struct {
	Number    int        `yaml:"number" json:"number"`
	Title     string     `yaml:"title" json:"title"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Catalog описывает анкету онбординга по шагам.
type Catalog struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// Answers хранит выбранные значения по имени поля. Пустая строка означает "не выбрано".
type Answers map[string]string

// StepCheck результат проверки шага.
type StepCheck struct {
	Step            int      `json:"step"`
	TotalSteps      int      `json:"total_steps"`
	ProgressPercent int      `json:"progress_percent"`
	CanContinue     bool     `json:"can_continue"`
	Missing         []string `json:"missing"`
	Invalid         []string `json:"invalid"`
	NextStep        *int     `json:"next_step"`
	PreviousStep    *int     `json:"previous_step"`
	Final           bool     `json:"final"`
}

// Load разбирает встроенный каталог вопросов.
func Load() (*Catalog, error) {
	return Parse(questionsYAML)
}

// MustLoad разбирает встроенный каталог и паникует при ошибке.
func MustLoad() *Catalog {
	catalog, err := Load()
	if err != nil {
		panic(err)
	}
	return catalog
}

// Parse разбирает каталог из YAML и проверяет его целостность.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse onboarding catalog: %w", err)
	}

	if len(catalog.Steps) == 0 {
		return nil, errors.New("onboarding catalog has no steps")
	}

	sort.Slice(catalog.Steps, func(i, j int) bool { return catalog.Steps[i].Number < catalog.Steps[j].Number })

	seen := make(map[string]struct{})
	for i, step := range catalog.Steps {
		if step.Number != i+1 {
			return nil, fmt.Errorf("onboarding steps must be numbered from 1, got %d at position %d", step.Number, i+1)
		}
		if len(step.Questions) == 0 {
			return nil, fmt.Errorf("onboarding step %d has no questions", step.Number)
		}
		for _, question := range step.Questions {
			if _, dup := seen[question.Field]; dup {
				return nil, fmt.Errorf("onboarding field %s is duplicated", question.Field)
			}
			if len(question.Options) == 0 {
				return nil, fmt.Errorf("onboarding field %s has no options", question.Field)
			}
			seen[question.Field] = struct{}{}
		}
	}

	return &catalog, nil
}

// TotalSteps возвращает количество шагов.
func (c *Catalog) TotalSteps() int {
	return len(c.Steps)
}

// Step возвращает шаг по номеру.
func (c *Catalog) Step(number int) (Step, bool) {
	if number < 1 || number > len(c.Steps) {
		return Step{}, false
	}
	return c.Steps[number-1], true
}

// Fields возвращает все поля анкеты в порядке шагов.
func (c *Catalog) Fields() []string {
	fields := make([]string, 0)
	for _, step := range c.Steps {
		for _, question := range step.Questions {
			fields = append(fields, question.Field)
		}
	}
	return fields
}

// Check проверяет, заполнены ли все вопросы шага допустимыми значениями.
func (c *Catalog) Check(number int, answers Answers) (StepCheck, error) {
	step, ok := c.Step(number)
	if !ok {
		return StepCheck{}, ErrUnknownStep
	}

	total := c.TotalSteps()
	check := StepCheck{
		Step:            number,
		TotalSteps:      total,
		ProgressPercent: number * 100 / total,
		Missing:         make([]string, 0),
		Invalid:         make([]string, 0),
		Final:           number == total,
	}

	for _, question := range step.Questions {
		value := strings.TrimSpace(answers[question.Field])
		switch {
		case value == "":
			check.Missing = append(check.Missing, question.Field)
		case !question.Accepts(value):
			check.Invalid = append(check.Invalid, question.Field)
		}
	}

	check.CanContinue = len(check.Missing) == 0 && len(check.Invalid) == 0
	if number < total {
		next := number + 1
		check.NextStep = &next
	}
	if number > 1 {
		previous := number - 1
		check.PreviousStep = &previous
	}

	return check, nil
}

// CanProceed сообщает, можно ли перейти дальше с указанного шага.
func (c *Catalog) CanProceed(number int, answers Answers) bool {
	check, err := c.Check(number, answers)
	return err == nil && check.CanContinue
}

// Validate проверяет все шаги и возвращает первый незаполненный.
func (c *Catalog) Validate(answers Answers) (StepCheck, error) {
	for _, step := range c.Steps {
		check, err := c.Check(step.Number, answers)
		if err != nil {
			return check, err
		}
		if !check.CanContinue {
			return check, ErrIncomplete
		}
	}
	return StepCheck{}, nil
}

// Model переносит ответы анкеты в поля профиля.
func (a Answers) Model() models.OnboardingAnswers {
	pick := func(field string) *string {
		value := strings.TrimSpace(a[field])
		if value == "" {
			return nil
		}
		return &value
	}

	return models.OnboardingAnswers{
		FinancialGoal:            pick("financial_goal"),
		FutureGoal:               pick("future_goal"),
		PaymentBehavior:          pick("payment_behavior"),
		RiskTolerance:            pick("risk_tolerance"),
		FinanceTrackingFrequency: pick("finance_tracking_frequency"),
		CurrentSituation:         pick("current_situation"),
		TopPriority:              pick("top_priority"),
		InvestmentFrequency:      pick("investment_frequency"),
		FinancePersonality:       pick("finance_personality"),
	}
}

// FromModel восстанавливает ответы из профиля.
func FromModel(m models.OnboardingAnswers) Answers {
	answers := Answers{}
	put := func(field string, value *string) {
		if value != nil {
			answers[field] = *value
		}
	}

	put("financial_goal", m.FinancialGoal)
	put("future_goal", m.FutureGoal)
	put("payment_behavior", m.PaymentBehavior)
	put("risk_tolerance", m.RiskTolerance)
	put("finance_tracking_frequency", m.FinanceTrackingFrequency)
	put("current_situation", m.CurrentSituation)
	put("top_priority", m.TopPriority)
	put("investment_frequency", m.InvestmentFrequency)
	put("finance_personality", m.FinancePersonality)
	return answers
}
