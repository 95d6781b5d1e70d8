package onboarding

import (
	"errors"
	"testing"
)

func completeAnswers() Answers {
	return Answers{
		"financial_goal":             "wealth_building",
		"future_goal":                "own_property",
		"payment_behavior":           "save_first",
		"risk_tolerance":             "balanced",
		"finance_tracking_frequency": "monthly",
		"current_situation":          "major_goal",
		"top_priority":               "grow_savings",
		"investment_frequency":       "occasionally",
		"finance_personality":        "planner",
	}
}

// TestCatalogShape проверяет четыре шага и девять полей.
func TestCatalogShape(t *testing.T) {
	catalog := MustLoad()

	if catalog.TotalSteps() != 4 {
		t.Fatalf("expected 4 steps, got %d", catalog.TotalSteps())
	}
	if len(catalog.Fields()) != 9 {
		t.Fatalf("expected 9 fields, got %d", len(catalog.Fields()))
	}
}

// TestCheckMissingAnswer проверяет блокировку шага с незаполненным ответом.
func TestCheckMissingAnswer(t *testing.T) {
	catalog := MustLoad()
	answers := Answers{"payment_behavior": "invest_first", "risk_tolerance": "balanced"}

	check, err := catalog.Check(2, answers)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if check.CanContinue {
		t.Fatal("expected step to be blocked")
	}
	if len(check.Missing) != 1 || check.Missing[0] != "finance_tracking_frequency" {
		t.Fatalf("unexpected missing fields: %v", check.Missing)
	}

	answers["finance_tracking_frequency"] = "weekly"
	if !catalog.CanProceed(2, answers) {
		t.Fatal("expected step to be passable")
	}
}

// TestCheckInvalidOption проверяет отказ на неизвестный вариант ответа.
func TestCheckInvalidOption(t *testing.T) {
	catalog := MustLoad()

	check, err := catalog.Check(4, Answers{"finance_personality": "gambler"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if check.CanContinue || len(check.Invalid) != 1 {
		t.Fatalf("expected invalid option, got %+v", check)
	}
	if !check.Final || check.NextStep != nil {
		t.Fatal("expected last step to be final")
	}
}

// TestCheckNavigation проверяет соседние шаги и прогресс.
func TestCheckNavigation(t *testing.T) {
	catalog := MustLoad()

	check, err := catalog.Check(1, Answers{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if check.PreviousStep != nil {
		t.Fatal("first step must not have a previous step")
	}
	if check.NextStep == nil || *check.NextStep != 2 {
		t.Fatalf("unexpected next step: %v", check.NextStep)
	}
	if check.ProgressPercent != 25 {
		t.Fatalf("expected 25%% progress, got %d", check.ProgressPercent)
	}

	if _, err := catalog.Check(5, Answers{}); !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
}

// TestValidateComplete проверяет финальную проверку всех шагов.
func TestValidateComplete(t *testing.T) {
	catalog := MustLoad()
	answers := completeAnswers()

	if _, err := catalog.Validate(answers); err != nil {
		t.Fatalf("expected complete answers, got %v", err)
	}

	delete(answers, "top_priority")
	check, err := catalog.Validate(answers)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if check.Step != 3 {
		t.Fatalf("expected step 3 to be reported, got %d", check.Step)
	}
}

// TestAnswersModelRoundTrip проверяет перенос ответов в профиль и обратно.
func TestAnswersModelRoundTrip(t *testing.T) {
	answers := completeAnswers()
	model := answers.Model()

	if model.FinancePersonality == nil || *model.FinancePersonality != "planner" {
		t.Fatalf("unexpected personality: %v", model.FinancePersonality)
	}

	back := FromModel(model)
	if len(back) != len(answers) {
		t.Fatalf("expected %d answers, got %d", len(answers), len(back))
	}
}

// TestParseRejectsDuplicateFields проверяет целостность каталога.
func TestParseRejectsDuplicateFields(t *testing.T) {
	data := []byte(`
steps:
  - number: 1
    title: One
    questions:
      - field: a
        prompt: A
        options: [{value: x, label: X}]
      - field: a
        prompt: A again
        options: [{value: y, label: Y}]
`)

	if _, err := Parse(data); err == nil {
		t.Fatal("expected duplicate field error")
	}
}
