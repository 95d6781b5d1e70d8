package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fintant/backend/internal/onboarding"
)

const completeAnswersJSON = `{"answers":{
	"financial_goal":"wealth_building",
	"future_goal":"own_property",
	"payment_behavior":"save_first",
	"risk_tolerance":"balanced",
	"finance_tracking_frequency":"monthly",
	"current_situation":"major_goal",
	"top_priority":"grow_savings",
	"investment_frequency":"occasionally",
	"finance_personality":"planner"
}}`

func newOnboardingHandler(profiles ProfileStore) *OnboardingHandler {
	return NewOnboardingHandler(onboarding.MustLoad(), profiles, nil, nil, nil)
}

// TestOnboardingQuestions проверяет выдачу четырех шагов.
func TestOnboardingQuestions(t *testing.T) {
	handler := newOnboardingHandler(newFakeProfiles())

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/onboarding/questions", "", uuid.Nil)
	require.NoError(t, handler.Questions(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Steps []json.RawMessage `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Steps, 4)
}

// TestCheckStep проверяет блокировку шага и неизвестный шаг.
func TestCheckStep(t *testing.T) {
	handler := newOnboardingHandler(newFakeProfiles())

	c, rec := newRequest(newEcho(), http.MethodPost, "/", `{"answers":{"financial_goal":"wealth_building"}}`, uuid.Nil)
	require.NoError(t, handler.CheckStep(withParams(c, "step", "1")))
	require.Equal(t, http.StatusOK, rec.Code)

	var check onboarding.StepCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.False(t, check.CanContinue)
	assert.Equal(t, []string{"future_goal"}, check.Missing)

	c, rec = newRequest(newEcho(), http.MethodPost, "/", `{"answers":{}}`, uuid.Nil)
	require.NoError(t, handler.CheckStep(withParams(c, "step", "9")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestCompleteOnboarding проверяет сохранение ответов и переход на главную.
func TestCompleteOnboarding(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	handler := newOnboardingHandler(profiles)

	c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/onboarding/complete", completeAnswersJSON, userID)
	require.NoError(t, handler.Complete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body CompleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/", body.Redirect)
	assert.True(t, body.Profile.OnboardingCompleted)
	assert.Equal(t, "planner", body.Profile.Answers["finance_personality"])
}

// TestCompleteOnboardingIncomplete проверяет отказ при неполных ответах.
func TestCompleteOnboardingIncomplete(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	handler := newOnboardingHandler(profiles)

	c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/onboarding/complete", `{"answers":{"financial_goal":"wealth_building"}}`, userID)
	require.NoError(t, handler.Complete(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	_, err := profiles.Get(c.Request().Context(), userID)
	assert.Error(t, err)
}
