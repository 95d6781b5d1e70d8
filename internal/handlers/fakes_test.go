package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/auth"
	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/repository"
)

var fixedNow = time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)

type testValidator struct {
	v *validator.Validate
}

func (tv testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = testValidator{v: models.NewValidator()}
	return e
}

// newRequest создает контекст запроса; userID == uuid.Nil означает анонимный запрос.
func newRequest(e *echo.Echo, method, target, body string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != uuid.Nil {
		c.Set(auth.ContextUserIDKey, userID)
	}
	return c, rec
}

func withParams(c echo.Context, pairs ...string) echo.Context {
	names := make([]string, 0, len(pairs)/2)
	values := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		names = append(names, pairs[i])
		values = append(values, pairs[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]models.User)}
}

func (f *fakeUsers) Register(_ context.Context, email, passwordHash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return models.User{}, repository.ErrConflict
		}
	}
	user := models.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: fixedNow, UpdatedAt: fixedNow}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return user, nil
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]models.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[uuid.UUID]models.RefreshToken)}
}

func (f *fakeTokens) Create(_ context.Context, token models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeTokens) GetByID(_ context.Context, id uuid.UUID) (models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok {
		return models.RefreshToken{}, repository.ErrNotFound
	}
	return token, nil
}

func (f *fakeTokens) Rotate(_ context.Context, oldID uuid.UUID, newToken models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.tokens[oldID]
	if !ok || old.RevokedAt != nil {
		return repository.ErrNotFound
	}
	now := fixedNow
	old.RevokedAt = &now
	old.ReplacedBy = &newToken.ID
	f.tokens[oldID] = old
	f.tokens[newToken.ID] = newToken
	return nil
}

func (f *fakeTokens) RevokeSession(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for id, token := range f.tokens {
		if token.SessionID == sessionID && token.RevokedAt == nil {
			now := fixedNow
			token.RevokedAt = &now
			f.tokens[id] = token
			found = true
		}
	}
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

type fakeBuckets struct {
	mu      sync.Mutex
	buckets map[uuid.UUID]models.Bucket
	err     error
}

func newFakeBuckets(buckets ...models.Bucket) *fakeBuckets {
	f := &fakeBuckets{buckets: make(map[uuid.UUID]models.Bucket)}
	for _, bucket := range buckets {
		f.buckets[bucket.ID] = bucket
	}
	return f
}

func (f *fakeBuckets) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Bucket, 0)
	for _, bucket := range f.buckets {
		if bucket.UserID == userID {
			out = append(out, bucket)
		}
	}
	return out, nil
}

func (f *fakeBuckets) GetByID(_ context.Context, userID, id uuid.UUID) (models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok || bucket.UserID != userID {
		return models.Bucket{}, repository.ErrNotFound
	}
	return bucket, nil
}

func (f *fakeBuckets) Create(_ context.Context, userID uuid.UUID, input repository.BucketInput) (models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := models.Bucket{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          input.Name,
		Category:      input.Category,
		TargetAmount:  input.TargetAmount,
		TimeLimit:     input.TimeLimit,
		CurrentAmount: decimal.Zero,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
	f.buckets[bucket.ID] = bucket
	return bucket, nil
}

func (f *fakeBuckets) Update(_ context.Context, userID, id uuid.UUID, input repository.BucketInput) (models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok || bucket.UserID != userID {
		return models.Bucket{}, repository.ErrNotFound
	}
	bucket.Name = input.Name
	bucket.Category = input.Category
	bucket.TargetAmount = input.TargetAmount
	bucket.TimeLimit = input.TimeLimit
	f.buckets[id] = bucket
	return bucket, nil
}

func (f *fakeBuckets) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok || bucket.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.buckets, id)
	return nil
}

func (f *fakeBuckets) Deposit(_ context.Context, userID, id uuid.UUID, amount decimal.Decimal) (models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[id]
	if !ok || bucket.UserID != userID {
		return models.Bucket{}, repository.ErrNotFound
	}
	bucket.CurrentAmount = bucket.CurrentAmount.Add(amount)
	f.buckets[id] = bucket
	return bucket, nil
}

func (f *fakeBuckets) Transfer(_ context.Context, userID, fromID, toID uuid.UUID, amount decimal.Decimal) (repository.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	from, ok := f.buckets[fromID]
	if !ok || from.UserID != userID {
		return repository.TransferResult{}, repository.ErrNotFound
	}
	to, ok := f.buckets[toID]
	if !ok || to.UserID != userID {
		return repository.TransferResult{}, repository.ErrNotFound
	}
	if from.CurrentAmount.LessThan(amount) {
		return repository.TransferResult{}, repository.ErrInsufficientFunds
	}
	from.CurrentAmount = from.CurrentAmount.Sub(amount)
	to.CurrentAmount = to.CurrentAmount.Add(amount)
	f.buckets[fromID] = from
	f.buckets[toID] = to
	return repository.TransferResult{From: from, To: to}, nil
}

type fakeRules struct {
	mu    sync.Mutex
	rules map[uuid.UUID]models.Rule
}

func newFakeRules() *fakeRules {
	return &fakeRules{rules: make(map[uuid.UUID]models.Rule)}
}

func (f *fakeRules) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Rule, 0)
	for _, rule := range f.rules {
		if rule.UserID == userID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeRules) Create(_ context.Context, userID uuid.UUID, input repository.RuleInput) (models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule := models.Rule{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      input.Name,
		Trigger:   input.Trigger,
		Action:    input.Action,
		Enabled:   input.Enabled,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	f.rules[rule.ID] = rule
	return rule, nil
}

func (f *fakeRules) Update(_ context.Context, userID, id uuid.UUID, input repository.RuleInput) (models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.UserID != userID {
		return models.Rule{}, repository.ErrNotFound
	}
	rule.Name, rule.Trigger, rule.Action, rule.Enabled = input.Name, input.Trigger, input.Action, input.Enabled
	f.rules[id] = rule
	return rule, nil
}

func (f *fakeRules) Toggle(_ context.Context, userID, id uuid.UUID) (models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.UserID != userID {
		return models.Rule{}, repository.ErrNotFound
	}
	rule.Enabled = !rule.Enabled
	f.rules[id] = rule
	return rule, nil
}

func (f *fakeRules) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.rules, id)
	return nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[uuid.UUID]models.Profile)}
}

func (f *fakeProfiles) put(profile models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = profile
}

func (f *fakeProfiles) Get(_ context.Context, userID uuid.UUID) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return models.Profile{}, repository.ErrNotFound
	}
	return profile, nil
}

func (f *fakeProfiles) CompleteOnboarding(_ context.Context, userID uuid.UUID, answers models.OnboardingAnswers) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		profile = models.Profile{UserID: userID, Settings: models.DefaultSettings(), CreatedAt: fixedNow}
	}
	profile.Answers = answers
	profile.OnboardingCompleted = true
	profile.UpdatedAt = fixedNow
	f.profiles[userID] = profile
	return profile, nil
}

func (f *fakeProfiles) UpdateSettings(_ context.Context, userID uuid.UUID, focus *string, settings models.Settings) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return models.Profile{}, repository.ErrNotFound
	}
	profile.FinancialFocus = focus
	profile.Settings = settings
	profile.UpdatedAt = fixedNow
	f.profiles[userID] = profile
	return profile, nil
}
