package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/notifications"
)

func amount(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func decodeBucket(t *testing.T, body []byte) BucketResponse {
	t.Helper()
	var response BucketResponse
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

// TestCreateBucketWithTarget проверяет создание корзины с целью и сроком.
func TestCreateBucketWithTarget(t *testing.T) {
	userID := uuid.New()
	store := newFakeBuckets()
	hub := notifications.NewHub()
	events, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	handler := NewBucketHandler(store, hub, nil, nil)

	c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/buckets",
		`{"name":"  Trip ","category":"Vacation","target_amount":"1500.456","time_limit":"2026-06-01"}`, userID)
	require.NoError(t, handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	bucket := decodeBucket(t, rec.Body.Bytes())
	assert.Equal(t, "Trip", bucket.Name)
	require.NotNil(t, bucket.TargetAmount)
	assert.True(t, bucket.TargetAmount.Equal(decimal.RequireFromString("1500.46")))
	require.NotNil(t, bucket.TimeLimit)
	assert.Equal(t, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), bucket.TimeLimit.UTC())
	assert.True(t, bucket.CurrentAmount.IsZero())

	select {
	case event := <-events:
		assert.Equal(t, notifications.EventBucketsChanged, event.Type)
	default:
		t.Fatal("expected buckets_changed event")
	}
}

// TestCreateBucketIgnoresInvalidTarget проверяет, что нераспознанная цель означает "без цели".
func TestCreateBucketIgnoresInvalidTarget(t *testing.T) {
	userID := uuid.New()
	handler := NewBucketHandler(newFakeBuckets(), nil, nil, nil)

	for _, target := range []string{`"abc"`, `-5`, `0`, `null`, `""`} {
		c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/buckets",
			`{"name":"Rainy day","category":"Emergency Fund","target_amount":`+target+`}`, userID)
		require.NoError(t, handler.Create(c))
		require.Equal(t, http.StatusCreated, rec.Code, target)

		bucket := decodeBucket(t, rec.Body.Bytes())
		assert.Nil(t, bucket.TargetAmount, target)
		assert.True(t, bucket.ProgressPercent.IsZero(), target)
	}
}

// TestCreateBucketValidation проверяет обязательное имя и допустимую категорию.
func TestCreateBucketValidation(t *testing.T) {
	userID := uuid.New()
	store := newFakeBuckets()
	handler := NewBucketHandler(store, nil, nil, nil)

	cases := []struct {
		body  string
		field string
		rule  string
	}{
		{`{"name":"","category":"Vacation"}`, "name", "required"},
		{`{"name":"   ","category":"Vacation"}`, "name", "required"},
		{`{"name":"Trip","category":"Yachts"}`, "category", "bucket_category"},
		{`{"name":"Trip","category":"Vacation","time_limit":"next week"}`, "time_limit", "datetime"},
	}

	for _, tc := range cases {
		c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/buckets", tc.body, userID)
		require.NoError(t, handler.Create(c))
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.body)

		var body ValidationErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.rule, body.Fields[tc.field], tc.body)
	}

	assert.Empty(t, store.buckets)
}

// TestUpdateBucketValidationKeepsBucket проверяет, что отклоненное изменение не доходит до хранилища.
func TestUpdateBucketValidationKeepsBucket(t *testing.T) {
	userID := uuid.New()
	bucket := models.Bucket{ID: uuid.New(), UserID: userID, Name: "Trip", Category: "Vacation"}
	store := newFakeBuckets(bucket)
	handler := NewBucketHandler(store, nil, nil, nil)

	c, rec := newRequest(newEcho(), http.MethodPut, "/", `{"name":"   ","category":"Vacation"}`, userID)
	require.NoError(t, handler.Update(withParams(c, "id", bucket.ID.String())))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"name": "required"}, body.Fields)
	assert.Equal(t, "Trip", store.buckets[bucket.ID].Name)
	assert.Equal(t, "Vacation", store.buckets[bucket.ID].Category)
}

// TestDepositUpdatesProgress проверяет процент и остаток после пополнения.
func TestDepositUpdatesProgress(t *testing.T) {
	userID := uuid.New()
	bucket := models.Bucket{ID: uuid.New(), UserID: userID, Name: "Trip", Category: "Vacation", TargetAmount: amount("1000"), CurrentAmount: decimal.Zero}
	handler := NewBucketHandler(newFakeBuckets(bucket), nil, nil, nil)

	c, rec := newRequest(newEcho(), http.MethodPost, "/", `{"amount":250}`, userID)
	require.NoError(t, handler.Deposit(withParams(c, "id", bucket.ID.String())))
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBucket(t, rec.Body.Bytes())
	assert.True(t, response.ProgressPercent.Equal(decimal.NewFromInt(25)))
	assert.True(t, response.Remaining.Equal(decimal.NewFromInt(750)))
	assert.False(t, response.IsComplete)

	c, rec = newRequest(newEcho(), http.MethodPost, "/", `{"amount":0}`, userID)
	require.NoError(t, handler.Deposit(withParams(c, "id", bucket.ID.String())))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestDepositForeignBucket проверяет, что чужая корзина не находится.
func TestDepositForeignBucket(t *testing.T) {
	bucket := models.Bucket{ID: uuid.New(), UserID: uuid.New(), Name: "Trip", Category: "Vacation"}
	handler := NewBucketHandler(newFakeBuckets(bucket), nil, nil, nil)

	c, rec := newRequest(newEcho(), http.MethodPost, "/", `{"amount":10}`, uuid.New())
	require.NoError(t, handler.Deposit(withParams(c, "id", bucket.ID.String())))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestTransferBetweenBuckets проверяет перевод и его ошибки.
func TestTransferBetweenBuckets(t *testing.T) {
	userID := uuid.New()
	from := models.Bucket{ID: uuid.New(), UserID: userID, Name: "Savings", Category: "Savings", CurrentAmount: decimal.NewFromInt(100)}
	to := models.Bucket{ID: uuid.New(), UserID: userID, Name: "Trip", Category: "Vacation", CurrentAmount: decimal.Zero}
	handler := NewBucketHandler(newFakeBuckets(from, to), nil, nil, nil)

	transfer := func(fromID, toID uuid.UUID, value string) (int, []byte) {
		body := `{"from_bucket_id":"` + fromID.String() + `","to_bucket_id":"` + toID.String() + `","amount":` + value + `}`
		c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/buckets/transfer", body, userID)
		require.NoError(t, handler.Transfer(c))
		return rec.Code, rec.Body.Bytes()
	}

	code, body := transfer(from.ID, to.ID, "40")
	require.Equal(t, http.StatusOK, code)
	var result TransferResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.From.CurrentAmount.Equal(decimal.NewFromInt(60)))
	assert.True(t, result.To.CurrentAmount.Equal(decimal.NewFromInt(40)))

	code, _ = transfer(from.ID, to.ID, "61")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = transfer(from.ID, from.ID, "10")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "nefield")

	code, _ = transfer(from.ID, uuid.New(), "10")
	assert.Equal(t, http.StatusNotFound, code)
}

// TestTransferRequiresBucketIDs проверяет ответ 400 без идентификаторов корзин.
func TestTransferRequiresBucketIDs(t *testing.T) {
	userID := uuid.New()
	from := models.Bucket{ID: uuid.New(), UserID: userID, Name: "Savings", Category: "Savings", CurrentAmount: decimal.NewFromInt(100)}
	store := newFakeBuckets(from)
	handler := NewBucketHandler(store, nil, nil, nil)

	for _, body := range []string{
		`{"amount":"5"}`,
		`{"from_bucket_id":"` + from.ID.String() + `","to_bucket_id":"nope","amount":"5"}`,
	} {
		c, rec := newRequest(newEcho(), http.MethodPost, "/api/v1/buckets/transfer", body, userID)
		var err error
		require.NotPanics(t, func() { err = handler.Transfer(c) }, body)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)

		var response ValidationErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response), body)
		assert.NotEmpty(t, response.Fields, body)
	}

	assert.True(t, store.buckets[from.ID].CurrentAmount.Equal(decimal.NewFromInt(100)))
}

// TestDeleteBucket проверяет удаление и повторное удаление.
func TestDeleteBucket(t *testing.T) {
	userID := uuid.New()
	bucket := models.Bucket{ID: uuid.New(), UserID: userID, Name: "Trip", Category: "Vacation"}
	handler := NewBucketHandler(newFakeBuckets(bucket), nil, nil, nil)

	c, rec := newRequest(newEcho(), http.MethodDelete, "/", "", userID)
	require.NoError(t, handler.Delete(withParams(c, "id", bucket.ID.String())))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newRequest(newEcho(), http.MethodDelete, "/", "", userID)
	require.NoError(t, handler.Delete(withParams(c, "id", bucket.ID.String())))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
