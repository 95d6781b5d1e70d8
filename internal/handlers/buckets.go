package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/cache"
	"example.com/fintant/backend/internal/metrics"
	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/notifications"
	"example.com/fintant/backend/internal/repository"
)

type BucketHandler struct {
	Buckets  BucketStore
	Notifier *notifications.Hub
	Cache    *cache.Cache
	Logger   *slog.Logger
}

// NewBucketHandler создает обработчик корзин накоплений.
func NewBucketHandler(buckets BucketStore, notifier *notifications.Hub, responses *cache.Cache, logger *slog.Logger) *BucketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BucketHandler{Buckets: buckets, Notifier: notifier, Cache: responses, Logger: logger}
}

type BucketRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Category     string          `json:"category" validate:"required,bucket_category"`
	TargetAmount json.RawMessage `json:"target_amount"`
	TimeLimit    *string         `json:"time_limit"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

type TransferRequest struct {
	FromBucketID string          `json:"from_bucket_id" validate:"required,uuid"`
	ToBucketID   string          `json:"to_bucket_id" validate:"required,uuid"`
	Amount       decimal.Decimal `json:"amount" validate:"gt=0"`
}

type BucketResponse struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	TargetAmount    *decimal.Decimal `json:"target_amount"`
	TimeLimit       *time.Time       `json:"time_limit"`
	CurrentAmount   decimal.Decimal  `json:"current_amount"`
	ProgressPercent decimal.Decimal  `json:"progress_percent"`
	Remaining       decimal.Decimal  `json:"remaining"`
	IsComplete      bool             `json:"is_complete"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type TransferResponse struct {
	From BucketResponse `json:"from"`
	To   BucketResponse `json:"to"`
}

// Categories возвращает список допустимых категорий корзин.
func (h *BucketHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"categories": models.BucketCategories})
}

// List возвращает корзины пользователя, новые первыми.
func (h *BucketHandler) List(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	buckets, err := h.Buckets.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return h.storeError(c, err)
	}

	response := make([]BucketResponse, 0, len(buckets))
	for _, bucket := range buckets {
		response = append(response, toBucketResponse(bucket))
	}

	return c.JSON(http.StatusOK, map[string][]BucketResponse{"buckets": response})
}

// Create создает корзину.
func (h *BucketHandler) Create(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	input, ok, err := h.parseInput(c)
	if !ok {
		return err
	}

	bucket, err := h.Buckets.Create(c.Request().Context(), userID, input)
	if err != nil {
		return h.storeError(c, err)
	}

	h.changed(userID, bucket.ID)
	return c.JSON(http.StatusCreated, toBucketResponse(bucket))
}

// Update меняет имя, категорию, цель и срок корзины.
func (h *BucketHandler) Update(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	bucketID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid bucket id")
	}

	input, ok, err := h.parseInput(c)
	if !ok {
		return err
	}

	bucket, err := h.Buckets.Update(c.Request().Context(), userID, bucketID, input)
	if err != nil {
		return h.storeError(c, err)
	}

	h.changed(userID, bucket.ID)
	return c.JSON(http.StatusOK, toBucketResponse(bucket))
}

// Delete удаляет корзину.
func (h *BucketHandler) Delete(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	bucketID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid bucket id")
	}

	if err := h.Buckets.Delete(c.Request().Context(), userID, bucketID); err != nil {
		return h.storeError(c, err)
	}

	h.changed(userID, bucketID)
	return c.NoContent(http.StatusNoContent)
}

// Deposit пополняет корзину на положительную сумму.
func (h *BucketHandler) Deposit(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	bucketID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid bucket id")
	}

	var req AmountRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	bucket, err := h.Buckets.Deposit(c.Request().Context(), userID, bucketID, req.Amount.Round(2))
	if err != nil {
		return h.storeError(c, err)
	}

	h.changed(userID, bucket.ID)
	return c.JSON(http.StatusOK, toBucketResponse(bucket))
}

// Transfer переводит деньги между двумя корзинами пользователя.
func (h *BucketHandler) Transfer(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req TransferRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	fromID, err := uuid.Parse(req.FromBucketID)
	if err != nil {
		metrics.RecordTransfer("invalid")
		return fieldError(c, "from_bucket_id", "uuid")
	}
	toID, err := uuid.Parse(req.ToBucketID)
	if err != nil {
		metrics.RecordTransfer("invalid")
		return fieldError(c, "to_bucket_id", "uuid")
	}
	if fromID == toID {
		metrics.RecordTransfer("invalid")
		return fieldError(c, "to_bucket_id", "nefield")
	}

	result, err := h.Buckets.Transfer(c.Request().Context(), userID, fromID, toID, req.Amount.Round(2))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			metrics.RecordTransfer("insufficient_funds")
		case errors.Is(err, repository.ErrNotFound):
			metrics.RecordTransfer("not_found")
		default:
			metrics.RecordTransfer("error")
		}
		return h.storeError(c, err)
	}
	metrics.RecordTransfer("ok")

	h.changed(userID, result.From.ID)
	return c.JSON(http.StatusOK, TransferResponse{
		From: toBucketResponse(result.From),
		To:   toBucketResponse(result.To),
	})
}

// parseInput разбирает тело корзины. Если второй результат false, ответ 400 уже отправлен.
func (h *BucketHandler) parseInput(c echo.Context) (repository.BucketInput, bool, error) {
	var req BucketRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return repository.BucketInput{}, false, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return repository.BucketInput{}, false, fieldError(c, "name", "required")
	}

	timeLimit, err := parseTimeLimit(req.TimeLimit)
	if err != nil {
		return repository.BucketInput{}, false, fieldError(c, "time_limit", "datetime")
	}

	return repository.BucketInput{
		Name:         name,
		Category:     req.Category,
		TargetAmount: parseTargetAmount(req.TargetAmount),
		TimeLimit:    timeLimit,
	}, true, nil
}

func (h *BucketHandler) changed(userID, bucketID uuid.UUID) {
	h.Notifier.Changed(userID, notifications.EventBucketsChanged, bucketID)
	h.Cache.Invalidate(userID, cache.KeyDashboard)
}

func (h *BucketHandler) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "bucket not found")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return unprocessable(c, "insufficient funds")
	case errors.Is(err, repository.ErrInvalid), errors.Is(err, repository.ErrSchema):
		return badRequest(c, "invalid bucket")
	default:
		h.Logger.ErrorContext(c.Request().Context(), "bucket store failed", slog.String("error", err.Error()))
		return serverError(c)
	}
}

// parseTargetAmount принимает число или строку. Нераспознанное, неположительное
// или пустое значение означает "без цели".
func parseTargetAmount(raw json.RawMessage) *decimal.Decimal {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = trimmed
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || !amount.IsPositive() {
		return nil
	}

	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil
	}
	return &amount
}

// parseTimeLimit принимает дату YYYY-MM-DD (полночь UTC) или RFC3339.
func parseTimeLimit(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}

	if parsed, err := time.Parse(dateLayout, trimmed); err == nil {
		return &parsed, nil
	}

	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func toBucketResponse(bucket models.Bucket) BucketResponse {
	return BucketResponse{
		ID:              bucket.ID,
		Name:            bucket.Name,
		Category:        bucket.Category,
		TargetAmount:    bucket.TargetAmount,
		TimeLimit:       bucket.TimeLimit,
		CurrentAmount:   bucket.CurrentAmount,
		ProgressPercent: bucket.ProgressPercent(),
		Remaining:       bucket.Remaining(),
		IsComplete:      bucket.IsComplete(),
		CreatedAt:       bucket.CreatedAt,
		UpdatedAt:       bucket.UpdatedAt,
	}
}
