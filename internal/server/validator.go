package server

import (
	"github.com/go-playground/validator/v10"

	"example.com/fintant/backend/internal/models"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор запросов с правилами моделей.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: models.NewValidator()}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
