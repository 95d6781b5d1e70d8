package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrSchema сообщает о строке, не прошедшей проверку схемы.
var ErrSchema = errors.New("schema violation")

var rowValidator = NewValidator()

// NewValidator создает валидатор с поддержкой decimal и категорий корзин.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if value, ok := field.Interface().(decimal.Decimal); ok {
			return value.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("bucket_category", func(fl validator.FieldLevel) bool {
		return IsBucketCategory(fl.Field().String())
	})

	return v
}

// IsBucketCategory проверяет, входит ли категория в список допустимых.
func IsBucketCategory(value string) bool {
	for _, category := range BucketCategories {
		if category == value {
			return true
		}
	}
	return false
}

// CheckRow проверяет строку таблицы: версию схемы и теги validate.
func CheckRow(row interface{}, version, expected int) error {
	if version != expected {
		return fmt.Errorf("%w: schema version %d, expected %d", ErrSchema, version, expected)
	}

	if err := rowValidator.Struct(row); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}

	return nil
}
