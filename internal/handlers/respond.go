package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/auth"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

// validationFailed отдает 400 с перечнем полей и нарушенных правил.
func validationFailed(c echo.Context, err error) error {
	response := ValidationErrorResponse{Error: "validation failed"}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		response.Fields = make(map[string]string, len(fieldErrors))
		for _, fieldErr := range fieldErrors {
			response.Fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}

	return c.JSON(http.StatusBadRequest, response)
}

func fieldError(c echo.Context, field, rule string) error {
	return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Error:  "validation failed",
		Fields: map[string]string{field: rule},
	})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func unprocessable(c echo.Context, message string) error {
	return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": message})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{"error": "access denied"})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// bindAndValidate разбирает тело запроса и проверяет теги validate.
// Если первый результат false, ответ 400 уже записан: обработчик возвращает ошибку и останавливается.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

func currentUser(c echo.Context) (uuid.UUID, bool) {
	return auth.UserIDFromContext(c)
}
