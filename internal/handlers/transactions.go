package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/ledger"
)

type TransactionHandler struct {
	Now Clock
}

// NewTransactionHandler создает обработчик журнала операций.
func NewTransactionHandler() *TransactionHandler {
	return &TransactionHandler{Now: time.Now}
}

type TransactionsResponse struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Categories   []string             `json:"categories"`
}

// List возвращает операции с фильтром по категории и поиском по описанию.
func (h *TransactionHandler) List(c echo.Context) error {
	all := ledger.Transactions(h.Now())
	filtered := h.filter(c).Apply(all)

	return c.JSON(http.StatusOK, TransactionsResponse{
		Transactions: filtered,
		Categories:   ledger.Categories(all),
	})
}

// Categories возвращает расходы по категориям.
func (h *TransactionHandler) Categories(c echo.Context) error {
	totals := ledger.SpendingByCategory(h.filter(c).Apply(ledger.Transactions(h.Now())))
	return c.JSON(http.StatusOK, map[string][]ledger.CategoryTotal{"categories": totals})
}

// ExportCSV выгружает отфильтрованные операции в CSV-файл.
func (h *TransactionHandler) ExportCSV(c echo.Context) error {
	txs := h.filter(c).Apply(ledger.Transactions(h.Now()))

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"id", "date", "description", "merchant", "category", "amount"}); err != nil {
		return serverError(c)
	}
	for _, tx := range txs {
		row := []string{
			tx.ID,
			tx.Date.Format(dateLayout),
			tx.Description,
			tx.Merchant,
			tx.Category,
			tx.Amount.StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			return serverError(c)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	filename := "transactions-" + h.Now().Format(dateLayout) + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *TransactionHandler) filter(c echo.Context) ledger.Filter {
	return ledger.Filter{
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("q"),
	}
}
