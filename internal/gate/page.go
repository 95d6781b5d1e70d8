package gate

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed web/index.html
var webFS embed.FS

var shell = template.Must(template.ParseFS(webFS, "web/index.html"))

type shellData struct {
	Title    string
	Path     string
	Status   int
	NotFound bool
}

// IsAuthenticated сообщает, опознан ли пользователь запроса.
type IsAuthenticated func(c echo.Context) bool

// Pages отдает оболочку страниц с учетом доступа.
type Pages struct {
	authenticated IsAuthenticated
	apiPrefix     string
}

// NewPages создает обработчик страниц; пути под apiPrefix получают JSON 404.
func NewPages(authenticated IsAuthenticated, apiPrefix string) *Pages {
	return &Pages{authenticated: authenticated, apiPrefix: apiPrefix}
}

// Serve отвечает на GET любой страницы.
func (p *Pages) Serve(c echo.Context) error {
	requestPath := c.Request().URL.Path
	if p.apiPrefix != "" && (requestPath == p.apiPrefix || strings.HasPrefix(requestPath, p.apiPrefix+"/")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	decision := Resolve(requestPath, p.authenticated(c))
	if decision.Redirect != "" {
		return c.Redirect(decision.Status, decision.Redirect)
	}

	var buf bytes.Buffer
	if err := shell.Execute(&buf, shellData{
		Title:    decision.Title,
		Path:     decision.Path,
		Status:   decision.Status,
		NotFound: !decision.Found,
	}); err != nil {
		return err
	}

	return c.HTMLBlob(decision.Status, buf.Bytes())
}

// Navigation отдает решение навигации в JSON для клиента.
func (p *Pages) Navigation(c echo.Context) error {
	decision := Resolve(c.QueryParam("path"), p.authenticated(c))
	return c.JSON(http.StatusOK, decision)
}
