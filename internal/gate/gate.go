package gate

import (
	"net/http"
	"path"
	"strings"
)

type Access string

const (
	AccessPublic    Access = "public"
	AccessGuestOnly Access = "guest_only"
	AccessProtected Access = "protected"
)

const (
	HomePath  = "/"
	LoginPath = "/auth"
)

type Route struct {
	Path   string `json:"path"`
	Title  string `json:"title"`
	Access Access `json:"access"`
}

// Routes страницы приложения. "/" и "/dashboard" ведут на дашборд.
var Routes = []Route{
	{Path: "/", Title: "Dashboard", Access: AccessProtected},
	{Path: "/auth", Title: "Sign in", Access: AccessGuestOnly},
	{Path: "/login", Title: "Sign in", Access: AccessGuestOnly},
	{Path: "/onboarding", Title: "Onboarding", Access: AccessProtected},
	{Path: "/dashboard", Title: "Dashboard", Access: AccessProtected},
	{Path: "/buckets", Title: "Buckets", Access: AccessProtected},
	{Path: "/cash-flow", Title: "Cash Flow", Access: AccessProtected},
	{Path: "/transactions", Title: "Transactions", Access: AccessProtected},
	{Path: "/rules", Title: "Rules", Access: AccessProtected},
	{Path: "/investments", Title: "Investments", Access: AccessProtected},
	{Path: "/settings", Title: "Settings", Access: AccessProtected},
}

var routeIndex = func() map[string]Route {
	index := make(map[string]Route, len(Routes))
	for _, route := range Routes {
		index[route.Path] = route
	}
	return index
}()

// Decision результат навигации: показать страницу, перенаправить или 404.
type Decision struct {
	Path     string `json:"path"`
	Status   int    `json:"status"`
	Redirect string `json:"redirect,omitempty"`
	Title    string `json:"title"`
	Access   Access `json:"access,omitempty"`
	Found    bool   `json:"found"`
}

// Normalize приводит путь к виду из таблицы маршрутов.
func Normalize(raw string) string {
	if raw == "" {
		return HomePath
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	cleaned := path.Clean(raw)
	if cleaned == "." {
		return HomePath
	}
	return cleaned
}

// Resolve решает, что показать по пути: авторизованного уводят со страницы
// входа на главную, гостя со страниц приложения на вход.
func Resolve(rawPath string, authenticated bool) Decision {
	p := Normalize(rawPath)

	route, ok := routeIndex[p]
	if !ok {
		return Decision{Path: p, Status: http.StatusNotFound, Title: "Not Found"}
	}

	decision := Decision{
		Path:   p,
		Status: http.StatusOK,
		Title:  route.Title,
		Access: route.Access,
		Found:  true,
	}

	switch {
	case route.Access == AccessGuestOnly && authenticated:
		decision.Status = http.StatusFound
		decision.Redirect = HomePath
	case route.Access == AccessProtected && !authenticated:
		decision.Status = http.StatusFound
		decision.Redirect = LoginPath
	}

	return decision
}
