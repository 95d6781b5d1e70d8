package server

import (
	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/gate"
	"example.com/fintant/backend/internal/handlers"
)

const apiPrefix = "/api/v1"

type routeHandlers struct {
	health       echo.HandlerFunc
	auth         *handlers.AuthHandler
	buckets      *handlers.BucketHandler
	rules        *handlers.RuleHandler
	transactions *handlers.TransactionHandler
	finance      *handlers.FinanceHandler
	onboarding   *handlers.OnboardingHandler
	profile      *handlers.ProfileHandler
	events       *handlers.EventHandler
	admin        *handlers.AdminHandler
	pages        *gate.Pages
	metrics      echo.HandlerFunc
	metricsPath  string
}

type routeMiddleware struct {
	required    echo.MiddlewareFunc
	optional    echo.MiddlewareFunc
	admin       echo.MiddlewareFunc
	authLimit   echo.MiddlewareFunc
	plannerRate echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h routeHandlers, mw routeMiddleware) {
	e.GET("/health", h.health)
	if h.metrics != nil {
		e.GET(h.metricsPath, h.metrics)
	}

	api := e.Group(apiPrefix)

	authGroup := api.Group("/auth", mw.authLimit)
	authGroup.POST("/signup", h.auth.Signup)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout, mw.optional)
	authGroup.GET("/session", h.auth.Session, mw.optional)

	api.GET("/navigation", h.pages.Navigation, mw.optional)

	onboarding := api.Group("/onboarding")
	onboarding.GET("/questions", h.onboarding.Questions)
	onboarding.POST("/steps/:step/check", h.onboarding.CheckStep)
	onboarding.POST("/complete", h.onboarding.Complete, mw.required)

	api.GET("/profile", h.profile.Get, mw.required)
	api.PUT("/settings", h.profile.UpdateSettings, mw.required)

	buckets := api.Group("/buckets", mw.required)
	buckets.GET("", h.buckets.List)
	buckets.GET("/categories", h.buckets.Categories)
	buckets.POST("", h.buckets.Create)
	buckets.POST("/transfer", h.buckets.Transfer)
	buckets.PUT("/:id", h.buckets.Update)
	buckets.DELETE("/:id", h.buckets.Delete)
	buckets.POST("/:id/deposit", h.buckets.Deposit)

	rules := api.Group("/rules", mw.required)
	rules.GET("", h.rules.List)
	rules.POST("", h.rules.Create)
	rules.PUT("/:id", h.rules.Update)
	rules.PATCH("/:id/toggle", h.rules.Toggle)
	rules.DELETE("/:id", h.rules.Delete)

	transactions := api.Group("/transactions", mw.required)
	transactions.GET("", h.transactions.List)
	transactions.GET("/categories", h.transactions.Categories)
	transactions.GET("/export.csv", h.transactions.ExportCSV)

	api.GET("/cash-flow", h.finance.CashFlow, mw.required)
	api.GET("/forecast", h.finance.Forecast, mw.required)
	api.GET("/dashboard", h.finance.Dashboard, mw.required)
	api.GET("/insights", h.finance.Insights, mw.required, mw.plannerRate)

	api.GET("/events/stream", h.events.Stream, mw.required)

	admin := api.Group("/admin", mw.required, mw.admin)
	admin.GET("/users", h.admin.ListUsers)
	admin.GET("/narrations", h.admin.ListNarrations)
	admin.GET("/usage", h.admin.Usage)

	e.GET("/*", h.pages.Serve, mw.optional)
}
