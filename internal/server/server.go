package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/fintant/backend/internal/ai"
	"example.com/fintant/backend/internal/auth"
	"example.com/fintant/backend/internal/cache"
	"example.com/fintant/backend/internal/config"
	"example.com/fintant/backend/internal/gate"
	"example.com/fintant/backend/internal/handlers"
	"example.com/fintant/backend/internal/metrics"
	"example.com/fintant/backend/internal/notifications"
	"example.com/fintant/backend/internal/onboarding"
	"example.com/fintant/backend/internal/planner"
	"example.com/fintant/backend/internal/repository"
	"example.com/fintant/backend/internal/session"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, sessions *session.Store, responses *cache.Cache) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(metrics.Middleware(cfg.Metrics.Path))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authenticator := auth.NewAuthenticator(tokenManager, sessions, cfg.Auth.CookieName)

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	bucketRepo := repository.NewBucketRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	aiRepo := repository.NewAIRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	hub := notifications.NewHub()

	var narrator planner.Narrator
	if cfg.AI.Enabled {
		service := ai.NewService(ai.NewClient(cfg.AI), cfg.AI.Provider, cfg.AI.Model)
		narrator = planner.NewAINarrator(service, aiRepo, logger)
	}

	pages := gate.NewPages(func(c echo.Context) bool {
		_, ok := auth.UserIDFromContext(c)
		return ok
	}, apiPrefix)

	h := routeHandlers{
		health:       handlers.Health(db),
		auth:         handlers.NewAuthHandler(userRepo, tokenRepo, sessions, tokenManager, cfg.Auth, logger),
		buckets:      handlers.NewBucketHandler(bucketRepo, hub, responses, logger),
		rules:        handlers.NewRuleHandler(ruleRepo, hub, logger),
		transactions: handlers.NewTransactionHandler(),
		finance:      handlers.NewFinanceHandler(bucketRepo, profileRepo, planner.New(narrator, logger), responses, logger),
		onboarding:   handlers.NewOnboardingHandler(onboarding.MustLoad(), profileRepo, hub, responses, logger),
		profile:      handlers.NewProfileHandler(profileRepo, hub, responses, logger),
		events:       handlers.NewEventHandler(hub, sessions),
		admin:        handlers.NewAdminHandler(adminRepo),
		pages:        pages,
	}
	if cfg.Metrics.Enabled {
		h.metrics = echo.WrapHandler(metrics.Handler())
		h.metricsPath = cfg.Metrics.Path
	}

	registerRoutes(e, h, routeMiddleware{
		required:    authenticator.Required(),
		optional:    authenticator.Optional(),
		admin:       handlers.AdminMiddleware(userRepo, cfg.Admin.Emails),
		authLimit:   rateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
		plannerRate: rateLimiter(cfg.AI.RateLimitPerMinute, cfg.AI.RateLimitBurst),
	})

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

// rateLimiter ограничивает частоту запросов с одного IP.
func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
