package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/api/backend"
	"github.com/shopassist/shopchat/internal/api/handler"
	"github.com/shopassist/shopchat/internal/api/middleware"
)

// Version is reported by the liveness probe.
const Version = "1"

// Options configures NewRouter.
type Options struct {
	Accounts *backend.Accounts
	Chats    *backend.Chats
	Log      zerolog.Logger
	// Metrics mounts request instrumentation and GET /metrics.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered
// under /api.
func NewRouter(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(opts.Log))
	if opts.Metrics {
		e.Use(echoprometheus.NewMiddleware("shopchat_backend"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(opts.Accounts)
	chatHandler := handler.NewChatHandler(opts.Chats)
	authMiddleware := middleware.Auth(opts.Accounts)

	api := e.Group("/api")

	// --- Auth routes ---
	auth := api.Group("/authentication")
	auth.POST("/register/", authHandler.Register)
	auth.POST("/login/", authHandler.Login)
	auth.GET("/profile/", authHandler.Profile, authMiddleware)
	auth.PUT("/profile/", authHandler.UpdateProfile, authMiddleware)

	// --- Chatbot routes ---
	chat := api.Group("/chatbot", authMiddleware)
	chat.POST("/message/", chatHandler.Message)
	chat.GET("/sessions/", chatHandler.Sessions, middleware.AcceptVersion("1"))
	chat.GET("/sessions/:id/", chatHandler.Session)
	chat.POST("/sessions/:id/reset/", chatHandler.Reset)
	chat.DELETE("/sessions/:id/delete/", chatHandler.Delete)

	// --- Health probe (no auth required) ---
	healthHandler := handler.NewHealthHandler(Version)
	e.GET("/health", healthHandler.Liveness)

	return e
}

// requestLogger emits one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
