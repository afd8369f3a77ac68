package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/observability"
)

// CORSMethods are the methods allowed for cross-origin requests.
var CORSMethods = []string{
	fiber.MethodGet,
	fiber.MethodPost,
	fiber.MethodPut,
	fiber.MethodDelete,
	fiber.MethodOptions,
}

// MiddlewareConfig bundles the collaborators of the global middleware chain.
type MiddlewareConfig struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Translator     *FailureTranslator
	AuthMiddleware *auth.AuthMiddleware
	AllowedOrigin  string
	RequestTimeout time.Duration
}

// RegisterMiddlewares attaches the global chain in a fixed order:
// request logging, failure translation, timeout, CORS, authentication.
// Authorization is attached per route.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics, func(c *fiber.Ctx) string {
		return auth.FromContext(c).Subject
	}))
	app.Use(cfg.Translator.Middleware())
	if cfg.RequestTimeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.RequestTimeout))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigin,
		AllowMethods:     strings.Join(CORSMethods, ","),
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	app.Use(cfg.AuthMiddleware.Handle)
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
