package http

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/observability"
	apperrors "github.com/spec-kit/inventory-auth/pkg/errorutil"
)

const (
	msgUnauthenticated  = "unauthenticated"
	msgBadCredentials   = "invalid username or password"
	msgTooManyAttempts  = "too many failed login attempts, try again later"
	msgForbidden        = "access denied"
	msgInternal         = "internal server error"
	bearerChallenge     = `Bearer realm="api"`
	codeUnauthenticated = "UNAUTHENTICATED"
)

// ErrorResponse is the body written for every failed request other than input validation.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// FailureTranslator converts any error raised in the pipeline into exactly one response.
type FailureTranslator struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewFailureTranslator constructs a translator. metrics may be nil.
func NewFailureTranslator(logger *zap.Logger, metrics *observability.Metrics) *FailureTranslator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureTranslator{logger: logger, metrics: metrics, now: time.Now}
}

// Translate maps err to the DomainError describing the wire response. Token failures of
// every kind collapse into one generic 401 while the cause stays attached for logging.
func (t *FailureTranslator) Translate(err error) *apperrors.DomainError {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrPrincipalNotFound):
		return apperrors.NewDomainError(codeUnauthenticated, msgUnauthenticated, fiber.StatusUnauthorized, err)
	case errors.Is(err, auth.ErrBadCredentials), errors.Is(err, auth.ErrAccountDisabled):
		return apperrors.NewDomainError("BAD_CREDENTIALS", msgBadCredentials, fiber.StatusUnauthorized, err)
	case errors.Is(err, auth.ErrTooManyAttempts):
		return apperrors.NewDomainError("TOO_MANY_ATTEMPTS", msgTooManyAttempts, fiber.StatusTooManyRequests, err)
	case errors.Is(err, auth.ErrForbidden):
		return apperrors.NewDomainError("FORBIDDEN", msgForbidden, fiber.StatusForbidden, err)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		return apperrors.NewDomainError("HTTP_ERROR", fiberErr.Message, fiberErr.Code, err)
	}

	return apperrors.ToDomainError(err)
}

// Respond writes the translated response for err.
func (t *FailureTranslator) Respond(c *fiber.Ctx, err error) error {
	domainErr := t.Translate(err)
	t.metrics.RecordError(domainErr.Code)
	t.metrics.RecordAuthFailure(authKind(err))

	message := domainErr.Message
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		ref := uuid.NewString()
		message = fmt.Sprintf("%s (ref %s)", msgInternal, ref)
		t.logger.Error("request failed",
			zap.String("ref", ref),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	} else {
		t.logger.Debug("request rejected",
			zap.String("path", c.Path()),
			zap.Int("status", domainErr.HTTPStatus),
			zap.String("code", domainErr.Code),
			zap.String("kind", authKind(err)),
		)
	}

	if domainErr.HTTPStatus == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, bearerChallenge)
	}
	c.Status(domainErr.HTTPStatus)

	if domainErr.Fields != nil {
		return c.JSON(domainErr.Fields)
	}
	return c.JSON(ErrorResponse{
		Status:    domainErr.HTTPStatus,
		Message:   message,
		Path:      c.Path(),
		Timestamp: t.now().UTC(),
	})
}

// Middleware wraps every later stage, recovering panics and translating returned errors.
func (t *FailureTranslator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				if writeErr := t.Respond(c, err); writeErr != nil {
					t.logger.Error("write error response", zap.Error(writeErr))
				}
				err = nil
			}
		}()
		return c.Next()
	}
}

// ErrorHandler adapts Respond for fiber.Config.ErrorHandler.
func (t *FailureTranslator) ErrorHandler(c *fiber.Ctx, err error) error {
	return t.Respond(c, err)
}

func authKind(err error) string {
	kind := auth.Kind(err)
	if kind == "unclassified" {
		return ""
	}
	return kind
}
