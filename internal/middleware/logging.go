package middleware

import (
	"time"

	"inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger logs every request once it completes. Errors returned by the
// chain are resolved through the app's error handler first, so the logged
// status is the one the client receives.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		duration := time.Since(start)
		statusCode := c.Response().StatusCode()

		ctx := c.UserContext()
		event := logger.WithContext(ctx).Info()
		if statusCode >= fiber.StatusInternalServerError {
			event = logger.WithContext(ctx).Error()
		} else if statusCode >= fiber.StatusBadRequest {
			event = logger.WithContext(ctx).Warn()
		}

		traceID := ""
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", c.Route().Path).
			Int("status", statusCode).
			Dur("duration", duration).
			Int("response_size", len(c.Response().Body())).
			Str("ip", c.IP()).
			Str("request_id", requestID(c)).
			Str("trace_id", traceID).
			Msg("HTTP request")

		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
