package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "inventory/http"

// Tracing starts a server span per request, continuing any trace context
// propagated in the request headers. A nil provider uses the global one.
func Tracing(tp trace.TracerProvider) fiber.Handler {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)

	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier{}
		c.Request().Header.VisitAll(func(key, value []byte) {
			carrier.Set(string(key), string(value))
		})
		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		// Spans outlive the request, and fasthttp reuses the buffers behind
		// these strings, so every value is copied.
		method := utils.CopyString(c.Method())
		ctx, span := tracer.Start(
			parent,
			method+" "+utils.CopyString(c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", utils.CopyString(c.OriginalURL())),
				attribute.String("http.scheme", utils.CopyString(c.Protocol())),
				attribute.String("http.host", utils.CopyString(c.Hostname())),
				attribute.String("http.user_agent", utils.CopyString(c.Get(fiber.HeaderUserAgent))),
				attribute.String("net.peer.ip", utils.CopyString(c.IP())),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)
		if span.SpanContext().HasTraceID() {
			c.Set("X-Trace-Id", span.SpanContext().TraceID().String())
		}

		err := c.Next()

		statusCode := c.Response().StatusCode()
		span.SetName(method + " " + c.Route().Path)
		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.status_code", statusCode),
		)
		if statusCode >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "Server Error")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		return err
	}
}
