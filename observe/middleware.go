package observe

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request identifier, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// HTTPMiddleware wraps HTTP handlers with tracing, metrics, and access logging.
//
// Contract:
//   - Concurrency: Wrap returns a handler safe for concurrent use.
//   - Context: the span and request ID are attached to the request context.
//   - Errors: the wrapped handler's response is passed through unchanged.
type HTTPMiddleware struct {
	tracer   trace.Tracer
	logger   Logger
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// NewHTTPMiddleware creates an HTTPMiddleware from an Observer or any other
// Telemetry source.
func NewHTTPMiddleware(obs Telemetry) (*HTTPMiddleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	meter := obs.Meter()
	duration, err := meter.Float64Histogram(
		"http.server.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests by method and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMiddleware{
		tracer:   obs.Tracer(),
		logger:   obs.Logger(),
		duration: duration,
		requests: requests,
	}, nil
}

// Wrap instruments next.
func (m *HTTPMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := WithRequestID(r.Context(), id)
		ctx, span := m.tracer.Start(ctx, "http.server.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("request.id", id),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}

		opt := metric.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.Int("http.response.status_code", rec.status),
		)
		m.requests.Add(ctx, 1, opt)
		m.duration.Record(ctx, float64(elapsed.Milliseconds()), opt)

		fields := []Field{
			{Key: "method", Value: r.Method},
			{Key: "path", Value: r.URL.Path},
			{Key: "status", Value: rec.status},
			{Key: "duration_ms", Value: float64(elapsed.Milliseconds())},
		}
		if rec.status >= http.StatusInternalServerError {
			m.logger.Error(ctx, "request failed", fields...)
		} else {
			m.logger.Info(ctx, "request completed", fields...)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
