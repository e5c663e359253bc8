package observe

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type testObserver struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger
}

func (o *testObserver) Tracer() trace.Tracer               { return o.tracer }
func (o *testObserver) Meter() metric.Meter                { return o.meter }
func (o *testObserver) Logger() Logger                     { return o.logger }
func (o *testObserver) Shutdown(ctx context.Context) error { return nil }

type middlewareFixture struct {
	mw     *HTTPMiddleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newMiddlewareFixture(t *testing.T) middlewareFixture {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	logs := &bytes.Buffer{}

	mw, err := NewHTTPMiddleware(&testObserver{
		tracer: tp.Tracer("test"),
		meter:  mp.Meter("test"),
		logger: NewLoggerWithWriter("info", logs),
	})
	if err != nil {
		t.Fatalf("NewHTTPMiddleware() error: %v", err)
	}
	return middlewareFixture{mw: mw, spans: spans, reader: reader, logs: logs}
}

func TestHTTPMiddleware_SuccessPath(t *testing.T) {
	f := newMiddlewareFixture(t)

	var seenID string
	h := f.mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		if !trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("handler context should carry the request span")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/me", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("response request ID %q is not a UUID", id)
	}
	if seenID != id {
		t.Errorf("context request ID = %q, header = %q", seenID, id)
	}

	spans := f.spans.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "http.server.request" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", spans[0].SpanKind())
	}

	entries := decodeLines(t, f.logs)
	if len(entries) != 1 || entries[0]["msg"] != "request completed" {
		t.Fatalf("unexpected access log: %v", entries)
	}
	if entries[0]["status"] != float64(http.StatusNoContent) {
		t.Errorf("logged status = %v", entries[0]["status"])
	}
	if entries[0]["request_id"] != id {
		t.Errorf("logged request_id = %v, want %s", entries[0]["request_id"], id)
	}
}

func TestHTTPMiddleware_ServerErrorMarksSpan(t *testing.T) {
	f := newMiddlewareFixture(t)

	h := f.mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	s := f.spans.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", s.Status().Code)
	}
	entries := decodeLines(t, f.logs)
	if entries[0]["level"] != "error" {
		t.Errorf("level = %v, want error", entries[0]["level"])
	}
}

func TestHTTPMiddleware_KeepsInboundRequestID(t *testing.T) {
	f := newMiddlewareFixture(t)
	inbound := uuid.NewString()

	h := f.mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != inbound {
		t.Errorf("request ID = %q, want %q", got, inbound)
	}
}

func TestHTTPMiddleware_ReplacesForeignRequestID(t *testing.T) {
	f := newMiddlewareFixture(t)

	h := f.mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, `"><script>`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("expected a generated UUID, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestHTTPMiddleware_RecordsDuration(t *testing.T) {
	f := newMiddlewareFixture(t)

	h := f.mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	var rm metricdata.ResourceMetrics
	if err := f.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	found := findMetric(rm, "http.server.duration_ms")
	if found == nil {
		t.Fatal("http.server.duration_ms not found")
	}
	h2, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(h2.DataPoints) != 1 || h2.DataPoints[0].Count != 3 {
		t.Errorf("unexpected histogram points: %+v", h2.DataPoints)
	}
}

func TestNewHTTPMiddleware_NilObserver(t *testing.T) {
	if _, err := NewHTTPMiddleware(nil); err != ErrNilObserver {
		t.Fatalf("err = %v, want ErrNilObserver", err)
	}
}
