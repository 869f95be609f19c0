package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/photo-orders/internal/domains/orders/adapters/observability/service"

// Service decorates the orders application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// CreateOrder runs the intake saga with instrumentation.
func (s *Service) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateOrder",
		attribute.String("order.package", input.Package),
		attribute.Int("order.files", len(input.Files)),
	)
	defer span.End()

	s.logInfo(ctx, "creating order", slog.String("package", input.Package), slog.Int("files", len(input.Files)))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order", slog.String("package", input.Package))
	}
	if result != nil && result.Order != nil {
		span.SetAttributes(attribute.String("order.id", result.Order.ID))
		s.metrics.recordCreated(ctx, result.Order.Package)
		s.logInfo(ctx, "order created",
			slog.String("order.id", result.Order.ID),
			slog.String("status", string(result.Order.PaymentStatus)),
			slog.Int("media", len(result.Order.MediaRefs)),
		)
	}
	return result, nil
}

// ResumeUploads re-runs the upload fan-out for an existing reservation.
func (s *Service) ResumeUploads(ctx context.Context, input ordertypes.ResumeUploadsInput) (*ordertypes.OrderResult, error) {
	ctx, span := s.startSpan(ctx, "Service.ResumeUploads",
		attribute.String("order.id", input.OrderID),
		attribute.Int("order.files", len(input.Files)),
	)
	defer span.End()

	s.logInfo(ctx, "resuming uploads", slog.String("order.id", input.OrderID), slog.Int("files", len(input.Files)))
	result, err := s.inner.ResumeUploads(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to resume uploads", slog.String("order.id", input.OrderID))
	}
	if result != nil && result.Order != nil {
		s.logInfo(ctx, "uploads resumed", slog.String("order.id", result.Order.ID), slog.Int("media", len(result.Order.MediaRefs)))
	}
	return result, nil
}

// RecreateSession requests a fresh payment session for an existing order.
func (s *Service) RecreateSession(ctx context.Context, orderID string) (*ordertypes.OrderResult, error) {
	ctx, span := s.startSpan(ctx, "Service.RecreateSession", attribute.String("order.id", orderID))
	defer span.End()

	s.logInfo(ctx, "recreating payment session", slog.String("order.id", orderID))
	result, err := s.inner.RecreateSession(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to recreate payment session", slog.String("order.id", orderID))
	}
	s.metrics.recordSessionCreated(ctx)
	s.logInfo(ctx, "payment session recreated", slog.String("order.id", orderID))
	return result, nil
}

// GetByID loads a single order.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.GetByID", attribute.String("order.id", id))
	defer span.End()

	result, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id))
	}
	return result, nil
}

// List exposes all orders for the admin listing.
func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.List")
	defer span.End()

	result, err := s.inner.List(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

// Cancel moves an open reservation to Failed.
func (s *Service) Cancel(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "Service.Cancel", attribute.String("order.id", id))
	defer span.End()

	s.logInfo(ctx, "cancelling order", slog.String("order.id", id))
	if err := s.inner.Cancel(ctx, id); err != nil {
		return s.handleError(ctx, span, err, "failed to cancel order", slog.String("order.id", id))
	}
	s.metrics.recordCancelled(ctx)
	s.logInfo(ctx, "order cancelled", slog.String("order.id", id))
	return nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersCreated   metric.Int64Counter
	ordersCancelled metric.Int64Counter
	sessionsCreated metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("orders.service.created", metric.WithDescription("Number of orders created"))
	ordersCancelled, _ := m.Int64Counter("orders.service.cancelled", metric.WithDescription("Number of orders cancelled"))
	sessionsCreated, _ := m.Int64Counter("orders.service.sessions_recreated", metric.WithDescription("Number of payment sessions recreated"))
	return serviceMetrics{
		ordersCreated:   ordersCreated,
		ordersCancelled: ordersCancelled,
		sessionsCreated: sessionsCreated,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, pkg domain.Package) {
	addCounter(ctx, m.ordersCreated, 1, attribute.String("order.package", string(pkg)))
}

func (m serviceMetrics) recordCancelled(ctx context.Context) {
	addCounter(ctx, m.ordersCancelled, 1)
}

func (m serviceMetrics) recordSessionCreated(ctx context.Context) {
	addCounter(ctx, m.sessionsCreated, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}
