package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"newsletter-go/internal/logging"
	"newsletter-go/internal/models"
)

const (
	insertSpanName = "subscriptions.repository.insert"
	tracerName     = "subscription-repository"
)

// SubscriptionRepository persists subscriber submissions. Implementations
// append exactly one row per successful Insert and never retry.
type SubscriptionRepository interface {
	Insert(ctx context.Context, submission models.SubscriberSubmission) error
}

// Option configures a repository backend.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
}

// WithTracerProvider pins the provider insert spans are reported to. Without
// it the global provider is looked up on every Insert.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) tracer() trace.Tracer {
	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName)
}

// startInsertSpan opens the span every Insert implementation reports under.
func startInsertSpan(ctx context.Context, tracer trace.Tracer, sub *models.Subscription, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("subscriber.id", sub.ID.String()),
		attribute.String("subscriber.email", sub.Email),
		attribute.String("subscriber.name", sub.Name),
		attribute.String("operation", "database.write"),
	}, attrs...)

	return tracer.Start(ctx, insertSpanName, trace.WithAttributes(attrs...))
}

// insertFailed records err on the span, logs it and wraps it with
// models.ErrSubscriptionNotStored.
func insertFailed(ctx context.Context, span trace.Span, logger *logging.ContextLogger, sub *models.Subscription, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "insert failed")

	logger.ErrorWithTracing(ctx, "Failed to execute insert", err, logrus.Fields{
		"subscription_id":  sub.ID.String(),
		"subscriber_email": sub.Email,
		"subscriber_name":  sub.Name,
	})

	return fmt.Errorf("%w: subscription %s: %w", models.ErrSubscriptionNotStored, sub.ID, err)
}

type InMemorySubscriptionRepository struct {
	mu            sync.RWMutex
	subscriptions []models.Subscription
	logger        *logging.ContextLogger
	opts          options
}

func NewInMemorySubscriptionRepository(logger *logging.ContextLogger, opts ...Option) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subscriptions: make([]models.Subscription, 0),
		logger:        logger,
		opts:          newOptions(opts),
	}
}

func (r *InMemorySubscriptionRepository) Insert(ctx context.Context, submission models.SubscriberSubmission) error {
	sub := models.NewSubscription(submission)

	ctx, span := startInsertSpan(ctx, r.opts.tracer(), sub, attribute.String("storage.backend", "memory"))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return insertFailed(ctx, span, r.logger, sub, err)
	}

	r.mu.Lock()
	r.subscriptions = append(r.subscriptions, *sub)
	r.mu.Unlock()

	span.SetAttributes(attribute.Bool("success", true))
	return nil
}

// List returns a copy of the stored rows in insertion order.
func (r *InMemorySubscriptionRepository) List() []models.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Subscription, len(r.subscriptions))
	copy(result, r.subscriptions)
	return result
}
