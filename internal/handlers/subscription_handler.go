package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"newsletter-go/internal/logging"
	"newsletter-go/internal/metrics"
	"newsletter-go/internal/repository"
)

type SubscriptionHandler struct {
	repo    repository.SubscriptionRepository
	logger  *logging.ContextLogger
	metrics *metrics.Metrics
	tp      trace.TracerProvider
}

// NewSubscriptionHandler wires the shared repository into the handler. m may
// be nil, and a nil tp means the global provider is looked up per request.
func NewSubscriptionHandler(repo repository.SubscriptionRepository, logger *logging.ContextLogger, m *metrics.Metrics, tp trace.TracerProvider) *SubscriptionHandler {
	return &SubscriptionHandler{
		repo:    repo,
		logger:  logger,
		metrics: m,
		tp:      tp,
	}
}

func (h *SubscriptionHandler) tracer() trace.Tracer {
	if h.tp == nil {
		return otel.Tracer("subscription-handler")
	}
	return h.tp.Tracer("subscription-handler")
}

// Health never touches storage.
func (h *SubscriptionHandler) Health(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Subscribe expects DecodeSubscription to have run first.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	submission, ok := submissionFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ctx, span := h.tracer().Start(c.Request.Context(), "subscriptions.handler.subscribe",
		trace.WithAttributes(
			attribute.String("subscriber.email", submission.Email),
			attribute.String("subscriber.name", submission.Name),
		))
	defer span.End()

	fields := logrus.Fields{
		"subscriber_email": submission.Email,
		"subscriber_name":  submission.Name,
		"endpoint":         "POST /subscriptions",
	}

	h.logger.InfoWithTracing(ctx, "Adding a new subscriber", fields)

	if err := h.repo.Insert(ctx, submission); err != nil {
		h.logger.ErrorWithTracing(ctx, "Failed to store subscriber", err, fields)
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscription not stored")
		h.metrics.ObserveSubscription(metrics.ResultFailed)
		c.Status(http.StatusInternalServerError)
		return
	}

	h.logger.InfoWithTracing(ctx, "New subscriber details have been saved", fields)
	span.SetAttributes(attribute.Bool("success", true))
	h.metrics.ObserveSubscription(metrics.ResultStored)

	c.Status(http.StatusOK)
}
