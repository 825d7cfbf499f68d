package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dapr "github.com/dapr/go-sdk/client"
	"go.opentelemetry.io/otel/attribute"

	"newsletter-go/internal/logging"
	"newsletter-go/internal/models"
)

const daprInsertSubscriptionSQL = `INSERT INTO subscriptions (id, email, name, subscribed_at) VALUES ($1, $2, $3, $4)`

// BindingInvoker is the part of dapr.Client the repository needs.
type BindingInvoker interface {
	InvokeBinding(ctx context.Context, in *dapr.InvokeBindingRequest) (*dapr.BindingEvent, error)
}

// DaprSubscriptionRepository inserts through a Dapr PostgreSQL output binding,
// so the sidecar owns the pool and the credentials.
type DaprSubscriptionRepository struct {
	client      BindingInvoker
	bindingName string
	logger      *logging.ContextLogger
	opts        options
}

func NewDaprSubscriptionRepository(client BindingInvoker, bindingName string, logger *logging.ContextLogger, opts ...Option) *DaprSubscriptionRepository {
	return &DaprSubscriptionRepository{
		client:      client,
		bindingName: bindingName,
		logger:      logger,
		opts:        newOptions(opts),
	}
}

func (r *DaprSubscriptionRepository) Insert(ctx context.Context, submission models.SubscriberSubmission) error {
	sub := models.NewSubscription(submission)

	ctx, span := startInsertSpan(ctx, r.opts.tracer(), sub,
		attribute.String("storage.backend", "dapr"),
		attribute.String("dapr.binding", r.bindingName),
	)
	defer span.End()

	params, err := json.Marshal([]any{
		sub.ID.String(),
		sub.Email,
		sub.Name,
		sub.SubscribedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return insertFailed(ctx, span, r.logger, sub, fmt.Errorf("failed to marshal binding params: %w", err))
	}

	_, err = r.client.InvokeBinding(ctx, &dapr.InvokeBindingRequest{
		Name:      r.bindingName,
		Operation: "exec",
		Metadata: map[string]string{
			"sql":    daprInsertSubscriptionSQL,
			"params": string(params),
		},
	})
	if err != nil {
		return insertFailed(ctx, span, r.logger, sub, fmt.Errorf("failed to invoke dapr binding %s: %w", r.bindingName, err))
	}

	span.SetAttributes(attribute.Bool("success", true))
	return nil
}
