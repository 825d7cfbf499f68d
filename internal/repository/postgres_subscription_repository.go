package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"newsletter-go/internal/logging"
	"newsletter-go/internal/models"
)

const insertSubscriptionSQL = `INSERT INTO subscriptions (id, email, name, subscribed_at) VALUES (:id, :email, :name, :subscribed_at)`

// PostgresSubscriptionRepository writes to the subscriptions table through the
// shared pool. The pool pointer is shared by every request; nothing here
// copies or re-opens it.
type PostgresSubscriptionRepository struct {
	db     sqlx.ExtContext
	logger *logging.ContextLogger
	opts   options
}

func NewPostgresSubscriptionRepository(db sqlx.ExtContext, logger *logging.ContextLogger, opts ...Option) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:     db,
		logger: logger,
		opts:   newOptions(opts),
	}
}

func (r *PostgresSubscriptionRepository) Insert(ctx context.Context, submission models.SubscriberSubmission) error {
	sub := models.NewSubscription(submission)

	ctx, span := startInsertSpan(ctx, r.opts.tracer(), sub,
		attribute.String("storage.backend", "postgres"),
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "subscriptions"),
	)
	defer span.End()

	if _, err := sqlx.NamedExecContext(ctx, r.db, insertSubscriptionSQL, sub); err != nil {
		return insertFailed(ctx, span, r.logger, sub, err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return nil
}
