package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSubscriptionNotStored wraps every storage failure returned by a repository.
var ErrSubscriptionNotStored = errors.New("subscription not stored")

// SubscriberSubmission is the decoded body of POST /subscriptions.
type SubscriberSubmission struct {
	Name  string
	Email string
}

// Subscription is one row of the subscriptions table.
type Subscription struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	SubscribedAt time.Time `json:"subscribed_at" db:"subscribed_at"`
}

// NewSubscription assigns a fresh v4 id and the current UTC time.
func NewSubscription(submission SubscriberSubmission) *Subscription {
	return &Subscription{
		ID:           uuid.New(),
		Email:        submission.Email,
		Name:         submission.Name,
		SubscribedAt: time.Now().UTC(),
	}
}
