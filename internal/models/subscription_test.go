package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSubscription(t *testing.T) {
	before := time.Now().UTC()
	sub := NewSubscription(SubscriberSubmission{Name: "ursula", Email: "ursula_le_guin@gmail.com"})
	after := time.Now().UTC()

	assert.Equal(t, "ursula", sub.Name)
	assert.Equal(t, "ursula_le_guin@gmail.com", sub.Email)
	assert.Equal(t, uint8(4), uint8(sub.ID.Version()))
	assert.Equal(t, time.UTC, sub.SubscribedAt.Location())
	assert.False(t, sub.SubscribedAt.Before(before))
	assert.False(t, sub.SubscribedAt.After(after))
}

func TestNewSubscriptionIDsAreUnique(t *testing.T) {
	submission := SubscriberSubmission{Name: "ursula", Email: "ursula@example.com"}

	assert.NotEqual(t, NewSubscription(submission).ID, NewSubscription(submission).ID)
}
