package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"newsletter-go/internal/logging"
	"newsletter-go/internal/models"
)

const submissionKey = "subscriber_submission"

// subscribeForm uses pointer fields so that "required" means present,
// not non-empty: name= decodes to an empty string and passes.
type subscribeForm struct {
	Name  *string `form:"name" binding:"required"`
	Email *string `form:"email" binding:"required"`
}

// DecodeSubscription parses the url-encoded body of POST /subscriptions.
// Requests with a missing field or a malformed body are answered with 400
// here and never reach the handler.
func DecodeSubscription(logger *logging.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form subscribeForm
		if err := c.ShouldBindWith(&form, binding.Form); err != nil {
			logger.DebugWithTracing(c.Request.Context(), "Rejected subscription form", logrus.Fields{
				"endpoint": "POST /subscriptions",
				"error":    err.Error(),
			})
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		c.Set(submissionKey, models.SubscriberSubmission{
			Name:  *form.Name,
			Email: *form.Email,
		})
		c.Next()
	}
}

func submissionFrom(c *gin.Context) (models.SubscriberSubmission, bool) {
	v, ok := c.Get(submissionKey)
	if !ok {
		return models.SubscriberSubmission{}, false
	}
	submission, ok := v.(models.SubscriberSubmission)
	return submission, ok
}
