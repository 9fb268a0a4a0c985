// internal/services/events.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/events"
)

// publishEvent runs after the write has committed, so a bus failure is logged
// and never undoes the operation.
func publishEvent(ctx context.Context, publisher events.Publisher, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"event_key":  event.Key,
		}).Error("Failed to publish event")
	}
}
