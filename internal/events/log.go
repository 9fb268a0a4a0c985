package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.WithFields(logrus.Fields{
		"event_type": event.Type,
		"event_key":  event.Key,
	}).Info("Domain event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
