package server

import (
	"time"

	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/observability/log"
)

// busObserver logs request deliveries. Registering it also turns on bus metrics.
type busObserver struct {
	logger log.Log
}

var _ bus.EventBusObserver = (*busObserver)(nil)

func newBusObserver(logger log.Log) *busObserver {
	return &busObserver{logger: logger.With(log.String("component", "bus"))}
}

func (o *busObserver) OnPublish(string, string, bus.Event) {}

func (o *busObserver) OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration) {
	if err != nil {
		o.logger.Warn("Request delivery failed",
			log.String("session", topic),
			log.String("request", eventType),
			log.Error(err))
		return
	}
	o.logger.Debug("Request delivered",
		log.String("session", topic),
		log.String("request", eventType),
		log.Int("handlers", handlers),
		log.Duration("duration", duration))
}
