package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus. The shot controllers
// publish their scene requests on it and gateways subscribe per session topic.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type().
// - Topics isolate sessions; the default topic is "".
// - Synchronous delivery: Publish runs handlers in the caller goroutine, in
//   subscription order, so a batch reaches every handler in publish order.
// - Handler errors are joined and returned from Publish/PublishBatch.
// - Metrics are produced only when observers are registered.
type EventBus interface {
	// Publish delivers the event to all subscribers of event.Type() in the default topic.
	Publish(event Event) error
	// Subscribe registers a handler for an event type in the default topic.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. A nil subscription is ignored.
	Unsubscribe(Subscription) error

	// CreateTopic declares a topic. Repeat declarations are idempotent.
	CreateTopic(name string) error
	// RemoveTopic drops a topic and cancels every subscription in it.
	RemoveTopic(name string) error
	// SubscribeTopic registers a handler for eventType within a topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// PublishToTopic publishes to a specific topic.
	PublishToTopic(topic string, event Event) error
	// PublishBatch publishes events to a topic in order and aggregates errors.
	PublishBatch(topic string, events ...Event) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics returns a snapshot; counters only move while observers are registered.
	GetMetrics() EventBusMetrics
	GetTopics() []TopicInfo
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type (
	// EventHandler is invoked per delivered event. Returned errors are aggregated.
	EventHandler func(event Event) error
)

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}
