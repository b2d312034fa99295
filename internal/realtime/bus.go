// internal/realtime/bus.go
package realtime

import "context"

// Publisher pushes an event to every current subscriber of its topic.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber opens a subscription to one topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Bus is both ends of the realtime channel.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription is a scoped handle on a topic. Events is closed once the subscription
// ends, either because Close was called, the subscribing context was cancelled, or the
// transport failed. In the last case Err returns the cause; otherwise it returns nil.
//
// Delivery may repeat an event, so consumers deduplicate on row id.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Err() error
	Close() error
}
