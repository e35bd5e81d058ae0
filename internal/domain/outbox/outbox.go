package outbox

import "context"

// Event is a domain event routed by name.
type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Bus publishes events and routes them to subscribed handlers.
type Bus interface {
	Publisher
	Subscriber
}

// Typed adapts a handler written against one concrete event type.
// Events of any other type are skipped without error.
func Typed[E Event](h func(ctx context.Context, e E) error) Handler {
	return func(ctx context.Context, e Event) error {
		typed, ok := e.(E)
		if !ok {
			return nil
		}
		return h(ctx, typed)
	}
}
