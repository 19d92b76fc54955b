package event

import "context"

// Publisher hands a serialized envelope to a named channel. Returning nil
// means the transport accepted the message, not that a consumer applied it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// MessageHandler consumes one payload from a channel.
type MessageHandler func(ctx context.Context, payload []byte) error

// Subscriber registers a consumption loop for a channel.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, h MessageHandler) error
}
