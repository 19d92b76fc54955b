package event

import "context"

// Handler applies each envelope variant. Both callbacks are required.
type Handler[K comparable, D any] struct {
	OnCreate func(ctx context.Context, key K, data D) error
	OnDelete func(ctx context.Context, key K) error
}

// Dispatch matches the envelope tag exhaustively. Unknown tags and malformed
// payloads return ErrEventProcessing.
func Dispatch[K comparable, D any](ctx context.Context, e Envelope[K, D], h Handler[K, D]) error {
	if err := e.Validate(); err != nil {
		return err
	}
	switch e.EventType {
	case Create:
		return h.OnCreate(ctx, e.Key, *e.Data)
	case Delete:
		return h.OnDelete(ctx, e.Key)
	default:
		return incorrectType(e.EventType)
	}
}
