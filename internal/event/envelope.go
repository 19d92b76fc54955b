// Package event defines the CREATE/DELETE envelopes published to the
// per-domain channels and the transport contract they travel over.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Type tags an envelope as CREATE or DELETE.
type Type string

const (
	Create Type = "CREATE"
	Delete Type = "DELETE"
)

// Channel names, one per collaborator domain.
const (
	ChannelProducts        = "products"
	ChannelRecommendations = "recommendations"
	ChannelReviews         = "reviews"
)

// Channels lists every domain channel in publication order.
func Channels() []string {
	return []string{ChannelProducts, ChannelRecommendations, ChannelReviews}
}

// ErrEventProcessing marks an envelope that cannot be applied. It is never
// silently dropped by consumers.
var ErrEventProcessing = errors.New("event processing")

// Envelope wraps a domain notification keyed by the owning entity id.
// Data is set for CREATE and nil for DELETE.
type Envelope[K comparable, D any] struct {
	ID        string    `json:"id"`
	EventType Type      `json:"eventType"`
	Key       K         `json:"key"`
	Data      *D        `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCreate builds a CREATE envelope for data keyed by key.
func NewCreate[K comparable, D any](key K, data D) Envelope[K, D] {
	return Envelope[K, D]{
		ID:        uuid.NewString(),
		EventType: Create,
		Key:       key,
		Data:      &data,
		CreatedAt: time.Now().UTC(),
	}
}

// NewDelete builds a DELETE envelope for key.
func NewDelete[K comparable, D any](key K) Envelope[K, D] {
	return Envelope[K, D]{
		ID:        uuid.NewString(),
		EventType: Delete,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks that the tag is known and the payload matches it.
func (e Envelope[K, D]) Validate() error {
	switch e.EventType {
	case Create:
		if e.Data == nil {
			return fmt.Errorf("%w: CREATE event for key %v has no data", ErrEventProcessing, e.Key)
		}
	case Delete:
		if e.Data != nil {
			return fmt.Errorf("%w: DELETE event for key %v carries data", ErrEventProcessing, e.Key)
		}
	default:
		return incorrectType(e.EventType)
	}
	return nil
}

func (e Envelope[K, D]) String() string {
	return fmt.Sprintf("Envelope{type=%s, key=%v, createdAt=%s}", e.EventType, e.Key, e.CreatedAt.Format(time.RFC3339Nano))
}

func incorrectType(t Type) error {
	return fmt.Errorf("%w: Incorrect event type: %s, expected a CREATE or DELETE event", ErrEventProcessing, t)
}

// Encode serializes an envelope for the wire.
func Encode[K comparable, D any](e Envelope[K, D]) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire payload into a typed envelope.
func Decode[K comparable, D any](payload []byte) (Envelope[K, D], error) {
	var e Envelope[K, D]
	if err := json.Unmarshal(payload, &e); err != nil {
		return e, fmt.Errorf("%w: decode envelope: %v", ErrEventProcessing, err)
	}
	return e, nil
}

// SameExceptCreatedAt compares type, key and data, ignoring the
// auto-assigned id and timestamp.
func SameExceptCreatedAt[K comparable, D any](a, b Envelope[K, D]) bool {
	if a.EventType != b.EventType || a.Key != b.Key {
		return false
	}
	if a.Data == nil || b.Data == nil {
		return a.Data == nil && b.Data == nil
	}
	return reflect.DeepEqual(*a.Data, *b.Data)
}
