package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// Writer publishes CREATE/DELETE envelopes for one domain channel. Envelopes
// are keyed by the owning productId.
type Writer[D any] struct {
	Publisher event.Publisher
	Channel   string
	KeyOf     func(D) int
}

// ProductWriter returns the writer for the products channel.
func ProductWriter(pub event.Publisher) Writer[model.Product] {
	return Writer[model.Product]{Publisher: pub, Channel: event.ChannelProducts, KeyOf: func(p model.Product) int { return p.ProductID }}
}

// RecommendationWriter returns the writer for the recommendations channel.
func RecommendationWriter(pub event.Publisher) Writer[model.Recommendation] {
	return Writer[model.Recommendation]{Publisher: pub, Channel: event.ChannelRecommendations, KeyOf: func(r model.Recommendation) int { return r.ProductID }}
}

// ReviewWriter returns the writer for the reviews channel.
func ReviewWriter(pub event.Publisher) Writer[model.Review] {
	return Writer[model.Review]{Publisher: pub, Channel: event.ChannelReviews, KeyOf: func(r model.Review) int { return r.ProductID }}
}

// PublishCreate emits one CREATE envelope carrying d.
func (w Writer[D]) PublishCreate(ctx context.Context, d D) error {
	return w.publish(ctx, event.NewCreate(w.KeyOf(d), d))
}

// PublishDelete emits one DELETE envelope for productID.
func (w Writer[D]) PublishDelete(ctx context.Context, productID int) error {
	return w.publish(ctx, event.NewDelete[int, D](productID))
}

func (w Writer[D]) publish(ctx context.Context, e event.Envelope[int, D]) error {
	if w.Publisher == nil {
		return errors.New("no publisher configured for channel " + w.Channel)
	}
	payload, err := event.Encode(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", w.Channel, err)
	}
	return w.Publisher.Publish(ctx, w.Channel, payload)
}
