package composite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// EventPublisher turns aggregate writes into domain events. It returns once
// the transport accepted the events and never waits for them to be applied.
type EventPublisher struct {
	c    Collaborators
	opts Options
	log  *zap.Logger
}

// NewEventPublisher returns an EventPublisher writing through the collaborators.
func NewEventPublisher(c Collaborators, opts Options) *EventPublisher {
	return &EventPublisher{c: c, opts: opts, log: opts.logger().With(zap.String("component", "publisher"))}
}

// PublishCreate emits the product CREATE, then one CREATE per recommendation,
// then one per review, all keyed by the aggregate's productId. The aggregate
// is validated before anything is emitted. A failed publish stops the
// sequence; events already handed over are not withdrawn.
func (p *EventPublisher) PublishCreate(ctx context.Context, agg model.ProductAggregate) (err error) {
	ctx, span := tracer().Start(ctx, "composite.PublishCreate")
	span.SetAttributes(attribute.Int("product.id", agg.ProductID))
	defer func() { endSpan(span, err) }()

	if err := validateCreate(agg); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	if err := p.c.Product.PublishCreate(ctx, agg.ProductEntity()); err != nil {
		return p.failed(event.ChannelProducts, agg.ProductID, err)
	}
	p.published(event.ChannelProducts, event.Create)
	for _, r := range agg.RecommendationEntities() {
		if err := p.c.Recommendation.PublishCreate(ctx, r); err != nil {
			return p.failed(event.ChannelRecommendations, agg.ProductID, err)
		}
		p.published(event.ChannelRecommendations, event.Create)
	}
	for _, r := range agg.ReviewEntities() {
		if err := p.c.Review.PublishCreate(ctx, r); err != nil {
			return p.failed(event.ChannelReviews, agg.ProductID, err)
		}
		p.published(event.ChannelReviews, event.Create)
	}
	p.log.Info("aggregate_create_published",
		zap.Int("product_id", agg.ProductID),
		zap.Int("recommendations", len(agg.Recommendations)),
		zap.Int("reviews", len(agg.Reviews)),
	)
	return nil
}

// PublishDelete emits one DELETE on each domain channel. The channels are
// written concurrently. Deleting an unknown productId is not an error.
func (p *EventPublisher) PublishDelete(ctx context.Context, productID int) (err error) {
	ctx, span := tracer().Start(ctx, "composite.PublishDelete")
	span.SetAttributes(attribute.Int("product.id", productID))
	defer func() { endSpan(span, err) }()

	ctx = context.WithoutCancel(ctx)

	deletes := []struct {
		channel string
		fn      func(context.Context, int) error
	}{
		{event.ChannelProducts, p.c.Product.PublishDelete},
		{event.ChannelRecommendations, p.c.Recommendation.PublishDelete},
		{event.ChannelReviews, p.c.Review.PublishDelete},
	}
	errs := make([]error, len(deletes))
	var wg sync.WaitGroup
	for i, d := range deletes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.fn(ctx, productID); err != nil {
				errs[i] = p.failed(d.channel, productID, err)
				return
			}
			p.published(d.channel, event.Delete)
		}()
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.log.Info("aggregate_delete_published", zap.Int("product_id", productID))
	return nil
}

func (p *EventPublisher) published(channel string, t event.Type) {
	p.opts.Metrics.EventPublished(channel, string(t))
}

func (p *EventPublisher) failed(channel string, productID int, err error) error {
	p.log.Error("event_publish_failed", zap.String("channel", channel), zap.Int("product_id", productID), zap.Error(err))
	return fmt.Errorf("publish to %s: %w", channel, err)
}

func validateCreate(agg model.ProductAggregate) error {
	if agg.ProductID < 1 {
		return apierr.NewInvalidInput("Invalid productId: %d", agg.ProductID)
	}
	seen := make(map[int]struct{}, len(agg.Recommendations))
	for _, r := range agg.Recommendations {
		if r.RecommendationID < 1 {
			return apierr.NewInvalidInput("Invalid recommendationId: %d", r.RecommendationID)
		}
		if _, dup := seen[r.RecommendationID]; dup {
			return apierr.NewInvalidInput("Duplicate recommendationId: %d", r.RecommendationID)
		}
		seen[r.RecommendationID] = struct{}{}
	}
	seen = make(map[int]struct{}, len(agg.Reviews))
	for _, r := range agg.Reviews {
		if r.ReviewID < 1 {
			return apierr.NewInvalidInput("Invalid reviewId: %d", r.ReviewID)
		}
		if _, dup := seen[r.ReviewID]; dup {
			return apierr.NewInvalidInput("Duplicate reviewId: %d", r.ReviewID)
		}
		seen[r.ReviewID] = struct{}{}
	}
	return nil
}
