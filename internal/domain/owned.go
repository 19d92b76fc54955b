package domain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/client"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
	"github.com/fairyhunter13/product-composite-service/internal/obs"
	"github.com/fairyhunter13/product-composite-service/internal/store"
)

// owned is the shared body of the services whose entities belong to a product.
type owned[T any] struct {
	client.Writer[T]
	liveness

	kind    string
	channel string
	store   *store.Owned[T]
	keys    func(T) (productID, id int)
	stamp   func(*T, string)
	address string
	log     *zap.Logger
	metrics *obs.Collector
}

func (s *owned[T]) list(ctx context.Context, productID int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if productID < 1 {
		return nil, apierr.NewInvalidInput("Invalid productId: %d", productID)
	}
	out := s.store.ListByProduct(productID)
	for i := range out {
		s.stamp(&out[i], s.address)
	}
	s.log.Debug("list_response", zap.Int("product_id", productID), zap.Int("size", len(out)))
	return out, nil
}

// ProcessMessage applies one envelope read from the service's channel.
func (s *owned[T]) ProcessMessage(ctx context.Context, payload []byte) error {
	e, err := event.Decode[int, T](payload)
	if err != nil {
		s.log.Warn("event_rejected", zap.Error(err))
		s.metrics.EventRejected(s.channel)
		return err
	}
	s.log.Debug("event_received", zap.String("event_id", e.ID), zap.String("event_type", string(e.EventType)), zap.Time("created_at", e.CreatedAt))
	err = event.Dispatch(ctx, e, event.Handler[int, T]{
		OnCreate: func(_ context.Context, _ int, v T) error { return s.create(v) },
		OnDelete: func(_ context.Context, productID int) error { s.delete(productID); return nil },
	})
	if err != nil {
		s.metrics.EventRejected(s.channel)
	}
	return err
}

func (s *owned[T]) create(v T) error {
	pid, id := s.keys(v)
	if pid < 1 {
		return apierr.NewInvalidInput("Invalid productId: %d", pid)
	}
	s.stamp(&v, "")
	if err := s.store.Insert(v); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return apierr.NewInvalidInput("Duplicate key, Product Id: %d, %s Id: %d", pid, s.kind, id)
		}
		return fmt.Errorf("insert %s: %w", s.channel, err)
	}
	s.log.Info("entity_created", zap.Int("product_id", pid), zap.Int("id", id))
	return nil
}

func (s *owned[T]) delete(productID int) {
	n := s.store.DeleteByProduct(productID)
	s.log.Info("entities_deleted", zap.Int("product_id", productID), zap.Int("count", n))
}

// Register subscribes the service to its channel until ctx is done.
func (s *owned[T]) Register(ctx context.Context, sub event.Subscriber) error {
	return sub.Subscribe(ctx, s.channel, s.ProcessMessage)
}

// RecommendationService owns the recommendation store.
type RecommendationService struct {
	owned[model.Recommendation]
}

// NewRecommendationService returns a RecommendationService with an empty store.
func NewRecommendationService(opts Options) *RecommendationService {
	return &RecommendationService{owned[model.Recommendation]{
		Writer:  client.RecommendationWriter(opts.Publisher),
		kind:    "Recommendation",
		channel: event.ChannelRecommendations,
		store:   store.NewRecommendations(),
		keys:    func(r model.Recommendation) (int, int) { return r.ProductID, r.RecommendationID },
		stamp:   func(r *model.Recommendation, addr string) { r.ServiceAddress = addr },
		address: opts.ServiceAddress,
		log:     opts.logger("recommendation"),
		metrics: opts.Metrics,
	}}
}

// GetRecommendations returns the product's recommendations in insertion order.
func (s *RecommendationService) GetRecommendations(ctx context.Context, productID int) ([]model.Recommendation, error) {
	return s.list(ctx, productID)
}

// ReviewService owns the review store.
type ReviewService struct {
	owned[model.Review]
}

// NewReviewService returns a ReviewService with an empty store.
func NewReviewService(opts Options) *ReviewService {
	return &ReviewService{owned[model.Review]{
		Writer:  client.ReviewWriter(opts.Publisher),
		kind:    "Review",
		channel: event.ChannelReviews,
		store:   store.NewReviews(),
		keys:    func(r model.Review) (int, int) { return r.ProductID, r.ReviewID },
		stamp:   func(r *model.Review, addr string) { r.ServiceAddress = addr },
		address: opts.ServiceAddress,
		log:     opts.logger("review"),
		metrics: opts.Metrics,
	}}
}

// GetReviews returns the product's reviews in insertion order.
func (s *ReviewService) GetReviews(ctx context.Context, productID int) ([]model.Review, error) {
	return s.list(ctx, productID)
}

var (
	_ client.RecommendationClient = (*RecommendationService)(nil)
	_ client.ReviewClient         = (*ReviewService)(nil)
)
