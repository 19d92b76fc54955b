package domain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/obs"
)

// Bus is a transport the embedded services both publish to and consume from.
type Bus interface {
	event.Publisher
	event.Subscriber
}

// Embedded bundles the three in-process services.
type Embedded struct {
	Products        *ProductService
	Recommendations *RecommendationService
	Reviews         *ReviewService
}

// NewEmbedded builds the services on bus. host prefixes each service address.
// metrics may be nil.
func NewEmbedded(bus Bus, host string, log *zap.Logger, metrics *obs.Collector) *Embedded {
	opts := func(name string) Options {
		return Options{Publisher: bus, ServiceAddress: fmt.Sprintf("%s/%s", host, name), Logger: log, Metrics: metrics}
	}
	return &Embedded{
		Products:        NewProductService(opts("product")),
		Recommendations: NewRecommendationService(opts("recommendation")),
		Reviews:         NewReviewService(opts("review")),
	}
}

// Register subscribes every service to its channel until ctx is done.
func (e *Embedded) Register(ctx context.Context, sub event.Subscriber) error {
	if err := e.Products.Register(ctx, sub); err != nil {
		return fmt.Errorf("register products: %w", err)
	}
	if err := e.Recommendations.Register(ctx, sub); err != nil {
		return fmt.Errorf("register recommendations: %w", err)
	}
	if err := e.Reviews.Register(ctx, sub); err != nil {
		return fmt.Errorf("register reviews: %w", err)
	}
	return nil
}
