// Package client defines the collaborator handles used by the composite core
// and their HTTP implementations.
package client

import (
	"context"

	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// ProductClient reads products, publishes product events and probes the
// product domain.
type ProductClient interface {
	// GetProduct returns nil, nil when the collaborator answers with no entity.
	GetProduct(ctx context.Context, productID int) (*model.Product, error)
	PublishCreate(ctx context.Context, p model.Product) error
	PublishDelete(ctx context.Context, productID int) error
	Health(ctx context.Context) error
}

// RecommendationClient is the recommendation domain counterpart of ProductClient.
type RecommendationClient interface {
	GetRecommendations(ctx context.Context, productID int) ([]model.Recommendation, error)
	PublishCreate(ctx context.Context, r model.Recommendation) error
	PublishDelete(ctx context.Context, productID int) error
	Health(ctx context.Context) error
}

// ReviewClient is the review domain counterpart of ProductClient.
type ReviewClient interface {
	GetReviews(ctx context.Context, productID int) ([]model.Review, error)
	PublishCreate(ctx context.Context, r model.Review) error
	PublishDelete(ctx context.Context, productID int) error
	Health(ctx context.Context) error
}
