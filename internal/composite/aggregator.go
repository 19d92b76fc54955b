package composite

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// Aggregator composes a product with its recommendations and reviews.
//
// The product is the root: any failure to read it fails the whole request.
// Recommendation and review failures are logged and replaced by an empty
// list.
type Aggregator struct {
	c    Collaborators
	opts Options
	log  *zap.Logger
}

// NewAggregator returns an Aggregator reading from the collaborators.
func NewAggregator(c Collaborators, opts Options) *Aggregator {
	return &Aggregator{c: c, opts: opts, log: opts.logger().With(zap.String("component", "aggregator"))}
}

// GetAggregate reads the three collaborators concurrently and assembles the
// aggregate. Errors are *apierr.Error.
func (a *Aggregator) GetAggregate(ctx context.Context, productID int) (agg model.ProductAggregate, err error) {
	ctx, span := tracer().Start(ctx, "composite.GetAggregate")
	span.SetAttributes(attribute.Int("product.id", productID))
	defer func() {
		a.opts.Metrics.AggregateRequest(outcome(err))
		endSpan(span, err)
	}()

	if productID < 1 {
		return model.ProductAggregate{}, apierr.NewInvalidInput("Invalid productId: %d", productID)
	}

	var (
		product *model.Product
		recs    []model.Recommendation
		revs    []model.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx, cancel := a.opts.callContext(gctx)
		defer cancel()
		p, err := a.c.Product.GetProduct(cctx, productID)
		if err != nil {
			return apierr.Classify(err)
		}
		if p == nil {
			return apierr.NewNotFound("No product found for productId: %d", productID)
		}
		product = p
		return nil
	})
	g.Go(func() error {
		cctx, cancel := a.opts.callContext(gctx)
		defer cancel()
		r, err := a.c.Recommendation.GetRecommendations(cctx, productID)
		if err != nil {
			a.degrade(gctx, NameRecommendation, productID, err)
			r = nil
		}
		recs = r
		return nil
	})
	g.Go(func() error {
		cctx, cancel := a.opts.callContext(gctx)
		defer cancel()
		r, err := a.c.Review.GetReviews(cctx, productID)
		if err != nil {
			a.degrade(gctx, NameReview, productID, err)
			r = nil
		}
		revs = r
		return nil
	})
	if err := g.Wait(); err != nil {
		e := apierr.Classify(err)
		if e.Kind == apierr.Unexpected {
			a.log.Error("product_lookup_failed", zap.Int("product_id", productID), zap.Error(err))
		}
		return model.ProductAggregate{}, e
	}

	if recs == nil {
		recs = []model.Recommendation{}
	}
	if revs == nil {
		revs = []model.Review{}
	}
	agg = model.ProductAggregate{
		ProductID:       product.ProductID,
		Name:            product.Name,
		Weight:          product.Weight,
		Recommendations: model.SummarizeRecommendations(recs),
		Reviews:         model.SummarizeReviews(revs),
		ServiceAddresses: &model.ServiceAddresses{
			Composite:      a.opts.CompositeAddress,
			Product:        product.ServiceAddress,
			Recommendation: firstAddress(recs, func(r model.Recommendation) string { return r.ServiceAddress }),
			Review:         firstAddress(revs, func(r model.Review) string { return r.ServiceAddress }),
		},
	}
	return agg, nil
}

// degrade records a sub-resource failure. Failures caused by the product
// branch cancelling the group are not reported.
func (a *Aggregator) degrade(gctx context.Context, collaborator string, productID int, err error) {
	if gctx.Err() != nil {
		return
	}
	a.opts.Metrics.DegradedLookup(collaborator)
	a.log.Warn("aggregate_degraded",
		zap.String("collaborator", collaborator),
		zap.Int("product_id", productID),
		zap.String("kind", apierr.KindOf(err).String()),
		zap.Error(err),
	)
}

func firstAddress[T any](items []T, addr func(T) string) string {
	if len(items) == 0 {
		return ""
	}
	return addr(items[0])
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apierr.KindOf(err).String()
}
