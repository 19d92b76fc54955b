// Package composite implements the product aggregate read path, the event
// write path and the collaborator health probe.
package composite

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/client"
	"github.com/fairyhunter13/product-composite-service/internal/obs"
)

const tracerName = "github.com/fairyhunter13/product-composite-service/internal/composite"

// Collaborator names used in logs, metrics and the health map.
const (
	NameProduct        = "product"
	NameRecommendation = "recommendation"
	NameReview         = "review"
)

// Collaborators holds one handle per backend domain.
type Collaborators struct {
	Product        client.ProductClient
	Recommendation client.RecommendationClient
	Review         client.ReviewClient
}

// Options are shared by the composite components.
type Options struct {
	// CompositeAddress is reported in ServiceAddresses.Composite.
	CompositeAddress string
	// CallTimeout bounds each collaborator call. Zero means no extra bound.
	CallTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *obs.Collector
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.CallTimeout)
}

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
