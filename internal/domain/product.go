package domain

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/client"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
	"github.com/fairyhunter13/product-composite-service/internal/obs"
	"github.com/fairyhunter13/product-composite-service/internal/store"
)

// Options are shared by the embedded services.
type Options struct {
	// Publisher carries writes to the domain channels.
	Publisher event.Publisher
	// ServiceAddress is stamped on every entity returned by a read.
	ServiceAddress string
	Logger         *zap.Logger
	// Metrics counts rejected envelopes. May be nil.
	Metrics *obs.Collector
}

func (o Options) logger(name string) *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger.With(zap.String("service", name))
}

// ProductService owns the product store.
type ProductService struct {
	client.Writer[model.Product]
	liveness

	store   *store.Products
	address string
	log     *zap.Logger
	metrics *obs.Collector
}

// NewProductService returns a ProductService with an empty store.
func NewProductService(opts Options) *ProductService {
	return &ProductService{
		Writer:  client.ProductWriter(opts.Publisher),
		store:   store.NewProducts(),
		address: opts.ServiceAddress,
		log:     opts.logger("product"),
		metrics: opts.Metrics,
	}
}

// GetProduct returns the stored product stamped with the service address.
func (s *ProductService) GetProduct(ctx context.Context, productID int) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if productID < 1 {
		return nil, apierr.NewInvalidInput("Invalid productId: %d", productID)
	}
	p, ok := s.store.Get(productID)
	if !ok {
		return nil, apierr.NewNotFound("No product found for productId: %d", productID)
	}
	p.ServiceAddress = s.address
	return &p, nil
}

// ProcessMessage applies one envelope read from the products channel.
func (s *ProductService) ProcessMessage(ctx context.Context, payload []byte) error {
	e, err := event.Decode[int, model.Product](payload)
	if err != nil {
		s.log.Warn("event_rejected", zap.Error(err))
		s.metrics.EventRejected(event.ChannelProducts)
		return err
	}
	s.log.Debug("event_received", zap.String("event_id", e.ID), zap.String("event_type", string(e.EventType)), zap.Time("created_at", e.CreatedAt))
	err = event.Dispatch(ctx, e, event.Handler[int, model.Product]{
		OnCreate: func(_ context.Context, _ int, p model.Product) error { return s.create(p) },
		OnDelete: func(_ context.Context, productID int) error { s.delete(productID); return nil },
	})
	if err != nil {
		s.metrics.EventRejected(event.ChannelProducts)
	}
	return err
}

func (s *ProductService) create(p model.Product) error {
	if p.ProductID < 1 {
		return apierr.NewInvalidInput("Invalid productId: %d", p.ProductID)
	}
	p.ServiceAddress = ""
	if err := s.store.Insert(p); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return apierr.NewInvalidInput("Duplicate key, Product ID: %d", p.ProductID)
		}
		return err
	}
	s.log.Info("product_created", zap.Int("product_id", p.ProductID))
	return nil
}

func (s *ProductService) delete(productID int) {
	existed := s.store.Delete(productID)
	s.log.Info("product_deleted", zap.Int("product_id", productID), zap.Bool("existed", existed))
}

// Register subscribes the service to the products channel until ctx is done.
func (s *ProductService) Register(ctx context.Context, sub event.Subscriber) error {
	return sub.Subscribe(ctx, event.ChannelProducts, s.ProcessMessage)
}

var _ client.ProductClient = (*ProductService)(nil)
