package composite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/product-composite-service/internal/client"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

type sent struct {
	channel string
	payload []byte
}

// recorder is an event.Publisher that keeps every accepted payload in order.
// failAt makes the n-th publish (1-based) fail.
type recorder struct {
	mu     sync.Mutex
	sent   []sent
	calls  int
	failAt int
}

var errTransport = errors.New("transport unavailable")

func (r *recorder) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failAt > 0 && r.calls == r.failAt {
		return errTransport
	}
	r.sent = append(r.sent, sent{channel: channel, payload: payload})
	return nil
}

func (r *recorder) on(channel string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.sent {
		if s.channel == channel {
			out = append(out, s)
		}
	}
	return out
}

type fakeProduct struct {
	client.Writer[model.Product]
	get    func(ctx context.Context, id int) (*model.Product, error)
	health func(ctx context.Context) error
	calls  int
	mu     sync.Mutex
}

func (f *fakeProduct) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.get(ctx, id)
}

func (f *fakeProduct) Health(ctx context.Context) error { return callHealth(ctx, f.health) }

type fakeRecommendations struct {
	client.Writer[model.Recommendation]
	get    func(ctx context.Context, id int) ([]model.Recommendation, error)
	health func(ctx context.Context) error
}

func (f *fakeRecommendations) GetRecommendations(ctx context.Context, id int) ([]model.Recommendation, error) {
	return f.get(ctx, id)
}

func (f *fakeRecommendations) Health(ctx context.Context) error { return callHealth(ctx, f.health) }

type fakeReviews struct {
	client.Writer[model.Review]
	get    func(ctx context.Context, id int) ([]model.Review, error)
	health func(ctx context.Context) error
}

func (f *fakeReviews) GetReviews(ctx context.Context, id int) ([]model.Review, error) {
	return f.get(ctx, id)
}

func (f *fakeReviews) Health(ctx context.Context) error { return callHealth(ctx, f.health) }

func callHealth(ctx context.Context, h func(context.Context) error) error {
	if h == nil {
		return nil
	}
	return h(ctx)
}

type fixture struct {
	pub     *recorder
	product *fakeProduct
	recs    *fakeRecommendations
	reviews *fakeReviews
	collabs Collaborators
}

// newFixture returns collaborators that know product 1 with two
// recommendations and three reviews.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub := &recorder{}
	f := &fixture{
		pub: pub,
		product: &fakeProduct{
			Writer: client.ProductWriter(pub),
			get: func(_ context.Context, id int) (*model.Product, error) {
				if id != 1 {
					return nil, nil
				}
				return &model.Product{ProductID: 1, Name: "name", Weight: 1.5, ServiceAddress: "product-host"}, nil
			},
		},
		recs: &fakeRecommendations{
			Writer: client.RecommendationWriter(pub),
			get: func(_ context.Context, id int) ([]model.Recommendation, error) {
				return []model.Recommendation{
					{ProductID: id, RecommendationID: 2, Author: "a2", Rate: 2, Content: "c2", ServiceAddress: "rec-host-a"},
					{ProductID: id, RecommendationID: 1, Author: "a1", Rate: 1, Content: "c1", ServiceAddress: "rec-host-b"},
				}, nil
			},
		},
		reviews: &fakeReviews{
			Writer: client.ReviewWriter(pub),
			get: func(_ context.Context, id int) ([]model.Review, error) {
				return []model.Review{
					{ProductID: id, ReviewID: 1, Author: "a", Subject: "s1", Content: "c", ServiceAddress: "rev-host"},
					{ProductID: id, ReviewID: 2, Author: "a", Subject: "s2", Content: "c", ServiceAddress: "rev-host"},
					{ProductID: id, ReviewID: 3, Author: "a", Subject: "s3", Content: "c", ServiceAddress: "rev-host"},
				}, nil
			},
		},
	}
	f.collabs = Collaborators{Product: f.product, Recommendation: f.recs, Review: f.reviews}
	return f
}

func decode[D any](t *testing.T, s sent) event.Envelope[int, D] {
	t.Helper()
	e, err := event.Decode[int, D](s.payload)
	require.NoError(t, err)
	return e
}
