package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

type published struct {
	channel string
	payload []byte
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *capturePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{channel: channel, payload: payload})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func collaborator(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /product/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "1":
			writeJSON(w, http.StatusOK, model.Product{ProductID: 1, Name: "name", Weight: 1, ServiceAddress: "product-1"})
		case "2":
			writeJSON(w, http.StatusNotFound, model.NewHTTPErrorInfo(http.StatusNotFound, r.URL.Path, "No product found for productId: 2"))
		case "3":
			writeJSON(w, http.StatusUnprocessableEntity, model.NewHTTPErrorInfo(http.StatusUnprocessableEntity, r.URL.Path, "INVALID: 3"))
		case "4":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		case "5":
			time.Sleep(200 * time.Millisecond)
			writeJSON(w, http.StatusOK, model.Product{ProductID: 5})
		default:
			writeJSON(w, http.StatusOK, nil)
		}
	})
	mux.HandleFunc("GET /recommendation", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("productId") {
		case "1":
			writeJSON(w, http.StatusOK, []model.Recommendation{{ProductID: 1, RecommendationID: 1, Author: "author", Rate: 1, Content: "content", ServiceAddress: "rec-1"}})
		case "2":
			writeJSON(w, http.StatusNotFound, model.NewHTTPErrorInfo(http.StatusNotFound, r.URL.Path, "none"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /review", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("GET /actuator/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProductClientGet(t *testing.T) {
	srv := collaborator(t)
	c := NewProductClient(Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	ctx := context.Background()

	p, err := c.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.Product{ProductID: 1, Name: "name", Weight: 1, ServiceAddress: "product-1"}, *p)

	_, err = c.GetProduct(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
	assert.Equal(t, "No product found for productId: 2", apierr.Classify(err).Error())

	_, err = c.GetProduct(ctx, 3)
	assert.Equal(t, apierr.InvalidInput, apierr.KindOf(err))
	assert.Equal(t, "INVALID: 3", apierr.Classify(err).Error())

	_, err = c.GetProduct(ctx, 4)
	assert.Equal(t, apierr.Unexpected, apierr.KindOf(err))
	assert.Contains(t, apierr.Classify(err).Error(), "502 Bad Gateway from GET")

	p, err = c.GetProduct(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductClientHonoursContext(t *testing.T) {
	srv := collaborator(t)
	c := NewProductClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetProduct(ctx, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollectionClients(t *testing.T) {
	srv := collaborator(t)
	ctx := context.Background()
	rc := NewRecommendationClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})

	recs, err := rc.GetRecommendations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rec-1", recs[0].ServiceAddress)

	recs, err = rc.GetRecommendations(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = rc.GetRecommendations(ctx, 3)
	assert.Error(t, err)

	vc := NewReviewClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	revs, err := vc.GetReviews(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, revs)
	assert.Empty(t, revs)

	assert.NoError(t, rc.Health(ctx))
	assert.NoError(t, vc.Health(ctx))
}

func TestHealthUnreachable(t *testing.T) {
	srv := collaborator(t)
	url := srv.URL
	srv.Close()
	c := NewProductClient(Config{BaseURL: url})
	assert.Error(t, c.Health(context.Background()))
}

func TestWritersPublishKeyedEnvelopes(t *testing.T) {
	pub := &capturePublisher{}
	ctx := context.Background()
	pc := NewProductClient(Config{BaseURL: "http://unused", Publisher: pub})
	rc := NewRecommendationClient(Config{BaseURL: "http://unused", Publisher: pub})

	rec := model.Recommendation{ProductID: 7, RecommendationID: 70, Author: "a"}
	require.NoError(t, pc.PublishCreate(ctx, model.Product{ProductID: 7, Name: "n"}))
	require.NoError(t, rc.PublishCreate(ctx, rec))
	require.NoError(t, rc.PublishDelete(ctx, 7))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, event.ChannelProducts, pub.msgs[0].channel)
	assert.Equal(t, event.ChannelRecommendations, pub.msgs[1].channel)

	got, err := event.Decode[int, model.Recommendation](pub.msgs[1].payload)
	require.NoError(t, err)
	assert.True(t, event.SameExceptCreatedAt(event.NewCreate(7, rec), got))

	del, err := event.Decode[int, model.Recommendation](pub.msgs[2].payload)
	require.NoError(t, err)
	assert.Equal(t, event.Delete, del.EventType)
	assert.Equal(t, 7, del.Key)
	assert.Nil(t, del.Data)
}

func TestWriterWithoutPublisher(t *testing.T) {
	c := NewReviewClient(Config{BaseURL: "http://unused"})
	assert.Error(t, c.PublishDelete(context.Background(), 1))
}
