package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/client"
	"github.com/fairyhunter13/product-composite-service/internal/composite"
	"github.com/fairyhunter13/product-composite-service/internal/domain"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	httpapi "github.com/fairyhunter13/product-composite-service/internal/http"
	"github.com/fairyhunter13/product-composite-service/internal/model"
	"github.com/fairyhunter13/product-composite-service/internal/queue"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	e := apierr.Classify(err)
	status := e.Kind.HTTPStatus()
	writeJSON(w, status, model.NewHTTPErrorInfo(status, r.URL.Path, e.Error()))
}

func productIDParam(r *http.Request) int {
	id, _ := strconv.Atoi(r.URL.Query().Get("productId"))
	return id
}

// serveDomain exposes the embedded services with the REST contract the
// remote collaborator clients speak.
func serveDomain(t *testing.T, emb *domain.Embedded) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /product/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeErr(w, r, apierr.NewInvalidInput("Invalid productId: %s", r.PathValue("id")))
			return
		}
		p, err := emb.Products.GetProduct(r.Context(), id)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("GET /recommendation", func(w http.ResponseWriter, r *http.Request) {
		recs, err := emb.Recommendations.GetRecommendations(r.Context(), productIDParam(r))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})
	mux.HandleFunc("GET /review", func(w http.ResponseWriter, r *http.Request) {
		revs, err := emb.Reviews.GetReviews(r.Context(), productIDParam(r))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, revs)
	})
	mux.HandleFunc("GET /actuator/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newBroker(t *testing.T) (*queue.Broker, context.Context) {
	t.Helper()
	broker := queue.NewBroker(queue.Config{OutBuffer: 32, HighWatermark: 1000}, nil, event.Channels()...)
	ctx, cancel := context.WithCancel(context.Background())
	broker.Start(ctx)
	t.Cleanup(func() { cancel(); broker.Stop() })
	return broker, ctx
}

func drain(t *testing.T, b *queue.Broker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if ok := b.DrainUntil(ctx); !ok {
		t.Fatalf("drain timeout")
	}
}

func newComposite(collabs composite.Collaborators) http.Handler {
	opts := composite.Options{CompositeAddress: "composite", CallTimeout: time.Second}
	app := httpapi.NewApp(nil,
		composite.NewAggregator(collabs, opts),
		composite.NewEventPublisher(collabs, opts),
		composite.NewHealthProbe(collabs, opts),
	)
	return httpapi.NewRouter(app, nil)
}

func post(t *testing.T, h http.Handler, body string) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/aggregate", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

const aggregateBody = `{"productId":%d,"name":"p","weight":2,
 "recommendations":[{"recommendationId":1,"author":"a","rate":1,"content":"c"}],
 "reviews":[{"reviewId":1,"author":"a","subject":"s","content":"c"},{"reviewId":2,"author":"b","subject":"t","content":"d"}]}`

func body(id int) string { return fmt.Sprintf(aggregateBody, id) }

func TestIntegration_EmbeddedPostThenGet(t *testing.T) {
	broker, ctx := newBroker(t)
	emb := domain.NewEmbedded(broker, "local", nil, nil)
	if err := emb.Register(ctx, broker); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := newComposite(composite.Collaborators{Product: emb.Products, Recommendation: emb.Recommendations, Review: emb.Reviews})

	for i := 1; i <= 10; i++ {
		post(t, h, body(i))
	}
	drain(t, broker)
	for i := 1; i <= 10; i++ {
		w := get(t, h, "/aggregate/"+strconv.Itoa(i))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var agg model.ProductAggregate
		if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if agg.ProductID != i || len(agg.Recommendations) != 1 || len(agg.Reviews) != 2 {
			t.Fatalf("unexpected aggregate: %+v", agg)
		}
	}
}

func TestIntegration_RemoteRoundTrip(t *testing.T) {
	broker, ctx := newBroker(t)
	emb := domain.NewEmbedded(broker, "remote", nil, nil)
	if err := emb.Register(ctx, broker); err != nil {
		t.Fatalf("register: %v", err)
	}
	srv := serveDomain(t, emb)
	cfg := client.Config{BaseURL: srv.URL, HTTPClient: srv.Client(), Publisher: broker}
	h := newComposite(composite.Collaborators{
		Product:        client.NewProductClient(cfg),
		Recommendation: client.NewRecommendationClient(cfg),
		Review:         client.NewReviewClient(cfg),
	})

	post(t, h, body(1))
	drain(t, broker)

	w := get(t, h, "/aggregate/1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var agg model.ProductAggregate
	if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agg.ServiceAddresses.Review != "remote/review" || agg.ServiceAddresses.Recommendation != "remote/recommendation" {
		t.Fatalf("unexpected addresses: %+v", agg.ServiceAddresses)
	}

	// A duplicate create is rejected by the consumer, not by the composite.
	post(t, h, body(1))
	drain(t, broker)

	dr := httptest.NewRecorder()
	h.ServeHTTP(dr, httptest.NewRequest(http.MethodDelete, "/aggregate/1", nil))
	if dr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", dr.Code)
	}
	drain(t, broker)

	w = get(t, h, "/aggregate/1")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var info model.HTTPErrorInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Message != "No product found for productId: 1" {
		t.Fatalf("unexpected message: %q", info.Message)
	}

	if w := get(t, h, "/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIntegration_RemoteCollaboratorDown(t *testing.T) {
	broker, ctx := newBroker(t)
	emb := domain.NewEmbedded(broker, "remote", nil, nil)
	if err := emb.Register(ctx, broker); err != nil {
		t.Fatalf("register: %v", err)
	}
	srv := serveDomain(t, emb)
	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	h := newComposite(composite.Collaborators{
		Product:        client.NewProductClient(client.Config{BaseURL: srv.URL, Publisher: broker}),
		Recommendation: client.NewRecommendationClient(client.Config{BaseURL: downURL, Publisher: broker}),
		Review:         client.NewReviewClient(client.Config{BaseURL: srv.URL, Publisher: broker}),
	})
	post(t, h, body(3))
	drain(t, broker)

	w := get(t, h, "/aggregate/3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var agg model.ProductAggregate
	if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agg.Recommendations == nil || len(agg.Recommendations) != 0 || len(agg.Reviews) != 2 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}

	if w := get(t, h, "/health"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

// Runs against a deployed service when BASE_URL is set.
func TestIntegration_ExternalDeployment(t *testing.T) {
	base := os.Getenv("BASE_URL")
	if base == "" {
		t.Skip("BASE_URL not set")
	}
	hc := &http.Client{Timeout: 5 * time.Second}
	for _, path := range []string{"/healthz", "/openapi.yaml", "/docs"} {
		resp, err := hc.Get(base + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
	resp, err := hc.Get(base + "/aggregate/0")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
