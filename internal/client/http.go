package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

const maxBodyBytes = 1 << 20

// Config configures an HTTP collaborator client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Publisher  event.Publisher
	Logger     *zap.Logger
}

// NewHTTPClient returns an http.Client whose transport records client spans.
// Timeouts come from the per-call context.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

type rest struct {
	base string
	hc   *http.Client
	log  *zap.Logger
}

func newRest(cfg Config) rest {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = NewHTTPClient()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return rest{base: strings.TrimRight(cfg.BaseURL, "/"), hc: hc, log: log}
}

// get issues a GET and decodes a 2xx body into out. Non-2xx answers become
// *apierr.StatusError carrying the body.
func (r rest) get(ctx context.Context, u string, out any) error {
	r.log.Debug("collaborator_call", zap.String("url", u))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.log.Debug("collaborator_error_status", zap.String("url", u), zap.Int("status", resp.StatusCode))
		return &apierr.StatusError{Status: resp.StatusCode, Method: http.MethodGet, URL: u, Body: body}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

func (r rest) health(ctx context.Context) error {
	return r.get(ctx, r.base+"/actuator/health", nil)
}

func (r rest) listURL(path string, productID int) string {
	q := url.Values{}
	q.Set("productId", strconv.Itoa(productID))
	return r.base + path + "?" + q.Encode()
}

// ProductHTTPClient reads from the product service over REST.
type ProductHTTPClient struct {
	rest
	Writer[model.Product]
}

// NewProductClient returns a product client for the service at cfg.BaseURL.
func NewProductClient(cfg Config) *ProductHTTPClient {
	return &ProductHTTPClient{rest: newRest(cfg), Writer: ProductWriter(cfg.Publisher)}
}

// GetProduct calls GET {base}/product/{id}.
func (c *ProductHTTPClient) GetProduct(ctx context.Context, productID int) (*model.Product, error) {
	var p *model.Product
	if err := c.get(ctx, c.base+"/product/"+strconv.Itoa(productID), &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *ProductHTTPClient) Health(ctx context.Context) error { return c.health(ctx) }

// RecommendationHTTPClient reads from the recommendation service over REST.
type RecommendationHTTPClient struct {
	rest
	Writer[model.Recommendation]
}

// NewRecommendationClient returns a recommendation client for the service at cfg.BaseURL.
func NewRecommendationClient(cfg Config) *RecommendationHTTPClient {
	return &RecommendationHTTPClient{rest: newRest(cfg), Writer: RecommendationWriter(cfg.Publisher)}
}

// GetRecommendations calls GET {base}/recommendation?productId={id}. A 404
// is an empty result.
func (c *RecommendationHTTPClient) GetRecommendations(ctx context.Context, productID int) ([]model.Recommendation, error) {
	var out []model.Recommendation
	if err := c.get(ctx, c.listURL("/recommendation", productID), &out); err != nil {
		if apierr.IsNotFound(err) {
			return []model.Recommendation{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = []model.Recommendation{}
	}
	return out, nil
}

func (c *RecommendationHTTPClient) Health(ctx context.Context) error { return c.health(ctx) }

// ReviewHTTPClient reads from the review service over REST.
type ReviewHTTPClient struct {
	rest
	Writer[model.Review]
}

// NewReviewClient returns a review client for the service at cfg.BaseURL.
func NewReviewClient(cfg Config) *ReviewHTTPClient {
	return &ReviewHTTPClient{rest: newRest(cfg), Writer: ReviewWriter(cfg.Publisher)}
}

// GetReviews calls GET {base}/review?productId={id}. A 404 is an empty result.
func (c *ReviewHTTPClient) GetReviews(ctx context.Context, productID int) ([]model.Review, error) {
	var out []model.Review
	if err := c.get(ctx, c.listURL("/review", productID), &out); err != nil {
		if apierr.IsNotFound(err) {
			return []model.Review{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = []model.Review{}
	}
	return out, nil
}

func (c *ReviewHTTPClient) Health(ctx context.Context) error { return c.health(ctx) }

var (
	_ ProductClient        = (*ProductHTTPClient)(nil)
	_ RecommendationClient = (*RecommendationHTTPClient)(nil)
	_ ReviewClient         = (*ReviewHTTPClient)(nil)
)
