package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/composite"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	httpopenapi "github.com/fairyhunter13/product-composite-service/internal/http/openapi"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// Aggregates reads composed products.
type Aggregates interface {
	GetAggregate(ctx context.Context, productID int) (model.ProductAggregate, error)
}

// Publisher propagates aggregate writes.
type Publisher interface {
	PublishCreate(ctx context.Context, agg model.ProductAggregate) error
	PublishDelete(ctx context.Context, productID int) error
}

// Prober reports collaborator liveness.
type Prober interface {
	CheckHealth(ctx context.Context) composite.CompositeHealth
}

// QueueStats exposes the in-memory broker counters. Only set in embedded mode.
type QueueStats interface {
	QueueMetrics() (enq, proc uint64, backlog, depth int)
	LastSequence() uint64
	ChannelMetrics(channel string) (enq, proc uint64, backlog, depth int, ok bool)
	IsShuttingDown() bool
}

type App struct {
	Log        *zap.Logger
	Aggregates Aggregates
	Publisher  Publisher
	Health     Prober
	Queue      QueueStats
	// Ready reports whether the event transport is reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	closing atomic.Bool
	started time.Time
}

type ack struct {
	Status     string `json:"status"`
	RequestID  string `json:"request_id"`
	ProductID  int    `json:"product_id"`
	ReceivedAt string `json:"received_at"`
}

type healthResponse struct {
	Status     string                    `json:"status"`
	Components composite.CompositeHealth `json:"components"`
}

// NewApp returns an App serving the given aggregate reader, publisher and health checker.
func NewApp(log *zap.Logger, agg Aggregates, pub Publisher, health Prober) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{Log: log, Aggregates: agg, Publisher: pub, Health: health, started: time.Now()}
}

// StartShutdown makes write endpoints answer 503.
func (a *App) StartShutdown() {
	a.closing.Store(true)
}

func (a *App) shuttingDown() bool {
	return a.closing.Load() || (a.Queue != nil && a.Queue.IsShuttingDown())
}

func (a *App) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		WriteJSONError(w, r, http.StatusUnprocessableEntity, "Invalid productId: "+raw)
		return 0, false
	}
	return id, true
}

func (a *App) getAggregateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	agg, err := a.Aggregates.GetAggregate(r.Context(), id)
	if err != nil {
		WriteError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (a *App) postAggregateHandler(w http.ResponseWriter, r *http.Request) {
	if a.shuttingDown() {
		WriteJSONError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, r, http.StatusUnsupportedMediaType, "expected application/json")
		return
	}
	var agg model.ProductAggregate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&agg); err != nil {
		WriteError(w, r, a.Log, apierr.NewInvalidInput("Invalid request body: %v", err))
		return
	}
	if err := a.Publisher.PublishCreate(r.Context(), agg); err != nil {
		WriteError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ack{
		Status:     "accepted",
		RequestID:  RequestIDFromContext(r.Context()),
		ProductID:  agg.ProductID,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) deleteAggregateHandler(w http.ResponseWriter, r *http.Request) {
	if a.shuttingDown() {
		WriteJSONError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Publisher.PublishDelete(r.Context(), id); err != nil {
		WriteError(w, r, a.Log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *App) healthzHandler(w http.ResponseWriter, r *http.Request) {
	if a.Ready != nil {
		if err := a.Ready(r.Context()); err != nil {
			a.Log.Warn("transport_not_ready", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	h := a.Health.CheckHealth(r.Context())
	resp := healthResponse{Status: composite.StatusUp, Components: h}
	status := http.StatusOK
	if !h.Up() {
		resp.Status = composite.StatusDown
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (a *App) debugMetricsHandler(w http.ResponseWriter, r *http.Request) {
	m := map[string]any{
		"uptime_sec": time.Since(a.started).Seconds(),
		"closing":    a.shuttingDown(),
	}
	if a.Queue != nil {
		enq, proc, backlog, depth := a.Queue.QueueMetrics()
		m["events_enqueued"] = enq
		m["events_processed"] = proc
		m["backlog_size"] = backlog
		m["queue_depth"] = depth
		m["last_sequence"] = a.Queue.LastSequence()
		channels := map[string]any{}
		for _, ch := range event.Channels() {
			enq, proc, backlog, depth, ok := a.Queue.ChannelMetrics(ch)
			if !ok {
				continue
			}
			channels[ch] = map[string]any{
				"events_enqueued":  enq,
				"events_processed": proc,
				"backlog_size":     backlog,
				"queue_depth":      depth,
			}
		}
		m["channels"] = channels
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Product Composite API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}
