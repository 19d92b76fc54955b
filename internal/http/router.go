package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
// Prometheus metrics from gatherer are served on /metrics.
func NewRouter(app *App, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /aggregate/{id}", app.getAggregateHandler)
	mux.HandleFunc("POST /aggregate", app.postAggregateHandler)
	mux.HandleFunc("DELETE /aggregate/{id}", app.deleteAggregateHandler)
	mux.HandleFunc("GET /healthz", app.healthzHandler)
	mux.HandleFunc("GET /health", app.healthHandler)
	mux.HandleFunc("GET /debug/metrics", app.debugMetricsHandler)
	mux.HandleFunc("GET /openapi.yaml", app.openapiHandler)
	mux.HandleFunc("GET /docs", app.docsHandler)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	h := WithRequestID(WithLogging(app.Log, mux))
	return otelhttp.NewHandler(h, "product-composite",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
