// Package main boots the Product Composite Service HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/client"
	"github.com/fairyhunter13/product-composite-service/internal/composite"
	"github.com/fairyhunter13/product-composite-service/internal/config"
	"github.com/fairyhunter13/product-composite-service/internal/domain"
	"github.com/fairyhunter13/product-composite-service/internal/event"
	httpapi "github.com/fairyhunter13/product-composite-service/internal/http"
	"github.com/fairyhunter13/product-composite-service/internal/obs"
	"github.com/fairyhunter13/product-composite-service/internal/queue"
	"github.com/fairyhunter13/product-composite-service/internal/redisbus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := obs.NewLogger(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("service_starting", zap.String("mode", cfg.Mode), zap.String("composite_address", cfg.CompositeAddress))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := obs.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Warn("otel_tracing_disabled", zap.Error(err))
	}

	metrics := obs.NewCollector()

	var (
		collabs composite.Collaborators
		broker  *queue.Broker
		bus     *redisbus.Bus
	)
	switch cfg.Mode {
	case config.ModeRemote:
		bus, err = redisbus.New(ctx, redisbus.Options{Addr: cfg.RedisAddr, ChannelPrefix: cfg.RedisChannelPrefix}, log)
		if err != nil {
			log.Fatal("redis_connect_failed", zap.Error(err))
		}
		hc := client.NewHTTPClient()
		collabs = composite.Collaborators{
			Product:        client.NewProductClient(client.Config{BaseURL: cfg.ProductServiceURL, HTTPClient: hc, Publisher: bus, Logger: log}),
			Recommendation: client.NewRecommendationClient(client.Config{BaseURL: cfg.RecommendationServiceURL, HTTPClient: hc, Publisher: bus, Logger: log}),
			Review:         client.NewReviewClient(client.Config{BaseURL: cfg.ReviewServiceURL, HTTPClient: hc, Publisher: bus, Logger: log}),
		}
	default:
		broker = queue.NewBroker(queue.Config{OutBuffer: cfg.QueueBuffer, HighWatermark: cfg.QueueHighWatermark}, log, event.Channels()...)
		broker.Start(ctx)
		emb := domain.NewEmbedded(broker, cfg.CompositeAddress, log, metrics)
		if err := emb.Register(ctx, broker); err != nil {
			log.Fatal("embedded_register_failed", zap.Error(err))
		}
		collabs = composite.Collaborators{Product: emb.Products, Recommendation: emb.Recommendations, Review: emb.Reviews}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics,
	)

	opts := composite.Options{
		CompositeAddress: cfg.CompositeAddress,
		CallTimeout:      cfg.CallTimeout,
		Logger:           log,
		Metrics:          metrics,
	}
	app := httpapi.NewApp(log,
		composite.NewAggregator(collabs, opts),
		composite.NewEventPublisher(collabs, opts),
		composite.NewHealthProbe(collabs, opts),
	)
	if broker != nil {
		app.Queue = broker
	}
	if bus != nil {
		app.Ready = bus.Ping
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app, reg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http_server_error", zap.Error(err))
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	log.Info("shutdown_signal", zap.String("signal", s.String()))

	app.StartShutdown()
	if broker != nil {
		broker.CloseIntake()
		log.Info("shutdown_drain_begin", zap.Int("backlog_size", broker.BacklogSize()))
		ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if drained := broker.DrainUntil(ctxDrain); !drained {
			log.Warn("shutdown_drain_timeout")
		} else {
			log.Info("shutdown_drain_complete")
		}
		cancelDrain()
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		log.Error("http_shutdown_error", zap.Error(err))
	}
	cancel()
	if broker != nil {
		broker.Stop()
	}
	if bus != nil {
		if err := bus.Close(); err != nil {
			log.Warn("redis_close_error", zap.Error(err))
		}
	}
	if err := shutdownTracing(ctxSrv); err != nil {
		log.Warn("otel_shutdown_error", zap.Error(err))
	}
	log.Info("service_stopped")
}
