package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "product_composite"

// Collector is a prometheus.Collector for the aggregation and publication
// paths. A nil *Collector is valid and records nothing.
type Collector struct {
	aggregateRequests *prometheus.CounterVec
	degradedLookups   *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	eventsRejected    *prometheus.CounterVec
	collaboratorUp    *prometheus.GaugeVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		aggregateRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "aggregate_requests_total",
				Help:      "Aggregate reads by outcome.",
			}, []string{"outcome"},
		),
		degradedLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "degraded_lookups_total",
				Help:      "Sub-resource lookups replaced by an empty result after a failure.",
			}, []string{"collaborator"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_published_total",
				Help:      "Envelopes handed to the channel transport.",
			}, []string{"channel", "type"},
		),
		eventsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_rejected_total",
				Help:      "Envelopes a consumer could not decode or apply.",
			}, []string{"channel"},
		),
		collaboratorUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "collaborator_up",
				Help:      "Last observed liveness of each collaborator (1 up, 0 down).",
			}, []string{"collaborator"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.aggregateRequests.Describe(ch)
	c.degradedLookups.Describe(ch)
	c.eventsPublished.Describe(ch)
	c.eventsRejected.Describe(ch)
	c.collaboratorUp.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.aggregateRequests.Collect(ch)
	c.degradedLookups.Collect(ch)
	c.eventsPublished.Collect(ch)
	c.eventsRejected.Collect(ch)
	c.collaboratorUp.Collect(ch)
}

// AggregateRequest counts one aggregate read.
func (c *Collector) AggregateRequest(outcome string) {
	if c == nil {
		return
	}
	c.aggregateRequests.WithLabelValues(outcome).Inc()
}

// DegradedLookup counts a sub-resource replaced by an empty result.
func (c *Collector) DegradedLookup(collaborator string) {
	if c == nil {
		return
	}
	c.degradedLookups.WithLabelValues(collaborator).Inc()
}

// EventPublished counts one envelope accepted by the transport.
func (c *Collector) EventPublished(channel, eventType string) {
	if c == nil {
		return
	}
	c.eventsPublished.WithLabelValues(channel, eventType).Inc()
}

// EventRejected counts one envelope refused by a channel consumer.
func (c *Collector) EventRejected(channel string) {
	if c == nil {
		return
	}
	c.eventsRejected.WithLabelValues(channel).Inc()
}

// CollaboratorUp records a liveness observation.
func (c *Collector) CollaboratorUp(collaborator string, up bool) {
	if c == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	c.collaboratorUp.WithLabelValues(collaborator).Set(v)
}
