package composite

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Health statuses.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Health is the liveness of one collaborator.
type Health struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// CompositeHealth maps collaborator name to its liveness.
type CompositeHealth map[string]Health

// Up reports whether every collaborator is up.
func (h CompositeHealth) Up() bool {
	for _, v := range h {
		if v.Status != StatusUp {
			return false
		}
	}
	return true
}

// HealthProbe asks every collaborator for liveness.
type HealthProbe struct {
	c    Collaborators
	opts Options
	log  *zap.Logger
}

// NewHealthProbe returns a HealthProbe over the collaborators.
func NewHealthProbe(c Collaborators, opts Options) *HealthProbe {
	return &HealthProbe{c: c, opts: opts, log: opts.logger().With(zap.String("component", "health"))}
}

// CheckHealth probes the three collaborators concurrently and waits for all
// of them. Failures are folded into DOWN entries.
func (p *HealthProbe) CheckHealth(ctx context.Context) CompositeHealth {
	ctx, span := tracer().Start(ctx, "composite.CheckHealth")
	defer span.End()

	probes := map[string]func(context.Context) error{
		NameProduct:        p.c.Product.Health,
		NameRecommendation: p.c.Recommendation.Health,
		NameReview:         p.c.Review.Health,
	}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(CompositeHealth, len(probes))
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := p.probe(ctx, name, probe)
			mu.Lock()
			out[name] = h
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (p *HealthProbe) probe(ctx context.Context, name string, probe func(context.Context) error) (h Health) {
	cctx, cancel := p.opts.callContext(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("health_probe_panic", zap.String("collaborator", name), zap.Any("panic", r))
			h = Health{Status: StatusDown, Error: "probe panicked"}
		}
		p.opts.Metrics.CollaboratorUp(name, h.Status == StatusUp)
	}()
	if err := probe(cctx); err != nil {
		p.log.Warn("collaborator_down", zap.String("collaborator", name), zap.Error(err))
		return Health{Status: StatusDown, Error: err.Error()}
	}
	return Health{Status: StatusUp}
}
