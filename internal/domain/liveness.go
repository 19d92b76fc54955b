// Package domain hosts in-process product, recommendation and review
// services. They back the composite in embedded mode: reads go straight to
// the in-memory store, writes arrive as envelopes on the domain channels.
package domain

import (
	"context"
	"sync"
)

// liveness lets tests and operators mark a service as down.
type liveness struct {
	mu  sync.RWMutex
	err error
}

// SetDown makes Health report err until SetUp is called.
func (l *liveness) SetDown(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// SetUp clears a previous SetDown.
func (l *liveness) SetUp() { l.SetDown(nil) }

// Health reports nil while the service is up.
func (l *liveness) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}
