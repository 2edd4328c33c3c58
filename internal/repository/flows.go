package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/connectorzzz/advisor-api/internal/flow"
)

// FlowRepo keeps screen-flow sessions in memory. Nothing survives a restart
// on purpose: a flow is per-visit state, the browser-tab analog.
type FlowRepo struct {
	mu    sync.RWMutex
	flows map[uuid.UUID]*flow.Flow
	ttl   time.Duration
}

func NewFlowRepo(ttl time.Duration) *FlowRepo {
	r := &FlowRepo{
		flows: make(map[uuid.UUID]*flow.Flow),
		ttl:   ttl,
	}

	// Evict abandoned flows; they hold CV bytes in memory.
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			r.evictExpired()
		}
	}()

	return r
}

// Create registers a fresh flow at the input screen.
func (r *FlowRepo) Create() *flow.Flow {
	f := flow.New()

	r.mu.Lock()
	r.flows[f.ID()] = f
	r.mu.Unlock()

	return f
}

// Find returns the flow or nil if it never existed or was evicted.
func (r *FlowRepo) Find(id uuid.UUID) *flow.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flows[id]
}

// Delete removes a flow outright.
func (r *FlowRepo) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.flows, id)
	r.mu.Unlock()
}

func (r *FlowRepo) evictExpired() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.flows {
		if f.LastActive().Before(cutoff) {
			delete(r.flows, id)
		}
	}
}
