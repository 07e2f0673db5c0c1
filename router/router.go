// Package router dispatches arriving observations to the per-object
// State machine responsible for them, resolving each object's vessel
// type and mobility Config along the way.
package router

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotblauer/aistraj/conceptual"
	"github.com/rotblauer/aistraj/params"
	"github.com/rotblauer/aistraj/sink"
	"github.com/rotblauer/aistraj/state"
	"github.com/rotblauer/aistraj/types/observation"
)

// VesselTypeResolver looks up the vessel type for an object id. A nil
// Table resolves every object to params.DefaultVesselType, matching a
// run with no vessel info file.
type VesselTypeResolver interface {
	TypeOf(oid conceptual.ObjectID) string
}

// Router owns one State per object seen so far and the Sink every State
// reports its evictions to.
type Router struct {
	configs  map[string]*params.Config
	vessels  VesselTypeResolver
	sinkOut  *sink.Sink
	states   map[conceptual.ObjectID]*state.State
	resolved *lru.Cache[conceptual.ObjectID, *params.Config]
}

// New returns a Router. cacheSize bounds the number of object-id ->
// Config resolutions retained at once; a resolution that falls out of
// the cache is simply recomputed on next use, so cacheSize only trades
// memory for vesselinfo lookups, never correctness.
func New(configs map[string]*params.Config, vessels VesselTypeResolver, s *sink.Sink, cacheSize int) (*Router, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[conceptual.ObjectID, *params.Config](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Router{
		configs:  configs,
		vessels:  vessels,
		sinkOut:  s,
		states:   make(map[conceptual.ObjectID]*state.State),
		resolved: cache,
	}, nil
}

func (r *Router) resolveConfig(oid conceptual.ObjectID) *params.Config {
	if cfg, ok := r.resolved.Get(oid); ok {
		return cfg
	}
	vesselType := params.DefaultVesselType
	if r.vessels != nil {
		vesselType = r.vessels.TypeOf(oid)
	}
	cfg := params.Lookup(r.configs, vesselType)
	r.resolved.Add(oid, cfg)
	return cfg
}

// Dispatch routes p to its object's State, creating one on first sight.
func (r *Router) Dispatch(p *observation.Observation) {
	st, ok := r.states[p.OID]
	if !ok {
		cfg := r.resolveConfig(p.OID)
		st = state.New(p.OID, p.T, cfg, r.sinkOut)
		r.states[p.OID] = st
		st.Init(p)
		return
	}

	st.ExpungeObsolete(p.T)
	if st.IsEmpty() {
		st.Init(p)
	} else {
		st.Update(p)
	}
}

// Drain flushes every object's window at end of stream, flagging each
// window's newest point as a gap so that no trailing history is lost.
func (r *Router) Drain() {
	for _, st := range r.states {
		st.MarkLastAsGap()
	}
}

// Len reports how many distinct objects have been seen so far.
func (r *Router) Len() int { return len(r.states) }

// Restore installs a State built from a checkpointed window, used when
// resuming a run against a checkpoint database. Restoring an object
// Dispatch has already seen this run overwrites its current State.
func (r *Router) Restore(oid conceptual.ObjectID, st *state.State) {
	r.states[oid] = st
}

// Snapshot returns every live object id and its State, for a caller to
// checkpoint.
func (r *Router) Snapshot() map[conceptual.ObjectID]*state.State {
	return r.states
}
