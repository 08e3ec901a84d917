package algorithms

import (
	"fmt"
)

// TPCFactory builds a TPC algorithm instance from a snapshot and
// unvalidated string args. Unknown args are ignored; malformed ones log
// and fall back to the algorithm's own defaults -- Registry's GetTPC,
// GetChannel and GetClientSteering never reject an args map.
type TPCFactory func(snap Snapshot, args map[string]string) (TPC, error)

// ChannelFactory builds a ChannelOptimizer instance.
type ChannelFactory func(snap Snapshot, args map[string]string) (ChannelOptimizer, error)

// ClientSteeringFactory builds a ClientSteeringOptimizer instance. The
// steeringState parameter is opaque to the registry (its concrete type
// lives in pkg/steeringstate) and is passed through to the factory as-is.
type ClientSteeringFactory func(snap Snapshot, steeringState interface{}, args map[string]string) (ClientSteeringOptimizer, error)

// Info describes one registered algorithm for the operator-facing
// `/api/v1/algorithms` listing.
type Info struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	AcceptsArgs []string `json:"acceptsArgs"`
}

var errUnknownAlgorithm = fmt.Errorf("unknown algorithm id")

// Registry is the name->factory table every RRM algorithm is registered
// into, keyed by a stable string ID plus category.
type Registry struct {
	tpc      map[string]TPCFactory
	channel  map[string]ChannelFactory
	steering map[string]ClientSteeringFactory
	info     map[string]Info
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tpc:      make(map[string]TPCFactory),
		channel:  make(map[string]ChannelFactory),
		steering: make(map[string]ClientSteeringFactory),
		info:     make(map[string]Info),
	}
}

// RegisterTPC registers a TPC algorithm under id.
func (r *Registry) RegisterTPC(id string, acceptsArgs []string, factory TPCFactory) {
	r.tpc[id] = factory
	r.info[id] = Info{ID: id, Category: CategoryTPC, AcceptsArgs: acceptsArgs}
}

// RegisterChannel registers a channel-assignment algorithm under id.
func (r *Registry) RegisterChannel(id string, acceptsArgs []string, factory ChannelFactory) {
	r.channel[id] = factory
	r.info[id] = Info{ID: id, Category: CategoryChannel, AcceptsArgs: acceptsArgs}
}

// RegisterClientSteering registers a client-steering algorithm under id.
func (r *Registry) RegisterClientSteering(id string, acceptsArgs []string, factory ClientSteeringFactory) {
	r.steering[id] = factory
	r.info[id] = Info{ID: id, Category: CategoryClientSteering, AcceptsArgs: acceptsArgs}
}

// GetTPC builds the TPC algorithm registered under id.
func (r *Registry) GetTPC(id string, snap Snapshot, args map[string]string) (TPC, error) {
	factory, ok := r.tpc[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownAlgorithm, id)
	}

	return factory(snap, args)
}

// GetChannel builds the ChannelOptimizer registered under id.
func (r *Registry) GetChannel(id string, snap Snapshot, args map[string]string) (ChannelOptimizer, error) {
	factory, ok := r.channel[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownAlgorithm, id)
	}

	return factory(snap, args)
}

// GetClientSteering builds the ClientSteeringOptimizer registered under id.
func (r *Registry) GetClientSteering(id string, snap Snapshot, steeringState interface{}, args map[string]string) (ClientSteeringOptimizer, error) {
	factory, ok := r.steering[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownAlgorithm, id)
	}

	return factory(snap, steeringState, args)
}

// List returns every registered algorithm's Info, for the
// `/api/v1/algorithms` endpoint.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.info))
	for _, info := range r.info {
		out = append(out, info)
	}

	return out
}
