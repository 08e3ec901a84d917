// Package registry implements DeviceRegistry, the authoritative
// serial->DeviceConfig mapping shared between ProvMonitor, the operator
// REST API, the Modeler, and every RRM algorithm.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

// DeviceRegistry is guarded by a single writer lock; readers take a brief
// read lock to copy what they need rather than holding a reference into
// the live map. A monotonic generation counter
// lets a caller that reads across multiple calls detect whether the
// registry changed underneath it and retry once.
type DeviceRegistry struct {
	mu         sync.RWMutex
	devices    map[string]*models.DeviceConfig
	generation atomic.Uint64
}

// New returns an empty DeviceRegistry.
func New() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[string]*models.DeviceConfig)}
}

// Generation returns the current write generation. Two reads across which
// Generation is unchanged observed a consistent registry.
func (r *DeviceRegistry) Generation() uint64 {
	return r.generation.Load()
}

// Get returns a deep copy of the DeviceConfig for serial, or nil if the
// device is not registered.
func (r *DeviceRegistry) Get(serial string) *models.DeviceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.devices[serial].Clone()
}

// IsRRMEnabled reports whether serial is registered and RRM-enabled. An
// unregistered device is treated as not RRM-enabled, never as an error.
func (r *DeviceRegistry) IsRRMEnabled(serial string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.devices[serial]
	return ok && cfg.EnableRRM
}

// Set inserts or replaces the DeviceConfig for serial and bumps the
// generation counter.
func (r *DeviceRegistry) Set(cfg *models.DeviceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[cfg.SerialNumber] = cfg.Clone()
	r.generation.Add(1)
}

// Delete removes serial from the registry and bumps the generation
// counter. It is a no-op if serial is not present.
func (r *DeviceRegistry) Delete(serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[serial]; !ok {
		return
	}

	delete(r.devices, serial)
	r.generation.Add(1)
}

// Zone returns every RRM-enabled device's serial number whose Zone matches
// zone, in a stable (sorted) order isn't required -- the scheduler and
// algorithms only need the set.
func (r *DeviceRegistry) Zone(zone string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var serials []string

	for serial, cfg := range r.devices {
		if cfg.EnableRRM && cfg.Zone == zone {
			serials = append(serials, serial)
		}
	}

	return serials
}

// Snapshot returns a deep copy of the full registry alongside the
// generation it was taken at.
func (r *DeviceRegistry) Snapshot() (map[string]*models.DeviceConfig, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.DeviceConfig, len(r.devices))
	for serial, cfg := range r.devices {
		out[serial] = cfg.Clone()
	}

	return out, r.generation.Load()
}

// Reconcile replaces the registry's contents with desired, preserving the
// EnableRRM/zone/overrides carried in desired. It returns the set of
// serials that were removed (present before, absent in desired) so the
// caller (ProvMonitor) can trigger a DataModel revalidation.
func (r *DeviceRegistry) Reconcile(desired map[string]*models.DeviceConfig) (removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for serial := range r.devices {
		if _, ok := desired[serial]; !ok {
			removed = append(removed, serial)
		}
	}

	next := make(map[string]*models.DeviceConfig, len(desired))
	for serial, cfg := range desired {
		next[serial] = cfg.Clone()
	}

	r.devices = next
	r.generation.Add(1)

	return removed
}
