// Package datamodel implements DataModel, the rolling per-device view of
// the RF environment that the Modeler writes and every RRM algorithm reads
// from a deep snapshot.
package datamodel

import (
	"sync"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

// DefaultStateBufferSize and DefaultWifiScanBufferSize are the default FIFO
// capacities for a device with no explicit ModelerParams override.
const (
	DefaultStateBufferSize    = 10
	DefaultWifiScanBufferSize = 10
)

// DataModel is the rolling snapshot of per-device telemetry. Exactly one
// writer (the Modeler) mutates it; every reader (an RRM algorithm) must
// operate on the result of Copy, never on the live DataModel.
type DataModel struct {
	mu sync.RWMutex

	stateBufferSize    int
	wifiScanBufferSize int

	// LatestStates maps serial -> bounded FIFO of States, oldest first.
	LatestStates map[string][]models.State

	// LatestWifiScans maps serial -> bounded FIFO of scan results, each a
	// list of entries from a single scan, oldest first.
	LatestWifiScans map[string][][]models.WifiScanEntry

	// LatestDeviceCapabilitiesPhy maps serial -> band -> Phy.
	LatestDeviceCapabilitiesPhy map[string]map[string]models.Phy

	// LatestDeviceStatusRadios maps serial -> the device's currently
	// configured radios, as last pushed by the device-config event
	// (Modeler.UpdateDeviceConfig).
	LatestDeviceStatusRadios map[string][]models.Radio
}

// New returns an empty DataModel with the given FIFO capacities. A
// non-positive size falls back to the package default.
func New(stateBufferSize, wifiScanBufferSize int) *DataModel {
	if stateBufferSize <= 0 {
		stateBufferSize = DefaultStateBufferSize
	}

	if wifiScanBufferSize <= 0 {
		wifiScanBufferSize = DefaultWifiScanBufferSize
	}

	return &DataModel{
		stateBufferSize:             stateBufferSize,
		wifiScanBufferSize:          wifiScanBufferSize,
		LatestStates:                make(map[string][]models.State),
		LatestWifiScans:             make(map[string][][]models.WifiScanEntry),
		LatestDeviceCapabilitiesPhy: make(map[string]map[string]models.Phy),
		LatestDeviceStatusRadios:    make(map[string][]models.Radio),
	}
}

// AppendState appends state to serial's FIFO, evicting the oldest entries
// until the buffer is under capacity first. Invariant: after this call,
// len(LatestStates[serial]) <= stateBufferSize.
func (dm *DataModel) AppendState(serial string, state models.State) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := dm.LatestStates[serial]
	for len(buf) >= dm.stateBufferSize {
		buf = buf[1:]
	}

	dm.LatestStates[serial] = append(buf, state)
}

// AppendWifiScan appends one scan result (a list of entries) to serial's
// FIFO, evicting the oldest result first if at capacity.
func (dm *DataModel) AppendWifiScan(serial string, entries []models.WifiScanEntry) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := dm.LatestWifiScans[serial]
	for len(buf) >= dm.wifiScanBufferSize {
		buf = buf[1:]
	}

	dm.LatestWifiScans[serial] = append(buf, entries)
}

// SetCapabilities replaces serial's capabilities wholesale, per the
// collaborator-pushed capabilities-refresh event.
func (dm *DataModel) SetCapabilities(serial string, capsByBand map[string]models.Phy) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.LatestDeviceCapabilitiesPhy[serial] = capsByBand
}

// SetStatusRadios replaces serial's currently-configured radios wholesale,
// per the collaborator-pushed device-config event.
func (dm *DataModel) SetStatusRadios(serial string, radios []models.Radio) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.LatestDeviceStatusRadios[serial] = radios
}

// LatestState returns the most recently ingested State for serial, or
// (State{}, false) if none has been ingested.
func (dm *DataModel) LatestState(serial string) (models.State, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	buf := dm.LatestStates[serial]
	if len(buf) == 0 {
		return models.State{}, false
	}

	return buf[len(buf)-1], true
}

// LatestWifiScan returns the most recently ingested scan result for
// serial, or (nil, false) if none has been ingested.
func (dm *DataModel) LatestWifiScan(serial string) ([]models.WifiScanEntry, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	buf := dm.LatestWifiScans[serial]
	if len(buf) == 0 {
		return nil, false
	}

	return buf[len(buf)-1], true
}

// LatestStatusRadios returns the most recently pushed configured-radios
// list for serial, or nil if none has been set.
func (dm *DataModel) LatestStatusRadios(serial string) []models.Radio {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	return dm.LatestDeviceStatusRadios[serial]
}

// Revalidate purges every sub-map of entries for serials for which
// isEnabled returns false. It implements the DataModel invariant that a
// serial present anywhere either is or recently was RRM-enabled.
func (dm *DataModel) Revalidate(isEnabled func(serial string) bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for serial := range dm.LatestStates {
		if !isEnabled(serial) {
			delete(dm.LatestStates, serial)
		}
	}

	for serial := range dm.LatestWifiScans {
		if !isEnabled(serial) {
			delete(dm.LatestWifiScans, serial)
		}
	}

	for serial := range dm.LatestDeviceCapabilitiesPhy {
		if !isEnabled(serial) {
			delete(dm.LatestDeviceCapabilitiesPhy, serial)
		}
	}

	for serial := range dm.LatestDeviceStatusRadios {
		if !isEnabled(serial) {
			delete(dm.LatestDeviceStatusRadios, serial)
		}
	}
}

// Copy returns a deep structural snapshot of the DataModel. Every
// algorithm must operate on the result of Copy, never on the live
// DataModel -- this is the project's substitute for reader/writer locking
// over the deeply nested mutable model.
func (dm *DataModel) Copy() *DataModel {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	out := &DataModel{
		stateBufferSize:             dm.stateBufferSize,
		wifiScanBufferSize:          dm.wifiScanBufferSize,
		LatestStates:                make(map[string][]models.State, len(dm.LatestStates)),
		LatestWifiScans:             make(map[string][][]models.WifiScanEntry, len(dm.LatestWifiScans)),
		LatestDeviceCapabilitiesPhy: make(map[string]map[string]models.Phy, len(dm.LatestDeviceCapabilitiesPhy)),
		LatestDeviceStatusRadios:    make(map[string][]models.Radio, len(dm.LatestDeviceStatusRadios)),
	}

	for serial, states := range dm.LatestStates {
		copied := make([]models.State, len(states))
		for i, state := range states {
			copied[i] = state.Clone()
		}
		out.LatestStates[serial] = copied
	}

	for serial, scans := range dm.LatestWifiScans {
		copied := make([][]models.WifiScanEntry, len(scans))
		for i, entries := range scans {
			copied[i] = append([]models.WifiScanEntry(nil), entries...)
		}
		out.LatestWifiScans[serial] = copied
	}

	for serial, capsByBand := range dm.LatestDeviceCapabilitiesPhy {
		copied := make(map[string]models.Phy, len(capsByBand))
		for b, phy := range capsByBand {
			phyCopy := phy
			phyCopy.Channels = append([]int(nil), phy.Channels...)
			phyCopy.AllowedWidths = append([]string(nil), phy.AllowedWidths...)
			copied[b] = phyCopy
		}
		out.LatestDeviceCapabilitiesPhy[serial] = copied
	}

	for serial, radios := range dm.LatestDeviceStatusRadios {
		out.LatestDeviceStatusRadios[serial] = append([]models.Radio(nil), radios...)
	}

	return out
}
