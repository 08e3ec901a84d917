// Package algorithms defines the RRM algorithm contract shared by every
// TPC, channel-assignment, and client-steering implementation, plus the
// name->factory registry the scheduler dispatches through.
package algorithms

import (
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
)

// Category is one of the three algorithm kinds the scheduler understands.
type Category string

const (
	CategoryTPC            Category = "TPC"
	CategoryChannel        Category = "CHANNEL"
	CategoryClientSteering Category = "CLIENT_STEERING"
)

// TxPowerMap is the TPC output shape: serial -> band -> tx power (dBm).
type TxPowerMap map[string]map[string]int

// ChannelMap is the channel-assignment output shape: serial -> band ->
// channel number.
type ChannelMap map[string]map[string]int

// ClientAction is one of the actions a client-steering algorithm can
// request for an associated station.
type ClientAction string

const (
	ActionDeauthenticate ClientAction = "DEAUTHENTICATE"
	ActionSteerUp        ClientAction = "STEER_UP"
	ActionSteerDown      ClientAction = "STEER_DOWN"
)

// ClientActionMap is the client-steering output shape: serial -> client
// MAC -> action.
type ClientActionMap map[string]map[string]ClientAction

// TPC is the contract every transmit-power-control algorithm implements.
// Implementations must be pure over the snapshot passed to their factory:
// no I/O, no mutation of shared state.
type TPC interface {
	ComputeTxPowerMap() TxPowerMap
}

// ChannelOptimizer is the contract every channel-assignment algorithm
// implements.
type ChannelOptimizer interface {
	ComputeChannelMap() ChannelMap
}

// ClientSteeringOptimizer is the contract every client-steering algorithm
// implements. dryRun must report the hypothetical action map without
// mutating any back-off state.
type ClientSteeringOptimizer interface {
	ComputeApClientActionMap(dryRun bool) ClientActionMap
}

// Snapshot bundles the inputs every algorithm factory receives: a deep
// DataModel copy, the zone being computed for, the live DeviceRegistry
// (read through its own API), and a logger.
type Snapshot struct {
	Model   *datamodel.DataModel
	Zone    string
	Devices *registry.DeviceRegistry
	Log     logger.Logger
}

// Logger returns snap.Log, or a discarding logger if unset.
func (s Snapshot) Logger() logger.Logger {
	if s.Log == nil {
		return logger.NewTest()
	}

	return s.Log
}

// ZoneSerials returns the set of RRM-enabled serials belonging to s.Zone.
// Every algorithm must filter its DataModel iteration through this before
// computing an action map, so that a run triggered for one zone never
// reads or produces actions for another zone's devices.
func (s Snapshot) ZoneSerials() map[string]struct{} {
	serials := s.Devices.Zone(s.Zone)

	set := make(map[string]struct{}, len(serials))
	for _, serial := range serials {
		set[serial] = struct{}{}
	}

	return set
}
