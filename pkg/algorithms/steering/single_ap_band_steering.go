// Package steering implements the CLIENT_STEERING algorithm category.
package steering

import (
	"strconv"
	"time"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/band"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/steeringstate"
)

// AlgorithmID is the registry ID for SingleAPBandSteering.
const AlgorithmID = "band"

// Default thresholds (dBm) and back-off window, per AP, for
// SingleAPBandSteering.
const (
	DefaultMinRSSI2G     = -87
	DefaultMaxRSSI2G     = -67
	DefaultMinRSSINon2G  = -82
	DefaultBackoffTimeNs = 300 * int64(time.Second)
)

// SingleAPBandSteering steers each associated client independently of
// every other AP: 2G clients below minRSSI2G are deauthenticated, above
// maxRSSI2G are asked up to 5G/6G; 5G/6G clients below minRSSINon2G are
// asked down to 2G.
type SingleAPBandSteering struct {
	snap          algorithms.Snapshot
	log           logger.Logger
	state         *steeringstate.ClientSteeringState
	minRSSI2G     int
	maxRSSI2G     int
	minRSSINon2G  int
	backoffTimeNs int64
}

// New constructs a SingleAPBandSteering with explicit parameters.
func New(snap algorithms.Snapshot, state *steeringstate.ClientSteeringState, minRSSI2G, maxRSSI2G, minRSSINon2G int, backoffTimeNs int64) *SingleAPBandSteering {
	return &SingleAPBandSteering{
		snap:          snap,
		log:           snap.Logger(),
		state:         state,
		minRSSI2G:     minRSSI2G,
		maxRSSI2G:     maxRSSI2G,
		minRSSINon2G:  minRSSINon2G,
		backoffTimeNs: backoffTimeNs,
	}
}

// Factory is the algorithms.ClientSteeringFactory registered under
// AlgorithmID. steeringState must be a *steeringstate.ClientSteeringState;
// the registry passes it through opaquely to avoid an import cycle.
func Factory(snap algorithms.Snapshot, steeringState interface{}, args map[string]string) (algorithms.ClientSteeringOptimizer, error) {
	log := snap.Logger()

	state, ok := steeringState.(*steeringstate.ClientSteeringState)
	if !ok || state == nil {
		state = steeringstate.New()
	}

	minRSSI2G := DefaultMinRSSI2G
	maxRSSI2G := DefaultMaxRSSI2G
	minRSSINon2G := DefaultMinRSSINon2G
	backoffTimeNs := DefaultBackoffTimeNs

	if v, ok := args["minRssi2G"]; ok {
		if parsed, err := strconv.Atoi(v); err != nil {
			log.Warn().Str("value", v).Msg("invalid minRssi2G, using default")
		} else {
			minRSSI2G = parsed
		}
	}

	if v, ok := args["maxRssi2G"]; ok {
		if parsed, err := strconv.Atoi(v); err != nil {
			log.Warn().Str("value", v).Msg("invalid maxRssi2G, using default")
		} else {
			maxRSSI2G = parsed
		}
	}

	if v, ok := args["minRssiNon2G"]; ok {
		if parsed, err := strconv.Atoi(v); err != nil {
			log.Warn().Str("value", v).Msg("invalid minRssiNon2G, using default")
		} else {
			minRSSINon2G = parsed
		}
	}

	// backoffTimeNs is parsed as a full 64-bit nanosecond duration, not
	// truncated to a 16-bit short.
	if v, ok := args["backoffTimeNs"]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Warn().Str("value", v).Msg("invalid backoffTimeNs, using default")
		} else {
			backoffTimeNs = parsed
		}
	}

	return New(snap, state, minRSSI2G, maxRSSI2G, minRSSINon2G, backoffTimeNs), nil
}

// ComputeApClientActionMap implements algorithms.ClientSteeringOptimizer.
// dryRun reports the hypothetical action map without mutating any
// back-off state.
func (s *SingleAPBandSteering) ComputeApClientActionMap(dryRun bool) algorithms.ClientActionMap {
	out := make(algorithms.ClientActionMap)
	now := time.Now()
	backoff := time.Duration(s.backoffTimeNs)
	zoneSerials := s.snap.ZoneSerials()

	for serial, states := range s.snap.Model.LatestStates {
		if _, ok := zoneSerials[serial]; !ok {
			continue
		}

		if len(states) == 0 {
			continue
		}

		state := states[len(states)-1]
		if len(state.Interfaces) == 0 {
			continue
		}

		capsByBand := s.snap.Model.LatestDeviceCapabilitiesPhy[serial]
		if capsByBand == nil {
			continue
		}

		for _, iface := range state.Interfaces {
			for _, ssid := range iface.SSID {
				if len(ssid.Associations) == 0 {
					continue
				}

				idx, ok := ssid.RadioIndex()
				if !ok {
					continue
				}

				radio, ok := state.RadioAt(idx)
				if !ok {
					continue
				}

				bandName, ok := band.ForRadio(radio, capsByBand)
				if !ok {
					continue
				}

				for _, assoc := range ssid.Associations {
					s.maybeAddAction(serial, bandName, assoc, now, backoff, dryRun, out)
				}
			}
		}
	}

	return out
}

// maybeAddAction decides whether assoc warrants a steering action on
// bandName and, if so and the per-(AP, client) back-off has expired,
// records it into out.
func (s *SingleAPBandSteering) maybeAddAction(serial, bandName string, assoc models.Association, now time.Time, backoff time.Duration, dryRun bool, out algorithms.ClientActionMap) {
	var action algorithms.ClientAction

	switch bandName {
	case band.Band2G:
		switch {
		case assoc.RSSI < s.minRSSI2G:
			action = algorithms.ActionDeauthenticate
		case assoc.RSSI > s.maxRSSI2G:
			action = algorithms.ActionSteerUp
		default:
			return
		}
	default:
		// 5G and 6G clients are treated the same way.
		if assoc.RSSI >= s.minRSSINon2G {
			return
		}

		action = algorithms.ActionSteerDown
	}

	if !s.state.RegisterIfBackoffExpired(serial, assoc.Station, now, backoff, dryRun) {
		return
	}

	s.log.Debug().Str("serial", serial).Str("station", assoc.Station).Str("action", string(action)).Msg("planning client steering action")

	if out[serial] == nil {
		out[serial] = make(map[string]algorithms.ClientAction)
	}

	out[serial][assoc.Station] = action
}
