package channel

import (
	"strconv"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
)

// UnmanagedApAwareChannelAlgorithmID is the registry ID for
// UnmanagedApAwareChannel.
const UnmanagedApAwareChannelAlgorithmID = "unmanaged_ap_aware"

// rssiPenaltyFloor is subtracted from an unmanaged neighbor's strongest
// observed RSSI to produce a non-negative interference penalty: a
// neighbor at -40dBm (strong) costs far more than one at -90dBm (weak).
const rssiPenaltyFloor = -100

// UnmanagedApAwareChannel extends LeastUsedChannel by additionally
// weighting each candidate channel by the strongest unmanaged-neighbor
// RSSI observed on it: a stronger interferer costs more.
type UnmanagedApAwareChannel struct {
	snap            algorithms.Snapshot
	unmanagedWeight int
	rssiWeight      int
}

// NewUnmanagedApAwareChannel constructs an UnmanagedApAwareChannel with
// explicit weights.
func NewUnmanagedApAwareChannel(snap algorithms.Snapshot, unmanagedWeight, rssiWeight int) *UnmanagedApAwareChannel {
	return &UnmanagedApAwareChannel{snap: snap, unmanagedWeight: unmanagedWeight, rssiWeight: rssiWeight}
}

// DefaultRSSIWeight scales the per-channel RSSI-based interference
// penalty relative to the raw neighbor count.
const DefaultRSSIWeight = 1

// UnmanagedApAwareChannelFactory is the algorithms.ChannelFactory
// registered under UnmanagedApAwareChannelAlgorithmID.
func UnmanagedApAwareChannelFactory(snap algorithms.Snapshot, args map[string]string) (algorithms.ChannelOptimizer, error) {
	log := snap.Logger()
	unmanagedWeight := DefaultUnmanagedWeight
	rssiWeight := DefaultRSSIWeight

	if v, ok := args["unmanagedWeight"]; ok {
		parsed, err := strconv.Atoi(v)
		switch {
		case err != nil:
			log.Warn().Str("value", v).Msg("invalid unmanagedWeight, using default")
		case parsed < 0:
			log.Warn().Int("value", parsed).Msg("unmanagedWeight must be >= 0, using default")
		default:
			unmanagedWeight = parsed
		}
	}

	if v, ok := args["rssiWeight"]; ok {
		parsed, err := strconv.Atoi(v)
		switch {
		case err != nil:
			log.Warn().Str("value", v).Msg("invalid rssiWeight, using default")
		case parsed < 0:
			log.Warn().Int("value", parsed).Msg("rssiWeight must be >= 0, using default")
		default:
			rssiWeight = parsed
		}
	}

	return NewUnmanagedApAwareChannel(snap, unmanagedWeight, rssiWeight), nil
}

// ComputeChannelMap implements algorithms.ChannelOptimizer.
func (u *UnmanagedApAwareChannel) ComputeChannelMap() algorithms.ChannelMap {
	out := make(algorithms.ChannelMap)
	devices := managedDeviceBands(u.snap)
	managed := managedBSSIDs(u.snap)

	byBand := make(map[string]bool)
	for _, d := range devices {
		byBand[d.bandName] = true
	}

	usageByBand := make(map[string]map[int]int)
	unmanagedCountByBand := make(map[string]map[int]int)
	strongestRSSIByBand := make(map[string]map[int]int)

	for bandName := range byBand {
		usageByBand[bandName] = managedChannelUsage(devices, bandName)
		unmanagedCountByBand[bandName], strongestRSSIByBand[bandName] = unmanagedWeights(u.snap, managed, bandName)
	}

	for _, d := range devices {
		usage := usageByBand[d.bandName]
		unmanagedCount := unmanagedCountByBand[d.bandName]
		strongestRSSI := strongestRSSIByBand[d.bandName]

		cost := func(ch int) int {
			managedOthers := usage[ch]
			if ch == d.channel {
				managedOthers--
			}

			penalty := 0
			if rssi, ok := strongestRSSI[ch]; ok {
				if p := rssi - rssiPenaltyFloor; p > 0 {
					penalty = p
				}
			}

			return managedOthers + u.unmanagedWeight*unmanagedCount[ch] + u.rssiWeight*penalty
		}

		ch := pickLowestCost(d.choices, cost)

		if out[d.serial] == nil {
			out[d.serial] = make(map[string]int)
		}

		out[d.serial][d.bandName] = ch
	}

	return out
}
