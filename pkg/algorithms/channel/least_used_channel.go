package channel

import (
	"strconv"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
)

// LeastUsedChannelAlgorithmID is the registry ID for LeastUsedChannel.
const LeastUsedChannelAlgorithmID = "least_used"

// DefaultUnmanagedWeight scales how heavily an unmanaged neighbor's
// presence on a candidate channel counts against it, relative to one
// other managed AP on that channel.
const DefaultUnmanagedWeight = 1

// LeastUsedChannel assigns each (device, band) the allowed channel with
// the fewest other managed APs on the same band, plus a weighted count of
// unmanaged neighbor APs observed on that channel; ties favor the lowest
// channel number.
type LeastUsedChannel struct {
	snap            algorithms.Snapshot
	unmanagedWeight int
}

// NewLeastUsedChannel constructs a LeastUsedChannel with an explicit
// unmanaged-neighbor weight.
func NewLeastUsedChannel(snap algorithms.Snapshot, unmanagedWeight int) *LeastUsedChannel {
	return &LeastUsedChannel{snap: snap, unmanagedWeight: unmanagedWeight}
}

// LeastUsedChannelFactory is the algorithms.ChannelFactory registered
// under LeastUsedChannelAlgorithmID.
func LeastUsedChannelFactory(snap algorithms.Snapshot, args map[string]string) (algorithms.ChannelOptimizer, error) {
	log := snap.Logger()
	weight := DefaultUnmanagedWeight

	if v, ok := args["unmanagedWeight"]; ok {
		parsed, err := strconv.Atoi(v)
		switch {
		case err != nil:
			log.Warn().Str("value", v).Msg("invalid unmanagedWeight, using default")
		case parsed < 0:
			log.Warn().Int("value", parsed).Msg("unmanagedWeight must be >= 0, using default")
		default:
			weight = parsed
		}
	}

	return NewLeastUsedChannel(snap, weight), nil
}

// ComputeChannelMap implements algorithms.ChannelOptimizer.
func (l *LeastUsedChannel) ComputeChannelMap() algorithms.ChannelMap {
	out := make(algorithms.ChannelMap)
	devices := managedDeviceBands(l.snap)
	managed := managedBSSIDs(l.snap)

	byBand := make(map[string]bool)
	for _, d := range devices {
		byBand[d.bandName] = true
	}

	usageByBand := make(map[string]map[int]int)
	unmanagedCountByBand := make(map[string]map[int]int)

	for bandName := range byBand {
		usageByBand[bandName] = managedChannelUsage(devices, bandName)
		unmanagedCountByBand[bandName], _ = unmanagedWeights(l.snap, managed, bandName)
	}

	for _, d := range devices {
		usage := usageByBand[d.bandName]
		unmanagedCount := unmanagedCountByBand[d.bandName]

		cost := func(ch int) int {
			managedOthers := usage[ch]
			if ch == d.channel {
				managedOthers--
			}

			return managedOthers + l.unmanagedWeight*unmanagedCount[ch]
		}

		ch := pickLowestCost(d.choices, cost)

		if out[d.serial] == nil {
			out[d.serial] = make(map[string]int)
		}

		out[d.serial][d.bandName] = ch
	}

	return out
}
