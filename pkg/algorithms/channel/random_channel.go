package channel

import (
	"math/rand"
	"strconv"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
)

// RandomChannelAlgorithmID is the registry ID for RandomChannel.
const RandomChannelAlgorithmID = "random"

// RandomChannel assigns each (device, band) a uniformly random channel
// from its allowed choices. It accepts an optional "seed" arg for
// reproducible runs; without one each run draws from a fresh source.
type RandomChannel struct {
	snap algorithms.Snapshot
	rng  *rand.Rand
}

// NewRandomChannel constructs a RandomChannel seeded by seed.
func NewRandomChannel(snap algorithms.Snapshot, seed int64) *RandomChannel {
	return &RandomChannel{snap: snap, rng: rand.New(rand.NewSource(seed))}
}

// RandomChannelFactory is the algorithms.ChannelFactory registered under
// RandomChannelAlgorithmID.
func RandomChannelFactory(snap algorithms.Snapshot, args map[string]string) (algorithms.ChannelOptimizer, error) {
	log := snap.Logger()
	seed := int64(0)

	if v, ok := args["seed"]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Warn().Str("value", v).Msg("invalid seed, using default")
		} else {
			seed = parsed
		}
	}

	return NewRandomChannel(snap, seed), nil
}

// ComputeChannelMap implements algorithms.ChannelOptimizer.
func (r *RandomChannel) ComputeChannelMap() algorithms.ChannelMap {
	out := make(algorithms.ChannelMap)

	for _, d := range managedDeviceBands(r.snap) {
		ch := d.choices[r.rng.Intn(len(d.choices))]

		if out[d.serial] == nil {
			out[d.serial] = make(map[string]int)
		}

		out[d.serial][d.bandName] = ch
	}

	return out
}
