// Package channel implements the CHANNEL algorithm category: the shared
// per-band framework (allowed-channel resolution, managed-usage counting,
// unmanaged-neighbor weighting) plus the concrete algorithms registered
// against it.
package channel

import (
	"sort"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/band"
)

// allowedChannelsFor returns the channel choices for (serial, band): the
// device-registry override if set, else defaultChannels (normally the
// device's own advertised capabilities for that band).
func allowedChannelsFor(snap algorithms.Snapshot, serial, bandName string, defaultChannels []int) []int {
	cfg := snap.Devices.Get(serial)
	if cfg == nil {
		return defaultChannels
	}

	if choices, ok := cfg.AllowedChannels[bandName]; ok && len(choices) > 0 {
		return choices
	}

	return defaultChannels
}

// deviceBand pairs a managed device's serial with the band one of its
// radios resolves to.
type deviceBand struct {
	serial   string
	bandName string
	channel  int
	choices  []int
}

// managedDeviceBands enumerates every (device, band) pair present in the
// snapshot's latest States, sorted by serial then band for a deterministic
// greedy pass.
func managedDeviceBands(snap algorithms.Snapshot) []deviceBand {
	var out []deviceBand
	zoneSerials := snap.ZoneSerials()

	for serial, states := range snap.Model.LatestStates {
		if _, ok := zoneSerials[serial]; !ok {
			continue
		}

		if !snap.Devices.IsRRMEnabled(serial) || len(states) == 0 {
			continue
		}

		state := states[len(states)-1]
		capsByBand := snap.Model.LatestDeviceCapabilitiesPhy[serial]

		if capsByBand == nil {
			continue
		}

		for i := range state.Radios {
			radio := &state.Radios[i]

			bandName, ok := band.ForRadio(radio, capsByBand)
			if !ok {
				continue
			}

			defaultChoices := capsByBand[bandName].Channels
			choices := allowedChannelsFor(snap, serial, bandName, defaultChoices)

			if len(choices) == 0 {
				continue
			}

			out = append(out, deviceBand{serial: serial, bandName: bandName, channel: radio.Channel, choices: choices})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].serial != out[j].serial {
			return out[i].serial < out[j].serial
		}

		return out[i].bandName < out[j].bandName
	})

	return out
}

// managedChannelUsage counts, for bandName, how many managed APs
// currently occupy each channel, from the snapshot's
// latest States taken before this run -- the greedy pass scores every
// device against this fixed baseline rather than updating it mid-pass.
func managedChannelUsage(devices []deviceBand, bandName string) map[int]int {
	usage := make(map[int]int)

	for _, d := range devices {
		if d.bandName != bandName {
			continue
		}

		usage[d.channel]++
	}

	return usage
}

// unmanagedWeights scans every device's latest wifi-scan entries for
// BSSIDs not in managed, and for bandName returns: count, the number of
// unmanaged entries observed on each channel, and strongestRSSI, the
// least-negative (strongest) RSSI observed on each channel.
func unmanagedWeights(snap algorithms.Snapshot, managed map[string]struct{}, bandName string) (count map[int]int, strongestRSSI map[int]int) {
	count = make(map[int]int)
	strongestRSSI = make(map[int]int)

	for _, scans := range snap.Model.LatestWifiScans {
		if len(scans) == 0 {
			continue
		}

		latest := scans[len(scans)-1]

		for _, entry := range latest {
			if _, ok := managed[entry.BSSID]; ok {
				continue
			}

			entryBand, ok := band.FreqToBand(entry.FrequencyMHz)
			if !ok || entryBand != bandName {
				continue
			}

			ch, ok := band.FreqToChannel(entry.FrequencyMHz)
			if !ok {
				continue
			}

			count[ch]++

			if cur, seen := strongestRSSI[ch]; !seen || entry.SignalDBm > cur {
				strongestRSSI[ch] = entry.SignalDBm
			}
		}
	}

	return count, strongestRSSI
}

// managedBSSIDs returns the set of BSSIDs broadcast by any of the zone's
// managed devices' latest State.
func managedBSSIDs(snap algorithms.Snapshot) map[string]struct{} {
	out := make(map[string]struct{})
	zoneSerials := snap.ZoneSerials()

	for serial, states := range snap.Model.LatestStates {
		if _, ok := zoneSerials[serial]; !ok {
			continue
		}

		if len(states) == 0 {
			continue
		}

		state := states[len(states)-1]

		for _, iface := range state.Interfaces {
			for _, ssid := range iface.SSID {
				if ssid.BSSID == "" {
					continue
				}

				out[ssid.BSSID] = struct{}{}
			}
		}
	}

	return out
}

// pickLowestCost returns the channel in choices with the lowest cost,
// ties broken by lowest channel number.
func pickLowestCost(choices []int, cost func(ch int) int) int {
	best := choices[0]
	bestCost := cost(best)

	for _, ch := range choices[1:] {
		c := cost(ch)
		if c < bestCost || (c == bestCost && ch < best) {
			best = ch
			bestCost = c
		}
	}

	return best
}
