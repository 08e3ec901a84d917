// Package tpc implements the TPC (transmit-power-control) algorithm
// category: the shared per-(band, channel) framework and concrete
// algorithms registered against it.
package tpc

import (
	"sort"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/band"
)

// MaxTxPower and MinTxPower bound every tx-power computation (dBm); a
// coverageThreshold above MaxTxPower is rejected at algorithm construction.
const (
	MaxTxPower = 30
	MinTxPower = 0
)

// DefaultTxPowerChoices is the tx-power choice list (dBm) used for a
// (device, band) with no device-registry override.
var DefaultTxPowerChoices = []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30}

// txPowerChoicesFor returns the allowed tx-power choices for serial on
// band: the device-registry override if set, else defaultChoices.
func txPowerChoicesFor(snap algorithms.Snapshot, serial, bandName string, defaultChoices []int) []int {
	cfg := snap.Devices.Get(serial)
	if cfg == nil {
		return defaultChoices
	}

	if choices, ok := cfg.AllowedTxPowers[bandName]; ok && len(choices) > 0 {
		return choices
	}

	return defaultChoices
}

// apsPerChannel groups every managed device's radios by (band, channel):
// band -> channel -> serials. A device contributes one entry per radio
// whose band can be determined from its capabilities; devices with no
// radios, no interfaces, or unresolvable capabilities are simply absent
// from the result, never an error.
func apsPerChannel(snap algorithms.Snapshot) map[string]map[int][]string {
	out := make(map[string]map[int][]string)
	zoneSerials := snap.ZoneSerials()

	for serial, states := range snap.Model.LatestStates {
		if _, ok := zoneSerials[serial]; !ok {
			continue
		}

		if len(states) == 0 {
			continue
		}

		state := states[len(states)-1]
		if len(state.Radios) == 0 {
			continue
		}

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

			if out[bandName] == nil {
				out[bandName] = make(map[int][]string)
			}

			out[bandName][radio.Channel] = append(out[bandName][radio.Channel], serial)
		}
	}

	return out
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

// buildRssiMap returns, for every managed BSSID, the ascending-sorted list
// of RSSIs at which other APs' latest wifi-scans observed that BSSID on
// bandName. A managed BSSID with no such observations maps to an empty
// (non-nil) slice.
func buildRssiMap(snap algorithms.Snapshot, managed map[string]struct{}, bandName string) map[string][]int {
	out := make(map[string][]int, len(managed))
	for bssid := range managed {
		out[bssid] = []int{}
	}

	for _, scans := range snap.Model.LatestWifiScans {
		if len(scans) == 0 {
			continue
		}

		latest := scans[len(scans)-1]

		for _, entry := range latest {
			if _, ok := managed[entry.BSSID]; !ok {
				continue
			}

			entryBand, ok := band.FreqToBand(entry.FrequencyMHz)
			if !ok || entryBand != bandName {
				continue
			}

			out[entry.BSSID] = append(out[entry.BSSID], entry.SignalDBm)
		}
	}

	for bssid := range out {
		sort.Ints(out[bssid])
	}

	return out
}
