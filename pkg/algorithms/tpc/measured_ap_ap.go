package tpc

import (
	"sort"
	"strconv"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/band"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
)

// AlgorithmID is the measurement-based AP-AP TPC algorithm's registry ID.
const AlgorithmID = "measure_ap_ap"

// DefaultCoverageThreshold (dBm) is the target RSSI at a neighboring AP.
// iOS devices roam below -70dBm; other devices roam below -75 or -80dBm,
// so -70dBm is a conservative default.
const DefaultCoverageThreshold = -70

// DefaultNthSmallestRSSI selects which neighbor RSSI (zero-indexed,
// ascending) calibrates the new tx power.
const DefaultNthSmallestRSSI = 0

// MeasurementBasedApApTPC computes a new tx power per (device, band) from
// the RSSI observed at neighboring managed APs, targeting coverageThreshold
// at the nthSmallestRssi-ranked neighbor.
type MeasurementBasedApApTPC struct {
	snap              algorithms.Snapshot
	log               logger.Logger
	coverageThreshold int
	nthSmallestRssi   int
}

// New constructs a MeasurementBasedApApTPC with explicit parameters.
func New(snap algorithms.Snapshot, coverageThreshold, nthSmallestRssi int) *MeasurementBasedApApTPC {
	return &MeasurementBasedApApTPC{
		snap:              snap,
		log:               snap.Logger(),
		coverageThreshold: coverageThreshold,
		nthSmallestRssi:   nthSmallestRssi,
	}
}

// Factory is the algorithms.TPCFactory registered for AlgorithmID. Invalid
// args log and fall back to the default; an out-of-range default is never
// possible since defaults are compile-time constants.
func Factory(snap algorithms.Snapshot, args map[string]string) (algorithms.TPC, error) {
	log := snap.Logger()
	coverageThreshold := DefaultCoverageThreshold
	nthSmallestRssi := DefaultNthSmallestRSSI

	if v, ok := args["coverageThreshold"]; ok {
		parsed, err := strconv.Atoi(v)
		switch {
		case err != nil:
			log.Warn().Str("value", v).Msg("invalid coverageThreshold, using default")
		case parsed > MaxTxPower:
			log.Warn().Int("value", parsed).Msg("coverageThreshold must be <= 30, using default")
		default:
			coverageThreshold = parsed
		}
	}

	if v, ok := args["nthSmallestRssi"]; ok {
		parsed, err := strconv.Atoi(v)
		switch {
		case err != nil:
			log.Warn().Str("value", v).Msg("invalid nthSmallestRssi, using default")
		case parsed < 0:
			log.Warn().Int("value", parsed).Msg("nthSmallestRssi must be >= 0, using default")
		default:
			nthSmallestRssi = parsed
		}
	}

	return New(snap, coverageThreshold, nthSmallestRssi), nil
}

// ComputeTxPower computes the new tx power (dBm) for one (device, band,
// SSID) from currentTxPower and the sorted ascending RSSI list observed at
// neighboring managed APs, clamped and snapped to the nearest of choices.
//
// When rssiValues is empty, no neighbor has observed this BSSID, so the
// algorithm maximizes coverage by returning the highest available choice.
func ComputeTxPower(currentTxPower int, rssiValues []int, coverageThreshold, nthSmallestRssi int, choices []int) int {
	maxTx := choices[0]
	minTx := choices[0]

	for _, c := range choices {
		if c > maxTx {
			maxTx = c
		}

		if c < minTx {
			minTx = c
		}
	}

	if len(rssiValues) == 0 {
		return maxTx
	}

	idx := nthSmallestRssi
	if idx > len(rssiValues)-1 {
		idx = len(rssiValues) - 1
	}

	targetRSSI := rssiValues[idx]
	txDelta := maxTx - currentTxPower
	estimatedRSSI := targetRSSI + txDelta
	newTx := maxTx + coverageThreshold - estimatedRSSI

	if newTx > maxTx {
		newTx = maxTx
	} else if newTx < minTx {
		newTx = minTx
	}

	return snapToNearest(newTx, choices)
}

// snapToNearest returns the element of choices closest to target, with
// ties broken in favor of the first-encountered (lowest-index) choice.
func snapToNearest(target int, choices []int) int {
	closest := choices[0]

	for _, c := range choices {
		if abs(c-target) < abs(closest-target) {
			closest = c
		}
	}

	return closest
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

// ComputeTxPowerMap implements algorithms.TPC. It groups managed APs by
// (band, channel) and, for each band, builds the neighbor-RSSI map once
// before computing the new tx power of every device on that band -- this
// avoids rebuilding the RSSI map once per device.
func (t *MeasurementBasedApApTPC) ComputeTxPowerMap() algorithms.TxPowerMap {
	txPowerMap := make(algorithms.TxPowerMap)
	bandToChannelToAps := apsPerChannel(t.snap)

	for bandName, channelToAps := range bandToChannelToAps {
		managed := managedBSSIDs(t.snap)
		rssiMap := buildRssiMap(t.snap, managed, bandName)

		serials := make([]string, 0)
		for _, apList := range channelToAps {
			serials = append(serials, apList...)
		}
		sort.Strings(serials)

		for _, serial := range serials {
			t.computeForDevice(serial, bandName, rssiMap, txPowerMap)
		}
	}

	return txPowerMap
}

func (t *MeasurementBasedApApTPC) computeForDevice(serial, bandName string, rssiMap map[string][]int, txPowerMap algorithms.TxPowerMap) {
	states := t.snap.Model.LatestStates[serial]
	if len(states) == 0 {
		return
	}

	state := states[len(states)-1]
	if len(state.Radios) == 0 || len(state.Interfaces) == 0 {
		t.log.Debug().Str("serial", serial).Msg("no radios or interfaces, skipping")
		return
	}

	capsByBand := t.snap.Model.LatestDeviceCapabilitiesPhy[serial]
	if capsByBand == nil {
		return
	}

	for _, iface := range state.Interfaces {
		for _, ssid := range iface.SSID {
			idx, ok := ssid.RadioIndex()
			if !ok {
				t.log.Debug().Str("serial", serial).Msg("invalid radio ref, skipping ssid")
				continue
			}

			radio, ok := state.RadioAt(idx)
			if !ok {
				continue
			}

			radioBand, ok := band.ForRadio(radio, capsByBand)
			if !ok || radioBand != bandName {
				continue
			}

			choices := txPowerChoicesFor(t.snap, serial, bandName, DefaultTxPowerChoices)
			newTx := ComputeTxPower(radio.TxPower, rssiMap[ssid.BSSID], t.coverageThreshold, t.nthSmallestRssi, choices)

			if txPowerMap[serial] == nil {
				txPowerMap[serial] = make(map[string]int)
			}

			txPowerMap[serial][bandName] = newTx
		}
	}
}
