package tpc

import (
	"testing"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullChoices is every integer tx power from 0 to 30 dBm inclusive.
var fullChoices = func() []int {
	choices := make([]int, 31)
	for i := range choices {
		choices[i] = i
	}
	return choices
}()

// S1 -- empty neighbor list maximizes coverage.
func TestComputeTxPower_EmptyNeighbors(t *testing.T) {
	choices := []int{6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30}
	newTx := ComputeTxPower(20, nil, -70, 0, choices)
	assert.Equal(t, 30, newTx)
}

// S2 -- typical case, n=0.
func TestComputeTxPower_Typical(t *testing.T) {
	newTx := ComputeTxPower(20, []int{-80, -75, -65}, -70, 0, fullChoices)
	assert.Equal(t, 30, newTx)
}

// S3 -- typical case, n=1.
func TestComputeTxPower_NthSmallest(t *testing.T) {
	newTx := ComputeTxPower(20, []int{-80, -75, -65}, -70, 1, fullChoices)
	assert.Equal(t, 25, newTx)
}

func TestComputeTxPower_SnapToNearestChoice(t *testing.T) {
	// Estimated newTxPower of 25 with even-only choices snaps to the
	// nearest, tie-broken toward the first-encountered choice (24 before
	// 26 in iteration order).
	choices := []int{20, 22, 24, 26, 28, 30}
	newTx := ComputeTxPower(20, []int{-80, -75, -65}, -70, 1, choices)
	assert.Equal(t, 24, newTx)
}

func TestComputeTxPower_EquivalenceFormula(t *testing.T) {
	// For nonempty R, newTxPower ==
	// clamp(snap((coverageThreshold - R[min(len-1,n)]) + currentTxPower))
	currentTxPower := 14
	rssi := []int{-90, -82, -70, -60}
	coverageThreshold := -72
	n := 2
	choices := []int{0, 4, 8, 12, 16, 20, 24, 28}

	got := ComputeTxPower(currentTxPower, rssi, coverageThreshold, n, choices)

	idx := n
	if idx > len(rssi)-1 {
		idx = len(rssi) - 1
	}
	want := (coverageThreshold - rssi[idx]) + currentTxPower
	if want > 28 {
		want = 28
	} else if want < 0 {
		want = 0
	}
	want = snapToNearest(want, choices)

	assert.Equal(t, want, got)
}

func TestComputeTxPower_MonotonicInCoverageThreshold(t *testing.T) {
	rssi := []int{-85, -80, -75}
	prev := ComputeTxPower(18, rssi, -80, 0, fullChoices)

	for threshold := -79; threshold <= -50; threshold++ {
		cur := ComputeTxPower(18, rssi, threshold, 0, fullChoices)
		assert.GreaterOrEqual(t, cur, prev, "tx power must be non-decreasing as coverageThreshold increases")
		prev = cur
	}
}

func TestComputeTxPowerMap_SkipsDeviceWithNoInterfaces(t *testing.T) {
	dm := datamodel.New(5, 5)
	dm.AppendState("ap1", models.State{Radios: []models.Radio{{Channel: 1, TxPower: 20}}})
	dm.SetCapabilities("ap1", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	reg := registry.New()
	reg.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})

	snap := algorithms.Snapshot{Model: dm, Zone: "z1", Devices: reg}
	algo := New(snap, DefaultCoverageThreshold, DefaultNthSmallestRSSI)

	result := algo.ComputeTxPowerMap()
	assert.Empty(t, result)
}

func TestComputeTxPowerMap_EndToEnd(t *testing.T) {
	dm := datamodel.New(5, 5)
	dm.AppendState("ap1", models.State{
		Radios: []models.Radio{{Channel: 1, TxPower: 20}},
		Interfaces: []models.Interface{{
			Name: "wlan0",
			SSID: []models.SSID{{
				BSSID: "aa:bb:cc:dd:ee:01",
				Radio: []byte(`{"$ref": "#/radios/0"}`),
			}},
		}},
	})
	dm.SetCapabilities("ap1", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	// A neighboring managed AP observed ap1's BSSID at -80dBm on channel 1.
	dm.AppendWifiScan("ap2", []models.WifiScanEntry{{
		BSSID: "aa:bb:cc:dd:ee:01", FrequencyMHz: 2412, SignalDBm: -80,
	}})
	dm.AppendState("ap2", models.State{Radios: []models.Radio{{Channel: 1, TxPower: 20}}})
	dm.SetCapabilities("ap2", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	reg := registry.New()
	reg.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})
	reg.Set(&models.DeviceConfig{SerialNumber: "ap2", EnableRRM: true, Zone: "z1"})

	snap := algorithms.Snapshot{Model: dm, Zone: "z1", Devices: reg}
	algo := New(snap, DefaultCoverageThreshold, DefaultNthSmallestRSSI)

	result := algo.ComputeTxPowerMap()
	require.Contains(t, result, "ap1")
	assert.Contains(t, result["ap1"], "2G")
	assert.Equal(t, 30, result["ap1"]["2G"])
}

func TestFactory_InvalidArgsFallBackToDefault(t *testing.T) {
	dm := datamodel.New(5, 5)
	reg := registry.New()
	snap := algorithms.Snapshot{Model: dm, Zone: "z1", Devices: reg}

	algo, err := Factory(snap, map[string]string{"coverageThreshold": "not-an-int", "nthSmallestRssi": "-5"})
	require.NoError(t, err)

	m := algo.(*MeasurementBasedApApTPC)
	assert.Equal(t, DefaultCoverageThreshold, m.coverageThreshold)
	assert.Equal(t, DefaultNthSmallestRSSI, m.nthSmallestRssi)
}
