package channel

import (
	"testing"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTwoManagedAPs(t *testing.T, ch1, ch2 int) algorithms.Snapshot {
	t.Helper()

	dm := datamodel.New(5, 5)
	dm.AppendState("ap1", models.State{Radios: []models.Radio{{Channel: ch1}}})
	dm.SetCapabilities("ap1", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	dm.AppendState("ap2", models.State{Radios: []models.Radio{{Channel: ch2}}})
	dm.SetCapabilities("ap2", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	reg := registry.New()
	reg.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})
	reg.Set(&models.DeviceConfig{SerialNumber: "ap2", EnableRRM: true, Zone: "z1"})

	return algorithms.Snapshot{Model: dm, Zone: "z1", Devices: reg}
}

func TestLeastUsedChannel_PicksChannelWithFewestOtherManagedAPs(t *testing.T) {
	snap := setupTwoManagedAPs(t, 1, 1)

	algo := NewLeastUsedChannel(snap, DefaultUnmanagedWeight)
	result := algo.ComputeChannelMap()

	require.Contains(t, result, "ap1")
	// ap1 and ap2 both sit on channel 1; channels 6 and 11 are unused, so
	// ap1 should move off 1. Ties between 6 and 11 favor the lowest.
	assert.Equal(t, 6, result["ap1"]["2G"])
	assert.Equal(t, 6, result["ap2"]["2G"])
}

func TestLeastUsedChannel_StaysWhenAlreadyLeastUsed(t *testing.T) {
	snap := setupTwoManagedAPs(t, 1, 6)

	algo := NewLeastUsedChannel(snap, DefaultUnmanagedWeight)
	result := algo.ComputeChannelMap()

	assert.Equal(t, 1, result["ap1"]["2G"])
	assert.Equal(t, 6, result["ap2"]["2G"])
}

func TestLeastUsedChannel_WeighsUnmanagedNeighbors(t *testing.T) {
	dm := datamodel.New(5, 5)
	dm.AppendState("ap1", models.State{Radios: []models.Radio{{Channel: 6}}})
	dm.SetCapabilities("ap1", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	// Two unmanaged neighbors observed on ap1's own channel, 6; neither 1
	// nor 11 have any, so ap1 should move off 6.
	dm.AppendWifiScan("ap1", []models.WifiScanEntry{
		{BSSID: "un:managed:01", FrequencyMHz: 2437, SignalDBm: -60},
		{BSSID: "un:managed:02", FrequencyMHz: 2437, SignalDBm: -65},
	})

	reg := registry.New()
	reg.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})

	snap := algorithms.Snapshot{Model: dm, Zone: "z1", Devices: reg}

	algo := NewLeastUsedChannel(snap, DefaultUnmanagedWeight)
	result := algo.ComputeChannelMap()

	assert.Equal(t, 1, result["ap1"]["2G"])
}

func TestUnmanagedApAwareChannel_PrefersWeakerInterferer(t *testing.T) {
	dm := datamodel.New(5, 5)
	dm.AppendState("ap1", models.State{Radios: []models.Radio{{Channel: 1}}})
	dm.SetCapabilities("ap1", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	// A very strong interferer on ap1's current channel, a strong one on
	// 6, and only a weak one on 11 -- 11 should win despite every channel
	// carrying exactly one unmanaged neighbor.
	dm.AppendWifiScan("ap1", []models.WifiScanEntry{
		{BSSID: "un:managed:00", FrequencyMHz: 2412, SignalDBm: -30},
		{BSSID: "un:managed:01", FrequencyMHz: 2437, SignalDBm: -40},
		{BSSID: "un:managed:02", FrequencyMHz: 2462, SignalDBm: -90},
	})

	reg := registry.New()
	reg.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})

	snap := algorithms.Snapshot{Model: dm, Zone: "z1", Devices: reg}

	algo := NewUnmanagedApAwareChannel(snap, DefaultUnmanagedWeight, DefaultRSSIWeight)
	result := algo.ComputeChannelMap()

	assert.Equal(t, 11, result["ap1"]["2G"])
}

func TestRandomChannel_PicksFromAllowedChoicesDeterministically(t *testing.T) {
	snap := setupTwoManagedAPs(t, 1, 1)

	first := NewRandomChannel(snap, 42).ComputeChannelMap()
	second := NewRandomChannel(snap, 42).ComputeChannelMap()

	assert.Equal(t, first, second)
	assert.Contains(t, []int{1, 6, 11}, first["ap1"]["2G"])
}

func TestFactories_InvalidArgsFallBackToDefault(t *testing.T) {
	snap := setupTwoManagedAPs(t, 1, 1)

	lu, err := LeastUsedChannelFactory(snap, map[string]string{"unmanagedWeight": "not-an-int"})
	require.NoError(t, err)
	assert.Equal(t, DefaultUnmanagedWeight, lu.(*LeastUsedChannel).unmanagedWeight)

	ua, err := UnmanagedApAwareChannelFactory(snap, map[string]string{"rssiWeight": "-3"})
	require.NoError(t, err)
	assert.Equal(t, DefaultRSSIWeight, ua.(*UnmanagedApAwareChannel).rssiWeight)

	rc, err := RandomChannelFactory(snap, map[string]string{"seed": "bogus"})
	require.NoError(t, err)
	assert.NotNil(t, rc)
}
