package datamodel

import (
	"testing"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendState_FIFOBound(t *testing.T) {
	dm := New(3, DefaultWifiScanBufferSize)

	for i := 0; i < 5; i++ {
		dm.AppendState("serial1", models.State{Radios: []models.Radio{{Channel: i}}})
	}

	buf := dm.LatestStates["serial1"]
	require.Len(t, buf, 3)

	// The last 3 of 5 pushes (indices 2, 3, 4) must survive, in order.
	assert.Equal(t, 2, buf[0].Radios[0].Channel)
	assert.Equal(t, 3, buf[1].Radios[0].Channel)
	assert.Equal(t, 4, buf[2].Radios[0].Channel)
}

func TestAppendWifiScan_FIFOBound(t *testing.T) {
	dm := New(DefaultStateBufferSize, 2)

	for i := 0; i < 4; i++ {
		dm.AppendWifiScan("serial1", []models.WifiScanEntry{{SignalDBm: i}})
	}

	buf := dm.LatestWifiScans["serial1"]
	require.Len(t, buf, 2)
	assert.Equal(t, 2, buf[0][0].SignalDBm)
	assert.Equal(t, 3, buf[1][0].SignalDBm)
}

func TestLatestState_IsTail(t *testing.T) {
	dm := New(5, DefaultWifiScanBufferSize)
	dm.AppendState("s", models.State{Radios: []models.Radio{{Channel: 1}}})
	dm.AppendState("s", models.State{Radios: []models.Radio{{Channel: 6}}})

	latest, ok := dm.LatestState("s")
	require.True(t, ok)
	assert.Equal(t, 6, latest.Radios[0].Channel)
}

func TestCopy_SnapshotIndependence(t *testing.T) {
	dm := New(5, 5)
	dm.AppendState("s", models.State{Radios: []models.Radio{{Channel: 1}}})

	snap1 := dm.Copy()

	// Mutate the live model after taking snap1.
	dm.AppendState("s", models.State{Radios: []models.Radio{{Channel: 2}}})
	dm.SetCapabilities("s", map[string]models.Phy{"2G": {Channels: []int{1, 6, 11}}})

	// snap1 must be unaffected by the later mutation.
	assert.Len(t, snap1.LatestStates["s"], 1)
	assert.Nil(t, snap1.LatestDeviceCapabilitiesPhy["s"])

	// Mutating the snapshot itself must not affect the live model or a
	// later snapshot.
	snap1.LatestStates["s"][0].Radios[0].Channel = 999
	assert.Equal(t, 1, dm.LatestStates["s"][0].Radios[0].Channel)

	snap2 := dm.Copy()
	assert.Equal(t, 1, snap2.LatestStates["s"][0].Radios[0].Channel)
	assert.Equal(t, 2, snap2.LatestStates["s"][1].Radios[0].Channel)
}

func TestCopy_NestedStateFieldsAreIndependent(t *testing.T) {
	dm := New(5, 5)
	dm.AppendState("s", models.State{
		Interfaces: []models.Interface{
			{
				Name: "wlan0",
				SSID: []models.SSID{
					{
						BSSID:        "aa:bb",
						Radio:        []byte(`{"$ref": "#/radios/0"}`),
						Associations: []models.Association{{Station: "client1", RSSI: -50}},
					},
				},
			},
		},
	})

	snap := dm.Copy()

	snap.LatestStates["s"][0].Interfaces[0].SSID[0].Associations[0].RSSI = -999
	snap.LatestStates["s"][0].Interfaces[0].SSID[0].BSSID = "mutated"
	snap.LatestStates["s"][0].Interfaces[0].SSID[0].Radio[2] = 'X'

	live := dm.LatestStates["s"][0]
	assert.Equal(t, -50, live.Interfaces[0].SSID[0].Associations[0].RSSI)
	assert.Equal(t, "aa:bb", live.Interfaces[0].SSID[0].BSSID)
	assert.Equal(t, `{"$ref": "#/radios/0"}`, string(live.Interfaces[0].SSID[0].Radio))
}

func TestRevalidate_PurgesDisabled(t *testing.T) {
	dm := New(5, 5)
	dm.AppendState("enabled", models.State{})
	dm.AppendState("disabled", models.State{})
	dm.SetCapabilities("disabled", map[string]models.Phy{})

	dm.Revalidate(func(serial string) bool { return serial == "enabled" })

	_, hasDisabled := dm.LatestStates["disabled"]
	_, hasEnabled := dm.LatestStates["enabled"]
	assert.False(t, hasDisabled)
	assert.True(t, hasEnabled)
	assert.NotContains(t, dm.LatestDeviceCapabilitiesPhy, "disabled")
}

func TestSSID_RadioIndex(t *testing.T) {
	ssid := models.SSID{Radio: []byte(`{"$ref": "#/radios/2"}`)}
	idx, ok := ssid.RadioIndex()
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	bad := models.SSID{Radio: []byte(`{"$ref": "not-a-ref"}`)}
	_, ok = bad.RadioIndex()
	assert.False(t, ok)

	missing := models.SSID{}
	_, ok = missing.RadioIndex()
	assert.False(t, ok)
}
