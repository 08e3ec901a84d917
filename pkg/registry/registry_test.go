package registry

import (
	"sync"
	"testing"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetClone(t *testing.T) {
	r := New()
	r.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})

	cfg := r.Get("ap1")
	require.NotNil(t, cfg)
	assert.True(t, cfg.EnableRRM)

	// Mutating the returned copy must not affect the registry.
	cfg.EnableRRM = false
	cfg2 := r.Get("ap1")
	assert.True(t, cfg2.EnableRRM)
}

func TestIsRRMEnabled_UnknownDeviceIsFalse(t *testing.T) {
	r := New()
	assert.False(t, r.IsRRMEnabled("nope"))
}

func TestGenerationBumpsOnWrite(t *testing.T) {
	r := New()
	g0 := r.Generation()
	r.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true})
	assert.Greater(t, r.Generation(), g0)
}

func TestReconcile_ReportsRemoved(t *testing.T) {
	r := New()
	r.Set(&models.DeviceConfig{SerialNumber: "stale", EnableRRM: true})

	removed := r.Reconcile(map[string]*models.DeviceConfig{
		"fresh": {SerialNumber: "fresh", EnableRRM: true},
	})

	assert.Equal(t, []string{"stale"}, removed)
	assert.Nil(t, r.Get("stale"))
	assert.NotNil(t, r.Get("fresh"))
}

func TestConcurrentReadWrite(t *testing.T) {
	r := New()
	r.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Get("ap1")
		}()
		go func(n int) {
			defer wg.Done()
			r.Set(&models.DeviceConfig{SerialNumber: "ap1", EnableRRM: true, Zone: "z1"})
			_ = n
		}(i)
	}
	wg.Wait()

	assert.True(t, r.IsRRMEnabled("ap1"))
}
