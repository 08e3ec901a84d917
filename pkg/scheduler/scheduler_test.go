package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
)

type fakeModel struct {
	dm *datamodel.DataModel
}

func (f *fakeModel) GetDataModelCopy() *datamodel.DataModel { return f.dm }

type fakeApplier struct {
	mu         sync.Mutex
	txApplied  int
	chApplied  int
	actApplied int
}

func (f *fakeApplier) ApplyTxPowerMap(context.Context, string, algorithms.TxPowerMap) {
	f.mu.Lock()
	f.txApplied++
	f.mu.Unlock()
}

func (f *fakeApplier) ApplyChannelMap(context.Context, string, algorithms.ChannelMap) {
	f.mu.Lock()
	f.chApplied++
	f.mu.Unlock()
}

func (f *fakeApplier) ApplyClientActions(context.Context, string, algorithms.ClientActionMap) {
	f.mu.Lock()
	f.actApplied++
	f.mu.Unlock()
}

// blockingTPC blocks inside ComputeTxPowerMap until release is closed, so
// tests can exercise the single-flight window deterministically.
type blockingTPC struct {
	release chan struct{}
}

func (b *blockingTPC) ComputeTxPowerMap() algorithms.TxPowerMap {
	<-b.release
	return algorithms.TxPowerMap{"ap1": {"2G": 20}}
}

func newTestScheduler(t *testing.T, zones []config.ZoneSchedule, algos *algorithms.Registry, applier Applier) *RRMScheduler {
	t.Helper()

	dm := datamodel.New(5, 5)
	reg := registry.New()

	return New(zones, nil, algos, reg, &fakeModel{dm: dm}, applier, logger.NewTest())
}

func TestTriggerManual_RunsConfiguredAlgorithm(t *testing.T) {
	algos := algorithms.NewRegistry()
	algos.RegisterTPC("fast_tpc", nil, func(algorithms.Snapshot, map[string]string) (algorithms.TPC, error) {
		return &blockingTPC{release: closedChan()}, nil
	})

	applier := &fakeApplier{}
	s := newTestScheduler(t, []config.ZoneSchedule{
		{Zone: "z1", Category: "TPC", AlgorithmID: "fast_tpc", CronExpression: "1h"},
	}, algos, applier)

	runID, err := s.TriggerManual(context.Background(), "z1", "TPC", "", nil, false)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	applier.mu.Lock()
	defer applier.mu.Unlock()
	assert.Equal(t, 1, applier.txApplied)
}

func TestTriggerManual_DryRunNeverApplies(t *testing.T) {
	algos := algorithms.NewRegistry()
	algos.RegisterTPC("fast_tpc", nil, func(algorithms.Snapshot, map[string]string) (algorithms.TPC, error) {
		return &blockingTPC{release: closedChan()}, nil
	})

	applier := &fakeApplier{}
	s := newTestScheduler(t, []config.ZoneSchedule{
		{Zone: "z1", Category: "TPC", AlgorithmID: "fast_tpc", CronExpression: "1h"},
	}, algos, applier)

	_, err := s.TriggerManual(context.Background(), "z1", "TPC", "", nil, true)
	require.NoError(t, err)

	applier.mu.Lock()
	defer applier.mu.Unlock()
	assert.Equal(t, 0, applier.txApplied)
}

func TestTriggerManual_UnknownZoneCategoryIsError(t *testing.T) {
	algos := algorithms.NewRegistry()
	applier := &fakeApplier{}
	s := newTestScheduler(t, nil, algos, applier)

	_, err := s.TriggerManual(context.Background(), "nope", "TPC", "", nil, false)
	assert.Error(t, err)
}

func TestFire_SingleFlightDropsOverlappingTrigger(t *testing.T) {
	release := make(chan struct{})

	algos := algorithms.NewRegistry()
	algos.RegisterTPC("slow_tpc", nil, func(algorithms.Snapshot, map[string]string) (algorithms.TPC, error) {
		return &blockingTPC{release: release}, nil
	})

	applier := &fakeApplier{}
	s := newTestScheduler(t, []config.ZoneSchedule{
		{Zone: "z1", Category: "TPC", AlgorithmID: "slow_tpc", CronExpression: "1h"},
	}, algos, applier)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		_, _ = s.TriggerManual(context.Background(), "z1", "TPC", "", nil, false)
	}()

	// Give the first run time to acquire the lock and start blocking.
	time.Sleep(20 * time.Millisecond)

	_, err := s.TriggerManual(context.Background(), "z1", "TPC", "", nil, false)
	assert.ErrorIs(t, err, errAlreadyRunning)

	close(release)
	wg.Wait()

	applier.mu.Lock()
	defer applier.mu.Unlock()
	assert.Equal(t, 1, applier.txApplied)
}

func TestRunAllCategories_RunsEveryCategoryForZone(t *testing.T) {
	algos := algorithms.NewRegistry()
	algos.RegisterTPC("fast_tpc", nil, func(algorithms.Snapshot, map[string]string) (algorithms.TPC, error) {
		return &blockingTPC{release: closedChan()}, nil
	})
	algos.RegisterChannel("fast_channel", nil, func(algorithms.Snapshot, map[string]string) (algorithms.ChannelOptimizer, error) {
		return fakeChannelOptimizer{}, nil
	})

	applier := &fakeApplier{}
	s := newTestScheduler(t, []config.ZoneSchedule{
		{Zone: "z1", Category: "TPC", AlgorithmID: "fast_tpc", CronExpression: "1h"},
		{Zone: "z1", Category: "CHANNEL", AlgorithmID: "fast_channel", CronExpression: "1h"},
		{Zone: "z2", Category: "TPC", AlgorithmID: "fast_tpc", CronExpression: "1h"},
	}, algos, applier)

	runIDs := s.RunAllCategories(context.Background(), "z1", false)
	assert.Len(t, runIDs, 2)

	applier.mu.Lock()
	defer applier.mu.Unlock()
	assert.Equal(t, 1, applier.txApplied)
	assert.Equal(t, 1, applier.chApplied)
}

type fakeChannelOptimizer struct{}

func (fakeChannelOptimizer) ComputeChannelMap() algorithms.ChannelMap {
	return algorithms.ChannelMap{"ap1": {"2G": 6}}
}

// capturingTPC records the ZoneSerials set visible at compute time, so a
// test can assert a zone's run never saw another zone's devices.
type capturingTPC struct {
	snap algorithms.Snapshot
	seen *[]map[string]struct{}
	mu   *sync.Mutex
}

func (c *capturingTPC) ComputeTxPowerMap() algorithms.TxPowerMap {
	c.mu.Lock()
	*c.seen = append(*c.seen, c.snap.ZoneSerials())
	c.mu.Unlock()

	return algorithms.TxPowerMap{}
}

func TestFire_ZoneRunOnlySeesItsOwnZoneDevices(t *testing.T) {
	reg := registry.New()
	reg.Set(&models.DeviceConfig{SerialNumber: "ap-z1-a", EnableRRM: true, Zone: "z1"})
	reg.Set(&models.DeviceConfig{SerialNumber: "ap-z1-b", EnableRRM: true, Zone: "z1"})
	reg.Set(&models.DeviceConfig{SerialNumber: "ap-z2-a", EnableRRM: true, Zone: "z2"})

	dm := datamodel.New(5, 5)

	var (
		mu   sync.Mutex
		seen []map[string]struct{}
	)

	algos := algorithms.NewRegistry()
	algos.RegisterTPC("capture_tpc", nil, func(snap algorithms.Snapshot, _ map[string]string) (algorithms.TPC, error) {
		return &capturingTPC{snap: snap, seen: &seen, mu: &mu}, nil
	})

	applier := &fakeApplier{}
	s := New(
		[]config.ZoneSchedule{
			{Zone: "z1", Category: "TPC", AlgorithmID: "capture_tpc", CronExpression: "1h"},
			{Zone: "z2", Category: "TPC", AlgorithmID: "capture_tpc", CronExpression: "1h"},
		},
		nil, algos, reg, &fakeModel{dm: dm}, applier, logger.NewTest(),
	)

	_, err := s.TriggerManual(context.Background(), "z1", "TPC", "", nil, false)
	require.NoError(t, err)

	_, err = s.TriggerManual(context.Background(), "z2", "TPC", "", nil, false)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)

	z1Serials := seen[0]
	assert.Contains(t, z1Serials, "ap-z1-a")
	assert.Contains(t, z1Serials, "ap-z1-b")
	assert.NotContains(t, z1Serials, "ap-z2-a")

	z2Serials := seen[1]
	assert.Contains(t, z2Serials, "ap-z2-a")
	assert.NotContains(t, z2Serials, "ap-z1-a")
	assert.NotContains(t, z2Serials, "ap-z1-b")
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
