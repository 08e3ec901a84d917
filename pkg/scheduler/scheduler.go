// Package scheduler implements RRMScheduler: per-(zone,category) timer
// jobs that build an algorithm from the current DataModel snapshot and
// DeviceRegistry, single-flight-serialize concurrent runs, and hand the
// resulting action map off to a ConfigApplier.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/steeringstate"
)

const defaultInterval = 5 * time.Minute

// errAlreadyRunning is returned by TriggerManual (and logged as a warning
// by the ticker loop) when a (zone, category) job is still in flight.
var errAlreadyRunning = fmt.Errorf("a run for this zone/category is already in progress")

// DataModelProvider supplies the deep DataModel snapshot each algorithm
// run computes over.
type DataModelProvider interface {
	GetDataModelCopy() *datamodel.DataModel
}

// Applier is the ConfigApplier contract the scheduler hands computed
// action maps off to. Implementations own their own per-device failure
// isolation and logging -- a run never fails because one device's
// configuration POST failed.
type Applier interface {
	ApplyTxPowerMap(ctx context.Context, runID string, m algorithms.TxPowerMap)
	ApplyChannelMap(ctx context.Context, runID string, m algorithms.ChannelMap)
	ApplyClientActions(ctx context.Context, runID string, m algorithms.ClientActionMap)
}

// RRMScheduler fires one job per (zone, category) on its own ticker,
// single-flight-serializing runs so an overlapping trigger is dropped
// rather than queued.
type RRMScheduler struct {
	jobs    []Job
	store   ScheduleStore
	algos   *algorithms.Registry
	devices *registry.DeviceRegistry
	model   DataModelProvider
	applier Applier
	steer   *steeringstate.ClientSteeringState
	clock   Clock
	log     logger.Logger

	running   sync.Map // key() -> *atomic.Bool
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New builds an RRMScheduler from the configured zone schedules. store may
// be nil, in which case every job uses its config-file default forever.
func New(
	zones []config.ZoneSchedule,
	store ScheduleStore,
	algos *algorithms.Registry,
	devices *registry.DeviceRegistry,
	model DataModelProvider,
	applier Applier,
	log logger.Logger,
) *RRMScheduler {
	jobs := make([]Job, len(zones))
	for i, z := range zones {
		jobs[i] = Job{
			Zone:        z.Zone,
			Category:    z.Category,
			AlgorithmID: z.AlgorithmID,
			Interval:    z.CronExpression,
			Args:        z.Args,
		}
	}

	return &RRMScheduler{
		jobs:    jobs,
		store:   store,
		algos:   algos,
		devices: devices,
		model:   model,
		applier: applier,
		steer:   steeringstate.New(),
		clock:   realClock{},
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start runs every configured job on its own ticker until ctx is canceled
// or Stop is called. It blocks until all job loops have exited.
func (s *RRMScheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.runJobLoop(ctx, job)
		}()
	}

	s.wg.Wait()

	return ctx.Err()
}

// Stop signals every job loop to exit and waits for them to finish.
func (s *RRMScheduler) Stop() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *RRMScheduler) runJobLoop(ctx context.Context, job Job) {
	interval, err := time.ParseDuration(job.Interval)
	if err != nil || interval <= 0 {
		s.log.Warn().Str("zone", job.Zone).Str("category", job.Category).Str("interval", job.Interval).
			Msg("invalid or missing job interval, falling back to default")
		interval = defaultInterval
	}

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.Chan():
			_, _ = s.fire(ctx, job, false)
		}
	}
}

// TriggerManual runs the given (zone, category) job immediately, using
// whatever algorithm/args are currently configured for it, subject to the
// same single-flight lock as the ticker loop. It returns the generated run
// ID, or an error if a run for this (zone, category) is already in flight
// or no job is configured for it.
func (s *RRMScheduler) TriggerManual(ctx context.Context, zone, category string, overrideAlgorithmID string, args map[string]string, dryRun bool) (string, error) {
	job, ok := s.findJob(zone, category)
	if !ok {
		return "", fmt.Errorf("no job configured for zone %q category %q", zone, category)
	}

	if overrideAlgorithmID != "" {
		job.AlgorithmID = overrideAlgorithmID
	}

	if args != nil {
		job.Args = args
	}

	return s.fire(ctx, job, dryRun)
}

func (s *RRMScheduler) findJob(zone, category string) (Job, bool) {
	for _, job := range s.jobs {
		if job.Zone == zone && job.Category == category {
			return job, true
		}
	}

	return Job{}, false
}

// fire resolves any persisted schedule override, acquires the
// (zone,category) single-flight lock, and runs the job's algorithm to
// completion. The returned run ID correlates this run's log lines and
// ConfigApplier dispatch.
func (s *RRMScheduler) fire(ctx context.Context, job Job, dryRun bool) (string, error) {
	if resolved, ok, err := s.resolveOverride(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("zone", job.Zone).Str("category", job.Category).Msg("failed to resolve schedule override, using config default")
	} else if ok {
		job = resolved
	}

	key := job.key()

	flag, _ := s.running.LoadOrStore(key, new(atomic.Bool))
	running := flag.(*atomic.Bool)

	if !running.CompareAndSwap(false, true) {
		s.log.Warn().Str("zone", job.Zone).Str("category", job.Category).Msg("run already in progress, dropping trigger")
		return "", errAlreadyRunning
	}
	defer running.Store(false)

	runID := uuid.NewString()

	s.log.Info().Str("runId", runID).Str("zone", job.Zone).Str("category", job.Category).Str("algorithmId", job.AlgorithmID).
		Msg("starting RRM run")

	snap := algorithms.Snapshot{
		Model:   s.model.GetDataModelCopy(),
		Zone:    job.Zone,
		Devices: s.devices,
		Log:     s.log,
	}

	switch job.Category {
	case string(algorithms.CategoryTPC):
		algo, err := s.algos.GetTPC(job.AlgorithmID, snap, job.Args)
		if err != nil {
			s.log.Error().Err(err).Str("runId", runID).Msg("failed to build TPC algorithm")
			return runID, err
		}

		txPowerMap := algo.ComputeTxPowerMap()
		if dryRun {
			s.log.Info().Str("runId", runID).Int("devices", len(txPowerMap)).Msg("dry run, not applying tx power map")
		} else {
			s.applier.ApplyTxPowerMap(ctx, runID, txPowerMap)
		}
	case string(algorithms.CategoryChannel):
		algo, err := s.algos.GetChannel(job.AlgorithmID, snap, job.Args)
		if err != nil {
			s.log.Error().Err(err).Str("runId", runID).Msg("failed to build channel algorithm")
			return runID, err
		}

		channelMap := algo.ComputeChannelMap()
		if dryRun {
			s.log.Info().Str("runId", runID).Int("devices", len(channelMap)).Msg("dry run, not applying channel map")
		} else {
			s.applier.ApplyChannelMap(ctx, runID, channelMap)
		}
	case string(algorithms.CategoryClientSteering):
		algo, err := s.algos.GetClientSteering(job.AlgorithmID, snap, s.steer, job.Args)
		if err != nil {
			s.log.Error().Err(err).Str("runId", runID).Msg("failed to build client-steering algorithm")
			return runID, err
		}

		actionMap := algo.ComputeApClientActionMap(dryRun)
		if dryRun {
			s.log.Info().Str("runId", runID).Int("devices", len(actionMap)).Msg("dry run, not applying client actions")
		} else {
			s.applier.ApplyClientActions(ctx, runID, actionMap)
		}
	default:
		err := fmt.Errorf("unknown algorithm category: %s", job.Category)
		s.log.Error().Err(err).Str("runId", runID).Msg("cannot dispatch run")

		return runID, err
	}

	s.log.Info().Str("runId", runID).Msg("RRM run complete")

	return runID, nil
}

// RunAllCategories runs every category configured for zone in turn (the
// `runRRM` operator endpoint). It does not stop early if one category
// fails; all configured categories for the zone are attempted.
func (s *RRMScheduler) RunAllCategories(ctx context.Context, zone string, dryRun bool) []string {
	var runIDs []string

	for _, job := range s.jobs {
		if job.Zone != zone {
			continue
		}

		runID, err := s.fire(ctx, job, dryRun)
		if err != nil {
			s.log.Warn().Err(err).Str("zone", zone).Str("category", job.Category).Msg("category run failed during runRRM")
		}

		if runID != "" {
			runIDs = append(runIDs, runID)
		}
	}

	return runIDs
}

func (s *RRMScheduler) resolveOverride(ctx context.Context, job Job) (Job, bool, error) {
	if s.store == nil {
		return Job{}, false, nil
	}

	return s.store.Get(ctx, job.Zone, job.Category)
}

// Algorithms exposes the underlying registry for the `/api/v1/algorithms`
// listing endpoint.
func (s *RRMScheduler) Algorithms() []algorithms.Info {
	return s.algos.List()
}
