// Package provmonitor implements ProvMonitor: a ticker-driven loop that
// polls the provisioning service for the RRM-enabled device inventory and
// reconciles it into the DeviceRegistry, triggering a DataModel
// revalidation after any change.
package provmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
)

const defaultPollInterval = 1 * time.Minute

// Revalidator is the Modeler contract ProvMonitor calls into after any
// DeviceRegistry change, so algorithms never see a DataModel entry for a
// device that was just deprovisioned or disabled for RRM.
type Revalidator interface {
	Revalidate()
}

// ProvMonitor periodically polls the provisioning service and reconciles
// the result into the DeviceRegistry.
type ProvMonitor struct {
	prov     *provClient
	devices  *registry.DeviceRegistry
	modeler  Revalidator
	interval time.Duration
	log      logger.Logger

	clock     Clock
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Clock abstracts time.Ticker so tests can drive ProvMonitor's loop
// without a real timer. Satisfied by scheduler.Clock's shape; kept
// independent so this package does not import pkg/scheduler.
type Clock interface {
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts *time.Ticker.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Ticker(d time.Duration) Ticker { return &realTicker{t: time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r *realTicker) Chan() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()                  { r.t.Stop() }

// New builds a ProvMonitor.
func New(cfg config.ProvisioningConfig, devices *registry.DeviceRegistry, modeler Revalidator, log logger.Logger) *ProvMonitor {
	interval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &ProvMonitor{
		prov:     newProvClient(cfg, log),
		devices:  devices,
		modeler:  modeler,
		interval: interval,
		log:      log,
		clock:    realClock{},
		done:     make(chan struct{}),
	}
}

// Run polls immediately, then on every tick, until ctx is canceled or Stop
// is called. It blocks until the loop exits.
func (p *ProvMonitor) Run(ctx context.Context) error {
	p.wg.Add(1)
	defer p.wg.Done()

	p.pollOnce(ctx)

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		case <-ticker.Chan():
			p.pollOnce(ctx)
		}
	}
}

// Stop signals Run to exit and waits for it to finish.
func (p *ProvMonitor) Stop() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

// pollOnce fetches the RRM-enabled inventory, resolves every device's RRM
// settings, and reconciles the result into the DeviceRegistry. A failure
// to reach the provisioning service is logged and the registry is left
// untouched until the next tick.
func (p *ProvMonitor) pollOnce(ctx context.Context) {
	serials, err := p.prov.listRRMEnabledSerials(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to list RRM-enabled inventory, skipping this poll")
		return
	}

	desired := make(map[string]*models.DeviceConfig, len(serials))

	for _, serial := range serials {
		cfg, err := p.buildDeviceConfig(ctx, serial)
		if err != nil {
			p.log.Warn().Err(err).Str("serial", serial).Msg("failed to fetch RRM details for device, skipping it this poll")

			if existing := p.devices.Get(serial); existing != nil {
				desired[serial] = existing
			}

			continue
		}

		desired[serial] = cfg
	}

	removed := p.devices.Reconcile(desired)

	p.log.Info().Int("devices", len(desired)).Int("removed", len(removed)).Msg("reconciled DeviceRegistry from provisioning service")

	if len(removed) > 0 {
		p.modeler.Revalidate()
	}
}

func (p *ProvMonitor) buildDeviceConfig(ctx context.Context, serial string) (*models.DeviceConfig, error) {
	details, err := p.prov.getRRMDetails(ctx, serial)
	if err != nil {
		return nil, err
	}

	return &models.DeviceConfig{
		SerialNumber:       serial,
		EnableRRM:          true,
		Zone:               details.Zone,
		AllowedChannels:    details.AllowedChannels,
		AllowedTxPowers:    details.AllowedTxPowers,
		AlgorithmOverrides: details.Overrides,
	}, nil
}
