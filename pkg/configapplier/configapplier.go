// Package configapplier translates computed TPC, channel-assignment, and
// client-steering action maps into device-gateway configuration requests,
// dispatching concurrently across devices within one run without letting
// one device's failure abort the batch.
package configapplier

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/gwclient"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

// maxConcurrentDispatch bounds how many device-gateway requests are
// in flight at once within a single run.
const maxConcurrentDispatch = 16

// GatewayClient is the subset of gwclient.Client the applier dispatches
// through.
type GatewayClient interface {
	Configure(ctx context.Context, serial, configuration string) (*gwclient.CommandInfo, error)
	RunScript(ctx context.Context, serial, script string, timeoutSec int, scriptType string) (*gwclient.CommandInfo, error)
}

// DataModelProvider supplies each device's currently-known configured
// radios, which the applier mutates only the targeted band's field of.
type DataModelProvider interface {
	GetDataModelCopy() *datamodel.DataModel
}

// ConfigApplier is the hand-off point between a computed action map and
// the device-gateway.
type ConfigApplier struct {
	gw    GatewayClient
	model DataModelProvider
	log   logger.Logger
}

// New builds a ConfigApplier.
func New(gw GatewayClient, model DataModelProvider, log logger.Logger) *ConfigApplier {
	return &ConfigApplier{gw: gw, model: model, log: log}
}

// deviceConfiguration is the wire shape POSTed to device/{serial}/configure:
// the device's full radio list, with only the targeted band's field
// mutated.
type deviceConfiguration struct {
	Radios []models.Radio `json:"radios"`
}

// ApplyTxPowerMap pushes one configuration POST per device, each mutating
// only the bands named in m for that device.
func (a *ConfigApplier) ApplyTxPowerMap(ctx context.Context, runID string, m algorithms.TxPowerMap) {
	a.applyPerDevice(ctx, runID, "tx power", m, func(radio *models.Radio, value int) {
		radio.TxPower = value
	})
}

// ApplyChannelMap pushes one configuration POST per device, each mutating
// only the bands named in m for that device.
func (a *ConfigApplier) ApplyChannelMap(ctx context.Context, runID string, m algorithms.ChannelMap) {
	a.applyPerDevice(ctx, runID, "channel", m, func(radio *models.Radio, value int) {
		radio.Channel = value
	})
}

// applyPerDevice is the framework shared by ApplyTxPowerMap and
// ApplyChannelMap: fetch the device's current configured radios, mutate
// the named bands' fields in place via mutate, and POST the result.
// Devices are dispatched concurrently, bounded by maxConcurrentDispatch;
// one device's failure is logged and never aborts the others.
func (a *ConfigApplier) applyPerDevice(ctx context.Context, runID, kind string, m map[string]map[string]int, mutate func(radio *models.Radio, value int)) {
	model := a.model.GetDataModelCopy()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDispatch)

	for serial, byBand := range m {
		serial, byBand := serial, byBand

		g.Go(func() error {
			a.applyOneDevice(gctx, runID, kind, serial, byBand, model, mutate)
			return nil
		})
	}

	_ = g.Wait()
}

func (a *ConfigApplier) applyOneDevice(ctx context.Context, runID, kind, serial string, byBand map[string]int, model *datamodel.DataModel, mutate func(radio *models.Radio, value int)) {
	radios := model.LatestStatusRadios(serial)
	if radios == nil {
		a.log.Warn().Str("runId", runID).Str("serial", serial).Str("kind", kind).
			Msg("no known configured radios for device, skipping apply")
		return
	}

	radios = append([]models.Radio(nil), radios...)

	applied := 0

	for i := range radios {
		if value, ok := byBand[radios[i].Band]; ok {
			mutate(&radios[i], value)
			applied++
		}
	}

	if applied == 0 {
		a.log.Warn().Str("runId", runID).Str("serial", serial).Str("kind", kind).
			Msg("no matching band found on device's configured radios, skipping apply")
		return
	}

	payload, err := json.Marshal(deviceConfiguration{Radios: radios})
	if err != nil {
		a.log.Error().Err(err).Str("runId", runID).Str("serial", serial).Msg("failed to marshal configuration")
		return
	}

	if _, err := a.gw.Configure(ctx, serial, string(payload)); err != nil {
		a.log.Error().Err(err).Str("runId", runID).Str("serial", serial).Str("kind", kind).
			Msg("failed to apply configuration to device")
		return
	}

	a.log.Info().Str("runId", runID).Str("serial", serial).Str("kind", kind).Int("bandsChanged", applied).
		Msg("applied configuration to device")
}

// ApplyClientActions issues one RPC per (serial, client MAC, action),
// dispatched concurrently across devices. Each client-steering action is
// expressed as a script command on the target device, since the
// device-gateway's configuration endpoint only carries declarative radio
// state, not imperative client commands.
func (a *ConfigApplier) ApplyClientActions(ctx context.Context, runID string, m algorithms.ClientActionMap) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDispatch)

	for serial, byClient := range m {
		serial, byClient := serial, byClient

		g.Go(func() error {
			for station, action := range byClient {
				a.applyOneClientAction(gctx, runID, serial, station, action)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (a *ConfigApplier) applyOneClientAction(ctx context.Context, runID, serial, station string, action algorithms.ClientAction) {
	script := steeringScript(station, action)

	if _, err := a.gw.RunScript(ctx, serial, script, steeringScriptTimeoutSec, "ucode"); err != nil {
		a.log.Error().Err(err).Str("runId", runID).Str("serial", serial).Str("station", station).Str("action", string(action)).
			Msg("failed to issue client-steering action")
		return
	}

	a.log.Info().Str("runId", runID).Str("serial", serial).Str("station", station).Str("action", string(action)).
		Msg("issued client-steering action")
}

const steeringScriptTimeoutSec = 10

// steeringScript renders the ucode command for one steering action. The
// gateway's script endpoint is the only imperative-command surface
// available, so every action is expressed as a short script rather than a
// dedicated RPC.
func steeringScript(station string, action algorithms.ClientAction) string {
	switch action {
	case algorithms.ActionDeauthenticate:
		return fmt.Sprintf("ubus call hostapd disassociate '{\"addr\":\"%s\"}'", station)
	case algorithms.ActionSteerUp, algorithms.ActionSteerDown:
		return fmt.Sprintf("ubus call hostapd bss_transition_request '{\"addr\":\"%s\"}'", station)
	default:
		return ""
	}
}
