// Package modeler implements the RRM core's single-writer ingest loop:
// it drains a bounded queue of Kafka-sourced STATE/WIFISCAN records into
// the DataModel, filtering out non-RRM-enabled devices, and exposes the
// live reference and deep-copy snapshot accessors every algorithm reads
// from.
package modeler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
)

// queueCapacity bounds the ingest queue so sustained backpressure is
// visible (a full queue blocks the caller) rather than growing unbounded.
const queueCapacity = 4096

// readyPollInterval is how often fetchInitialData retries while waiting
// for the device-gateway client to report ready.
const readyPollInterval = 2 * time.Second

type inputData struct {
	kind    RecordType
	records []KafkaRecord
}

// Modeler is the RRM core's ingest loop. Exactly one goroutine (Run)
// mutates the DataModel; every other caller reads through GetDataModel or
// GetDataModelCopy.
type Modeler struct {
	params  config.ModelerParams
	devices *registry.DeviceRegistry
	model   *datamodel.DataModel
	gw      DeviceGatewayClient
	archive Archiver
	log     logger.Logger

	queue chan inputData
	done  chan struct{}
	wg    sync.WaitGroup
}

// New constructs a Modeler. gw may be nil if startup backfill is
// unavailable; archive may be nil, which disables historical persistence.
func New(params config.ModelerParams, devices *registry.DeviceRegistry, gw DeviceGatewayClient, archive Archiver, log logger.Logger) *Modeler {
	stateBuf := params.StateBufferSize
	if stateBuf <= 0 {
		stateBuf = datamodel.DefaultStateBufferSize
	}

	scanBuf := params.WifiScanBufferSize
	if scanBuf <= 0 {
		scanBuf = datamodel.DefaultWifiScanBufferSize
	}

	return &Modeler{
		params:  params,
		devices: devices,
		model:   datamodel.New(stateBuf, scanBuf),
		gw:      gw,
		archive: archive,
		log:     log,
		queue:   make(chan inputData, queueCapacity),
		done:    make(chan struct{}),
	}
}

// HandleStateRecords implements KafkaListener: it only enqueues, never
// touching the DataModel directly -- that happens exclusively on Run's
// goroutine.
func (m *Modeler) HandleStateRecords(records []KafkaRecord) {
	m.enqueue(RecordTypeState, records)
}

// HandleWifiScanRecords implements KafkaListener.
func (m *Modeler) HandleWifiScanRecords(records []KafkaRecord) {
	m.enqueue(RecordTypeWifiScan, records)
}

func (m *Modeler) enqueue(kind RecordType, records []KafkaRecord) {
	select {
	case m.queue <- inputData{kind: kind, records: records}:
	case <-m.done:
	}
}

// Run fetches initial data once, then drains the ingest queue until ctx
// is canceled. It is the Modeler's single DataModel-mutating goroutine.
func (m *Modeler) Run(ctx context.Context) error {
	m.log.Info().Msg("fetching initial data")
	m.fetchInitialData(ctx)

	m.log.Info().Msg("modeler awaiting data")

	for {
		select {
		case <-ctx.Done():
			close(m.done)
			return ctx.Err()
		case data := <-m.queue:
			m.processData(ctx, data)
		}
	}
}

// fetchInitialData enumerates the device-gateway and seeds one initial
// State per RRM-enabled device before the ingest loop starts processing
// queued records. A failure to list devices is logged and the Modeler
// still becomes healthy and ingests from the queue -- it never retries in
// a loop beyond waiting for the gateway client itself to become ready.
func (m *Modeler) fetchInitialData(ctx context.Context) {
	if m.gw == nil {
		return
	}

	for !m.gw.Ready(ctx) {
		m.log.Trace().Msg("waiting for device-gateway client")

		select {
		case <-ctx.Done():
			return
		case <-time.After(readyPollInterval):
		}
	}

	serials, err := m.gw.ListDevices(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to fetch devices")
		return
	}

	m.log.Debug().Int("count", len(serials)).Msg("received device list")

	for _, serial := range serials {
		if !m.devices.IsRRMEnabled(serial) {
			m.log.Debug().Str("serial", serial).Msg("skipping data for non-RRM-enabled device")
			continue
		}

		state, err := m.gw.LatestState(ctx, serial)
		if err != nil {
			m.log.Error().Err(err).Str("serial", serial).Msg("failed to fetch initial state")
			continue
		}

		if state == nil {
			continue
		}

		m.model.AppendState(serial, *state)
		m.log.Debug().Str("serial", serial).Msg("added initial state from device gateway")
	}
}

// processData applies one batch of records, filtering out any that
// belong to a non-RRM-enabled device before parsing.
func (m *Modeler) processData(ctx context.Context, data inputData) {
	filtered := make([]KafkaRecord, 0, len(data.records))

	for _, rec := range data.records {
		if m.devices.IsRRMEnabled(rec.SerialNumber) {
			filtered = append(filtered, rec)
		}
	}

	if dropped := len(data.records) - len(filtered); dropped > 0 {
		m.log.Debug().Int("count", dropped).Msg("dropping records for non-RRM-enabled devices")
	}

	switch data.kind {
	case RecordTypeState:
		m.processStateRecords(ctx, filtered)
	case RecordTypeWifiScan:
		m.processWifiScanRecords(filtered)
	}
}

func (m *Modeler) processStateRecords(ctx context.Context, records []KafkaRecord) {
	for _, rec := range records {
		var wrapper statePayload
		if err := json.Unmarshal(rec.Payload, &wrapper); err != nil || len(wrapper.State) == 0 {
			m.log.Error().Err(err).Str("serial", rec.SerialNumber).Msg("failed to unwrap state payload")
			continue
		}

		var state models.State
		if err := json.Unmarshal(wrapper.State, &state); err != nil {
			m.log.Error().Err(err).Str("serial", rec.SerialNumber).Msg("failed to deserialize state")
			continue
		}

		m.model.AppendState(rec.SerialNumber, state)

		if m.archive != nil {
			m.archive.RecordState(ctx, rec.SerialNumber, state)
		}
	}
}

func (m *Modeler) processWifiScanRecords(records []KafkaRecord) {
	for _, rec := range records {
		var rawEntries []models.WifiScanEntry
		if err := json.Unmarshal(rec.Payload, &rawEntries); err != nil {
			m.log.Error().Err(err).Str("serial", rec.SerialNumber).Msg("failed to parse wifi scan entries")
			continue
		}

		for i := range rawEntries {
			rawEntries[i].TimestampMs = rec.TimestampMs
		}

		m.model.AppendWifiScan(rec.SerialNumber, rawEntries)
	}
}

// UpdateDeviceCapabilities replaces a device's per-band PHY capabilities
// wholesale, in response to a capabilities-refresh collaborator push.
func (m *Modeler) UpdateDeviceCapabilities(serial string, capsByBand map[string]models.Phy) {
	m.model.SetCapabilities(serial, capsByBand)
}

// UpdateDeviceConfig replaces a device's reported radio list, in response
// to a configuration-push collaborator event, logging only when the set
// of bands present changes.
func (m *Modeler) UpdateDeviceConfig(serial string, radios []models.Radio) {
	oldBands := bandSet(m.model.LatestStatusRadios(serial))
	newBands := bandSet(radios)

	m.model.SetStatusRadios(serial, radios)

	if !equalSets(oldBands, newBands) {
		m.log.Info().Str("serial", serial).Strs("bands", setToSlice(newBands)).Strs("wasBands", setToSlice(oldBands)).Msg("device radio bands changed")
	}
}

func bandSet(radios []models.Radio) map[string]struct{} {
	out := make(map[string]struct{}, len(radios))

	for _, r := range radios {
		if r.Band != "" {
			out[r.Band] = struct{}{}
		}
	}

	return out
}

func equalSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}

	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}

	return true
}

func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}

	return out
}

// Revalidate purges every DataModel sub-map of devices no longer
// RRM-enabled. It is a standalone operation, invokable by ProvMonitor
// after any DeviceRegistry change, not just at startup.
func (m *Modeler) Revalidate() {
	m.model.Revalidate(m.devices.IsRRMEnabled)
}

// GetDataModel returns the live DataModel reference. Callers promise not
// to mutate it -- every algorithm must use GetDataModelCopy instead.
func (m *Modeler) GetDataModel() *datamodel.DataModel {
	return m.model
}

// GetDataModelCopy returns a deep structural snapshot of the DataModel,
// safe for an algorithm to read without any further locking.
func (m *Modeler) GetDataModelCopy() *datamodel.DataModel {
	return m.model.Copy()
}
