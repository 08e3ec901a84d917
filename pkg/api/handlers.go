package api

import (
	"encoding/json"
	"net/http"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

// deviceConfigPatch is the operator-supplied partial update applied to one
// or more DeviceConfig records. A nil field leaves the existing value
// untouched.
type deviceConfigPatch struct {
	EnableRRM          *bool                         `json:"enableRRM,omitempty"`
	Zone               *string                       `json:"zone,omitempty"`
	AllowedChannels    map[string][]int              `json:"allowedChannels,omitempty"`
	AllowedTxPowers    map[string][]int              `json:"allowedTxPowers,omitempty"`
	AlgorithmOverrides map[string]map[string]string  `json:"algorithmOverrides,omitempty"`
}

func applyDeviceConfigPatch(cfg *models.DeviceConfig, patch deviceConfigPatch) {
	if patch.EnableRRM != nil {
		cfg.EnableRRM = *patch.EnableRRM
	}

	if patch.Zone != nil {
		cfg.Zone = *patch.Zone
	}

	if patch.AllowedChannels != nil {
		cfg.AllowedChannels = patch.AllowedChannels
	}

	if patch.AllowedTxPowers != nil {
		cfg.AllowedTxPowers = patch.AllowedTxPowers
	}

	if patch.AlgorithmOverrides != nil {
		cfg.AlgorithmOverrides = patch.AlgorithmOverrides
	}
}

// handleCurrentModel serves GET /api/v1/currentModel: a snapshot of the
// DataModel.
func (s *Server) handleCurrentModel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.model.GetDataModelCopy())
}

// handleGetDeviceConfig serves GET /api/v1/getDeviceConfig?serial=....
func (s *Server) handleGetDeviceConfig(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial")
	if serial == "" {
		s.writeError(w, "missing required query parameter: serial", http.StatusBadRequest)
		return
	}

	cfg := s.devices.Get(serial)
	if cfg == nil {
		s.writeError(w, "unknown device: "+serial, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// handleSetDeviceApConfig serves PUT /api/v1/setDeviceApConfig?serial=....
// It creates the device's registry entry if it does not already exist, so
// an operator can pre-configure an AP before ProvMonitor first observes
// it.
func (s *Server) handleSetDeviceApConfig(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial")
	if serial == "" {
		s.writeError(w, "missing required query parameter: serial", http.StatusBadRequest)
		return
	}

	var patch deviceConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := s.devices.Get(serial)
	if cfg == nil {
		cfg = &models.DeviceConfig{SerialNumber: serial}
	}

	applyDeviceConfigPatch(cfg, patch)
	s.devices.Set(cfg)

	writeJSON(w, http.StatusOK, cfg)
}

// zoneConfigRequest is the body of setDeviceZoneConfig: the target zone
// plus the patch to apply to every device currently assigned to it.
type zoneConfigRequest struct {
	Zone string `json:"zone"`
	deviceConfigPatch
}

// handleSetDeviceZoneConfig serves PUT /api/v1/setDeviceZoneConfig: applies
// a patch to every known device whose Zone matches the request.
func (s *Server) handleSetDeviceZoneConfig(w http.ResponseWriter, r *http.Request) {
	var req zoneConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Zone == "" {
		s.writeError(w, "missing required field: zone", http.StatusBadRequest)
		return
	}

	snapshot, _ := s.devices.Snapshot()

	updated := 0

	for serial, cfg := range snapshot {
		if cfg.Zone != req.Zone {
			continue
		}

		applyDeviceConfigPatch(cfg, req.deviceConfigPatch)
		s.devices.Set(cfg)
		updated++

		_ = serial
	}

	writeJSON(w, http.StatusOK, map[string]int{"devicesUpdated": updated})
}

// handleSetDeviceNetworkConfig serves PUT /api/v1/setDeviceNetworkConfig:
// applies a patch to every known device, regardless of zone.
func (s *Server) handleSetDeviceNetworkConfig(w http.ResponseWriter, r *http.Request) {
	var patch deviceConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, _ := s.devices.Snapshot()

	for _, cfg := range snapshot {
		applyDeviceConfigPatch(cfg, patch)
		s.devices.Set(cfg)
	}

	writeJSON(w, http.StatusOK, map[string]int{"devicesUpdated": len(snapshot)})
}

// handleGetTopology serves GET /api/v1/topology: the current zone ->
// serial-number grouping, derived from the DeviceRegistry.
func (s *Server) handleGetTopology(w http.ResponseWriter, _ *http.Request) {
	snapshot, _ := s.devices.Snapshot()

	byZone := make(map[string][]string)

	for serial, cfg := range snapshot {
		byZone[cfg.Zone] = append(byZone[cfg.Zone], serial)
	}

	writeJSON(w, http.StatusOK, byZone)
}

// handleSetTopology serves PUT /api/v1/topology: a serial -> zone
// reassignment, applied to every named device's registry entry (created
// if absent).
func (s *Server) handleSetTopology(w http.ResponseWriter, r *http.Request) {
	var assignments map[string]string
	if err := json.NewDecoder(r.Body).Decode(&assignments); err != nil {
		s.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	for serial, zone := range assignments {
		cfg := s.devices.Get(serial)
		if cfg == nil {
			cfg = &models.DeviceConfig{SerialNumber: serial}
		}

		cfg.Zone = zone
		s.devices.Set(cfg)
	}

	writeJSON(w, http.StatusOK, map[string]int{"devicesUpdated": len(assignments)})
}

// runResponse is the JSON body returned by every manual-trigger endpoint.
type runResponse struct {
	RunID string `json:"runId,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleOptimizeChannel serves POST
// /api/v1/optimizeChannel?zone=...&mode=...&dryRun=....  mode, if present,
// overrides the zone's configured channel-assignment algorithm ID for
// this run only.
func (s *Server) handleOptimizeChannel(w http.ResponseWriter, r *http.Request) {
	s.triggerCategory(w, r, "CHANNEL", r.URL.Query().Get("mode"))
}

// handleOptimizeTxPower serves POST
// /api/v1/optimizeTxPower?zone=...&algorithm=...&dryRun=....
func (s *Server) handleOptimizeTxPower(w http.ResponseWriter, r *http.Request) {
	s.triggerCategory(w, r, "TPC", r.URL.Query().Get("algorithm"))
}

func (s *Server) triggerCategory(w http.ResponseWriter, r *http.Request, category, overrideAlgorithmID string) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		s.writeError(w, "missing required query parameter: zone", http.StatusBadRequest)
		return
	}

	dryRun := parseBoolQuery(r, "dryRun")

	runID, err := s.scheduler.TriggerManual(r.Context(), zone, category, overrideAlgorithmID, nil, dryRun)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{RunID: runID})
}

// handleRunRRM serves POST /api/v1/runRRM?zone=...&dryRun=...: runs every
// configured category for the zone.
func (s *Server) handleRunRRM(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		s.writeError(w, "missing required query parameter: zone", http.StatusBadRequest)
		return
	}

	dryRun := parseBoolQuery(r, "dryRun")

	runIDs := s.scheduler.RunAllCategories(r.Context(), zone, dryRun)

	writeJSON(w, http.StatusOK, map[string][]string{"runIds": runIDs})
}

// handleAlgorithms serves GET /api/v1/algorithms.
func (s *Server) handleAlgorithms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Algorithms())
}

func parseBoolQuery(r *http.Request, key string) bool {
	return r.URL.Query().Get(key) == "true"
}
