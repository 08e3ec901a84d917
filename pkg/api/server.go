// Package api implements the northbound operator REST API: read/write
// access to the DataModel snapshot and DeviceRegistry, and manual
// algorithm-run triggers, routed with gorilla/mux.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/datamodel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
)

// DataModelProvider supplies the read-only DataModel snapshot behind
// GET /api/v1/currentModel.
type DataModelProvider interface {
	GetDataModelCopy() *datamodel.DataModel
}

// Scheduler is the subset of RRMScheduler the REST API drives manual runs
// through.
type Scheduler interface {
	TriggerManual(ctx context.Context, zone, category, overrideAlgorithmID string, args map[string]string, dryRun bool) (string, error)
	RunAllCategories(ctx context.Context, zone string, dryRun bool) []string
	Algorithms() []algorithms.Info
}

// Server is the northbound operator REST API server.
type Server struct {
	router    *mux.Router
	devices   *registry.DeviceRegistry
	model     DataModelProvider
	scheduler Scheduler
	log       logger.Logger
}

// New builds a Server and registers every route.
func New(devices *registry.DeviceRegistry, model DataModelProvider, scheduler Scheduler, log logger.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		devices:   devices,
		model:     model,
		scheduler: scheduler,
		log:       log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/currentModel", s.handleCurrentModel).Methods(http.MethodGet)

	api.HandleFunc("/getDeviceConfig", s.handleGetDeviceConfig).Methods(http.MethodGet)
	api.HandleFunc("/setDeviceApConfig", s.handleSetDeviceApConfig).Methods(http.MethodPut)
	api.HandleFunc("/setDeviceZoneConfig", s.handleSetDeviceZoneConfig).Methods(http.MethodPut)
	api.HandleFunc("/setDeviceNetworkConfig", s.handleSetDeviceNetworkConfig).Methods(http.MethodPut)

	api.HandleFunc("/topology", s.handleGetTopology).Methods(http.MethodGet)
	api.HandleFunc("/topology", s.handleSetTopology).Methods(http.MethodPut)

	api.HandleFunc("/optimizeChannel", s.handleOptimizeChannel).Methods(http.MethodPost)
	api.HandleFunc("/optimizeTxPower", s.handleOptimizeTxPower).Methods(http.MethodPost)
	api.HandleFunc("/runRRM", s.handleRunRRM).Methods(http.MethodPost)

	api.HandleFunc("/algorithms", s.handleAlgorithms).Methods(http.MethodGet)
}

// Router returns the configured http.Handler, for wiring into an
// http.Server or httptest.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

// errorResponse is the JSON body written for every non-2xx response.
type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.log.Warn().Int("status", status).Msg(message)

	writeJSON(w, status, errorResponse{Message: message, Status: status})
}
