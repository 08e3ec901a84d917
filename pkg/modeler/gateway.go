package modeler

import (
	"context"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

// DeviceGatewayClient is the subset of the south-bound device-gateway
// collaborator (pkg/gwclient) the Modeler needs for startup backfill.
type DeviceGatewayClient interface {
	// Ready reports whether the client has completed its initial
	// connection/discovery and is safe to query.
	Ready(ctx context.Context) bool
	// ListDevices returns every device serial the gateway currently
	// knows about.
	ListDevices(ctx context.Context) ([]string, error)
	// LatestState fetches the single most recent State for serial, or
	// (nil, nil) if the gateway has none yet.
	LatestState(ctx context.Context, serial string) (*models.State, error)
}

// Archiver is the optional historical-state collaborator (pkg/archive).
// A nil Archiver is a documented no-op -- the Modeler never blocks an
// ingest record on it.
type Archiver interface {
	RecordState(ctx context.Context, serial string, state models.State)
}
