package gwclient

import "github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"

// loginRequest is the body posted to the oauth2 endpoint.
type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// loginResponse is the subset of the oauth2 response this client needs.
type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// deviceListResponse wraps the device-listing endpoint's response.
type deviceListResponse struct {
	DevicesWithStatus []deviceWithStatus `json:"devicesWithStatus"`
}

type deviceWithStatus struct {
	SerialNumber string `json:"serialNumber"`
}

// statisticsRecordsResponse wraps the newest-statistics endpoint's
// response; each record's nested State payload is decoded directly into
// a models.State through stateEnvelope.
type statisticsRecordsResponse struct {
	Data []statisticsRecord `json:"data"`
}

type statisticsRecord struct {
	Data stateEnvelope `json:"data"`
}

// stateEnvelope mirrors the "state" wrapper object the gateway nests a
// device's telemetry state inside of, both in statistics responses and in
// STATE ingest records.
type stateEnvelope struct {
	State models.State `json:"state"`
}

// wifiScanRequest is the body posted to launch a wifi scan.
type wifiScanRequest struct {
	SerialNumber string `json:"serialNumber"`
	Verbose      bool   `json:"verbose"`
}

// configureRequest is the body posted to push a new device configuration.
type configureRequest struct {
	SerialNumber  string `json:"serialNumber"`
	UUID          int64  `json:"UUID"`
	Configuration string `json:"configuration"`
}

// scriptRequest is the body posted to run a script on a device.
type scriptRequest struct {
	SerialNumber string `json:"serialNumber"`
	Timeout      int    `json:"timeout"`
	Type         string `json:"type"`
	Script       string `json:"script"`
	ScriptID     string `json:"scriptId"`
}

// CommandInfo is the gateway's generic async-command acknowledgement,
// returned by wifiscan/configure/script requests.
type CommandInfo struct {
	UUID      int64  `json:"UUID,omitempty"`
	ErrorCode int    `json:"errorCode,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
	Status    string `json:"status,omitempty"`
}

// capabilitiesResponse wraps the capabilities endpoint's response.
type capabilitiesResponse struct {
	Capabilities models.Capabilities `json:"capabilities"`
}
