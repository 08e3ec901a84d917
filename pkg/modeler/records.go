package modeler

import "encoding/json"

// RecordType distinguishes the two Kafka record kinds the Modeler
// understands.
type RecordType string

const (
	RecordTypeState    RecordType = "STATE"
	RecordTypeWifiScan RecordType = "WIFISCAN"
)

// KafkaRecord is one ingest-queue entry, tagged with the serial number it
// belongs to and the ingest timestamp, carrying the raw JSON payload for
// later parsing.
type KafkaRecord struct {
	SerialNumber string
	TimestampMs  int64
	Payload      json.RawMessage
}

// KafkaListener is the interface the message-transport adapter
// (pkg/ingest) dispatches decoded records into. It only enqueues --
// parsing and DataModel mutation happen on the Modeler's own worker.
type KafkaListener interface {
	HandleStateRecords(records []KafkaRecord)
	HandleWifiScanRecords(records []KafkaRecord)
}

// statePayload is the shape of a STATE record's JSON payload: the state
// object nested under a "state" key.
type statePayload struct {
	State json.RawMessage `json:"state"`
}
