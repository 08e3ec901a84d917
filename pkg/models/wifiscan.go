package models

import (
	"encoding/base64"
	"time"
)

// WifiScanEntry is one observation of a neighbor AP reported in a device's
// wifi-scan result.
type WifiScanEntry struct {
	BSSID       string `json:"bssid,omitempty"`
	FrequencyMHz int    `json:"frequency"`
	SignalDBm   int    `json:"signal"`

	// TimestampMs is stamped onto every entry in a scan result with the
	// record's ingest timestamp (not reported by the device itself).
	TimestampMs int64 `json:"timestampMs,omitempty"`

	// HTOperation and VHTOperation are base64-encoded 802.11 information
	// elements. VHTOperation is decoded lazily via DecodeVHTOperation; a
	// decode failure (bad base64, truncated element) drops just this IE,
	// never the whole scan entry. HTOperation is kept as the raw string
	// and is not decoded.
	HTOperation  string `json:"htOper,omitempty"`
	VHTOperation string `json:"vhtOper,omitempty"`
}

// IngestTime returns the entry's ingest timestamp.
func (e *WifiScanEntry) IngestTime() time.Time {
	return time.UnixMilli(e.TimestampMs)
}

// VHTOperationElement holds the decoded fields of a VHT Operation IE used
// for aggregation matching; see 802.11-2020 clause 9.4.2.159.
type VHTOperationElement struct {
	ChannelWidth byte
	Channel1     byte
	Channel2     byte
}

// DecodeVHTOperation base64-decodes and parses e.VHTOperation. It returns
// (nil, false) if the IE is absent or malformed -- malformed IEs are
// dropped per-entry, never treated as a fatal error.
func (e *WifiScanEntry) DecodeVHTOperation() (*VHTOperationElement, bool) {
	if e.VHTOperation == "" {
		return nil, false
	}

	raw, err := base64.StdEncoding.DecodeString(e.VHTOperation)
	if err != nil || len(raw) < 3 {
		return nil, false
	}

	return &VHTOperationElement{
		ChannelWidth: raw[0],
		Channel1:     raw[1],
		Channel2:     raw[2],
	}, true
}

// MatchesForAggregation reports whether two VHT operation elements "match"
// for the purpose of aggregating statistics (everything but the MCS map).
func (v *VHTOperationElement) MatchesForAggregation(other *VHTOperationElement) bool {
	if v == nil || other == nil {
		return v == other
	}

	return v.ChannelWidth == other.ChannelWidth &&
		v.Channel1 == other.Channel1 &&
		v.Channel2 == other.Channel2
}
