package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// State is one telemetry snapshot reported by a device. It is immutable
// once inserted into the DataModel.
type State struct {
	Radios     []Radio     `json:"radios,omitempty"`
	Interfaces []Interface `json:"interfaces,omitempty"`
}

// Radio describes one radio's current operating parameters.
type Radio struct {
	Channel int    `json:"channel"`
	TxPower int    `json:"tx_power"`
	Band    string `json:"band,omitempty"`
	Phy     string `json:"phy,omitempty"`
}

// Interface groups one or more SSIDs broadcast together.
type Interface struct {
	Name string `json:"name,omitempty"`
	SSID []SSID `json:"ssids,omitempty"`
}

// SSID is one broadcast SSID on an interface. Radio is a JSON Pointer-style
// back-reference (`{"$ref": "#/radios/0"}`) into the enclosing State's
// Radios slice; use RadioIndex to resolve it.
type SSID struct {
	BSSID        string        `json:"bssid,omitempty"`
	Radio        json.RawMessage `json:"radio,omitempty"`
	Associations []Association `json:"associations,omitempty"`
}

// Association is one client associated to an SSID.
type Association struct {
	Station string `json:"station,omitempty"`
	RSSI    int    `json:"rssi"`
}

type jsonRef struct {
	Ref string `json:"$ref"`
}

// RadioIndex parses the SSID's "$ref" back-reference into an integer index
// into the enclosing State's Radios slice. It returns false if the
// reference is missing, malformed, or not parseable as an integer; callers
// should skip the SSID in that case rather than the whole device.
func (s *SSID) RadioIndex() (int, bool) {
	if len(s.Radio) == 0 {
		return 0, false
	}

	var ref jsonRef
	if err := json.Unmarshal(s.Radio, &ref); err != nil || ref.Ref == "" {
		return 0, false
	}

	return ParseReferenceIndex(ref.Ref)
}

// ParseReferenceIndex extracts the trailing integer component of a JSON
// Pointer reference such as "#/radios/3".
func ParseReferenceIndex(ref string) (int, bool) {
	idx := strings.LastIndex(ref, "/")
	if idx < 0 || idx == len(ref)-1 {
		return 0, false
	}

	n, err := strconv.Atoi(ref[idx+1:])
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// RadioAt safely resolves idx into the State's Radios slice.
func (st *State) RadioAt(idx int) (*Radio, bool) {
	if idx < 0 || idx >= len(st.Radios) {
		return nil, false
	}

	return &st.Radios[idx], true
}

// String implements fmt.Stringer for debug logging.
func (st *State) String() string {
	return fmt.Sprintf("State{radios=%d, interfaces=%d}", len(st.Radios), len(st.Interfaces))
}

// Clone returns a deep copy of st: a fresh Radios slice, and a fresh
// Interfaces slice whose SSIDs each get fresh Associations and Radio
// slices, so mutating the clone never reaches back into st's backing
// arrays.
func (st State) Clone() State {
	clone := State{
		Radios: append([]Radio(nil), st.Radios...),
	}

	if st.Interfaces != nil {
		clone.Interfaces = make([]Interface, len(st.Interfaces))

		for i, iface := range st.Interfaces {
			clonedIface := Interface{
				Name: iface.Name,
				SSID: make([]SSID, len(iface.SSID)),
			}

			for j, ssid := range iface.SSID {
				clonedIface.SSID[j] = SSID{
					BSSID:        ssid.BSSID,
					Radio:        append(json.RawMessage(nil), ssid.Radio...),
					Associations: append([]Association(nil), ssid.Associations...),
				}
			}

			clone.Interfaces[i] = clonedIface
		}
	}

	return clone
}
