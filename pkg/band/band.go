// Package band maps radio frequencies and channel numbers to the RRM
// core's band identifiers ("2G", "5G", "6G").
package band

import "github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"

const (
	Band2G = "2G"
	Band5G = "5G"
	Band6G = "6G"
)

// FreqToBand derives a band identifier from a frequency in MHz, or returns
// ("", false) if the frequency falls outside any known band. Unlike a
// channel number, a frequency is unambiguous across bands.
func FreqToBand(freqMHz int) (string, bool) {
	switch {
	case freqMHz >= 2400 && freqMHz < 2500:
		return Band2G, true
	case freqMHz >= 5925 && freqMHz <= 7125:
		return Band6G, true
	case freqMHz >= 5000 && freqMHz < 5925:
		return Band5G, true
	default:
		return "", false
	}
}

// All lists every band identifier the core understands, in a stable order.
func All() []string {
	return []string{Band2G, Band5G, Band6G}
}

// FreqToChannel derives the 802.11 channel number from a frequency in MHz,
// or returns (0, false) if the frequency falls outside any known band.
func FreqToChannel(freqMHz int) (int, bool) {
	switch {
	case freqMHz == 2484:
		return 14, true
	case freqMHz >= 2407 && freqMHz < 2500:
		return (freqMHz - 2407) / 5, true
	case freqMHz >= 5955 && freqMHz <= 7115:
		return (freqMHz - 5950) / 5, true
	case freqMHz >= 5000 && freqMHz < 5895:
		return (freqMHz - 5000) / 5, true
	default:
		return 0, false
	}
}

// ForRadio determines the band of radio by finding the entry in capsByBand
// whose channel list contains radio.Channel. It returns ("", false) if no
// band's capabilities advertise that channel -- callers must skip the
// radio/SSID, never treat this as fatal.
func ForRadio(radio *models.Radio, capsByBand map[string]models.Phy) (string, bool) {
	if radio == nil {
		return "", false
	}

	for bandName, phy := range capsByBand {
		for _, ch := range phy.Channels {
			if ch == radio.Channel {
				return bandName, true
			}
		}
	}

	// Fall back to a band hint reported directly on the radio, if present.
	if radio.Band != "" {
		if _, ok := capsByBand[radio.Band]; ok {
			return radio.Band, true
		}
	}

	return "", false
}
