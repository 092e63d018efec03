package goble

import (
	"github.com/go-ble/ble"

	"github.com/srg/hrmon/internal/heartrate"
)

// advertisement wraps ble.Advertisement to implement heartrate.Advertisement
type advertisement struct {
	adv ble.Advertisement
}

// NewAdvertisement creates a heartrate.Advertisement from a go-ble advertisement
func NewAdvertisement(adv ble.Advertisement) heartrate.Advertisement {
	return &advertisement{adv: adv}
}

func (a *advertisement) LocalName() string { return a.adv.LocalName() }
func (a *advertisement) RSSI() int         { return a.adv.RSSI() }

func (a *advertisement) Addr() string {
	if a.adv.Addr() == nil {
		return ""
	}
	return a.adv.Addr().String()
}

func (a *advertisement) Services() []string {
	bleServices := a.adv.Services()
	result := make([]string, len(bleServices))
	for i, svc := range bleServices {
		result[i] = svc.String()
	}
	return result
}
