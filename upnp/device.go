package upnp

import (
	"fmt"
	"net/url"
)

const (
	// MediaRendererType is the only device type the bridge accepts.
	MediaRendererType = "urn:schemas-upnp-org:device:MediaRenderer:1"

	AVTransportID       = "urn:upnp-org:serviceId:AVTransport"
	ConnectionManagerID = "urn:upnp-org:serviceId:ConnectionManager"
)

// Service describes one service entry of a device description.
// URLs are kept as announced; Device.AbsoluteURL resolves them.
type Service struct {
	ServiceType string
	ServiceID   string
	ControlURL  string
	EventSubURL string
	SCPDURL     string
}

// Device is a discovered UPnP device, built from its description
// document. It is a read-only descriptor: once parsed it is never
// mutated, so it may be shared between goroutines.
type Device struct {
	UDN          string
	DeviceType   string
	FriendlyName string
	Manufacturer string
	ModelName    string

	// Location is the URL the description was fetched from.
	Location string

	baseURL  *url.URL
	services []*Service
	embedded []*Device
}

// String renders the device the way it appears in every bridge log line.
func (d *Device) String() string {
	return fmt.Sprintf("%s [UDN=%s]", d.FriendlyName, d.UDN)
}

func (d *Device) Services() []*Service {
	return d.services
}

// ServiceByID returns the service with the given serviceId, if declared.
func (d *Device) ServiceByID(id string) (*Service, bool) {
	for _, svc := range d.services {
		if svc.ServiceID == id {
			return svc, true
		}
	}
	return nil, false
}

func (d *Device) HasService(id string) bool {
	_, ok := d.ServiceByID(id)
	return ok
}

// BaseURL returns the URL service URLs resolve against: the URLBase
// element when the description carries one, the description location
// otherwise.
func (d *Device) BaseURL() string {
	if d.baseURL == nil {
		return d.Location
	}
	return d.baseURL.String()
}

// AbsoluteURL resolves a (possibly relative) URL from the description
// against the device base URL.
func (d *Device) AbsoluteURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	base := d.baseURL
	if base == nil {
		base, err = url.Parse(d.Location)
		if err != nil {
			return "", fmt.Errorf("invalid location %q: %w", d.Location, err)
		}
	}
	return base.ResolveReference(u).String(), nil
}

// Embedded returns the embedded devices declared under this device.
func (d *Device) Embedded() []*Device {
	return d.embedded
}

// ByUDN looks up the device itself or one of its embedded devices
// (recursively) by UDN.
func (d *Device) ByUDN(udn string) (*Device, bool) {
	if d.UDN == udn {
		return d, true
	}
	for _, e := range d.embedded {
		if found, ok := e.ByUDN(udn); ok {
			return found, true
		}
	}
	return nil, false
}
