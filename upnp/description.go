package upnp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// DefaultClient is used by FetchDescription when no client is given.
// Descriptions are small documents served by embedded devices; a short
// timeout keeps a dead device from stalling the discovery loop.
var DefaultClient = &http.Client{Timeout: 10 * time.Second}

// FetchDescription downloads and parses the description document at
// location, returning the root device.
func FetchDescription(ctx context.Context, client *http.Client, location string) (*Device, error) {
	if client == nil {
		client = DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid description location %q: %w", location, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch description from %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("description fetch from %s returned %s", location, resp.Status)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("cannot parse description from %s: %w", location, err)
	}

	return ParseDescription(doc, location)
}

// ParseDescription builds the device tree from an already parsed
// description document.
func ParseDescription(doc *etree.Document, location string) (*Device, error) {
	root := doc.Root()
	if root == nil || root.Tag != "root" {
		return nil, fmt.Errorf("description at %s has no <root> element", location)
	}

	base := baseURLOf(root, location)

	devEl := root.SelectElement("device")
	if devEl == nil {
		return nil, fmt.Errorf("description at %s has no <device> element", location)
	}

	dev := parseDevice(devEl, location, base)
	if dev.UDN == "" {
		return nil, fmt.Errorf("device at %s has no UDN", location)
	}
	return dev, nil
}

func baseURLOf(root *etree.Element, location string) *url.URL {
	if el := root.SelectElement("URLBase"); el != nil {
		if raw := strings.TrimSpace(el.Text()); raw != "" {
			if u, err := url.Parse(raw); err == nil && u.IsAbs() {
				return u
			}
		}
	}
	if u, err := url.Parse(location); err == nil {
		return u
	}
	return nil
}

func parseDevice(el *etree.Element, location string, base *url.URL) *Device {
	dev := &Device{
		UDN:          childText(el, "UDN"),
		DeviceType:   childText(el, "deviceType"),
		FriendlyName: childText(el, "friendlyName"),
		Manufacturer: childText(el, "manufacturer"),
		ModelName:    childText(el, "modelName"),
		Location:     location,
		baseURL:      base,
	}

	if list := el.SelectElement("serviceList"); list != nil {
		for _, svcEl := range list.SelectElements("service") {
			dev.services = append(dev.services, &Service{
				ServiceType: childText(svcEl, "serviceType"),
				ServiceID:   childText(svcEl, "serviceId"),
				ControlURL:  childText(svcEl, "controlURL"),
				EventSubURL: childText(svcEl, "eventSubURL"),
				SCPDURL:     childText(svcEl, "SCPDURL"),
			})
		}
	}

	if list := el.SelectElement("deviceList"); list != nil {
		for _, subEl := range list.SelectElements("device") {
			dev.embedded = append(dev.embedded, parseDevice(subEl, location, base))
		}
	}

	return dev
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}
