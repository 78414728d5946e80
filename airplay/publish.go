package airplay

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/grandcat/zeroconf"
	log "github.com/sirupsen/logrus"
)

// SourceVersion is the AirPlay protocol version the bridge advertises.
const SourceVersion = "101.28"

// DeviceIDFromUDN derives the MAC-style deviceid TXT value from a UPnP
// UDN. The UDN's own hex digits are reused when there are enough of
// them, so the id is stable across restarts.
func DeviceIDFromUDN(udn string) string {
	var hexDigits []byte
	for _, c := range strings.ToUpper(udn) {
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') {
			hexDigits = append(hexDigits, byte(c))
		}
	}

	if len(hexDigits) < 12 {
		h := fnv.New64a()
		h.Write([]byte(udn))
		hexDigits = []byte(strings.ToUpper(fmt.Sprintf("%016x", h.Sum64())))
	}

	tail := hexDigits[len(hexDigits)-12:]
	parts := make([]string, 6)
	for i := 0; i < 6; i++ {
		parts[i] = string(tail[2*i : 2*i+2])
	}
	return strings.Join(parts, ":")
}

// Publisher announces one AirPlay receiver over mDNS as _airplay._tcp.
type Publisher struct {
	server *zeroconf.Server
}

// Publish registers the receiver with the usual AirPlay TXT records.
func Publish(name, deviceID string, port int, model, features string) (*Publisher, error) {
	txt := []string{
		"deviceid=" + deviceID,
		"features=" + features,
		"model=" + model,
		"srcvers=" + SourceVersion,
	}

	srv, err := zeroconf.Register(name, "_airplay._tcp", "local.", port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot register %s over mDNS: %w", name, err)
	}

	log.Infof("✅ Published AirPlay service %s on port %d (deviceid=%s)", name, port, deviceID)
	return &Publisher{server: srv}, nil
}

func (p *Publisher) Shutdown() {
	if p.server != nil {
		p.server.Shutdown()
	}
}
