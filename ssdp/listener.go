package ssdp

import (
	"context"
	"strings"
	"sync"
	"time"

	gossdp "github.com/koron/go-ssdp"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultMaxAge is assumed when an announcement carries no usable
	// CACHE-CONTROL header.
	DefaultMaxAge = 1800

	sweepInterval = 10 * time.Second
)

// Announcement is one SSDP sighting of a device: a NOTIFY ssdp:alive
// or an M-SEARCH response.
type Announcement struct {
	UDN      string
	Type     string
	Location string
	Server   string
	MaxAge   int
}

// Handler receives discovery events. DeviceSeen may be called many
// times for the same UDN; DeviceGone fires once per disappearance
// (byebye or max-age expiry).
type Handler interface {
	DeviceSeen(a Announcement)
	DeviceGone(udn string)
}

// Listener is the discovery side of the bridge: it watches multicast
// NOTIFY traffic and periodically M-SEARCHes for root devices.
type Listener struct {
	handler        Handler
	searchInterval time.Duration

	mu       sync.Mutex
	deadline map[string]time.Time

	monitor   *gossdp.Monitor
	startOnce sync.Once
	stopOnce  sync.Once
}

type ListenerOption func(*Listener)

// WithSearchInterval overrides the period between active M-SEARCH rounds.
func WithSearchInterval(d time.Duration) ListenerOption {
	return func(l *Listener) {
		if d > 0 {
			l.searchInterval = d
		}
	}
}

func NewListener(handler Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		handler:        handler,
		searchInterval: 5 * time.Minute,
		deadline:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins monitoring and searching. It returns once the multicast
// monitor is bound; discovery then runs until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	var err error
	l.startOnce.Do(func() {
		l.monitor = &gossdp.Monitor{
			Alive: l.onAlive,
			Bye:   l.onBye,
		}
		if err = l.monitor.Start(); err != nil {
			return
		}
		log.Infof("✅ SSDP listener started")

		go l.searchLoop(ctx)
		go l.sweepLoop(ctx)
	})
	return err
}

func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		if l.monitor != nil {
			l.monitor.Close()
		}
		log.Infof("👋 SSDP listener stopped")
	})
}

// Search performs one active M-SEARCH round for root devices and feeds
// the responses through the normal announcement path.
func (l *Listener) Search() {
	services, err := gossdp.Search(gossdp.RootDevice, 3, "")
	if err != nil {
		log.Warnf("❌ SSDP search failed: %v", err)
		return
	}
	for _, srv := range services {
		l.announce(Announcement{
			UDN:      udnFromUSN(srv.USN),
			Type:     srv.Type,
			Location: srv.Location,
			Server:   srv.Server,
			MaxAge:   normalizeMaxAge(srv.MaxAge()),
		})
	}
}

func (l *Listener) searchLoop(ctx context.Context) {
	// Première recherche immédiate, puis périodique
	l.Search()

	ticker := time.NewTicker(l.searchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-ticker.C:
			l.Search()
		}
	}
}

func (l *Listener) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, udn := range l.sweep(time.Now()) {
				l.handler.DeviceGone(udn)
			}
		}
	}
}

func (l *Listener) onAlive(m *gossdp.AliveMessage) {
	l.announce(Announcement{
		UDN:      udnFromUSN(m.USN),
		Type:     m.Type,
		Location: m.Location,
		Server:   m.Server,
		MaxAge:   normalizeMaxAge(m.MaxAge()),
	})
}

func (l *Listener) onBye(m *gossdp.ByeMessage) {
	udn := udnFromUSN(m.USN)
	if udn == "" {
		return
	}
	if l.forget(udn) {
		l.handler.DeviceGone(udn)
	}
}

func (l *Listener) announce(a Announcement) {
	if a.UDN == "" || a.Location == "" {
		return
	}
	l.touch(a.UDN, a.MaxAge)
	// the handler may block on a description fetch; keep the monitor
	// callback free to process the next NOTIFY
	go l.handler.DeviceSeen(a)
}

// touch refreshes the expiry deadline for a device.
func (l *Listener) touch(udn string, maxAge int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deadline[udn] = time.Now().Add(time.Duration(maxAge) * time.Second)
}

// forget drops a device from the expiry table, reporting whether it
// was known.
func (l *Listener) forget(udn string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, known := l.deadline[udn]
	delete(l.deadline, udn)
	return known
}

// sweep returns the UDNs whose max-age deadline passed and removes them.
func (l *Listener) sweep(now time.Time) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var gone []string
	for udn, deadline := range l.deadline {
		if now.After(deadline) {
			gone = append(gone, udn)
			delete(l.deadline, udn)
		}
	}
	return gone
}

// udnFromUSN extracts the uuid:... prefix of a USN header value.
func udnFromUSN(usn string) string {
	udn := usn
	if i := strings.Index(usn, "::"); i >= 0 {
		udn = usn[:i]
	}
	udn = strings.TrimSpace(udn)
	if !strings.HasPrefix(udn, "uuid:") {
		return ""
	}
	return udn
}

func normalizeMaxAge(maxAge int) int {
	if maxAge <= 0 {
		return DefaultMaxAge
	}
	return maxAge
}
