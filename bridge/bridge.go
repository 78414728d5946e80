package bridge

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/airpnp/airpnp/airplay"
	"github.com/airpnp/airpnp/netutils"
	"github.com/airpnp/airpnp/photoweb"
	"github.com/airpnp/airpnp/soap"
	"github.com/airpnp/airpnp/ssdp"
	"github.com/airpnp/airpnp/store"
	"github.com/airpnp/airpnp/upnp"
)

// IsMediaRenderer is the classification rule: a device is bridged when
// it declares itself a MediaRenderer and carries the two services the
// control point needs.
func IsMediaRenderer(dev *upnp.Device) bool {
	return dev.DeviceType == upnp.MediaRendererType &&
		dev.HasService(upnp.AVTransportID) &&
		dev.HasService(upnp.ConnectionManagerID)
}

// BridgedDevice is a snapshot of one active renderer, for the
// interactive web.
type BridgedDevice struct {
	UDN          string `json:"udn"`
	FriendlyName string `json:"friendlyName"`
	ModelName    string `json:"modelName"`
	Port         int    `json:"port"`
}

type bridgedRenderer struct {
	device *upnp.Device
	server *airplay.Server
	port   int
}

// Bridge ties discovery, classification and the AirPlay front-ends
// together. It is the ssdp.Handler of the application.
type Bridge struct {
	db      *store.DB
	soap    *soap.Client
	photos  *photoweb.Server
	localIP string

	basePort       int
	searchInterval time.Duration
	model          string
	features       string
	airplayOpts    []airplay.ServerOption

	listener *ssdp.Listener
	ports    *portAllocator

	mu       sync.Mutex
	ignored  map[string]bool
	active   map[string]*bridgedRenderer
	inflight map[string]bool
}

type Option func(*Bridge)

// WithStore enables ignore-list persistence.
func WithStore(db *store.DB) Option {
	return func(b *Bridge) { b.db = db }
}

func WithBasePort(port int) Option {
	return func(b *Bridge) {
		if port > 0 {
			b.basePort = port
		}
	}
}

func WithSearchInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.searchInterval = d
		}
	}
}

// WithLocalIP overrides the detected address renderers fetch photos from.
func WithLocalIP(ip string) Option {
	return func(b *Bridge) {
		if ip != "" {
			b.localIP = ip
		}
	}
}

func WithAirPlayModel(model string) Option {
	return func(b *Bridge) {
		if model != "" {
			b.model = model
		}
	}
}

func WithAirPlayFeatures(features string) Option {
	return func(b *Bridge) {
		if features != "" {
			b.features = features
		}
	}
}

// WithAirPlayOptions appends options to every per-renderer AirPlay
// server. Used by tests to disable mDNS.
func WithAirPlayOptions(opts ...airplay.ServerOption) Option {
	return func(b *Bridge) { b.airplayOpts = append(b.airplayOpts, opts...) }
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		soap:           soap.NewClient(),
		photos:         photoweb.NewServer(),
		basePort:       22555,
		searchInterval: 5 * time.Minute,
		model:          "AppleTV2,1",
		features:       "0x77",
		ignored:        make(map[string]bool),
		active:         make(map[string]*bridgedRenderer),
		inflight:       make(map[string]bool),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.localIP == "" {
		ip, _ := netutils.GuessLocalIP()
		b.localIP = ip
	}
	b.ports = newPortAllocator(b.basePort)

	b.loadIgnored()
	return b
}

func (b *Bridge) loadIgnored() {
	if b.db == nil {
		return
	}
	entries, err := b.db.ListIgnored()
	if err != nil {
		log.Warnf("❌ Cannot load ignore list: %v", err)
		return
	}
	for _, e := range entries {
		b.ignored[e.UDN] = true
	}
	if len(entries) > 0 {
		log.Infof("✅ Loaded %d ignore list entries", len(entries))
	}
}

// Run starts the photo server and the SSDP listener, then blocks until
// ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.photos.Start(); err != nil {
		return err
	}

	b.listener = ssdp.NewListener(b, ssdp.WithSearchInterval(b.searchInterval))
	if err := b.listener.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(shutdownCtx)
}

// Shutdown stops every bridged renderer and the photo server.
func (b *Bridge) Shutdown(ctx context.Context) error {
	if b.listener != nil {
		b.listener.Stop()
	}

	b.mu.Lock()
	renderers := make([]*bridgedRenderer, 0, len(b.active))
	for _, r := range b.active {
		renderers = append(renderers, r)
	}
	b.active = make(map[string]*bridgedRenderer)
	b.mu.Unlock()

	for _, r := range renderers {
		r.server.Stop(ctx)
		b.ports.release(r.port)
	}

	return b.photos.Stop(ctx)
}

// DeviceSeen classifies a previously unseen device. Announcements for
// ignored or already bridged devices are dropped before any network
// round trip.
func (b *Bridge) DeviceSeen(a ssdp.Announcement) {
	b.mu.Lock()
	if b.ignored[a.UDN] || b.inflight[a.UDN] {
		b.mu.Unlock()
		return
	}
	if _, ok := b.active[a.UDN]; ok {
		b.mu.Unlock()
		return
	}
	b.inflight[a.UDN] = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.inflight, a.UDN)
		b.mu.Unlock()
	}()

	root, err := upnp.FetchDescription(context.Background(), nil, a.Location)
	if err != nil {
		log.Warnf("❌ Cannot inspect device %s: %v", a.UDN, err)
		return
	}

	// classify the announced device; embedded devices announce their
	// own UDNs and are classified separately
	dev, ok := root.ByUDN(a.UDN)
	if !ok {
		dev = root
	}

	if IsMediaRenderer(dev) {
		b.addRenderer(dev)
	} else {
		b.ignoreDevice(dev)
	}
}

// DeviceGone tears down the AirPlay front-end of a renderer that left
// the network or whose announcements expired.
func (b *Bridge) DeviceGone(udn string) {
	b.mu.Lock()
	r, ok := b.active[udn]
	if ok {
		delete(b.active, udn)
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	log.Infof("Lost device %s", r.device)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.server.Stop(ctx)
	b.ports.release(r.port)
}

func (b *Bridge) addRenderer(dev *upnp.Device) {
	cp, err := NewControlPoint(dev, b.soap, b.photos, b.localIP)
	if err != nil {
		log.Warnf("❌ Cannot build control point for %s: %v", dev, err)
		return
	}

	log.Infof("Found device %s", dev)

	port := b.ports.allocate()
	opts := append([]airplay.ServerOption{
		airplay.WithModel(b.model),
		airplay.WithFeatures(b.features),
	}, b.airplayOpts...)

	srv := airplay.NewServer(dev.FriendlyName, airplay.DeviceIDFromUDN(dev.UDN), port, cp, opts...)
	if err := srv.Start(); err != nil {
		log.Warnf("❌ Cannot start AirPlay server for %s: %v", dev, err)
		b.ports.release(port)
		return
	}

	b.mu.Lock()
	b.active[dev.UDN] = &bridgedRenderer{device: dev, server: srv, port: port}
	b.mu.Unlock()
}

func (b *Bridge) ignoreDevice(dev *upnp.Device) {
	log.Infof("Adding device %s to ignore list", dev)

	b.mu.Lock()
	b.ignored[dev.UDN] = true
	b.mu.Unlock()

	if b.db != nil {
		if err := b.db.AddIgnored(dev.UDN, dev.FriendlyName, dev.DeviceType); err != nil {
			log.Warnf("❌ Cannot persist ignore list entry for %s: %v", dev, err)
		}
	}
}

// Devices returns a snapshot of the bridged renderers.
func (b *Bridge) Devices() []BridgedDevice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]BridgedDevice, 0, len(b.active))
	for _, r := range b.active {
		out = append(out, BridgedDevice{
			UDN:          r.device.UDN,
			FriendlyName: r.device.FriendlyName,
			ModelName:    r.device.ModelName,
			Port:         r.port,
		})
	}
	return out
}

// IgnoredUDNs returns the UDNs currently on the ignore list.
func (b *Bridge) IgnoredUDNs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.ignored))
	for udn := range b.ignored {
		out = append(out, udn)
	}
	return out
}
