package airplay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Server is one AirPlay receiver front-end. The bridge runs one per
// bridged renderer, each on its own port and with its own mDNS entry.
type Server struct {
	name     string
	deviceID string
	port     int
	model    string
	features string

	ops Operations

	httpSrv   *http.Server
	publisher *Publisher
	publish   bool

	startOnce sync.Once
	stopOnce  sync.Once
}

type ServerOption func(*Server)

func WithModel(model string) ServerOption {
	return func(s *Server) { s.model = model }
}

func WithFeatures(features string) ServerOption {
	return func(s *Server) { s.features = features }
}

// WithoutMDNS disables the zeroconf announcement. Used by tests.
func WithoutMDNS() ServerOption {
	return func(s *Server) { s.publish = false }
}

func NewServer(name, deviceID string, port int, ops Operations, opts ...ServerOption) *Server {
	s := &Server{
		name:     name,
		deviceID: deviceID,
		port:     port,
		model:    "AppleTV2,1",
		features: "0x77",
		ops:      ops,
		publish:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string { return s.name }
func (s *Server) Port() int    { return s.port }

// Handler builds the AirPlay HTTP surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/server-info", s.claimed(s.serveServerInfo))
	mux.HandleFunc("/playback-info", s.claimed(s.servePlaybackInfo))
	mux.HandleFunc("/slideshow-features", s.claimed(s.serveSlideshowFeatures))
	mux.HandleFunc("/play", s.claimed(s.servePlay))
	mux.HandleFunc("/stop", s.claimed(s.serveStop))
	mux.HandleFunc("/scrub", s.claimed(s.serveScrub))
	mux.HandleFunc("/rate", s.claimed(s.serveRate))
	mux.HandleFunc("/reverse", s.claimed(s.serveReverse))
	mux.HandleFunc("/photo", s.claimed(s.servePhoto))
	return mux
}

func (s *Server) Start() error {
	var err error
	s.startOnce.Do(func() {
		s.httpSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", s.port),
			Handler: s.Handler(),
		}

		go func() {
			if serr := s.httpSrv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				log.Warnf("❌ AirPlay server %s error: %v", s.name, serr)
			}
		}()

		if s.publish {
			s.publisher, err = Publish(s.name, s.deviceID, s.port, s.model, s.features)
			if err != nil {
				return
			}
		}

		log.Infof("✅ AirPlay server for %s started on port %d", s.name, s.port)
	})
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.publisher != nil {
			s.publisher.Shutdown()
		}
		if s.httpSrv != nil {
			err = s.httpSrv.Shutdown(ctx)
		}
	})
	return err
}

// claimed wraps a handler with the session discipline of the original
// AirPlay surface: the requesting client must own the device (503 when
// someone else does), and an operation failure answers 501.
func (s *Server) claimed(h func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		if err := s.ops.Claim(host); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		if err := h(w, r); err != nil {
			log.Warnf("❌ Failed to process AirPlay request %s: %v", r.URL.Path, err)
			w.WriteHeader(http.StatusNotImplemented)
		}
	}
}

func (s *Server) serveServerInfo(w http.ResponseWriter, r *http.Request) error {
	writePlist(w, ServerInfoPlist(s.deviceID, s.model, s.features))
	return nil
}

func (s *Server) servePlaybackInfo(w http.ResponseWriter, r *http.Request) error {
	duration, position, err := s.ops.GetScrub()
	if err != nil {
		return err
	}
	playing, err := s.ops.IsPlaying()
	if err != nil {
		return err
	}
	writePlist(w, PlaybackInfoPlist(duration, position, playing))
	return nil
}

func (s *Server) serveSlideshowFeatures(w http.ResponseWriter, r *http.Request) error {
	writePlist(w, SlideshowFeaturesPlist())
	return nil
}

func (s *Server) servePlay(w http.ResponseWriter, r *http.Request) error {
	params, err := parseTextParameters(r.Body)
	if err != nil {
		return err
	}

	location := params["Content-Location"]
	if location == "" {
		return fmt.Errorf("play request without Content-Location")
	}

	position := 0.0
	if raw := params["Start-Position"]; raw != "" {
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
			position = v
		}
	}

	return s.ops.Play(location, position)
}

func (s *Server) serveStop(w http.ResponseWriter, r *http.Request) error {
	return s.ops.Stop()
}

func (s *Server) serveScrub(w http.ResponseWriter, r *http.Request) error {
	if r.Method == http.MethodGet {
		duration, position, err := s.ops.GetScrub()
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "text/parameters")
		fmt.Fprintf(w, "duration: %f\nposition: %f", duration, position)
		return nil
	}

	raw := r.URL.Query().Get("position")
	position, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid scrub position %q: %w", raw, err)
	}
	return s.ops.SetScrub(position)
}

func (s *Server) serveRate(w http.ResponseWriter, r *http.Request) error {
	raw := r.URL.Query().Get("value")
	speed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid rate value %q: %w", raw, err)
	}
	return s.ops.Rate(speed)
}

func (s *Server) serveReverse(w http.ResponseWriter, r *http.Request) error {
	// Reverse HTTP is not implemented; the client copes without it.
	return nil
}

func (s *Server) servePhoto(w http.ResponseWriter, r *http.Request) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return s.ops.Photo(data, r.Header.Get("X-Apple-Transition"))
}

func writePlist(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/x-apple-plist+xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

// parseTextParameters reads an AirPlay text/parameters body of
// "Key: value" lines.
func parseTextParameters(r io.Reader) (map[string]string, error) {
	params := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		params[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return params, scanner.Err()
}
