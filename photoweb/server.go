package photoweb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

var jpegMagic = []byte{0xff, 0xd8}

// ContentTypeOf returns the content type and file extension for an
// AirPlay photo payload. Only JPEG is recognized; everything else is
// passed through opaquely, the renderer decides what to do with it.
func ContentTypeOf(data []byte) (string, string) {
	if bytes.HasPrefix(data, jpegMagic) {
		return "image/jpeg", ".jpg"
	}
	return "image/unknown", ".bin"
}

type resource struct {
	contentType string
	data        []byte
}

// Server serves transient in-memory resources to UPnP renderers. A
// photo pushed over AirPlay is published here under a random name and
// unpublished when playback stops or a new photo replaces it.
type Server struct {
	mu        sync.RWMutex
	resources map[string]resource

	httpSrv  *http.Server
	listener net.Listener

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewServer() *Server {
	return &Server{
		resources: make(map[string]resource),
	}
}

// Start binds an ephemeral port and begins serving published resources.
func (s *Server) Start() error {
	var err error
	s.startOnce.Do(func() {
		s.listener, err = net.Listen("tcp", ":0")
		if err != nil {
			return
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/", s.serveResource)
		s.httpSrv = &http.Server{Handler: mux}

		go func() {
			if serr := s.httpSrv.Serve(s.listener); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				log.Warnf("❌ photo server error: %v", serr)
			}
		}()

		log.Infof("✅ Photo server started on port %d", s.Port())
	})
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			err = s.httpSrv.Shutdown(ctx)
		}
	})
	return err
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Publish makes data available at /<name> until Unpublish.
func (s *Server) Publish(name, contentType string, data []byte) {
	s.mu.Lock()
	s.resources[name] = resource{contentType: contentType, data: data}
	s.mu.Unlock()

	log.Infof("✅ Published resource %s (%s, %s)",
		name, contentType, humanize.Bytes(uint64(len(data))))
}

func (s *Server) Unpublish(name string) {
	s.mu.Lock()
	_, ok := s.resources[name]
	delete(s.resources, name)
	s.mu.Unlock()

	if ok {
		log.Infof("👋 Unpublished resource %s", name)
	}
}

// URL returns the address a renderer can fetch the named resource from.
func (s *Server) URL(host, name string) string {
	return fmt.Sprintf("http://%s:%d/%s", host, s.Port(), name)
}

func (s *Server) serveResource(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[1:]

	s.mu.RLock()
	res, ok := s.resources[name]
	s.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", res.contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(res.data)
}
