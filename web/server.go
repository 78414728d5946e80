package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/airpnp/airpnp/bridge"
	"github.com/airpnp/airpnp/netutils"
)

// Server is the interactive web: a device overview, a JSON snapshot
// and the live log stream.
type Server struct {
	port   int
	bridge *bridge.Bridge

	httpSrv   *http.Server
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewServer(port int, b *bridge.Bridge) *Server {
	return &Server{port: port, bridge: b}
}

// Handler builds the interactive web routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/devices", s.serveDevices)
	LoggerWeb(mux)
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
				log.Warnf("❌ interactive web error: %v", serr)
			}
		}()

		log.Infof("✅ Starting interactive web at port %d", s.port)
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

func (s *Server) serveDevices(w http.ResponseWriter, r *http.Request) {
	snapshot := struct {
		Devices []bridge.BridgedDevice `json:"devices"`
		Ignored []string               `json:"ignored"`
	}{
		Devices: s.bridge.Devices(),
		Ignored: s.bridge.IgnoredUDNs(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>AirPnp</title>
  <style>
    body { font-family: sans-serif; margin: 2em; }
    h1 { border-bottom: 1px solid #ccc; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #ccc; padding: 0.4em 0.8em; }
    a { color: #007bff; text-decoration: none; }
    a:hover { text-decoration: underline; }
  </style>
</head>
<body>
  <h1>AirPnp</h1>
  <h2>Bridged renderers</h2>`)

	devices := s.bridge.Devices()
	if len(devices) == 0 {
		fmt.Fprint(w, `
  <p>No renderer bridged yet.</p>`)
	} else {
		fmt.Fprint(w, `
  <table>
    <tr><th>Name</th><th>UDN</th><th>AirPlay port</th></tr>`)
		for _, d := range devices {
			fmt.Fprintf(w, `
    <tr><td>%s</td><td>%s</td><td>%d</td></tr>`,
				html.EscapeString(d.FriendlyName), html.EscapeString(d.UDN), d.Port)
		}
		fmt.Fprint(w, `
  </table>`)
	}

	fmt.Fprint(w, `
  <h2>Ignored devices</h2>
  <ul>`)
	for _, udn := range s.bridge.IgnoredUDNs() {
		fmt.Fprintf(w, `
    <li>%s</li>`, html.EscapeString(udn))
	}
	fmt.Fprint(w, `
  </ul>
  <h2>Host interfaces</h2>
  <ul>`)
	for name, ips := range netutils.ListAllIPs() {
		fmt.Fprintf(w, `
    <li>%s: %s</li>`, html.EscapeString(name), html.EscapeString(strings.Join(ips, ", ")))
	}
	fmt.Fprint(w, `
  </ul>
  <p><a href="/log">Live logs</a> - <a href="/devices">JSON</a></p>
</body>
</html>
`)
}
