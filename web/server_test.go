package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airpnp/airpnp/bridge"
	"github.com/airpnp/airpnp/web"
)

func newWebServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := bridge.New(bridge.WithLocalIP("127.0.0.1"))
	s := web.NewServer(0, b)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestDevicesJSON(t *testing.T) {
	srv := newWebServer(t)

	resp, err := http.Get(srv.URL + "/devices")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("wrong content type: %s", ct)
	}

	var snapshot struct {
		Devices []bridge.BridgedDevice `json:"devices"`
		Ignored []string               `json:"ignored"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatal(err)
	}
	if len(snapshot.Devices) != 0 {
		t.Fatalf("fresh bridge should have no devices: %v", snapshot.Devices)
	}
}

func TestIndexPage(t *testing.T) {
	srv := newWebServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	if !strings.Contains(body, "<h1>AirPnp</h1>") {
		t.Fatalf("index page missing heading: %s", body)
	}
	if !strings.Contains(body, "No renderer bridged yet.") {
		t.Fatal("empty state not rendered")
	}
}

func TestLogPage(t *testing.T) {
	srv := newWebServer(t)

	resp, err := http.Get(srv.URL + "/log")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "EventSource('/log-sse')") {
		t.Fatal("log page does not subscribe to the SSE stream")
	}
}
