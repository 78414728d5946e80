package airplay_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airpnp/airpnp/airplay"
)

// fakeOps records the operations the HTTP surface invokes.
type fakeOps struct {
	busy bool

	claimed    []string
	playLoc    string
	playPos    float64
	scrubbedTo float64
	rate       float64
	stopped    bool
	photo      []byte
	transition string

	duration float64
	position float64
	playing  bool
}

func (f *fakeOps) Claim(host string) error {
	if f.busy {
		return airplay.ErrBusy
	}
	f.claimed = append(f.claimed, host)
	return nil
}

func (f *fakeOps) GetScrub() (float64, float64, error) { return f.duration, f.position, nil }
func (f *fakeOps) IsPlaying() (bool, error)            { return f.playing, nil }
func (f *fakeOps) SetScrub(position float64) error     { f.scrubbedTo = position; return nil }
func (f *fakeOps) Stop() error                         { f.stopped = true; return nil }
func (f *fakeOps) Rate(speed float64) error            { f.rate = speed; return nil }

func (f *fakeOps) Play(location string, position float64) error {
	f.playLoc = location
	f.playPos = position
	return nil
}

func (f *fakeOps) Photo(data []byte, transition string) error {
	f.photo = data
	f.transition = transition
	return nil
}

func newTestServer(t *testing.T, ops airplay.Operations) *httptest.Server {
	t.Helper()
	s := airplay.NewServer("MR1", "00:11:22:33:44:55", 0, ops, airplay.WithoutMDNS())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// ----------------------- Playback control ------------------------

func TestPlayRequest(t *testing.T) {
	ops := &fakeOps{}
	srv := newTestServer(t, ops)

	body := "Content-Location: http://media/movie.mp4\nStart-Position: 0.25\n"
	resp, err := http.Post(srv.URL+"/play", "text/parameters", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if ops.playLoc != "http://media/movie.mp4" {
		t.Fatalf("wrong location: %s", ops.playLoc)
	}
	if ops.playPos != 0.25 {
		t.Fatalf("wrong position: %f", ops.playPos)
	}
}

func TestPlayWithoutLocationFails(t *testing.T) {
	srv := newTestServer(t, &fakeOps{})

	resp, err := http.Post(srv.URL+"/play", "text/parameters", strings.NewReader("Start-Position: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %s", resp.Status)
	}
}

func TestScrubGet(t *testing.T) {
	ops := &fakeOps{duration: 120, position: 30}
	srv := newTestServer(t, ops)

	resp, err := http.Get(srv.URL + "/scrub")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	if !strings.Contains(body, "duration: 120") || !strings.Contains(body, "position: 30") {
		t.Fatalf("wrong scrub body: %s", body)
	}
}

func TestScrubPost(t *testing.T) {
	ops := &fakeOps{}
	srv := newTestServer(t, ops)

	resp, err := http.Post(srv.URL+"/scrub?position=42.5", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if ops.scrubbedTo != 42.5 {
		t.Fatalf("wrong scrub position: %f", ops.scrubbedTo)
	}
}

func TestRateAndStop(t *testing.T) {
	ops := &fakeOps{}
	srv := newTestServer(t, ops)

	resp, err := http.Post(srv.URL+"/rate?value=1.0", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if ops.rate != 1.0 {
		t.Fatalf("wrong rate: %f", ops.rate)
	}

	resp, err = http.Post(srv.URL+"/stop", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !ops.stopped {
		t.Fatal("stop not forwarded")
	}
}

func TestPhotoPut(t *testing.T) {
	ops := &fakeOps{}
	srv := newTestServer(t, ops)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/photo", strings.NewReader("\xff\xd8jpegdata"))
	req.Header.Set("X-Apple-Transition", "Dissolve")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if string(ops.photo) != "\xff\xd8jpegdata" {
		t.Fatal("photo payload not forwarded")
	}
	if ops.transition != "Dissolve" {
		t.Fatalf("wrong transition: %s", ops.transition)
	}
}

// ----------------------- Session discipline ------------------------

func TestBusyDeviceAnswers503(t *testing.T) {
	srv := newTestServer(t, &fakeOps{busy: true})

	resp, err := http.Get(srv.URL + "/playback-info")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for busy device, got %s", resp.Status)
	}
}

// ----------------------- Info endpoints ------------------------

func TestServerInfo(t *testing.T) {
	srv := newTestServer(t, &fakeOps{})

	resp, err := http.Get(srv.URL + "/server-info")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/x-apple-plist+xml" {
		t.Fatalf("wrong content type: %s", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	if !strings.Contains(body, "<string>00:11:22:33:44:55</string>") {
		t.Fatalf("deviceid missing: %s", body)
	}
	if !strings.Contains(body, "<integer>119</integer>") {
		t.Fatalf("features 0x77 not rendered as 119: %s", body)
	}
}

func TestPlaybackInfo(t *testing.T) {
	ops := &fakeOps{duration: 100, position: 25, playing: true}
	srv := newTestServer(t, ops)

	resp, err := http.Get(srv.URL + "/playback-info")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	if !strings.Contains(body, "<real>100.000000</real>") {
		t.Fatalf("duration missing: %s", body)
	}
	if !strings.Contains(body, "<real>1.000000</real>") {
		t.Fatalf("rate missing: %s", body)
	}
}

// ----------------------- Device id derivation ------------------------

func TestDeviceIDFromUDN(t *testing.T) {
	id := airplay.DeviceIDFromUDN("uuid:00000000-0000-0000-0000-001122334455")
	if id != "00:11:22:33:44:55" {
		t.Fatalf("wrong device id: %s", id)
	}
	// stable even when the UDN has no hex tail
	a := airplay.DeviceIDFromUDN("uuid:zzz")
	b := airplay.DeviceIDFromUDN("uuid:zzz")
	if a != b || len(a) != 17 {
		t.Fatalf("unstable fallback id: %s vs %s", a, b)
	}
}
