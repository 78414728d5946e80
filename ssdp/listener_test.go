package ssdp

import (
	"testing"
	"time"
)

type recordingHandler struct {
	seen chan Announcement
	gone []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan Announcement, 8)}
}

func (h *recordingHandler) DeviceSeen(a Announcement) { h.seen <- a }
func (h *recordingHandler) DeviceGone(udn string)     { h.gone = append(h.gone, udn) }

// ----------------------- USN parsing ------------------------

func TestUDNFromUSN(t *testing.T) {
	cases := map[string]string{
		"uuid:1234::urn:schemas-upnp-org:device:MediaRenderer:1": "uuid:1234",
		"uuid:1234::upnp:rootdevice":                             "uuid:1234",
		"uuid:1234":                                              "uuid:1234",
		"urn:schemas-upnp-org:device:MediaRenderer:1":            "",
		"": "",
	}
	for usn, want := range cases {
		if got := udnFromUSN(usn); got != want {
			t.Fatalf("udnFromUSN(%q) = %q, want %q", usn, got, want)
		}
	}
}

// ----------------------- Announcements ------------------------

func TestAnnounceRequiresUDNAndLocation(t *testing.T) {
	h := newRecordingHandler()
	l := NewListener(h)

	l.announce(Announcement{UDN: "", Location: "http://x/desc.xml"})
	l.announce(Announcement{UDN: "uuid:1", Location: ""})

	l.announce(Announcement{UDN: "uuid:1", Location: "http://x/desc.xml", MaxAge: 60})
	select {
	case a := <-h.seen:
		if a.UDN != "uuid:1" {
			t.Fatalf("wrong announcement delivered: %+v", a)
		}
	case <-time.After(time.Second):
		t.Fatal("valid announcement not delivered")
	}

	select {
	case a := <-h.seen:
		t.Fatalf("incomplete announcement delivered: %+v", a)
	default:
	}
}

type blockingHandler struct {
	release chan struct{}
	seen    chan string
}

func (h *blockingHandler) DeviceSeen(a Announcement) {
	<-h.release
	h.seen <- a.UDN
}

func (h *blockingHandler) DeviceGone(string) {}

func TestAnnounceDoesNotBlockOnSlowHandler(t *testing.T) {
	h := &blockingHandler{
		release: make(chan struct{}),
		seen:    make(chan string, 2),
	}
	l := NewListener(h)

	done := make(chan struct{})
	go func() {
		l.announce(Announcement{UDN: "uuid:1", Location: "http://x/1.xml", MaxAge: 60})
		l.announce(Announcement{UDN: "uuid:2", Location: "http://x/2.xml", MaxAge: 60})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("announce blocked on a slow handler")
	}

	close(h.release)
	for i := 0; i < 2; i++ {
		select {
		case <-h.seen:
		case <-time.After(time.Second):
			t.Fatal("announcement never reached the handler")
		}
	}
}

// ----------------------- Expiry tracking ------------------------

func TestSweepExpiresDevices(t *testing.T) {
	h := &recordingHandler{}
	l := NewListener(h)

	l.touch("uuid:old", 1)
	l.touch("uuid:fresh", 1800)

	gone := l.sweep(time.Now().Add(2 * time.Second))
	if len(gone) != 1 || gone[0] != "uuid:old" {
		t.Fatalf("wrong sweep result: %v", gone)
	}

	// a swept device is no longer known
	if l.forget("uuid:old") {
		t.Fatal("swept device still tracked")
	}
	if !l.forget("uuid:fresh") {
		t.Fatal("fresh device lost")
	}
}

func TestForgetOnlyOnce(t *testing.T) {
	l := NewListener(&recordingHandler{})
	l.touch("uuid:1", 1800)
	if !l.forget("uuid:1") {
		t.Fatal("first forget should report known device")
	}
	if l.forget("uuid:1") {
		t.Fatal("second forget should report unknown device")
	}
}

func TestNormalizeMaxAge(t *testing.T) {
	if normalizeMaxAge(0) != DefaultMaxAge || normalizeMaxAge(-5) != DefaultMaxAge {
		t.Fatal("missing max-age should fall back to default")
	}
	if normalizeMaxAge(60) != 60 {
		t.Fatal("valid max-age altered")
	}
}
