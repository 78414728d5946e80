package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/airpnp/airpnp/airplay"
	"github.com/airpnp/airpnp/photoweb"
	"github.com/airpnp/airpnp/soap"
	"github.com/airpnp/airpnp/upnp"
)

// errInvalidInstanceID is the UPnP error code some renderers return
// for a Stop on an already torn down AVTransport instance.
const errInvalidInstanceID = "718"

// AVControlPoint drives one renderer's AVTransport service over SOAP
// and exposes it as airplay.Operations.
type AVControlPoint struct {
	device *upnp.Device
	client *soap.Client

	avtURL  string
	avtType string

	photos    *photoweb.Server
	photoHost string

	mu          sync.Mutex
	clientHost  string
	uri         string
	preScrub    *float64
	positionPct *float64
	photoName   string
}

// NewControlPoint resolves the renderer's AVTransport control URL. The
// classifier guarantees the service exists, but a malformed description
// can still make resolution fail.
func NewControlPoint(device *upnp.Device, client *soap.Client, photos *photoweb.Server, photoHost string) (*AVControlPoint, error) {
	svc, ok := device.ServiceByID(upnp.AVTransportID)
	if !ok {
		return nil, fmt.Errorf("device %s has no AVTransport service", device)
	}

	avtURL, err := device.AbsoluteURL(svc.ControlURL)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve AVTransport control URL for %s: %w", device, err)
	}

	return &AVControlPoint{
		device:    device,
		client:    client,
		avtURL:    avtURL,
		avtType:   svc.ServiceType,
		photos:    photos,
		photoHost: photoHost,
	}, nil
}

func (cp *AVControlPoint) Claim(host string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.clientHost != "" && cp.clientHost != host {
		log.Infof("Rejecting client %s since device is busy (current client = %s)", host, cp.clientHost)
		return airplay.ErrBusy
	}
	cp.clientHost = host
	return nil
}

func (cp *AVControlPoint) GetScrub() (float64, float64, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.uri == "" {
		return 0, 0, nil
	}

	out, err := cp.call("GetPositionInfo", soap.Args{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return 0, 0, err
	}

	duration := airplay.HMSToSec(out["TrackDuration"])
	position := airplay.HMSToSec(out["RelTime"])
	log.Debugf("(-> %s) Scrub requested, returning duration %f, position %f",
		cp.device, duration, position)

	if cp.positionPct != nil {
		cp.trySeekPct(duration, position)
	}

	return duration, position, nil
}

func (cp *AVControlPoint) IsPlaying() (bool, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.uri == "" {
		return false, nil
	}
	state, err := cp.transportState()
	if err != nil {
		return false, err
	}
	return state == "PLAYING", nil
}

func (cp *AVControlPoint) SetScrub(position float64) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.seek(position)
}

func (cp *AVControlPoint) Play(location string, position float64) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	log.Infof("(-> %s) Starting playback of %s", cp.device, location)

	// start loading of media; a non-empty URI marks the session as playing
	_, err := cp.call("SetAVTransportURI", soap.Args{
		{Name: "InstanceID", Value: "0"},
		{Name: "CurrentURI", Value: location},
		{Name: "CurrentURIMetaData", Value: ""},
	})
	if err != nil {
		return err
	}
	cp.uri = location

	if _, err := cp.call("Play", soap.Args{
		{Name: "InstanceID", Value: "0"},
		{Name: "Speed", Value: "1"},
	}); err != nil {
		return err
	}

	if cp.preScrub != nil {
		// a scrub arrived before playback started, honor it now
		pos := *cp.preScrub
		cp.preScrub = nil
		return cp.seek(pos)
	}

	// no saved scrub position; remember the percentage so we can seek
	// once a duration is known
	cp.positionPct = &position
	return nil
}

func (cp *AVControlPoint) Stop() error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.uri == "" {
		return nil
	}

	log.Infof("(-> %s) Stopping playback", cp.device)
	if err := cp.tryStop(1); err != nil {
		log.Warnf("(-> %s) Failed to stop playback, device may still be in a playing state: %v",
			cp.device, err)
	}

	cp.uri = ""
	cp.positionPct = nil
	cp.preScrub = nil

	if cp.photoName != "" {
		cp.photos.Unpublish(cp.photoName)
		cp.photoName = ""
	}

	// clear the client, so that we can accept another
	cp.clientHost = ""
	return nil
}

func (cp *AVControlPoint) Rate(speed float64) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.uri == "" {
		return nil
	}

	if speed >= 1 {
		state, err := cp.transportState()
		if err != nil {
			return err
		}
		if state != "PLAYING" && state != "TRANSITIONING" {
			log.Infof("(-> %s) Resuming playback", cp.device)
			if _, err := cp.call("Play", soap.Args{
				{Name: "InstanceID", Value: "0"},
				{Name: "Speed", Value: "1"},
			}); err != nil {
				return err
			}
		} else {
			log.Debugf("(-> %s) Rate ignored since device state is %s", cp.device, state)
		}
		return nil
	}

	log.Infof("(-> %s) Pausing playback", cp.device)
	_, err := cp.call("Pause", soap.Args{
		{Name: "InstanceID", Value: "0"},
	})
	return err
}

func (cp *AVControlPoint) Photo(data []byte, transition string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	ctype, ext := photoweb.ContentTypeOf(data)
	name := uuid.New().String() + ext

	if cp.photoName != "" {
		cp.photos.Unpublish(cp.photoName)
	}
	cp.photos.Publish(name, ctype, data)
	cp.photoName = name

	uri := cp.photos.URL(cp.photoHost, name)
	log.Infof("(-> %s) Showing photo, published at %s", cp.device, uri)

	if _, err := cp.call("SetAVTransportURI", soap.Args{
		{Name: "InstanceID", Value: "0"},
		{Name: "CurrentURI", Value: uri},
		{Name: "CurrentURIMetaData", Value: ""},
	}); err != nil {
		return err
	}
	cp.uri = uri

	// show the photo (no-op if we're already playing)
	_, err := cp.call("Play", soap.Args{
		{Name: "InstanceID", Value: "0"},
		{Name: "Speed", Value: "1"},
	})
	return err
}

// seek issues a REL_TIME Seek, or saves the position when nothing is
// playing yet. Callers hold cp.mu.
func (cp *AVControlPoint) seek(position float64) error {
	if cp.uri == "" {
		log.Debugf("(-> %s) Saving scrub position %f for later", cp.device, position)
		cp.preScrub = &position
		return nil
	}

	log.Debugf("(-> %s) Scrubbing/seeking to position %f", cp.device, position)
	_, err := cp.call("Seek", soap.Args{
		{Name: "InstanceID", Value: "0"},
		{Name: "Unit", Value: "REL_TIME"},
		{Name: "Target", Value: airplay.SecToHMS(position)},
	})
	return err
}

// trySeekPct converts the start percentage saved by Play to an absolute
// seek once the duration is known. Callers hold cp.mu.
func (cp *AVControlPoint) trySeekPct(duration, position float64) {
	if duration <= 0 {
		return
	}

	target := duration * (*cp.positionPct)
	cp.positionPct = nil

	if target > position {
		if err := cp.seek(target); err != nil {
			log.Warnf("(-> %s) Deferred seek failed: %v", cp.device, err)
		}
	}
}

// tryStop retries Stop once when the device reports 718, which some
// renderers send for an instance they already tore down.
func (cp *AVControlPoint) tryStop(retries int) error {
	_, err := cp.call("Stop", soap.Args{
		{Name: "InstanceID", Value: "0"},
	})
	if err == nil {
		return nil
	}

	if f, ok := err.(*soap.Fault); ok && f.ErrorCode == errInvalidInstanceID {
		log.Debugf("(-> %s) Got 718 (invalid instance ID) for stop request, tries left = %d",
			cp.device, retries)
		if retries > 0 {
			return cp.tryStop(retries - 1)
		}
		return nil
	}
	return err
}

func (cp *AVControlPoint) transportState() (string, error) {
	out, err := cp.call("GetTransportInfo", soap.Args{
		{Name: "InstanceID", Value: "0"},
	})
	if err != nil {
		return "", err
	}
	return out["CurrentTransportState"], nil
}

func (cp *AVControlPoint) call(action string, args soap.Args) (map[string]string, error) {
	return cp.client.Call(context.Background(), cp.avtURL, cp.avtType, action, args)
}
