package airplay

import "errors"

// ErrBusy is returned by Claim while another client owns the device.
var ErrBusy = errors.New("device is busy")

// Operations is what an AirPlay receiver needs from its backend. The
// bridge implements it by driving a UPnP renderer over SOAP.
type Operations interface {
	// Claim takes ownership of the device for the client at host.
	// Claiming is idempotent for the current owner and fails with
	// ErrBusy for anyone else until the session ends.
	Claim(host string) error

	// GetScrub returns the media duration and playback position in
	// seconds.
	GetScrub() (duration, position float64, err error)

	// IsPlaying reports whether the device is currently playing.
	IsPlaying() (bool, error)

	// SetScrub seeks to the given position in seconds.
	SetScrub(position float64) error

	// Play starts playback of location. position is a percentage
	// (0..1) into the media, applied once the duration is known.
	Play(location string, position float64) error

	// Stop ends playback and releases the client.
	Stop() error

	// Rate resumes (speed >= 1) or pauses (speed < 1) playback.
	Rate(speed float64) error

	// Photo displays a still image. transition is the client's
	// requested transition effect and may be empty.
	Photo(data []byte, transition string) error
}
