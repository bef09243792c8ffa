// Package scan drives a single camera-bound barcode decode attempt at a time.
//
// The camera, device list and decoder are collaborators behind interfaces so
// that any capture backend can be plugged in. Session owns the lifecycle and
// guarantees every acquired resource is released exactly once.
package scan

import (
	"context"
	"strings"
	"time"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateDecoded  State = "decoded"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

// FacingEnvironment asks for the camera facing away from the user.
const FacingEnvironment = "environment"

// Constraints describes the requested video stream.
type Constraints struct {
	FacingMode string
}

// Track is one media track of an acquired stream.
type Track interface {
	Stop() error
}

// Stream is an acquired camera stream.
type Stream interface {
	Tracks() []Track
}

// MediaProvider grants or denies access to a camera stream.
type MediaProvider interface {
	Acquire(ctx context.Context, constraints Constraints) (Stream, error)
}

// Device is an enumerated camera.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DeviceEnumerator lists available cameras.
type DeviceEnumerator interface {
	Devices(ctx context.Context) ([]Device, error)
}

// DecodeConfig controls the decode loop.
type DecodeConfig struct {
	FPS       int
	BoxWidth  int
	BoxHeight int
}

// Decoder runs a decode loop against a device and reports decoded text.
type Decoder interface {
	// Start begins decoding. onDecode may be called from another goroutine.
	Start(ctx context.Context, deviceID string, cfg DecodeConfig, onDecode func(text string)) error
	IsScanning() bool
	// Stop ends the loop. It must not wait for an in-flight onDecode call.
	Stop() error
	// Clear detaches the decoder from its rendering surface.
	Clear() error
}

// Config holds session timing and decode settings.
type Config struct {
	// SettleDelay is waited after the stream is granted and before devices are
	// enumerated, so device labels are populated.
	SettleDelay time.Duration
	Decode      DecodeConfig
}

// DefaultConfig returns 500ms settle delay, 10 fps and a 250x250 box.
func DefaultConfig() Config {
	return Config{
		SettleDelay: 500 * time.Millisecond,
		Decode:      DecodeConfig{FPS: 10, BoxWidth: 250, BoxHeight: 250},
	}
}

var backCameraHints = []string{"back", "rear", "environment"}

// SelectDevice picks the first back-facing device by label, otherwise the last
// device. ok is false when devices is empty.
func SelectDevice(devices []Device) (device Device, ok bool) {
	if len(devices) == 0 {
		return Device{}, false
	}
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		for _, hint := range backCameraHints {
			if strings.Contains(label, hint) {
				return d, true
			}
		}
	}
	return devices[len(devices)-1], true
}
