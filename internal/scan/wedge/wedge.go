// Package wedge implements the scan collaborators for keyboard-wedge barcode
// scanners: devices that emit each decoded barcode as one line of text on a
// character device, FIFO or standard input.
package wedge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"save-the-fridge/internal/scan"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type openFunc func(path string) (io.ReadCloser, error)

// openDevice opens path non-blocking so reads go through the runtime poller
// and a Close unblocks a pending read.
func openDevice(path string) (io.ReadCloser, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ParseDevices turns "label=path" or bare path entries into devices. The
// device ID is the path; a bare path is labelled with its base name.
func ParseDevices(entries []string) []scan.Device {
	devices := make([]scan.Device, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, path, found := strings.Cut(entry, "=")
		if !found {
			path = label
			label = filepath.Base(path)
		}
		devices = append(devices, scan.Device{ID: strings.TrimSpace(path), Label: strings.TrimSpace(label)})
	}
	return devices
}

// Media grants access to configured scanner devices and enumerates the ones
// currently present.
type Media struct {
	devices []scan.Device
	open    openFunc
	stat    func(path string) (os.FileInfo, error)
}

// NewMedia creates a media provider over devices.
func NewMedia(devices []scan.Device) *Media {
	return &Media{devices: devices, open: openDevice, stat: os.Stat}
}

// Acquire opens the preferred device and holds it until the track is stopped.
// An unreachable device surfaces its OS error for classification.
func (m *Media) Acquire(ctx context.Context, constraints scan.Constraints) (scan.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	device, ok := scan.SelectDevice(m.devices)
	if !ok {
		return nil, scan.ErrNoCamera
	}
	f, err := m.open(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to open scanner %s: %w", device.ID, err)
	}
	return &stream{track: &track{closer: f}}, nil
}

// Devices lists the configured devices whose path exists.
func (m *Media) Devices(ctx context.Context) ([]scan.Device, error) {
	present := make([]scan.Device, 0, len(m.devices))
	for _, d := range m.devices {
		if _, err := m.stat(d.ID); err == nil {
			present = append(present, d)
		}
	}
	return present, nil
}

type stream struct {
	track *track
}

func (s *stream) Tracks() []scan.Track {
	return []scan.Track{s.track}
}

// track releases its device handle once.
type track struct {
	once   sync.Once
	closer io.Closer
}

func (t *track) Stop() error {
	var err error
	t.once.Do(func() { err = t.closer.Close() })
	return err
}

// Decoder reads lines from a device at a bounded rate.
type Decoder struct {
	open   openFunc
	logger zerolog.Logger

	mu       sync.Mutex
	scanning bool
	reader   io.ReadCloser
	cancel   context.CancelFunc
}

// NewDecoder creates a line decoder.
func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{
		open:   openDevice,
		logger: logger.With().Str("component", "wedge-decoder").Logger(),
	}
}

// Start opens deviceID and reports every non-empty line to onDecode. Reads are
// paced at cfg.FPS. The detection box does not apply to line devices.
func (d *Decoder) Start(ctx context.Context, deviceID string, cfg scan.DecodeConfig, onDecode func(text string)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scanning {
		return scan.ErrCameraInUse
	}

	r, err := d.open(deviceID)
	if err != nil {
		return fmt.Errorf("failed to open scanner %s: %w", deviceID, err)
	}

	fps := cfg.FPS
	if fps <= 0 {
		fps = scan.DefaultConfig().Decode.FPS
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.reader = r
	d.cancel = cancel
	d.scanning = true

	go d.loop(loopCtx, r, rate.NewLimiter(rate.Limit(fps), 1), onDecode)
	return nil
}

// IsScanning reports whether the loop is running.
func (d *Decoder) IsScanning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanning
}

// Stop closes the device, which unblocks the loop. It does not wait for the
// loop goroutine.
func (d *Decoder) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.scanning {
		return nil
	}
	d.scanning = false
	d.cancel()
	err := d.reader.Close()
	d.reader = nil
	d.cancel = nil
	return err
}

// Clear is a no-op: line devices have no preview surface.
func (d *Decoder) Clear() error {
	return nil
}

func (d *Decoder) loop(ctx context.Context, r io.ReadCloser, limiter *rate.Limiter, onDecode func(string)) {
	br := bufio.NewReader(r)
	var pending strings.Builder

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		chunk, err := br.ReadString('\n')
		pending.WriteString(chunk)

		if strings.HasSuffix(chunk, "\n") {
			text := strings.TrimSpace(pending.String())
			pending.Reset()
			if text != "" && ctx.Err() == nil {
				onDecode(text)
			}
		}

		switch {
		case err == nil, errors.Is(err, io.EOF):
			// EOF on a FIFO or file means no writer yet; poll again next frame.
		case ctx.Err() != nil, errors.Is(err, os.ErrClosed):
			return
		default:
			d.logger.Error().Err(err).Msg("scanner read failed")
			d.finish(r)
			return
		}
	}
}

// finish marks the loop over r as ended after a read failure.
func (d *Decoder) finish(r io.ReadCloser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader != r {
		return
	}
	d.scanning = false
	d.cancel()
	if err := r.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("failed to close scanner after read failure")
	}
	d.reader = nil
	d.cancel = nil
}
