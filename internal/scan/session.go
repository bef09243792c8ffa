package scan

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives the decoded text of a session.
type Handler func(text string)

// Session mediates exactly one active decode attempt at a time.
type Session struct {
	media   MediaProvider
	devices DeviceEnumerator
	decoder Decoder
	cfg     Config
	logger  zerolog.Logger

	mu         sync.Mutex
	state      State
	err        *ScanError
	device     Device
	gen        uint64
	decodedGen uint64
	handles    handles
}

// handles are the resources owned by the running attempt.
type handles struct {
	stream   Stream
	cancel   context.CancelFunc
	decoding bool
}

// NewSession creates an idle session.
func NewSession(media MediaProvider, devices DeviceEnumerator, decoder Decoder, cfg Config, logger zerolog.Logger) *Session {
	return &Session{
		media:   media,
		devices: devices,
		decoder: decoder,
		cfg:     cfg,
		logger:  logger.With().Str("component", "scan-session").Logger(),
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last classified failure, or nil.
func (s *Session) Err() *ScanError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Device returns the device selected by the last successful start.
func (s *Session) Device() Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Start acquires the camera and begins decoding. It is only valid from
// StateIdle; otherwise ErrSessionActive is returned and nothing is acquired.
// handler is called at most once, after teardown, with the decoded text.
func (s *Session) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.gen++
	gen := s.gen
	s.state = StateStarting
	s.err = nil
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.handles = handles{cancel: cancel}
	s.mu.Unlock()

	// Stop cancels runCtx, which aborts any wait below.
	startCtx, cancelStart := context.WithCancel(ctx)
	defer cancelStart()
	unregister := context.AfterFunc(runCtx, cancelStart)
	defer unregister()

	s.logger.Debug().Msg("requesting camera access")

	stream, err := s.media.Acquire(startCtx, Constraints{FacingMode: FacingEnvironment})
	if err != nil {
		return s.fail(gen, err)
	}
	if !s.attach(gen, func(h *handles) { h.stream = stream }) {
		s.stopTracks(stream)
		return ErrStartAborted
	}

	if err := sleep(startCtx, s.cfg.SettleDelay); err != nil {
		return s.fail(gen, err)
	}

	devices, err := s.devices.Devices(startCtx)
	if err != nil {
		return s.fail(gen, err)
	}
	device, ok := SelectDevice(devices)
	if !ok {
		return s.fail(gen, ErrNoCamera)
	}

	if !s.attach(gen, func(h *handles) { h.decoding = true }) {
		return ErrStartAborted
	}

	onDecode := func(text string) { s.decoded(gen, text, handler) }
	if err := s.decoder.Start(runCtx, device.ID, s.cfg.Decode, onDecode); err != nil {
		return s.fail(gen, err)
	}

	s.mu.Lock()
	switch {
	case s.gen == gen && s.state == StateStarting:
		s.state = StateActive
		s.device = device
		s.mu.Unlock()
		s.logger.Info().Str("device", device.Label).Str("device_id", device.ID).Msg("scanner started")
		return nil
	case s.decodedGen == gen:
		s.device = device
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		// Stop may have run before the decoder was running.
		if s.decoder.IsScanning() {
			if err := s.decoder.Stop(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to stop decoder after aborted start")
			}
		}
		return ErrStartAborted
	}
}

// Stop releases every resource held by the session and returns it to
// StateIdle. It is a no-op when the session is idle or already stopping.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateStopping {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	h := s.detach()
	s.mu.Unlock()

	s.release(h)

	s.mu.Lock()
	if s.state == StateStopping {
		s.state = StateIdle
	}
	s.mu.Unlock()

	s.logger.Info().Msg("scanner stopped")
	return nil
}

// Close stops the session. It is safe to call on disposal in any state.
func (s *Session) Close() error {
	return s.Stop()
}

// attach mutates the handles of attempt gen if it is still starting.
func (s *Session) attach(gen uint64, fn func(h *handles)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateStarting {
		return false
	}
	fn(&s.handles)
	return true
}

// detach takes ownership of the current handles and invalidates callbacks of
// the running attempt. Callers hold mu.
func (s *Session) detach() handles {
	h := s.handles
	s.handles = handles{}
	s.gen++
	return h
}

// release tears down h. Failures are logged, never returned.
func (s *Session) release(h handles) {
	if h.decoding {
		if s.decoder.IsScanning() {
			if err := s.decoder.Stop(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to stop decoder")
			}
		}
		if err := s.decoder.Clear(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear decoder surface")
		}
	}
	if h.stream != nil {
		s.stopTracks(h.stream)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

func (s *Session) stopTracks(stream Stream) {
	for _, track := range stream.Tracks() {
		if err := track.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to stop media track")
		}
	}
}

// fail tears down attempt gen and records the classified error.
func (s *Session) fail(gen uint64, cause error) error {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrStartAborted
	}
	h := s.detach()
	scanErr := Classify(cause)
	s.state = StateFailed
	s.err = scanErr
	s.mu.Unlock()

	s.release(h)

	s.logger.Error().Err(cause).Str("kind", string(scanErr.Kind)).Msg("scanner failed to start")
	return scanErr
}

// decoded handles the first decode of attempt gen. Later calls are dropped.
func (s *Session) decoded(gen uint64, text string, handler Handler) {
	s.mu.Lock()
	if s.gen != gen || (s.state != StateActive && s.state != StateStarting) {
		s.mu.Unlock()
		return
	}
	s.state = StateDecoded
	s.decodedGen = gen
	h := s.detach()
	s.mu.Unlock()

	s.release(h)

	s.mu.Lock()
	if s.state == StateDecoded {
		s.state = StateIdle
	}
	s.mu.Unlock()

	s.logger.Info().Str("barcode", text).Msg("barcode decoded")

	if handler != nil {
		handler(text)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
