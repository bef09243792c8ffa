package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"save-the-fridge/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrack struct {
	mu    sync.Mutex
	stops int
}

func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	return nil
}

func (t *fakeTrack) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type fakeStream struct {
	tracks []Track
}

func (s *fakeStream) Tracks() []Track { return s.tracks }

type fakeMedia struct {
	mu          sync.Mutex
	err         error
	acquired    int
	tracks      []*fakeTrack
	constraints []Constraints
}

func (m *fakeMedia) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = append(m.constraints, c)
	if m.err != nil {
		return nil, m.err
	}
	m.acquired++
	track := &fakeTrack{}
	m.tracks = append(m.tracks, track)
	return &fakeStream{tracks: []Track{track}}, nil
}

func (m *fakeMedia) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

type fakeDevices struct {
	devices []Device
	err     error
}

func (d *fakeDevices) Devices(ctx context.Context) ([]Device, error) {
	return d.devices, d.err
}

type fakeDecoder struct {
	mu       sync.Mutex
	startErr error
	scanning bool
	deviceID string
	cfg      DecodeConfig
	onDecode func(string)
	stops    int
	clears   int
}

func (d *fakeDecoder) Start(ctx context.Context, deviceID string, cfg DecodeConfig, onDecode func(string)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.scanning = true
	d.deviceID = deviceID
	d.cfg = cfg
	d.onDecode = onDecode
	return nil
}

func (d *fakeDecoder) IsScanning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanning
}

func (d *fakeDecoder) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanning = false
	d.stops++
	return nil
}

func (d *fakeDecoder) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	return nil
}

func (d *fakeDecoder) emit(text string) {
	d.mu.Lock()
	fn := d.onDecode
	d.mu.Unlock()
	fn(text)
}

type fixture struct {
	media   *fakeMedia
	devices *fakeDevices
	decoder *fakeDecoder
	session *Session
}

func newFixture() *fixture {
	f := &fixture{
		media: &fakeMedia{},
		devices: &fakeDevices{devices: []Device{
			{ID: "front", Label: "Front Camera"},
			{ID: "back", Label: "Back Camera"},
		}},
		decoder: &fakeDecoder{},
	}
	cfg := DefaultConfig()
	cfg.SettleDelay = 0
	f.session = NewSession(f.media, f.devices, f.decoder, cfg, zerolog.Nop())
	return f
}

func TestSelectDevice(t *testing.T) {
	tests := []struct {
		name    string
		devices []Device
		wantID  string
		wantOK  bool
	}{
		{"empty", nil, "", false},
		{"back label", []Device{{ID: "a", Label: "FaceTime HD"}, {ID: "b", Label: "Back Camera"}, {ID: "c", Label: "USB"}}, "b", true},
		{"rear label case insensitive", []Device{{ID: "a", Label: "REAR wide"}, {ID: "b", Label: "front"}}, "a", true},
		{"environment label", []Device{{ID: "a", Label: "x"}, {ID: "b", Label: "camera facing environment"}}, "b", true},
		{"falls back to last", []Device{{ID: "a", Label: "one"}, {ID: "b", Label: "two"}}, "b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectDevice(tt.devices)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestSession_Start(t *testing.T) {
	f := newFixture()

	err := f.session.Start(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, StateActive, f.session.State())
	assert.Equal(t, "back", f.decoder.deviceID)
	assert.Equal(t, DecodeConfig{FPS: 10, BoxWidth: 250, BoxHeight: 250}, f.decoder.cfg)
	assert.Equal(t, []Constraints{{FacingMode: "environment"}}, f.media.constraints)
	assert.Equal(t, "Back Camera", f.session.Device().Label)
	assert.Nil(t, f.session.Err())
}

func TestSession_StartWhileActiveDoesNotAcquireAgain(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.session.Start(context.Background(), nil))

	err := f.session.Start(context.Background(), nil)

	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, 1, f.media.Acquired())
	assert.Equal(t, StateActive, f.session.State())
}

func TestSession_StopIsIdempotent(t *testing.T) {
	t.Run("from idle", func(t *testing.T) {
		f := newFixture()
		assert.NoError(t, f.session.Stop())
		assert.NoError(t, f.session.Stop())
		assert.Equal(t, StateIdle, f.session.State())
		assert.Zero(t, f.decoder.stops)
	})

	t.Run("twice after start", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.session.Start(context.Background(), nil))

		assert.NoError(t, f.session.Stop())
		assert.NoError(t, f.session.Stop())

		assert.Equal(t, StateIdle, f.session.State())
		require.Len(t, f.media.tracks, 1)
		assert.Equal(t, 1, f.media.tracks[0].Stops())
		assert.Equal(t, 1, f.decoder.stops)
		assert.Equal(t, 1, f.decoder.clears)
		assert.False(t, f.decoder.IsScanning())
	})

	t.Run("close disposes an active session", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.session.Start(context.Background(), nil))

		require.NoError(t, f.session.Close())

		assert.Equal(t, StateIdle, f.session.State())
		assert.Equal(t, 1, f.media.tracks[0].Stops())
	})
}

func TestSession_DecodeDeliversOnceAfterTeardown(t *testing.T) {
	f := newFixture()
	var got []string
	var stopsAtDelivery int

	err := f.session.Start(context.Background(), func(text string) {
		stopsAtDelivery = f.media.tracks[0].Stops()
		got = append(got, text)
	})
	require.NoError(t, err)

	f.decoder.emit("3017620422003")
	f.decoder.emit("3017620422003")

	assert.Equal(t, []string{"3017620422003"}, got)
	assert.Equal(t, 1, stopsAtDelivery)
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.decoder.stops)

	// A new attempt is possible once the first has decoded.
	require.NoError(t, f.session.Start(context.Background(), nil))
	assert.Equal(t, 2, f.media.Acquired())
}

func TestSession_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *fixture)
		wantKind   ErrorKind
		wantCode   string
		trackStops int
	}{
		{
			name:     "permission denied",
			setup:    func(f *fixture) { f.media.err = fmt.Errorf("open /dev/scanner: %w", os.ErrPermission) },
			wantKind: KindPermissionDenied,
			wantCode: model.ErrCodePermissionDenied,
		},
		{
			name:       "no devices",
			setup:      func(f *fixture) { f.devices.devices = nil },
			wantKind:   KindNoCamera,
			wantCode:   model.ErrCodeDeviceAbsent,
			trackStops: 1,
		},
		{
			name:     "device busy",
			setup:    func(f *fixture) { f.media.err = &os.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EBUSY} },
			wantKind: KindCameraInUse,
			wantCode: model.ErrCodeDeviceBusy,
		},
		{
			name:       "decoder reports device in use",
			setup:      func(f *fixture) { f.decoder.startErr = errors.New("Could not start video source: device in use") },
			wantKind:   KindCameraInUse,
			wantCode:   model.ErrCodeDeviceBusy,
			trackStops: 1,
		},
		{
			name:       "enumeration error",
			setup:      func(f *fixture) { f.devices.err = errors.New("bus error") },
			wantKind:   KindOther,
			wantCode:   model.ErrCodeCameraFailure,
			trackStops: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			err := f.session.Start(context.Background(), nil)

			var scanErr *ScanError
			require.ErrorAs(t, err, &scanErr)
			assert.Equal(t, tt.wantKind, scanErr.Kind)
			assert.Equal(t, tt.wantCode, scanErr.Code())
			assert.Contains(t, scanErr.Message(), "Unable to access camera.")
			assert.Equal(t, StateFailed, f.session.State())
			assert.Equal(t, scanErr, f.session.Err())
			for _, track := range f.media.tracks {
				assert.Equal(t, tt.trackStops, track.Stops())
			}

			// Stop after a failure returns to idle without releasing twice.
			require.NoError(t, f.session.Stop())
			assert.Equal(t, StateIdle, f.session.State())
			for _, track := range f.media.tracks {
				assert.Equal(t, tt.trackStops, track.Stops())
			}
		})
	}
}

func TestSession_StartRejectedWhileFailed(t *testing.T) {
	f := newFixture()
	f.devices.devices = nil
	require.Error(t, f.session.Start(context.Background(), nil))

	assert.ErrorIs(t, f.session.Start(context.Background(), nil), ErrSessionActive)
}

type blockingDevices struct {
	entered chan struct{}
}

func (b *blockingDevices) Devices(ctx context.Context) ([]Device, error) {
	close(b.entered)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSession_StopDuringStartAborts(t *testing.T) {
	media := &fakeMedia{}
	devices := &blockingDevices{entered: make(chan struct{})}
	decoder := &fakeDecoder{}
	cfg := DefaultConfig()
	cfg.SettleDelay = 0
	session := NewSession(media, devices, decoder, cfg, zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- session.Start(context.Background(), nil) }()

	select {
	case <-devices.entered:
	case <-time.After(time.Second):
		t.Fatal("start did not reach device enumeration")
	}
	assert.Equal(t, StateStarting, session.State())

	require.NoError(t, session.Stop())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrStartAborted)
	case <-time.After(time.Second):
		t.Fatal("start did not return after stop")
	}
	assert.Equal(t, StateIdle, session.State())
	require.Len(t, media.tracks, 1)
	assert.Equal(t, 1, media.tracks[0].Stops())
	assert.Zero(t, decoder.stops)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"sentinel permission", ErrPermissionDenied, KindPermissionDenied},
		{"wrapped os permission", fmt.Errorf("open: %w", os.ErrPermission), KindPermissionDenied},
		{"sentinel no camera", ErrNoCamera, KindNoCamera},
		{"missing device file", &os.PathError{Op: "open", Path: "/dev/x", Err: syscall.ENOENT}, KindNoCamera},
		{"message no cameras", errors.New("No cameras found on device"), KindNoCamera},
		{"sentinel in use", ErrCameraInUse, KindCameraInUse},
		{"ebusy", syscall.EBUSY, KindCameraInUse},
		{"message in use", errors.New("device in use"), KindCameraInUse},
		{"anything else", errors.New("boom"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}

	existing := &ScanError{Kind: KindNoCamera}
	assert.Same(t, existing, Classify(fmt.Errorf("wrapped: %w", existing)))
}

func TestScanError_MessagesAndHints(t *testing.T) {
	assert.Equal(t,
		"Unable to access camera. Please close all other apps using the camera and try again.",
		(&ScanError{Kind: KindCameraInUse}).Message())
	assert.Equal(t,
		"Unable to access camera. No camera detected on your device.",
		(&ScanError{Kind: KindNoCamera}).Message())
	assert.NotEmpty(t, (&ScanError{Kind: KindCameraInUse}).Hints())
	assert.Empty(t, (&ScanError{Kind: KindOther}).Hints())
}
