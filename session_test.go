package player

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	rec     *recorder
	demuxer *fakeDemuxer
	opener  *fakeOpener
	backend *fakeBackend
	display *fakeDisplayFactory
	window  *fakeWindow
	render  *fakeRenderer
}

func newSessionFixture(packets int) *sessionFixture {
	rec := &recorder{}
	pkts := make([]int, packets)
	for i := range pkts {
		pkts[i] = 1
	}
	d := &fakeDemuxer{
		rec: rec,
		streams: []StreamInfo{
			{Index: 0, Type: MediaTypeAudio},
			{Index: 1, Type: MediaTypeVideo, CodecName: "h264", Width: 16, Height: 8, Format: PixelFormatI420},
		},
		packets: pkts,
	}
	w := &fakeWindow{rec: rec, id: 1, w: 640, h: 480}
	r := &fakeRenderer{rec: rec}
	return &sessionFixture{
		rec:     rec,
		demuxer: d,
		opener:  &fakeOpener{demuxer: d},
		backend: &fakeBackend{
			rec: rec,
			hw:  &fakeDecoder{rec: rec, name: "h264_vaapi", format: PixelFormatVAAPI, width: 16, height: 8, framesPerPacket: 1},
			sw:  &fakeDecoder{rec: rec, name: "h264", format: PixelFormatI420, width: 16, height: 8, framesPerPacket: 1},
		},
		display: &fakeDisplayFactory{rec: rec, window: w, renderer: r},
		window:  w,
		render:  r,
	}
}

func (fx *sessionFixture) session(t *testing.T, modify func(*Config)) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Queue.Pacing = PacingNone.String()
	if modify != nil {
		modify(&cfg)
	}
	s, err := NewSession(cfg, Backends{
		Demuxer: fx.opener,
		Decoder: fx.backend,
		Display: fx.display,
	}, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func noQueue(c *Config) { c.Queue.Enabled = false }

func TestNewSessionValidation(t *testing.T) {
	fx := newSessionFixture(0)
	backends := Backends{Demuxer: fx.opener, Decoder: fx.backend, Display: fx.display}

	cfg := DefaultConfig()
	cfg.Accel = "glide"
	_, err := NewSession(cfg, backends, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid config")

	_, err = NewSession(DefaultConfig(), Backends{Demuxer: fx.opener}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSessionHardwarePlayback(t *testing.T) {
	fx := newSessionFixture(5)
	s := fx.session(t, noQueue)

	require.NoError(t, s.Play(context.Background(), "clip.mp4"))

	stats := s.Stats()
	assert.True(t, stats.Hardware)
	assert.False(t, stats.FellBack)
	assert.Equal(t, uint64(5), stats.Presenter.FramesShown)
	assert.Equal(t, uint64(5), stats.Uploader.Downloads)
	assert.Equal(t, uint64(5), stats.Producer.FramesProduced)
	assert.Equal(t, int64(5), fx.backend.hw.released.Load())

	// Fixed teardown order.
	assert.Equal(t, []string{
		"display.open",
		"texture.delete",
		"renderer.close",
		"window.close",
		"codec.close",
		"device.release",
		"demuxer.close",
	}, fx.rec.list())
}

func TestSessionFallbackPlayback(t *testing.T) {
	fx := newSessionFixture(4)
	fx.backend.hw.openErr = errors.New("profile not supported by VAAPI")
	s := fx.session(t, nil)

	require.NoError(t, s.Play(context.Background(), "clip.mp4"))

	stats := s.Stats()
	assert.False(t, stats.Hardware)
	assert.True(t, stats.FellBack)
	assert.Equal(t, uint64(4), stats.Producer.FramesProduced)
	assert.Equal(t, stats.Producer.FramesProduced, stats.Presenter.FramesShown+stats.Queue.Dropped)

	// Every reference handed out came back exactly once.
	assert.Equal(t, 1, fx.backend.hw.closed)
	assert.Equal(t, 1, fx.backend.sw.closed)
	assert.Equal(t, 1, fx.backend.device.released)
	assert.Equal(t, int64(4), fx.backend.sw.released.Load())
	assert.Equal(t, fx.demuxer.read, fx.demuxer.released)
	assert.Equal(t, 1, fx.backend.swRequests)

	// The device is released during negotiation, before any display exists.
	assert.Less(t, fx.rec.indexOf("device.release"), fx.rec.indexOf("display.open"))
	assert.Greater(t, fx.rec.indexOf("demuxer.close"), fx.rec.indexOf("window.close"))
}

func TestSessionQuitMidPlayback(t *testing.T) {
	fx := newSessionFixture(50)
	fx.window.batches = [][]Event{nil, nil, {QuitEvent{}}}
	s := fx.session(t, func(c *Config) { c.Accel = "none" })

	require.NoError(t, s.Play(context.Background(), "clip.mp4"))

	stats := s.Stats()
	assert.Equal(t, uint64(3), stats.Presenter.Iterations)
	assert.LessOrEqual(t, stats.Presenter.FramesShown, uint64(2))
	assert.Equal(t, int64(stats.Producer.FramesProduced), fx.backend.sw.released.Load(),
		"queued and in-flight frames are released on quit")
	assert.Equal(t, fx.demuxer.read, fx.demuxer.released)
	assert.True(t, fx.demuxer.closed)
	assert.True(t, fx.window.closed)
}

func TestSessionSetupFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(fx *sessionFixture)
		config  func(*Config)
		stage   string
		wantErr error
	}{
		{
			name: "no video stream",
			setup: func(fx *sessionFixture) {
				fx.demuxer.streams = fx.demuxer.streams[:1]
			},
			stage:   StageSelect,
			wantErr: ErrNoVideoStream,
		},
		{
			name: "hardware device",
			setup: func(fx *sessionFixture) {
				fx.backend.deviceErr = errors.New("no render node")
			},
			stage:   StageHardware,
			wantErr: ErrHardwareDevice,
		},
		{
			name: "no decoder",
			setup: func(fx *sessionFixture) {
				fx.backend.swErr = errors.New("decoder not found")
			},
			config:  func(c *Config) { c.Accel = "none" },
			stage:   StageDecoder,
			wantErr: ErrNoDecoder,
		},
		{
			name: "unsupported software format",
			setup: func(fx *sessionFixture) {
				fx.backend.sw.format = PixelFormatUnknown
			},
			config:  func(c *Config) { c.Accel = "none" },
			stage:   StageUpload,
			wantErr: ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newSessionFixture(3)
			tt.setup(fx)
			s := fx.session(t, tt.config)

			err := s.Play(context.Background(), "clip.mp4")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var se *SetupError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)

			assert.Zero(t, fx.display.opened, "no window before setup succeeds")
			assert.True(t, fx.demuxer.closed)
			assert.Zero(t, fx.demuxer.read, "no packets read")
		})
	}
}

func TestSessionDisplayFailure(t *testing.T) {
	fx := newSessionFixture(3)
	fx.display.err = errors.New("no GL context")
	s := fx.session(t, nil)

	err := s.Play(context.Background(), "clip.mp4")
	var se *SetupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDisplay, se.Stage)

	assert.Equal(t, []string{"codec.close", "device.release", "demuxer.close"}, fx.rec.list())
}

func TestSessionDecoderFailureIsFatal(t *testing.T) {
	fx := newSessionFixture(3)
	fx.backend.sw.recvErrs = []error{nil, errors.New("hardware hang")}
	s := fx.session(t, func(c *Config) {
		c.Accel = "none"
		c.Queue.Enabled = false
	})

	err := s.Play(context.Background(), "clip.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecoderFailed)
	assert.False(t, IsFatalSetup(err))
	assert.True(t, fx.window.closed)
	assert.True(t, fx.demuxer.closed)
}
