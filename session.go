package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Display is an initialized output window with its GPU renderer.
type Display struct {
	Window   Window
	Renderer Renderer
	Counter  Counter // optional; the monotonic clock is used when nil
}

// Close releases the renderer, then the window.
func (d *Display) Close() error {
	var errs []error
	if d.Renderer != nil {
		errs = append(errs, d.Renderer.Close())
	}
	if d.Window != nil {
		errs = append(errs, d.Window.Close())
	}
	return errors.Join(errs...)
}

// DisplayFactory creates the display. It is only called once the input is
// open and a decoder has been negotiated.
type DisplayFactory interface {
	OpenDisplay(ctx context.Context, video StreamInfo, settings WindowSettings) (*Display, error)
}

// Backends bundles the native capabilities a session runs on.
type Backends struct {
	Demuxer DemuxOpener
	Decoder DecoderBackend
	Display DisplayFactory
}

// SessionStats summarises a finished playback session.
type SessionStats struct {
	Hardware  bool
	FellBack  bool
	Producer  ProducerStats
	Queue     QueueStats
	Uploader  UploaderStats
	Presenter PresenterStats
}

// Session plays one media file.
type Session struct {
	config   Config
	backends Backends
	log      zerolog.Logger
	stats    SessionStats
}

// NewSession validates config and creates a session.
func NewSession(config Config, backends Backends, log zerolog.Logger) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if backends.Demuxer == nil || backends.Decoder == nil || backends.Display == nil {
		return nil, errors.New("session requires demuxer, decoder and display backends")
	}
	return &Session{config: config, backends: backends, log: log}, nil
}

// Play opens path and runs playback until end of stream, quit or a fatal
// error. End of stream and quit return nil. Resources are released in a
// fixed order on every path: frame queue, texture, display, codec context,
// hardware device, demuxer.
func (s *Session) Play(ctx context.Context, path string) error {
	src, err := OpenSource(ctx, s.backends.Demuxer, path, s.log)
	if err != nil {
		return err
	}
	defer s.closing("demuxer", src.Close)

	neg := NewNegotiator(s.backends.Decoder, NegotiatorConfig{
		Accel:  s.config.AccelKind(),
		Device: s.config.HWDevice,
		Log:    s.log,
	})
	dc, err := neg.Negotiate(src.Video())
	if err != nil {
		return err
	}
	// Closes the codec context before releasing the hardware device.
	defer s.closing("decoder", dc.Close)
	s.stats.Hardware, s.stats.FellBack = dc.Hardware(), dc.FellBack()

	// Catch formats the upload stage cannot handle before opening a window.
	format := dc.FrameFormat()
	if !format.IsHardware() {
		if _, err := ConversionFor(format); err != nil {
			return setupError(StageUpload, err)
		}
	}

	producer := NewFrameProducer(src, dc, s.log)
	defer producer.Close()

	display, err := s.backends.Display.OpenDisplay(ctx, src.Video(), s.config.Window)
	if err != nil {
		return setupError(StageDisplay, err)
	}
	defer s.closing("display", display.Close)

	uploader, err := NewFrameUploader(display.Renderer, format, s.log)
	if err != nil {
		return err
	}
	defer uploader.Close()

	var frames FrameSource = producer
	var queue *FrameQueue
	if s.config.Queue.Enabled {
		queue, err = NewFrameQueue(ctx, producer, QueueConfig{
			Capacity:  s.config.Queue.Capacity,
			Pacing:    s.config.QueuePacing(),
			FrameRate: src.Video().FrameRate,
			Log:       s.log,
		})
		if err != nil {
			return setupError(StageDecoder, err)
		}
		// The worker must stop before anything it reads from is closed.
		defer s.closing("frame queue", queue.Close)
		frames = queue
	}

	presenter := NewPresenter(display.Window, display.Renderer, uploader, frames, NewClock(display.Counter),
		PresenterConfig{ScaleMode: s.config.Scale(), Log: s.log})

	err = presenter.Run(ctx)

	s.stats.Producer = producer.Stats()
	s.stats.Uploader = uploader.Stats()
	s.stats.Presenter = presenter.Stats()
	if queue != nil {
		s.stats.Queue = queue.Stats()
	}
	return err
}

func (s *Session) closing(what string, fn func() error) {
	if err := fn(); err != nil {
		s.log.Warn().Err(err).Str("resource", what).Msg("teardown failed")
	}
}

// Stats returns statistics of the last Play call.
func (s *Session) Stats() SessionStats { return s.stats }
