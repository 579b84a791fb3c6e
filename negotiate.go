package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// FormatSelector chooses the decoder output format from the candidates the
// decoder offers.
type FormatSelector interface {
	SelectFormat(candidates []PixelFormat) (PixelFormat, error)
}

// HardwareFormatSelector selects exactly one hardware surface format and
// never substitutes another.
type HardwareFormatSelector struct {
	Want PixelFormat

	mu  sync.Mutex
	err error
}

// SelectFormat implements FormatSelector.
func (s *HardwareFormatSelector) SelectFormat(candidates []PixelFormat) (PixelFormat, error) {
	for _, c := range candidates {
		if c == s.Want {
			return c, nil
		}
	}
	err := fmt.Errorf("%w: want %s, offered %v", ErrHardwareFormat, s.Want, candidates)
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return PixelFormatUnknown, err
}

// Err returns the last selection failure, if any.
func (s *HardwareFormatSelector) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// DecodeContext is an opened decoder for the session. It owns the decoder,
// the optional hardware device reference and the format selector.
type DecodeContext struct {
	decoder  Decoder
	device   HardwareDevice
	selector FormatSelector
	stream   StreamInfo
	fallback bool
	closed   bool
}

// Decoder returns the opened decoder.
func (c *DecodeContext) Decoder() Decoder { return c.decoder }

// Hardware reports whether frames are decoded on the accelerator.
func (c *DecodeContext) Hardware() bool { return c.device != nil }

// FellBack reports whether the hardware open failed and software was used.
func (c *DecodeContext) FellBack() bool { return c.fallback }

// Stream returns the stream this context decodes.
func (c *DecodeContext) Stream() StreamInfo { return c.stream }

// Selector returns the pixel-format strategy bound to the decoder, if any.
func (c *DecodeContext) Selector() FormatSelector { return c.selector }

// FrameFormat is the format tag frames from this context carry.
func (c *DecodeContext) FrameFormat() PixelFormat {
	if c.device != nil {
		return c.device.Kind().SurfaceFormat()
	}
	return c.decoder.OutputFormat()
}

// Close closes the codec context, then releases the hardware device
// reference. It is idempotent.
func (c *DecodeContext) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	if c.decoder != nil {
		err = c.decoder.Close()
	}
	if c.device != nil {
		c.device.Release()
	}
	return err
}

// NegotiatorConfig configures decoder negotiation.
type NegotiatorConfig struct {
	Accel    AccelKind
	Device   string // device path passed to the accelerator, optional
	Log      zerolog.Logger
	Selector func(want PixelFormat) FormatSelector // defaults to HardwareFormatSelector
}

// Negotiator establishes a working decode path: hardware first, software
// fallback at most once.
type Negotiator struct {
	backend DecoderBackend
	config  NegotiatorConfig
	log     zerolog.Logger
}

// NewNegotiator creates a negotiator for the backend.
func NewNegotiator(backend DecoderBackend, config NegotiatorConfig) *Negotiator {
	if config.Selector == nil {
		config.Selector = func(want PixelFormat) FormatSelector {
			return &HardwareFormatSelector{Want: want}
		}
	}
	return &Negotiator{
		backend: backend,
		config:  config,
		log:     config.Log.With().Str("component", "negotiator").Logger(),
	}
}

// Negotiate opens a decoder for stream. Failing to create the hardware
// device is fatal; failing to open the hardware decoder falls back to a
// software decoder exactly once.
func (n *Negotiator) Negotiate(stream StreamInfo) (*DecodeContext, error) {
	if !n.config.Accel.IsHardware() {
		return n.openSoftware(stream, false)
	}

	dev, err := n.backend.CreateHardwareDevice(n.config.Accel, n.config.Device)
	if err != nil {
		return nil, setupError(StageHardware, fmt.Errorf("%w: %s: %v", ErrHardwareDevice, n.config.Accel, err))
	}

	dc, err := n.openHardware(stream, dev)
	if err == nil {
		n.log.Info().
			Str("decoder", dc.decoder.Name()).
			Stringer("accel", n.config.Accel).
			Msg("hardware decoding enabled")
		return dc, nil
	}

	n.log.Info().
		Err(err).
		Stringer("accel", n.config.Accel).
		Str("codec", stream.CodecName).
		Msg("hardware decoder unavailable, falling back to software")
	dev.Release()

	return n.openSoftware(stream, true)
}

func (n *Negotiator) openHardware(stream StreamInfo, dev HardwareDevice) (*DecodeContext, error) {
	dec, err := n.backend.NewDecoder(stream, true)
	if err != nil {
		return nil, err
	}
	sel := n.config.Selector(dev.Kind().SurfaceFormat())
	if err := dec.AttachHardware(dev, sel); err != nil {
		dec.Close()
		return nil, err
	}
	if err := dec.Open(); err != nil {
		dec.Close()
		return nil, err
	}
	return &DecodeContext{
		decoder:  dec,
		device:   dev,
		selector: sel,
		stream:   stream,
	}, nil
}

func (n *Negotiator) openSoftware(stream StreamInfo, fallback bool) (*DecodeContext, error) {
	dec, err := n.backend.NewDecoder(stream, false)
	if err != nil {
		return nil, setupError(StageDecoder, errors.Join(ErrNoDecoder, err))
	}
	if err := dec.Open(); err != nil {
		dec.Close()
		return nil, setupError(StageDecoder, errors.Join(ErrNoDecoder, err))
	}
	n.log.Info().
		Str("decoder", dec.Name()).
		Bool("fallback", fallback).
		Stringer("format", dec.OutputFormat()).
		Msg("software decoding enabled")
	return &DecodeContext{
		decoder:  dec,
		stream:   stream,
		fallback: fallback,
	}, nil
}
