package ffmpeg

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/asticode/go-astiav"
	"github.com/rs/zerolog"

	"github.com/thesyncim/player"
)

// BackendConfig configures decoder creation.
type BackendConfig struct {
	Threads int // decoder threads, 0 lets FFmpeg decide
	// ExtraHardwareFrames grows the decoder's surface pool by the number of
	// frames the player keeps referenced outside the decoder.
	ExtraHardwareFrames int
	Log                 zerolog.Logger
}

// Backend creates hardware devices and decoders with libavcodec.
type Backend struct {
	config BackendConfig
	log    zerolog.Logger
}

// NewBackend creates a decoder backend.
func NewBackend(config BackendConfig) *Backend {
	return &Backend{
		config: config,
		log:    config.Log.With().Str("component", "ffmpeg").Logger(),
	}
}

// Device is a reference to an FFmpeg hardware device context.
type Device struct {
	kind player.AccelKind
	typ  astiav.HardwareDeviceType
	ctx  *astiav.HardwareDeviceContext
}

// Kind implements player.HardwareDevice.
func (d *Device) Kind() player.AccelKind { return d.kind }

// Release implements player.HardwareDevice.
func (d *Device) Release() {
	if d.ctx != nil {
		d.ctx.Free()
		d.ctx = nil
	}
}

// CreateHardwareDevice implements player.DecoderBackend.
func (b *Backend) CreateHardwareDevice(kind player.AccelKind, device string) (player.HardwareDevice, error) {
	typ := astiav.FindHardwareDeviceTypeByName(kind.String())
	if typ == astiav.HardwareDeviceTypeNone {
		return nil, fmt.Errorf("ffmpeg has no %s device type", kind)
	}
	ctx, err := astiav.CreateHardwareDeviceContext(typ, device, nil, 0)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Stringer("accel", kind).Str("device", device).Msg("hardware device created")
	return &Device{kind: kind, typ: typ, ctx: ctx}, nil
}

// NewDecoder implements player.DecoderBackend. Every call allocates a fresh
// codec context from the stream parameters.
func (b *Backend) NewDecoder(stream player.StreamInfo, hardware bool) (player.Decoder, error) {
	par, ok := stream.Params.(*astiav.CodecParameters)
	if !ok || par == nil {
		return nil, fmt.Errorf("stream %d has no codec parameters", stream.Index)
	}
	codec := astiav.FindDecoder(par.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("no decoder for codec %s", par.CodecID())
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("alloc codec context failed")
	}
	if err := par.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("apply codec parameters: %w", err)
	}
	return &decoder{
		codec:    codec,
		cc:       cc,
		stream:   stream,
		threads:  b.config.Threads,
		extraHW:  b.config.ExtraHardwareFrames,
		received: astiav.AllocFrame(),
		log:      b.log,
	}, nil
}

type decoder struct {
	codec   *astiav.Codec
	cc      *astiav.CodecContext
	stream  player.StreamInfo
	threads int
	extraHW int
	log     zerolog.Logger

	device *Device
	hwFmt  astiav.PixelFormat

	received *astiav.Frame
	scaler   normaliser // decode goroutine only
	dlScaler normaliser // surface downloads, presenter goroutine only
	buffers  bufferPool
}

func (d *decoder) Name() string { return d.codec.Name() }

func (d *decoder) AttachHardware(dev player.HardwareDevice, sel player.FormatSelector) error {
	hd, ok := dev.(*Device)
	if !ok {
		return fmt.Errorf("foreign hardware device %T", dev)
	}

	d.hwFmt = astiav.PixelFormatNone
	for _, hc := range d.codec.HardwareConfigs() {
		if hc.MethodFlags().Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) && hc.HardwareDeviceType() == hd.typ {
			d.hwFmt = hc.PixelFormat()
			break
		}
	}
	if d.hwFmt == astiav.PixelFormatNone {
		return fmt.Errorf("decoder %s does not support %s", d.codec.Name(), hd.kind)
	}

	d.device = hd
	d.cc.SetHardwareDeviceContext(hd.ctx)
	if d.extraHW > 0 {
		d.cc.SetExtraHardwareFrames(d.extraHW)
	}
	d.cc.SetPixelFormatCallback(func(offered []astiav.PixelFormat) astiav.PixelFormat {
		candidates := make([]player.PixelFormat, len(offered))
		for i, f := range offered {
			candidates[i] = PixelFormat(f)
		}
		want, err := sel.SelectFormat(candidates)
		if err != nil {
			d.log.Error().Err(err).Msg("pixel format negotiation failed")
			return astiav.PixelFormatNone
		}
		for i, c := range candidates {
			if c == want {
				return offered[i]
			}
		}
		return astiav.PixelFormatNone
	})
	return nil
}

func (d *decoder) Open() error {
	var opts *astiav.Dictionary
	if d.threads > 0 {
		opts = astiav.NewDictionary()
		defer opts.Free()
		if err := opts.Set("threads", strconv.Itoa(d.threads), 0); err != nil {
			return err
		}
	}
	if err := d.cc.Open(d.codec, opts); err != nil {
		return fmt.Errorf("open %s: %w", d.codec.Name(), err)
	}
	return nil
}

func (d *decoder) OutputFormat() player.PixelFormat {
	f := d.cc.PixelFormat()
	if needsNormalising(f) {
		return PixelFormat(normalisedFormat)
	}
	return PixelFormat(f)
}

func (d *decoder) SendPacket(pkt player.Packet) error {
	if pkt == nil {
		return mapError(d.cc.SendPacket(nil))
	}
	p, ok := pkt.(*packet)
	if !ok {
		return fmt.Errorf("foreign packet %T", pkt)
	}
	return mapError(d.cc.SendPacket(p.pkt))
}

func (d *decoder) ReceiveFrame() (*player.Frame, error) {
	if err := d.cc.ReceiveFrame(d.received); err != nil {
		return nil, mapError(err)
	}
	defer d.received.Unref()

	// Raw elementary streams often carry no PTS; the packet DTS is the
	// next best presentation order.
	pts := d.received.Pts()
	if pts == astiav.NoPtsValue {
		pts = d.received.PktDts()
	}
	if pts == astiav.NoPtsValue {
		pts = player.NoPTS
	}

	if d.device != nil && d.received.PixelFormat() == d.hwFmt {
		return d.surfaceFrame(pts)
	}

	f, err := d.copyOut(d.received, &d.scaler)
	if err != nil {
		return nil, &player.DecodeError{Err: err}
	}
	f.PTS, f.TimeBase = pts, d.stream.TimeBase
	return f, nil
}

// surfaceFrame keeps a reference to the hardware frame until the player
// releases it.
func (d *decoder) surfaceFrame(pts int64) (*player.Frame, error) {
	hw := astiav.AllocFrame()
	if err := hw.Ref(d.received); err != nil {
		hw.Free()
		return nil, fmt.Errorf("ref hardware frame: %w", err)
	}
	s := &surface{dec: d, hw: hw}
	return player.NewFrame(player.Frame{
		Width:    hw.Width(),
		Height:   hw.Height(),
		Format:   d.device.kind.SurfaceFormat(),
		Surface:  s,
		PTS:      pts,
		TimeBase: d.stream.TimeBase,
	}, s.free), nil
}

// copyOut copies a software frame into pooled Go memory, normalising
// formats the player cannot upload.
func (d *decoder) copyOut(src *astiav.Frame, scaler *normaliser) (*player.Frame, error) {
	if needsNormalising(src.PixelFormat()) {
		n, err := scaler.convert(src)
		if err != nil {
			return nil, err
		}
		src = n
	}

	size, err := src.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("image buffer size: %w", err)
	}
	buf := d.buffers.get(size)
	if _, err := src.ImageCopyToBuffer(buf, 1); err != nil {
		d.buffers.put(buf)
		return nil, fmt.Errorf("copy image: %w", err)
	}

	format := PixelFormat(src.PixelFormat())
	planes, strides, err := player.SplitPlanes(buf, format, src.Width(), src.Height())
	if err != nil {
		d.buffers.put(buf)
		return nil, err
	}
	return player.NewFrame(player.Frame{
		Width:   src.Width(),
		Height:  src.Height(),
		Format:  format,
		Planes:  planes,
		Strides: strides,
		PTS:     player.NoPTS,
	}, func() { d.buffers.put(buf) }), nil
}

func (d *decoder) Close() error {
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	if d.received != nil {
		d.received.Free()
		d.received = nil
	}
	d.scaler.close()
	d.dlScaler.close()
	return nil
}

// surface is a decoded picture resident on the hardware device.
type surface struct {
	dec  *decoder
	hw   *astiav.Frame
	sw   *astiav.Frame
	last *player.Frame
}

// Download implements player.Surface.
func (s *surface) Download() (*player.Frame, error) {
	if s.hw == nil {
		return nil, player.ErrClosed
	}
	if s.last != nil {
		s.last.Release()
		s.last = nil
	}
	if s.sw == nil {
		s.sw = astiav.AllocFrame()
	} else {
		s.sw.Unref()
	}
	if err := s.hw.TransferHardwareData(s.sw); err != nil {
		return nil, fmt.Errorf("transfer hardware data: %w", err)
	}
	f, err := s.dec.copyOut(s.sw, &s.dec.dlScaler)
	if err != nil {
		return nil, err
	}
	s.last = f
	return f, nil
}

func (s *surface) free() {
	if s.last != nil {
		s.last.Release()
		s.last = nil
	}
	if s.sw != nil {
		s.sw.Free()
		s.sw = nil
	}
	if s.hw != nil {
		s.hw.Free()
		s.hw = nil
	}
}
