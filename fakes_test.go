package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// recorder logs lifecycle calls across fakes so tests can assert ordering.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// indexOf returns the position of call, or -1.
func (r *recorder) indexOf(call string) int {
	for i, c := range r.list() {
		if c == call {
			return i
		}
	}
	return -1
}

type fakePacket struct {
	stream   int
	released *int
}

func (p *fakePacket) StreamIndex() int { return p.stream }
func (p *fakePacket) Release()         { *p.released++ }

type fakeDemuxer struct {
	rec      *recorder
	streams  []StreamInfo
	packets  []int // stream index of each packet in container order
	probeErr error
	readErr  error
	best     *int // container ranking; nil ranks by picture size

	read     int
	released int
	closed   bool
}

func (d *fakeDemuxer) FindStreamInfo(context.Context) error { return d.probeErr }
func (d *fakeDemuxer) Streams() []StreamInfo                { return d.streams }

func (d *fakeDemuxer) BestVideoStream() (int, error) {
	if d.best != nil {
		return *d.best, nil
	}
	i, err := SelectVideoStream(d.streams)
	if err != nil {
		return -1, err
	}
	return d.streams[i].Index, nil
}

func (d *fakeDemuxer) ReadPacket() (Packet, error) {
	if d.readErr != nil {
		return nil, d.readErr
	}
	if d.read >= len(d.packets) {
		return nil, ErrEndOfStream
	}
	p := &fakePacket{stream: d.packets[d.read], released: &d.released}
	d.read++
	return p, nil
}

func (d *fakeDemuxer) Close() error {
	d.closed = true
	d.rec.add("demuxer.close")
	return nil
}

type fakeOpener struct {
	demuxer *fakeDemuxer
	err     error
	opened  int
}

func (o *fakeOpener) OpenInput(context.Context, string) (Demuxer, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.opened++
	return o.demuxer, nil
}

type fakeDevice struct {
	rec      *recorder
	kind     AccelKind
	released int
}

func (d *fakeDevice) Kind() AccelKind { return d.kind }

func (d *fakeDevice) Release() {
	d.released++
	d.rec.add("device.release")
}

// fakeDecoder yields framesPerPacket frames for every packet it accepts.
type fakeDecoder struct {
	rec             *recorder
	name            string
	format          PixelFormat
	width, height   int
	framesPerPacket int
	openErr         error
	attachErr       error

	// sendErrs and recvErrs are consumed in order before normal behaviour.
	sendErrs []error
	recvErrs []error

	hardware bool
	selector FormatSelector
	ready    int
	flushed  bool
	sent     int
	pts      int64
	released atomic.Int64
	closed   int
}

func (d *fakeDecoder) AttachHardware(dev HardwareDevice, sel FormatSelector) error {
	if d.attachErr != nil {
		return d.attachErr
	}
	d.hardware, d.selector = true, sel
	return nil
}

func (d *fakeDecoder) Open() error { return d.openErr }

func (d *fakeDecoder) SendPacket(pkt Packet) error {
	if len(d.sendErrs) > 0 {
		err := d.sendErrs[0]
		d.sendErrs = d.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	if pkt == nil {
		d.flushed = true
		return nil
	}
	if d.ready > 0 {
		return ErrAgain
	}
	d.sent++
	d.ready += d.framesPerPacket
	return nil
}

func (d *fakeDecoder) ReceiveFrame() (*Frame, error) {
	if len(d.recvErrs) > 0 {
		err := d.recvErrs[0]
		d.recvErrs = d.recvErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if d.ready == 0 {
		if d.flushed {
			return nil, ErrEndOfStream
		}
		return nil, ErrAgain
	}
	d.ready--
	d.pts++
	return NewFrame(d.frame(), func() { d.released.Add(1) }), nil
}

func (d *fakeDecoder) frame() Frame {
	f := Frame{
		Width:    d.width,
		Height:   d.height,
		Format:   d.format,
		PTS:      d.pts,
		TimeBase: Rational{1, 25},
	}
	if d.format.IsHardware() {
		f.Surface = &fakeSurface{width: d.width, height: d.height}
		return f
	}
	buf := make([]byte, d.format.BufferSize(d.width, d.height))
	f.Planes, f.Strides, _ = SplitPlanes(buf, d.format, d.width, d.height)
	return f
}

func (d *fakeDecoder) OutputFormat() PixelFormat { return d.format }
func (d *fakeDecoder) Name() string              { return d.name }

func (d *fakeDecoder) Close() error {
	d.closed++
	d.rec.add("codec.close")
	return nil
}

// fakeBackend hands out decoders from hw and sw.
type fakeBackend struct {
	rec       *recorder
	deviceErr error
	hw        *fakeDecoder
	sw        *fakeDecoder
	hwErr     error
	swErr     error

	device     *fakeDevice
	hwRequests int
	swRequests int
}

func (b *fakeBackend) CreateHardwareDevice(kind AccelKind, _ string) (HardwareDevice, error) {
	if b.deviceErr != nil {
		return nil, b.deviceErr
	}
	b.device = &fakeDevice{rec: b.rec, kind: kind}
	return b.device, nil
}

func (b *fakeBackend) NewDecoder(_ StreamInfo, hardware bool) (Decoder, error) {
	if hardware {
		b.hwRequests++
		if b.hwErr != nil {
			return nil, b.hwErr
		}
		return b.hw, nil
	}
	b.swRequests++
	if b.swErr != nil {
		return nil, b.swErr
	}
	return b.sw, nil
}

// fakeSurface downloads NV12 pictures unless format is set.
type fakeSurface struct {
	width, height int
	format        PixelFormat
	downloads     int
	err           error
}

func (s *fakeSurface) Download() (*Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.downloads++
	format := s.format
	if format == PixelFormatUnknown {
		format = PixelFormatNV12
	}
	buf := make([]byte, format.BufferSize(s.width, s.height))
	planes, strides, _ := SplitPlanes(buf, format, s.width, s.height)
	return &Frame{Width: s.width, Height: s.height, Format: format, Planes: planes, Strides: strides}, nil
}

type allocation struct {
	width, height int
	format        PixelFormat
}

type fakeRenderer struct {
	rec       *recorder
	nextID    TextureID
	allocs    []allocation
	updates   int
	updateErr error
	// updateErrs are consumed in order before updateErr applies.
	updateErrs []error
	deleted    []TextureID
	viewports  []Viewport
	draws      []bool
	drawnIDs   []TextureID
	closed     bool
}

func (r *fakeRenderer) CreateTexture() (TextureID, error) {
	r.nextID++
	return r.nextID, nil
}

func (r *fakeRenderer) AllocateTexture(_ TextureID, width, height int, format PixelFormat) error {
	r.allocs = append(r.allocs, allocation{width, height, format})
	return nil
}

func (r *fakeRenderer) UpdateTexture(_ TextureID, width, height int, _ PixelFormat, pixels []byte, stride int) error {
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	if r.updateErr != nil {
		return r.updateErr
	}
	if len(pixels) < stride*height {
		return errors.New("short pixel buffer")
	}
	r.updates++
	return nil
}

func (r *fakeRenderer) DeleteTexture(id TextureID) {
	r.deleted = append(r.deleted, id)
	r.rec.add("texture.delete")
}

func (r *fakeRenderer) SetViewport(x, y, width, height int) {
	r.viewports = append(r.viewports, Viewport{x, y, width, height})
}

func (r *fakeRenderer) Draw(id TextureID, ok bool) {
	r.draws = append(r.draws, ok)
	r.drawnIDs = append(r.drawnIDs, id)
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	r.rec.add("renderer.close")
	return nil
}

// fakeImporter is a renderer able to bind hardware surfaces directly. It
// imports VAAPI surfaces unless formats is set.
type fakeImporter struct {
	fakeRenderer
	formats []PixelFormat
	imports int
}

func (r *fakeImporter) CanImport(format PixelFormat) bool {
	if r.formats == nil {
		return format == PixelFormatVAAPI
	}
	for _, f := range r.formats {
		if f == format {
			return true
		}
	}
	return false
}

func (r *fakeImporter) ImportSurface(TextureID, Surface, int, int) error {
	r.imports++
	return nil
}

// fakeWindow replays scripted event batches, one batch per poll cycle.
type fakeWindow struct {
	rec     *recorder
	id      uint32
	w, h    int
	batches [][]Event
	cur     []Event
	polls   int
	swaps   int
	closed  bool
}

func (w *fakeWindow) ID() uint32               { return w.id }
func (w *fakeWindow) DrawableSize() (int, int) { return w.w, w.h }

func (w *fakeWindow) PollEvent() Event {
	if w.cur == nil {
		w.polls++
		if len(w.batches) == 0 {
			w.cur = []Event{}
		} else {
			w.cur, w.batches = w.batches[0], w.batches[1:]
			if w.cur == nil {
				w.cur = []Event{}
			}
		}
	}
	if len(w.cur) == 0 {
		w.cur = nil
		return nil
	}
	ev := w.cur[0]
	w.cur = w.cur[1:]
	return ev
}

func (w *fakeWindow) Swap() { w.swaps++ }

func (w *fakeWindow) Close() error {
	w.closed = true
	w.rec.add("window.close")
	return nil
}

// fakeCounter advances by step on every read.
type fakeCounter struct {
	now, step, freq uint64
}

func (c *fakeCounter) Counter() uint64 {
	v := c.now
	c.now += c.step
	return v
}

func (c *fakeCounter) Frequency() uint64 { return c.freq }

type fakeDisplayFactory struct {
	rec      *recorder
	window   *fakeWindow
	renderer Renderer
	err      error
	opened   int
}

func (f *fakeDisplayFactory) OpenDisplay(context.Context, StreamInfo, WindowSettings) (*Display, error) {
	f.opened++
	if f.err != nil {
		return nil, f.err
	}
	f.rec.add("display.open")
	return &Display{Window: f.window, Renderer: f.renderer}, nil
}

// scriptedSource returns results in order, then tail (ErrEndOfStream if nil).
type scriptedSource struct {
	mu      sync.Mutex
	results []sourceResult
	tail    error
	calls   int
}

type sourceResult struct {
	frame *Frame
	err   error
}

func (s *scriptedSource) Next() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		if s.tail != nil {
			return nil, s.tail
		}
		return nil, ErrEndOfStream
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.frame, r.err
}

// rgbaFrame builds a valid packed frame; release increments released.
func rgbaFrame(width, height int, pts int64, released *atomic.Int64) *Frame {
	buf := make([]byte, PixelFormatRGBA32.BufferSize(width, height))
	planes, strides, _ := SplitPlanes(buf, PixelFormatRGBA32, width, height)
	return NewFrame(Frame{
		Width:    width,
		Height:   height,
		Format:   PixelFormatRGBA32,
		Planes:   planes,
		Strides:  strides,
		PTS:      pts,
		TimeBase: Rational{1, 1000},
	}, func() {
		if released != nil {
			released.Add(1)
		}
	})
}
