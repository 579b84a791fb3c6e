package player

import "context"

// MediaType classifies a container stream.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeSubtitle
	MediaTypeData
)

func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// StreamInfo describes one stream of an opened container.
type StreamInfo struct {
	Index     int
	Type      MediaType
	CodecID   int    // backend codec identifier
	CodecName string // human readable codec name
	Width     int
	Height    int
	Format    PixelFormat // native software output format of the stream
	TimeBase  Rational
	FrameRate Rational

	// Params is the backend's opaque codec parameter handle.
	Params any
}

// Packet is one demuxed compressed packet.
type Packet interface {
	StreamIndex() int
	// Release drops this reference to the packet data.
	Release()
}

// Demuxer is an opened container.
type Demuxer interface {
	// FindStreamInfo probes the container so stream parameters are complete.
	FindStreamInfo(ctx context.Context) error
	// Streams lists the container's streams in container order.
	Streams() []StreamInfo
	// BestVideoStream returns the container index of the video stream the
	// demuxer ranks best for playback, or ErrNoVideoStream.
	BestVideoStream() (int, error)
	// ReadPacket returns the next packet, or ErrEndOfStream once exhausted.
	ReadPacket() (Packet, error)
	Close() error
}

// DemuxOpener opens containers.
type DemuxOpener interface {
	OpenInput(ctx context.Context, path string) (Demuxer, error)
}

// HardwareDevice is a reference to a hardware device context.
type HardwareDevice interface {
	Kind() AccelKind
	// Release drops this reference to the device.
	Release()
}

// Decoder is an allocated decoder context for one stream.
type Decoder interface {
	// AttachHardware binds a device reference and the pixel-format
	// selection strategy. It must be called before Open.
	AttachHardware(dev HardwareDevice, sel FormatSelector) error
	Open() error
	// SendPacket submits a packet; nil flushes the decoder. ErrAgain means
	// frames must be received before more input is accepted.
	SendPacket(pkt Packet) error
	// ReceiveFrame returns a decoded frame, ErrAgain when more input is
	// needed, or ErrEndOfStream once a flush has fully drained.
	ReceiveFrame() (*Frame, error)
	// OutputFormat is the software pixel format frames will carry.
	OutputFormat() PixelFormat
	Name() string
	Close() error
}

// DecoderBackend creates devices and decoders.
type DecoderBackend interface {
	CreateHardwareDevice(kind AccelKind, device string) (HardwareDevice, error)
	// NewDecoder allocates a decoder context for the stream's codec with the
	// stream parameters applied. hardware selects a codec implementation
	// able to use a device; false resolves a software-only decoder.
	NewDecoder(stream StreamInfo, hardware bool) (Decoder, error)
}

// TextureID is a backend texture handle.
type TextureID uint32

// Renderer is the GPU capability used by the upload and present stages.
type Renderer interface {
	CreateTexture() (TextureID, error)
	// AllocateTexture (re)defines storage for a texture.
	AllocateTexture(id TextureID, width, height int, format PixelFormat) error
	// UpdateTexture replaces the texture's pixels in place.
	UpdateTexture(id TextureID, width, height int, format PixelFormat, pixels []byte, stride int) error
	DeleteTexture(id TextureID)
	SetViewport(x, y, width, height int)
	// Draw clears the framebuffer and draws the quad; ok=false draws no texture.
	Draw(id TextureID, ok bool)
	Close() error
}

// SurfaceImporter is implemented by renderers able to bind hardware
// surfaces as texture sources without a CPU copy.
type SurfaceImporter interface {
	CanImport(format PixelFormat) bool
	ImportSurface(id TextureID, s Surface, width, height int) error
}

// Event is a windowing event consumed by the presenter.
type Event interface{ isEvent() }

// QuitEvent asks the player to stop.
type QuitEvent struct{}

// ResizeEvent reports a new drawable size for a window.
type ResizeEvent struct {
	WindowID uint32
	Width    int
	Height   int
}

func (QuitEvent) isEvent()   {}
func (ResizeEvent) isEvent() {}

// Window is the host windowing layer.
type Window interface {
	ID() uint32
	// PollEvent returns the next pending event or nil.
	PollEvent() Event
	DrawableSize() (width, height int)
	Swap()
	Close() error
}
