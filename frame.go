// Core frame types shared by the decode and upload stages.
package player

import "fmt"

// PixelFormat identifies the memory layout of a decoded picture.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatI420                // YUV 4:2:0 planar (Y + U + V)
	PixelFormatNV12                // YUV 4:2:0 semi-planar (Y + interleaved UV)
	PixelFormatRGB24               // Packed RGB, 3 bytes per pixel
	PixelFormatRGBA32              // Packed RGBA, 4 bytes per pixel
	PixelFormatBGRA32              // Packed BGRA, 4 bytes per pixel

	// Opaque hardware surfaces. Frames in these formats carry a Surface
	// instead of plane data.
	PixelFormatVAAPI
	PixelFormatCUDA
	PixelFormatVDPAU
	PixelFormatQSV
	PixelFormatVideoToolbox
	PixelFormatD3D11
	PixelFormatDRMPrime
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatI420:
		return "I420"
	case PixelFormatNV12:
		return "NV12"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatRGBA32:
		return "RGBA32"
	case PixelFormatBGRA32:
		return "BGRA32"
	case PixelFormatVAAPI:
		return "VAAPI"
	case PixelFormatCUDA:
		return "CUDA"
	case PixelFormatVDPAU:
		return "VDPAU"
	case PixelFormatQSV:
		return "QSV"
	case PixelFormatVideoToolbox:
		return "VideoToolbox"
	case PixelFormatD3D11:
		return "D3D11"
	case PixelFormatDRMPrime:
		return "DRMPrime"
	default:
		return "Unknown"
	}
}

// IsHardware reports whether frames of this format are opaque GPU surfaces.
func (p PixelFormat) IsHardware() bool {
	return p >= PixelFormatVAAPI && p <= PixelFormatDRMPrime
}

// PlaneCount returns the number of planes for this pixel format.
func (p PixelFormat) PlaneCount() int {
	switch p {
	case PixelFormatI420:
		return 3 // Y, U, V
	case PixelFormatNV12:
		return 2 // Y, UV
	case PixelFormatRGB24, PixelFormatRGBA32, PixelFormatBGRA32:
		return 1 // Packed
	default:
		return 0
	}
}

// PlaneSizes returns the tightly packed stride and height of each plane.
func (p PixelFormat) PlaneSizes(width, height int) (strides, heights []int) {
	cw, ch := (width+1)/2, (height+1)/2
	switch p {
	case PixelFormatI420:
		return []int{width, cw, cw}, []int{height, ch, ch}
	case PixelFormatNV12:
		return []int{width, cw * 2}, []int{height, ch}
	case PixelFormatRGB24:
		return []int{width * 3}, []int{height}
	case PixelFormatRGBA32, PixelFormatBGRA32:
		return []int{width * 4}, []int{height}
	default:
		return nil, nil
	}
}

// BufferSize returns the size of a tightly packed picture in this format.
func (p PixelFormat) BufferSize(width, height int) int {
	strides, heights := p.PlaneSizes(width, height)
	n := 0
	for i := range strides {
		n += strides[i] * heights[i]
	}
	return n
}

// SplitPlanes slices a tightly packed (alignment 1) picture buffer into planes.
func SplitPlanes(buf []byte, format PixelFormat, width, height int) ([][]byte, []int, error) {
	strides, heights := format.PlaneSizes(width, height)
	if strides == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if need := format.BufferSize(width, height); len(buf) < need {
		return nil, nil, fmt.Errorf("picture buffer too small: %d < %d", len(buf), need)
	}
	planes := make([][]byte, len(strides))
	off := 0
	for i := range strides {
		n := strides[i] * heights[i]
		planes[i] = buf[off : off+n : off+n]
		off += n
	}
	return planes, strides, nil
}

// Rational is a fraction used for stream time bases.
type Rational struct {
	Num int
	Den int
}

// Seconds converts a timestamp expressed in this time base to seconds.
func (r Rational) Seconds(ts int64) float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(ts) * float64(r.Num) / float64(r.Den)
}

// Interval returns the duration of one frame in seconds when r is a frame
// rate, or 0 for an unset rate.
func (r Rational) Interval() float64 {
	if r.Num <= 0 || r.Den <= 0 {
		return 0
	}
	return float64(r.Den) / float64(r.Num)
}

// NoPTS marks a frame without a presentation timestamp.
const NoPTS int64 = -1 << 63

// Surface is an opaque GPU-resident decoded picture.
type Surface interface {
	// Download copies the picture into CPU memory, in a software format
	// ConversionFor accepts. The returned frame is owned by the surface and
	// stays valid until the surface's frame is released or Download is
	// called again.
	Download() (*Frame, error)
}

// Frame is a decoded picture. Exactly one of Surface or Planes is set,
// tagged by Format.
type Frame struct {
	Width    int
	Height   int
	Format   PixelFormat
	Surface  Surface  // hardware formats only
	Planes   [][]byte // software formats only
	Strides  []int    // stride for each plane in bytes
	PTS      int64    // presentation timestamp in TimeBase units, NoPTS if unknown
	TimeBase Rational

	release func()
}

// NewFrame wraps a decoded picture. release is called once by Release.
func NewFrame(f Frame, release func()) *Frame {
	f.release = release
	return &f
}

// Validate checks that the payload matches the format tag.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if f.Format.IsHardware() {
		if f.Surface == nil || f.Planes != nil {
			return fmt.Errorf("%w: %s frame without a surface", ErrFormatMismatch, f.Format)
		}
		return nil
	}
	if f.Surface != nil {
		return fmt.Errorf("%w: %s frame carries a hardware surface", ErrFormatMismatch, f.Format)
	}
	if n := f.Format.PlaneCount(); n == 0 || len(f.Planes) < n || len(f.Strides) < n {
		return fmt.Errorf("%w: %s frame has %d planes", ErrFormatMismatch, f.Format, len(f.Planes))
	}
	return nil
}

// Seconds returns the presentation time in seconds, or false without a PTS.
func (f *Frame) Seconds() (float64, bool) {
	if f.PTS == NoPTS {
		return 0, false
	}
	return f.TimeBase.Seconds(f.PTS), true
}

// Release hands the frame back to its producer. It is safe to call more
// than once; only the first call has an effect.
func (f *Frame) Release() {
	if f == nil || f.release == nil {
		return
	}
	release := f.release
	f.release = nil
	release()
}
