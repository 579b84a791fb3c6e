package ffmpeg

import (
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
)

// normaliser converts frames in formats the player has no upload path for
// into RGBA with swscale. The scale context is rebuilt only when the source
// geometry or format changes.
type normaliser struct {
	ssc  *astiav.SoftwareScaleContext
	dst  *astiav.Frame
	srcW int
	srcH int
	srcF astiav.PixelFormat
}

func (n *normaliser) ensure(src *astiav.Frame) error {
	w, h, f := src.Width(), src.Height(), src.PixelFormat()
	if n.ssc != nil && w == n.srcW && h == n.srcH && f == n.srcF {
		return nil
	}
	n.close()

	ssc, err := astiav.CreateSoftwareScaleContext(w, h, f, w, h, normalisedFormat,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
	if err != nil {
		return fmt.Errorf("create scale context %dx%d %s: %w", w, h, f, err)
	}
	dst := astiav.AllocFrame()
	dst.SetWidth(w)
	dst.SetHeight(h)
	dst.SetPixelFormat(normalisedFormat)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("alloc scale buffer: %w", err)
	}

	n.ssc, n.dst = ssc, dst
	n.srcW, n.srcH, n.srcF = w, h, f
	return nil
}

// convert returns src scaled into the normaliser's destination frame. The
// result is valid until the next call.
func (n *normaliser) convert(src *astiav.Frame) (*astiav.Frame, error) {
	if err := n.ensure(src); err != nil {
		return nil, err
	}
	if err := n.ssc.ScaleFrame(src, n.dst); err != nil {
		return nil, fmt.Errorf("scale frame: %w", err)
	}
	return n.dst, nil
}

func (n *normaliser) close() {
	if n.dst != nil {
		n.dst.Free()
		n.dst = nil
	}
	if n.ssc != nil {
		n.ssc.Free()
		n.ssc = nil
	}
}

// bufferPool recycles picture buffers handed to the player. Frames are
// released on other goroutines, so it is safe for concurrent use.
type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) get(size int) []byte {
	if v, ok := p.pool.Get().(*[]byte); ok && cap(*v) >= size {
		return (*v)[:size]
	}
	return make([]byte, size)
}

func (p *bufferPool) put(buf []byte) {
	p.pool.Put(&buf)
}
