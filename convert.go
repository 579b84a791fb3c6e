package player

import "fmt"

// Conversion turns software frames of one pixel format into pixels the GPU
// consumes directly. Conversions are resolved once per source format.
type Conversion struct {
	Source PixelFormat
	Target PixelFormat // format uploaded to the texture

	convert func(dst []byte, f *Frame)
}

// ConversionFor resolves the upload conversion for a software format.
// Packed RGB formats upload natively; YUV 4:2:0 formats convert to RGBA.
func ConversionFor(format PixelFormat) (Conversion, error) {
	switch format {
	case PixelFormatRGB24, PixelFormatRGBA32, PixelFormatBGRA32:
		return Conversion{Source: format, Target: format}, nil
	case PixelFormatI420:
		return Conversion{Source: format, Target: PixelFormatRGBA32, convert: i420ToRGBA}, nil
	case PixelFormatNV12:
		return Conversion{Source: format, Target: PixelFormatRGBA32, convert: nv12ToRGBA}, nil
	default:
		return Conversion{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Native reports whether frames upload without conversion.
func (c Conversion) Native() bool { return c.convert == nil }

// Apply returns the pixels and row stride to upload for f. Converted frames
// are written into staging, which is grown only when too small.
func (c Conversion) Apply(staging *StagingBuffer, f *Frame) ([]byte, int) {
	if c.convert == nil {
		return f.Planes[0], f.Strides[0]
	}
	dst := staging.Ensure(f.Width, f.Height, c.Target)
	c.convert(dst, f)
	return dst, f.Width * 4
}

// BT.601 limited range, 8.8 fixed point.
func yuvToRGB(y, u, v byte) (r, g, b byte) {
	c := 298 * (int(y) - 16)
	d := int(u) - 128
	e := int(v) - 128
	return clamp8((c + 409*e + 128) >> 8),
		clamp8((c - 100*d - 208*e + 128) >> 8),
		clamp8((c + 516*d + 128) >> 8)
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func i420ToRGBA(dst []byte, f *Frame) {
	yp, up, vp := f.Planes[0], f.Planes[1], f.Planes[2]
	ys, us, vs := f.Strides[0], f.Strides[1], f.Strides[2]
	for row := 0; row < f.Height; row++ {
		yRow := yp[row*ys:]
		uRow := up[(row/2)*us:]
		vRow := vp[(row/2)*vs:]
		out := dst[row*f.Width*4:]
		for col := 0; col < f.Width; col++ {
			r, g, b := yuvToRGB(yRow[col], uRow[col/2], vRow[col/2])
			i := col * 4
			out[i], out[i+1], out[i+2], out[i+3] = r, g, b, 0xFF
		}
	}
}

func nv12ToRGBA(dst []byte, f *Frame) {
	yp, uvp := f.Planes[0], f.Planes[1]
	ys, uvs := f.Strides[0], f.Strides[1]
	for row := 0; row < f.Height; row++ {
		yRow := yp[row*ys:]
		uvRow := uvp[(row/2)*uvs:]
		out := dst[row*f.Width*4:]
		for col := 0; col < f.Width; col++ {
			c := (col / 2) * 2
			r, g, b := yuvToRGB(yRow[col], uvRow[c], uvRow[c+1])
			i := col * 4
			out[i], out[i+1], out[i+2], out[i+3] = r, g, b, 0xFF
		}
	}
}
