// Package gl draws decoded pictures as a textured full-screen quad with
// OpenGL 2.1. Entry points are resolved at runtime with purego, so the
// package needs no cgo.
package gl

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/thesyncim/player"
)

// Config configures the renderer.
type Config struct {
	Program ProgramSource // zero value uses DefaultProgram
	Log     zerolog.Logger
}

// Renderer implements player.Renderer on the GL context current on the
// calling thread.
type Renderer struct {
	gl      *funcs
	program uint32
	vbo     uint32
	sampler int32
	log     zerolog.Logger
}

// New resolves GL entry points through proc and builds the shader program
// and quad.
func New(proc ProcAddress, config Config) (*Renderer, error) {
	f, err := loadFuncs(proc)
	if err != nil {
		return nil, err
	}
	if config.Program.Vertex == "" || config.Program.Fragment == "" {
		config.Program = DefaultProgram
	}

	program, err := f.linkProgram(config.Program)
	if err != nil {
		return nil, err
	}
	vbo, err := f.createQuad()
	if err != nil {
		f.DeleteProgram(program)
		return nil, err
	}

	name := cString(samplerUniform)
	r := &Renderer{
		gl:      f,
		program: program,
		vbo:     vbo,
		sampler: f.GetUniformLocation(program, &name[0]),
		log:     config.Log.With().Str("component", "gl").Logger(),
	}

	r.log.Info().
		Str("version", goStringFromPtr(f.GetString(glVersion))).
		Str("renderer", goStringFromPtr(f.GetString(glRenderer))).
		Msg("gl renderer ready")
	return r, nil
}

// CreateTexture implements player.Renderer.
func (r *Renderer) CreateTexture() (player.TextureID, error) {
	var id uint32
	r.gl.GenTextures(1, &id)
	r.gl.BindTexture(glTexture2D, id)
	r.gl.TexParameteri(glTexture2D, glTextureMinFilter, glLinear)
	r.gl.TexParameteri(glTexture2D, glTextureMagFilter, glLinear)
	r.gl.TexParameteri(glTexture2D, glTextureWrapS, glClampToEdge)
	r.gl.TexParameteri(glTexture2D, glTextureWrapT, glClampToEdge)
	if err := r.gl.check("create texture"); err != nil {
		r.gl.DeleteTextures(1, &id)
		return 0, err
	}
	return player.TextureID(id), nil
}

// AllocateTexture implements player.Renderer.
func (r *Renderer) AllocateTexture(id player.TextureID, width, height int, format player.PixelFormat) error {
	layout, err := layoutFor(format)
	if err != nil {
		return err
	}
	r.gl.BindTexture(glTexture2D, uint32(id))
	r.gl.TexImage2D(glTexture2D, 0, layout.internal, int32(width), int32(height), 0,
		layout.format, glUnsignedByte, nil)
	return r.gl.check("allocate texture")
}

// UpdateTexture implements player.Renderer.
func (r *Renderer) UpdateTexture(id player.TextureID, width, height int, format player.PixelFormat, pixels []byte, stride int) error {
	layout, err := layoutFor(format)
	if err != nil {
		return err
	}
	rowLength, err := layout.rowLength(width, height, stride, len(pixels))
	if err != nil {
		return err
	}

	r.gl.BindTexture(glTexture2D, uint32(id))
	r.gl.PixelStorei(glUnpackAlignment, 1)
	r.gl.PixelStorei(glUnpackRowLength, int32(rowLength))
	r.gl.TexSubImage2D(glTexture2D, 0, 0, 0, int32(width), int32(height),
		layout.format, glUnsignedByte, unsafe.Pointer(&pixels[0]))
	r.gl.PixelStorei(glUnpackRowLength, 0)
	return r.gl.check("update texture")
}

// DeleteTexture implements player.Renderer.
func (r *Renderer) DeleteTexture(id player.TextureID) {
	tex := uint32(id)
	r.gl.DeleteTextures(1, &tex)
}

// SetViewport implements player.Renderer.
func (r *Renderer) SetViewport(x, y, width, height int) {
	r.gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

// Draw implements player.Renderer.
func (r *Renderer) Draw(id player.TextureID, ok bool) {
	r.gl.ClearColor(0, 0, 0, 1)
	r.gl.Clear(glColorBufferBit)
	if !ok {
		return
	}

	r.gl.UseProgram(r.program)
	r.gl.ActiveTexture(glTexture0)
	r.gl.BindTexture(glTexture2D, uint32(id))
	r.gl.Uniform1i(r.sampler, 0)

	r.gl.BindBuffer(glArrayBuffer, r.vbo)
	r.gl.VertexAttribPointer(attribPosition, positionSize, glFloat, false, vertexStride, 0)
	r.gl.EnableVertexAttribArray(attribPosition)
	r.gl.VertexAttribPointer(attribTexcoord, texcoordSize, glFloat, false, vertexStride, texcoordOffset)
	r.gl.EnableVertexAttribArray(attribTexcoord)

	r.gl.DrawArrays(glTriangles, 0, quadVertexCount)
}

// Close implements player.Renderer.
func (r *Renderer) Close() error {
	if r.vbo != 0 {
		r.gl.DeleteBuffers(1, &r.vbo)
		r.vbo = 0
	}
	if r.program != 0 {
		r.gl.DeleteProgram(r.program)
		r.program = 0
	}
	return nil
}

// texLayout is the GL pixel transfer description of a packed format.
type texLayout struct {
	internal int32
	format   uint32
	bpp      int
}

func layoutFor(format player.PixelFormat) (texLayout, error) {
	switch format {
	case player.PixelFormatRGB24:
		return texLayout{glRGB, glRGB, 3}, nil
	case player.PixelFormatRGBA32:
		return texLayout{glRGBA, glRGBA, 4}, nil
	case player.PixelFormatBGRA32:
		return texLayout{glRGBA, glBGRA, 4}, nil
	default:
		return texLayout{}, fmt.Errorf("%w: %s has no texture layout", player.ErrUnsupportedFormat, format)
	}
}

// rowLength converts a byte stride into GL_UNPACK_ROW_LENGTH pixels and
// checks the buffer covers the picture.
func (l texLayout) rowLength(width, height, stride, size int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("gl: invalid picture size %dx%d", width, height)
	}
	if stride < width*l.bpp || stride%l.bpp != 0 {
		return 0, fmt.Errorf("gl: stride %d invalid for width %d", stride, width)
	}
	if need := stride*(height-1) + width*l.bpp; size < need {
		return 0, fmt.Errorf("gl: pixel buffer too small: %d < %d", size, need)
	}
	return stride / l.bpp, nil
}
