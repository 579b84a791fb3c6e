package gl

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// OpenGL enums used by the renderer.
const (
	glNoError          = 0
	glTriangles        = 0x0004
	glColorBufferBit   = 0x4000
	glUnsignedByte     = 0x1401
	glFloat            = 0x1406
	glRenderer         = 0x1F01
	glVersion          = 0x1F02
	glTexture2D        = 0x0DE1
	glTextureMagFilter = 0x2800
	glTextureMinFilter = 0x2801
	glTextureWrapS     = 0x2802
	glTextureWrapT     = 0x2803
	glLinear           = 0x2601
	glClampToEdge      = 0x812F
	glRGB              = 0x1907
	glRGBA             = 0x1908
	glBGRA             = 0x80E1
	glUnpackRowLength  = 0x0CF2
	glUnpackAlignment  = 0x0CF5
	glTexture0         = 0x84C0
	glArrayBuffer      = 0x8892
	glStaticDraw       = 0x88E4
	glFragmentShader   = 0x8B30
	glVertexShader     = 0x8B31
	glCompileStatus    = 0x8B81
	glLinkStatus       = 0x8B82
	glInfoLogLength    = 0x8B84
)

// funcs holds OpenGL 2.1 entry points resolved from the current context.
type funcs struct {
	GetString  func(name uint32) uintptr
	GetError   func() uint32
	Viewport   func(x, y, width, height int32)
	ClearColor func(r, g, b, a float32)
	Clear      func(mask uint32)

	GenTextures    func(n int32, textures *uint32)
	DeleteTextures func(n int32, textures *uint32)
	BindTexture    func(target, texture uint32)
	ActiveTexture  func(texture uint32)
	TexParameteri  func(target, pname uint32, param int32)
	TexImage2D     func(target uint32, level, internalFormat, width, height, border int32, format, xtype uint32, pixels unsafe.Pointer)
	TexSubImage2D  func(target uint32, level, x, y, width, height int32, format, xtype uint32, pixels unsafe.Pointer)
	PixelStorei    func(pname uint32, param int32)

	CreateShader       func(xtype uint32) uint32
	ShaderSource       func(shader uint32, count int32, sources **byte, lengths *int32)
	CompileShader      func(shader uint32)
	GetShaderiv        func(shader, pname uint32, params *int32)
	GetShaderInfoLog   func(shader uint32, bufSize int32, length *int32, log *byte)
	DeleteShader       func(shader uint32)
	CreateProgram      func() uint32
	AttachShader       func(program, shader uint32)
	BindAttribLocation func(program, index uint32, name *byte)
	LinkProgram        func(program uint32)
	GetProgramiv       func(program, pname uint32, params *int32)
	GetProgramInfoLog  func(program uint32, bufSize int32, length *int32, log *byte)
	UseProgram         func(program uint32)
	DeleteProgram      func(program uint32)
	GetUniformLocation func(program uint32, name *byte) int32
	Uniform1i          func(location, v int32)

	GenBuffers              func(n int32, buffers *uint32)
	DeleteBuffers           func(n int32, buffers *uint32)
	BindBuffer              func(target, buffer uint32)
	BufferData              func(target uint32, size int, data unsafe.Pointer, usage uint32)
	VertexAttribPointer     func(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset uintptr)
	EnableVertexAttribArray func(index uint32)
	DrawArrays              func(mode uint32, first, count int32)
}

// ProcAddress resolves a GL entry point, returning 0 when unavailable.
type ProcAddress func(name string) uintptr

// loadFuncs binds every entry point through purego.
func loadFuncs(proc ProcAddress) (*funcs, error) {
	f := &funcs{}
	bindings := []struct {
		fptr any
		name string
	}{
		{&f.GetString, "glGetString"},
		{&f.GetError, "glGetError"},
		{&f.Viewport, "glViewport"},
		{&f.ClearColor, "glClearColor"},
		{&f.Clear, "glClear"},
		{&f.GenTextures, "glGenTextures"},
		{&f.DeleteTextures, "glDeleteTextures"},
		{&f.BindTexture, "glBindTexture"},
		{&f.ActiveTexture, "glActiveTexture"},
		{&f.TexParameteri, "glTexParameteri"},
		{&f.TexImage2D, "glTexImage2D"},
		{&f.TexSubImage2D, "glTexSubImage2D"},
		{&f.PixelStorei, "glPixelStorei"},
		{&f.CreateShader, "glCreateShader"},
		{&f.ShaderSource, "glShaderSource"},
		{&f.CompileShader, "glCompileShader"},
		{&f.GetShaderiv, "glGetShaderiv"},
		{&f.GetShaderInfoLog, "glGetShaderInfoLog"},
		{&f.DeleteShader, "glDeleteShader"},
		{&f.CreateProgram, "glCreateProgram"},
		{&f.AttachShader, "glAttachShader"},
		{&f.BindAttribLocation, "glBindAttribLocation"},
		{&f.LinkProgram, "glLinkProgram"},
		{&f.GetProgramiv, "glGetProgramiv"},
		{&f.GetProgramInfoLog, "glGetProgramInfoLog"},
		{&f.UseProgram, "glUseProgram"},
		{&f.DeleteProgram, "glDeleteProgram"},
		{&f.GetUniformLocation, "glGetUniformLocation"},
		{&f.Uniform1i, "glUniform1i"},
		{&f.GenBuffers, "glGenBuffers"},
		{&f.DeleteBuffers, "glDeleteBuffers"},
		{&f.BindBuffer, "glBindBuffer"},
		{&f.BufferData, "glBufferData"},
		{&f.VertexAttribPointer, "glVertexAttribPointer"},
		{&f.EnableVertexAttribArray, "glEnableVertexAttribArray"},
		{&f.DrawArrays, "glDrawArrays"},
	}
	for _, b := range bindings {
		addr := proc(b.name)
		if addr == 0 {
			return nil, fmt.Errorf("gl: missing entry point %s", b.name)
		}
		purego.RegisterFunc(b.fptr, addr)
	}
	return f, nil
}

// check drains the GL error queue.
func (f *funcs) check(op string) error {
	var codes []uint32
	for code := f.GetError(); code != glNoError; code = f.GetError() {
		codes = append(codes, code)
		if len(codes) == 8 {
			break
		}
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("gl: %s failed: error %#x", op, codes)
}
