package gl

import (
	"fmt"
	"runtime"
	"unsafe"
)

// ProgramSource is the shader text the renderer compiles.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// DefaultProgram passes position and texture coordinates through and samples
// a single 2D texture.
var DefaultProgram = ProgramSource{
	Vertex: `#version 110
attribute vec3 position;
attribute vec2 texcoord;
varying vec2 uv;
void main() {
	uv = texcoord;
	gl_Position = vec4(position, 1.0);
}
`,
	Fragment: `#version 110
uniform sampler2D tex;
varying vec2 uv;
void main() {
	gl_FragColor = texture2D(tex, uv);
}
`,
}

// Vertex layout of the quad: interleaved position (3 floats) and texture
// coordinates (2 floats).
const (
	attribPosition   = 0
	attribTexcoord   = 1
	positionSize     = 3
	texcoordSize     = 2
	floatsPerVertex  = positionSize + texcoordSize
	quadVertexCount  = 6
	vertexStride     = floatsPerVertex * 4
	texcoordOffset   = positionSize * 4
	samplerUniform   = "tex"
	positionAttrib   = "position"
	texcoordAttrib   = "texcoord"
	maxInfoLogLength = 4096
)

// quadVertices covers the viewport with two triangles. Texture row 0 is the
// top of the picture, so v runs downwards.
var quadVertices = [quadVertexCount * floatsPerVertex]float32{
	-1, -1, 0, 0, 1,
	1, -1, 0, 1, 1,
	1, 1, 0, 1, 0,
	-1, -1, 0, 0, 1,
	1, 1, 0, 1, 0,
	-1, 1, 0, 0, 0,
}

func (f *funcs) compileShader(kind uint32, src string) (uint32, error) {
	shader := f.CreateShader(kind)
	if shader == 0 {
		return 0, fmt.Errorf("gl: create shader failed")
	}

	text := cString(src)
	ptr := &text[0]
	length := int32(len(src))

	// glShaderSource takes a pointer to a pointer into Go memory.
	var pinner runtime.Pinner
	pinner.Pin(ptr)
	f.ShaderSource(shader, 1, &ptr, &length)
	pinner.Unpin()

	f.CompileShader(shader)

	var ok int32
	f.GetShaderiv(shader, glCompileStatus, &ok)
	if ok == 0 {
		log := f.shaderLog(shader)
		f.DeleteShader(shader)
		return 0, fmt.Errorf("gl: compile shader: %s", log)
	}
	return shader, nil
}

func (f *funcs) shaderLog(shader uint32) string {
	var n int32
	f.GetShaderiv(shader, glInfoLogLength, &n)
	if n <= 0 {
		return "no info log"
	}
	buf := make([]byte, min(int(n), maxInfoLogLength))
	f.GetShaderInfoLog(shader, int32(len(buf)), nil, &buf[0])
	return trimLog(buf)
}

func (f *funcs) programLog(program uint32) string {
	var n int32
	f.GetProgramiv(program, glInfoLogLength, &n)
	if n <= 0 {
		return "no info log"
	}
	buf := make([]byte, min(int(n), maxInfoLogLength))
	f.GetProgramInfoLog(program, int32(len(buf)), nil, &buf[0])
	return trimLog(buf)
}

// linkProgram builds the program with attribute locations bound before
// linking so the vertex layout does not depend on the driver.
func (f *funcs) linkProgram(src ProgramSource) (uint32, error) {
	vs, err := f.compileShader(glVertexShader, src.Vertex)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer f.DeleteShader(vs)

	fs, err := f.compileShader(glFragmentShader, src.Fragment)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer f.DeleteShader(fs)

	program := f.CreateProgram()
	f.AttachShader(program, vs)
	f.AttachShader(program, fs)

	pos, tc := cString(positionAttrib), cString(texcoordAttrib)
	f.BindAttribLocation(program, attribPosition, &pos[0])
	f.BindAttribLocation(program, attribTexcoord, &tc[0])

	f.LinkProgram(program)

	var ok int32
	f.GetProgramiv(program, glLinkStatus, &ok)
	if ok == 0 {
		log := f.programLog(program)
		f.DeleteProgram(program)
		return 0, fmt.Errorf("gl: link program: %s", log)
	}
	return program, nil
}

// createQuad uploads the static quad into a vertex buffer.
func (f *funcs) createQuad() (uint32, error) {
	var vbo uint32
	f.GenBuffers(1, &vbo)
	f.BindBuffer(glArrayBuffer, vbo)
	f.BufferData(glArrayBuffer, len(quadVertices)*4, unsafe.Pointer(&quadVertices[0]), glStaticDraw)
	f.BindBuffer(glArrayBuffer, 0)
	if err := f.check("create vertex buffer"); err != nil {
		f.DeleteBuffers(1, &vbo)
		return 0, err
	}
	return vbo, nil
}
