package player

// StagingBuffer is a reusable CPU buffer for converted pictures. The backing
// array only grows, so steady-state uploads do not allocate.
type StagingBuffer struct {
	Data   []byte
	Width  int
	Height int
	Format PixelFormat

	grows int
}

// Ensure sizes the buffer for a tightly packed picture and returns it.
func (b *StagingBuffer) Ensure(width, height int, format PixelFormat) []byte {
	n := format.BufferSize(width, height)
	if cap(b.Data) < n {
		b.Data = make([]byte, n)
		b.grows++
	}
	b.Data = b.Data[:n]
	b.Width, b.Height, b.Format = width, height, format
	return b.Data
}

// Grows returns how many times the backing array was reallocated.
func (b *StagingBuffer) Grows() int { return b.grows }
