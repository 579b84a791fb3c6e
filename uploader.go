package player

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// UploadPath is the frame upload strategy fixed at setup.
type UploadPath int

const (
	UploadSoftware UploadPath = iota // planar or packed CPU buffers
	UploadZeroCopy                   // hardware surface bound directly
	UploadDownload                   // hardware surface copied to a staging buffer
)

func (p UploadPath) String() string {
	switch p {
	case UploadSoftware:
		return "software"
	case UploadZeroCopy:
		return "zero-copy"
	case UploadDownload:
		return "download"
	default:
		return "unknown"
	}
}

// Hardware reports whether the path expects hardware surface frames.
func (p UploadPath) Hardware() bool { return p != UploadSoftware }

// Texture is the GPU texture's recorded state. Format is the format of the
// frames uploaded into it; Generation increments on every reallocation.
type Texture struct {
	ID         TextureID
	Width      int
	Height     int
	Format     PixelFormat
	Generation uint64
}

// UploaderStats provides texture upload metrics.
type UploaderStats struct {
	Uploads     uint64 // Frames uploaded
	Allocations uint64 // Texture storage (re)allocations
	Imports     uint64 // Zero-copy surface imports
	Downloads   uint64 // Hardware surfaces copied to CPU memory
	Conversions uint64 // Frames converted on the CPU before upload
}

// FrameUploader turns decoded frames into the texture drawn by the
// presenter. The texture is reallocated only when frame dimensions or
// format change; otherwise it is updated in place.
type FrameUploader struct {
	renderer Renderer
	importer SurfaceImporter
	path     UploadPath
	log      zerolog.Logger

	conv    Conversion
	staging StagingBuffer
	tex     Texture
	created bool
	filled  bool // storage holds a complete picture
	stats   UploaderStats
}

// NewFrameUploader configures the upload path for frames tagged format.
// Software formats the GPU cannot consume fail here rather than per frame.
func NewFrameUploader(r Renderer, format PixelFormat, log zerolog.Logger) (*FrameUploader, error) {
	u := &FrameUploader{
		renderer: r,
		log:      log.With().Str("component", "uploader").Logger(),
	}

	features := AccelForSurface(format).Features()
	switch imp, ok := r.(SurfaceImporter); {
	case !format.IsHardware():
		conv, err := ConversionFor(format)
		if err != nil {
			return nil, setupError(StageUpload, err)
		}
		u.path, u.conv = UploadSoftware, conv
	case ok && features.Has(FeatureZeroCopy) && imp.CanImport(format):
		u.path, u.importer = UploadZeroCopy, imp
	case features.Has(FeatureDownload):
		u.path = UploadDownload
	default:
		return nil, setupError(StageUpload, fmt.Errorf("%w: %s surfaces cannot be read back", ErrUnsupportedFormat, format))
	}

	u.log.Info().
		Stringer("format", format).
		Stringer("path", u.path).
		Bool("converts", u.path == UploadSoftware && !u.conv.Native()).
		Msg("upload path configured")
	return u, nil
}

// Path returns the configured upload path.
func (u *FrameUploader) Path() UploadPath { return u.path }

// Upload writes f into the texture and returns the texture's new state.
// The caller keeps ownership of f.
func (u *FrameUploader) Upload(f *Frame) (Texture, error) {
	if f.Format.IsHardware() != u.path.Hardware() {
		return u.tex, fmt.Errorf("%w: %s frame on %s path", ErrFormatMismatch, f.Format, u.path)
	}
	if err := f.Validate(); err != nil {
		return u.tex, err
	}

	switch u.path {
	case UploadZeroCopy:
		if err := u.ensure(f.Width, f.Height, f.Format, f.Format); err != nil {
			return u.tex, err
		}
		if err := u.importer.ImportSurface(u.tex.ID, f.Surface, f.Width, f.Height); err != nil {
			return u.tex, fmt.Errorf("import surface: %w", err)
		}
		u.stats.Imports++

	case UploadDownload:
		sw, err := f.Surface.Download()
		if err != nil {
			return u.tex, fmt.Errorf("download surface: %w", err)
		}
		u.stats.Downloads++
		if sw.Format.IsHardware() {
			return u.tex, fmt.Errorf("%w: download produced %s", ErrFormatMismatch, sw.Format)
		}
		// Surfaces download into an uploadable format, normally the same
		// one for the whole session; resolve the conversion once.
		if u.conv.Source != sw.Format {
			conv, err := ConversionFor(sw.Format)
			if err != nil {
				return u.tex, fmt.Errorf("download produced %s: %w", sw.Format, err)
			}
			u.conv = conv
		}
		if err := sw.Validate(); err != nil {
			return u.tex, err
		}
		if err := u.writePixels(sw, f.Format); err != nil {
			return u.tex, err
		}

	default:
		if f.Format != u.conv.Source {
			conv, err := ConversionFor(f.Format)
			if err != nil {
				return u.tex, err
			}
			u.conv = conv
		}
		if err := u.writePixels(f, f.Format); err != nil {
			return u.tex, err
		}
	}

	u.filled = true
	u.stats.Uploads++
	return u.tex, nil
}

func (u *FrameUploader) writePixels(f *Frame, tag PixelFormat) error {
	if err := u.ensure(f.Width, f.Height, tag, u.conv.Target); err != nil {
		return err
	}
	pixels, stride := u.conv.Apply(&u.staging, f)
	if !u.conv.Native() {
		u.stats.Conversions++
	}
	if err := u.renderer.UpdateTexture(u.tex.ID, f.Width, f.Height, u.conv.Target, pixels, stride); err != nil {
		return fmt.Errorf("update texture: %w", err)
	}
	return nil
}

// ensure creates the texture on first use and reallocates its storage iff
// the dimensions or format differ from the recorded state.
func (u *FrameUploader) ensure(width, height int, tag, storage PixelFormat) error {
	if !u.created {
		id, err := u.renderer.CreateTexture()
		if err != nil {
			return fmt.Errorf("create texture: %w", err)
		}
		u.tex.ID = id
		u.created = true
	} else if u.tex.Width == width && u.tex.Height == height && u.tex.Format == tag {
		return nil
	}

	if err := u.renderer.AllocateTexture(u.tex.ID, width, height, storage); err != nil {
		return fmt.Errorf("allocate texture %dx%d %s: %w", width, height, storage, err)
	}
	u.tex.Width, u.tex.Height, u.tex.Format = width, height, tag
	u.tex.Generation++
	u.filled = false
	u.stats.Allocations++

	u.log.Debug().
		Int("width", width).
		Int("height", height).
		Stringer("format", tag).
		Uint64("generation", u.tex.Generation).
		Msg("texture allocated")
	return nil
}

// Texture returns the recorded texture state.
func (u *FrameUploader) Texture() Texture { return u.tex }

// Filled reports whether the texture holds a complete picture. It is false
// from a reallocation until the next successful upload.
func (u *FrameUploader) Filled() bool { return u.filled }

// Stats returns upload statistics.
func (u *FrameUploader) Stats() UploaderStats { return u.stats }

// Close deletes the texture.
func (u *FrameUploader) Close() {
	if u.created {
		u.renderer.DeleteTexture(u.tex.ID)
		u.created, u.filled = false, false
	}
}

// Presentation is the texture currently on screen.
type Presentation struct {
	Texture Texture
	PTS     int64
	Updated time.Time
}

// PresentationState publishes fully uploaded textures to the draw call.
type PresentationState struct {
	cur atomic.Pointer[Presentation]
}

// Store publishes p. It must only be called after the upload completed.
func (s *PresentationState) Store(p Presentation) { s.cur.Store(&p) }

// Clear withdraws the current presentation.
func (s *PresentationState) Clear() { s.cur.Store(nil) }

// Load returns the current presentation, or false before the first frame.
func (s *PresentationState) Load() (Presentation, bool) {
	p := s.cur.Load()
	if p == nil {
		return Presentation{}, false
	}
	return *p, true
}
