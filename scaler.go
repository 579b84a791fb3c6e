package player

import "fmt"

// ScaleMode defines how the picture is mapped onto the drawable.
type ScaleMode int

const (
	// ScaleModeStretch fills the drawable exactly (may distort).
	ScaleModeStretch ScaleMode = iota
	// ScaleModeFit preserves aspect ratio inside the drawable (may letterbox).
	ScaleModeFit
	// ScaleModeFill preserves aspect ratio covering the drawable (may crop).
	ScaleModeFill
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleModeStretch:
		return "stretch"
	case ScaleModeFit:
		return "fit"
	case ScaleModeFill:
		return "fill"
	default:
		return "unknown"
	}
}

// ParseScaleMode parses a scale mode name.
func ParseScaleMode(s string) (ScaleMode, error) {
	switch s {
	case "stretch", "":
		return ScaleModeStretch, nil
	case "fit":
		return ScaleModeFit, nil
	case "fill":
		return ScaleModeFill, nil
	default:
		return ScaleModeStretch, fmt.Errorf("unknown scale mode %q", s)
	}
}

// Viewport is a GL viewport rectangle in drawable pixels.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// CalculateScaledSize returns the size of a srcW x srcH picture scaled into
// maxW x maxH with the given mode.
func CalculateScaledSize(srcW, srcH, maxW, maxH int, mode ScaleMode) (w, h int) {
	if mode == ScaleModeStretch || srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return maxW, maxH
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(maxW) / float64(maxH)

	// Fit matches the constraining edge, fill the other one.
	wider := srcAspect > dstAspect
	if mode == ScaleModeFill {
		wider = !wider
	}
	if wider {
		return maxW, int(float64(maxW)/srcAspect + 0.5)
	}
	return int(float64(maxH)*srcAspect + 0.5), maxH
}

// CalculateViewport centres the scaled picture in the drawable. With no
// picture yet the full drawable is used.
func CalculateViewport(srcW, srcH, drawW, drawH int, mode ScaleMode) Viewport {
	w, h := CalculateScaledSize(srcW, srcH, drawW, drawH, mode)
	return Viewport{
		X:      (drawW - w) / 2,
		Y:      (drawH - h) / 2,
		Width:  w,
		Height: h,
	}
}
