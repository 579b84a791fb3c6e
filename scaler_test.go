package player

import (
	"testing"
)

func TestCalculateScaledSize(t *testing.T) {
	tests := []struct {
		name             string
		srcW, srcH       int
		maxW, maxH       int
		mode             ScaleMode
		expectW, expectH int
	}{
		{"16:9 to 4:3 fit", 1920, 1080, 640, 480, ScaleModeFit, 640, 360},
		{"4:3 to 16:9 fit", 640, 480, 1280, 720, ScaleModeFit, 960, 720},
		{"same aspect", 1280, 720, 640, 360, ScaleModeFit, 640, 360},
		{"fill mode", 1920, 1080, 640, 480, ScaleModeFill, 853, 480},
		{"stretch mode", 1920, 1080, 640, 480, ScaleModeStretch, 640, 480},
		{"no picture yet", 0, 0, 800, 600, ScaleModeFit, 800, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := CalculateScaledSize(tt.srcW, tt.srcH, tt.maxW, tt.maxH, tt.mode)
			if w != tt.expectW || h != tt.expectH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectW, tt.expectH, w, h)
			}
		})
	}
}

func TestCalculateViewport(t *testing.T) {
	tests := []struct {
		name string
		mode ScaleMode
		want Viewport
	}{
		{"stretch", ScaleModeStretch, Viewport{0, 0, 1280, 720}},
		{"fit pillarbox", ScaleModeFit, Viewport{160, 0, 960, 720}},
		{"fill crop", ScaleModeFill, Viewport{0, -120, 1280, 960}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateViewport(640, 480, 1280, 720, tt.mode)
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseScaleMode(t *testing.T) {
	for _, mode := range []ScaleMode{ScaleModeStretch, ScaleModeFit, ScaleModeFill} {
		got, err := ParseScaleMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseScaleMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseScaleMode("zoom"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
