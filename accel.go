package player

import (
	"fmt"
	"strings"
)

// AccelKind identifies a hardware decode accelerator.
type AccelKind uint8

const (
	AccelNone         AccelKind = iota // Software decoding only
	AccelVAAPI                         // Linux VA-API
	AccelCUDA                          // NVIDIA CUDA/NVDEC
	AccelVDPAU                         // Legacy NVIDIA/AMD VDPAU
	AccelQSV                           // Intel Quick Sync
	AccelVideoToolbox                  // Apple VideoToolbox
	AccelD3D11VA                       // Windows Direct3D 11
	AccelDRM                           // DRM PRIME (V4L2 request, Rockchip)
	accelCount
)

// AccelFeatures is a bitmask of accelerator capabilities.
type AccelFeatures uint32

const (
	// FeatureZeroCopy means surfaces can be bound as textures without a CPU copy.
	FeatureZeroCopy AccelFeatures = 1 << iota
	// FeatureDownload means surfaces can be transferred into CPU memory.
	FeatureDownload
)

// Has returns true if all specified features are supported.
func (f AccelFeatures) Has(feature AccelFeatures) bool { return f&feature == feature }

type accelMeta struct {
	Name     string
	Surface  PixelFormat
	Features AccelFeatures
}

// Static metadata table - indexed by AccelKind.
var accelInfo = [accelCount]accelMeta{
	AccelNone:         {"none", PixelFormatUnknown, 0},
	AccelVAAPI:        {"vaapi", PixelFormatVAAPI, FeatureZeroCopy | FeatureDownload},
	AccelCUDA:         {"cuda", PixelFormatCUDA, FeatureZeroCopy | FeatureDownload},
	AccelVDPAU:        {"vdpau", PixelFormatVDPAU, FeatureDownload},
	AccelQSV:          {"qsv", PixelFormatQSV, FeatureDownload},
	AccelVideoToolbox: {"videotoolbox", PixelFormatVideoToolbox, FeatureZeroCopy | FeatureDownload},
	AccelD3D11VA:      {"d3d11va", PixelFormatD3D11, FeatureZeroCopy | FeatureDownload},
	AccelDRM:          {"drm", PixelFormatDRMPrime, FeatureZeroCopy | FeatureDownload},
}

// String returns the accelerator name as used by FFmpeg.
func (k AccelKind) String() string {
	if k >= accelCount {
		return "unknown"
	}
	return accelInfo[k].Name
}

// SurfaceFormat returns the pixel format of surfaces decoded by this accelerator.
func (k AccelKind) SurfaceFormat() PixelFormat {
	if k >= accelCount {
		return PixelFormatUnknown
	}
	return accelInfo[k].Surface
}

// Features returns the accelerator's capability bitmask.
func (k AccelKind) Features() AccelFeatures {
	if k >= accelCount {
		return 0
	}
	return accelInfo[k].Features
}

// AccelForSurface returns the accelerator producing surfaces of format, or
// AccelNone for software formats.
func AccelForSurface(format PixelFormat) AccelKind {
	if !format.IsHardware() {
		return AccelNone
	}
	for k := AccelKind(1); k < accelCount; k++ {
		if accelInfo[k].Surface == format {
			return k
		}
	}
	return AccelNone
}

// IsHardware reports whether k requests a hardware device.
func (k AccelKind) IsHardware() bool { return k != AccelNone && k < accelCount }

// ParseAccelKind parses an accelerator name. The empty string and "software"
// map to AccelNone.
func ParseAccelKind(name string) (AccelKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "software", "sw":
		return AccelNone, nil
	}
	for k := AccelKind(0); k < accelCount; k++ {
		if accelInfo[k].Name == name {
			return k, nil
		}
	}
	return AccelNone, fmt.Errorf("unknown accelerator %q", name)
}
