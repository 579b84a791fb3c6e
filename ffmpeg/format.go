// Package ffmpeg implements the player's demux and decode capabilities on
// top of FFmpeg through go-astiav.
package ffmpeg

import (
	"errors"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/player"
)

var toPlayerFormat = map[astiav.PixelFormat]player.PixelFormat{
	astiav.PixelFormatYuv420P:      player.PixelFormatI420,
	astiav.PixelFormatNv12:         player.PixelFormatNV12,
	astiav.PixelFormatRgb24:        player.PixelFormatRGB24,
	astiav.PixelFormatRgba:         player.PixelFormatRGBA32,
	astiav.PixelFormatBgra:         player.PixelFormatBGRA32,
	astiav.PixelFormatVaapi:        player.PixelFormatVAAPI,
	astiav.PixelFormatCuda:         player.PixelFormatCUDA,
	astiav.PixelFormatVdpau:        player.PixelFormatVDPAU,
	astiav.PixelFormatQsv:          player.PixelFormatQSV,
	astiav.PixelFormatVideotoolbox: player.PixelFormatVideoToolbox,
	astiav.PixelFormatD3D11:        player.PixelFormatD3D11,
	astiav.PixelFormatDrmPrime:     player.PixelFormatDRMPrime,
}

// PixelFormat maps an FFmpeg pixel format. Formats the player has no name
// for map to PixelFormatUnknown.
func PixelFormat(f astiav.PixelFormat) player.PixelFormat {
	return toPlayerFormat[f]
}

// normalisedFormat is what software frames in unmapped formats are scaled to.
const normalisedFormat = astiav.PixelFormatRgba

// needsNormalising reports whether frames in f must go through swscale
// before the player can upload them.
func needsNormalising(f astiav.PixelFormat) bool {
	pf := PixelFormat(f)
	return pf == player.PixelFormatUnknown || pf.IsHardware()
}

func mediaType(t astiav.MediaType) player.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return player.MediaTypeVideo
	case astiav.MediaTypeAudio:
		return player.MediaTypeAudio
	case astiav.MediaTypeSubtitle:
		return player.MediaTypeSubtitle
	case astiav.MediaTypeData:
		return player.MediaTypeData
	default:
		return player.MediaTypeUnknown
	}
}

func rational(r astiav.Rational) player.Rational {
	return player.Rational{Num: r.Num(), Den: r.Den()}
}

// mapError translates FFmpeg codec errors into the player's taxonomy.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return player.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return player.ErrEndOfStream
	case errors.Is(err, astiav.ErrInvaliddata):
		return &player.DecodeError{Err: err}
	default:
		return err
	}
}
