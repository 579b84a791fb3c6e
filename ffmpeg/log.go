package ffmpeg

import (
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/rs/zerolog"
)

// SetLogger forwards FFmpeg's log output into log. FFmpeg messages below the
// logger's level are filtered inside FFmpeg.
func SetLogger(log zerolog.Logger) {
	log = log.With().Str("component", "ffmpeg").Logger()

	astiav.SetLogLevel(ffmpegLevel(log.GetLevel()))
	astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, _, msg string) {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			return
		}
		ev := log.WithLevel(zerologLevel(l))
		if c != nil {
			if cl := c.Class(); cl != nil {
				ev = ev.Str("class", cl.Name())
			}
		}
		ev.Msg(msg)
	})
}

func ffmpegLevel(l zerolog.Level) astiav.LogLevel {
	switch l {
	case zerolog.TraceLevel:
		return astiav.LogLevelDebug
	case zerolog.DebugLevel:
		return astiav.LogLevelVerbose
	case zerolog.InfoLevel:
		// FFmpeg's info output is chatty; keep it to warnings.
		return astiav.LogLevelWarning
	case zerolog.WarnLevel:
		return astiav.LogLevelWarning
	case zerolog.Disabled:
		return astiav.LogLevelQuiet
	default:
		return astiav.LogLevelError
	}
}

func zerologLevel(l astiav.LogLevel) zerolog.Level {
	switch {
	case l <= astiav.LogLevelError:
		return zerolog.ErrorLevel
	case l <= astiav.LogLevelWarning:
		return zerolog.WarnLevel
	case l <= astiav.LogLevelInfo:
		return zerolog.InfoLevel
	case l <= astiav.LogLevelVerbose:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
