package logging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/thesyncim/player"
)

// The playback logger travels through context.Context so that backends
// opened mid-session log with the session's fields.

// FromContext returns the logger attached to ctx, or a disabled logger.
func FromContext(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}

// WithContext attaches log to ctx.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return log.WithContext(ctx)
}

// WithFields attaches a child of the context logger carrying the fields
// added by fields.
func WithFields(ctx context.Context, fields func(zerolog.Context) zerolog.Context) context.Context {
	log := FromContext(ctx)
	return WithContext(ctx, fields(log.With()).Logger())
}

// WithComponent tags the context logger with the pipeline stage using it.
func WithComponent(ctx context.Context, component string) context.Context {
	return WithFields(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("component", component)
	})
}

// WithMedia tags the context logger with the input being played.
func WithMedia(ctx context.Context, path string) context.Context {
	return WithFields(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("media", path)
	})
}

// WithSessionStats tags the context logger with the outcome of a playback
// session: the decode path taken and the frame counters of each stage.
func WithSessionStats(ctx context.Context, stats player.SessionStats) context.Context {
	return WithFields(ctx, func(c zerolog.Context) zerolog.Context {
		return c.
			Bool("hardware", stats.Hardware).
			Bool("fallback", stats.FellBack).
			Uint64("frames", stats.Presenter.FramesShown).
			Uint64("dropped", stats.Queue.Dropped).
			Uint64("decode_errors", stats.Producer.DecodeErrors).
			Uint64("upload_failures", stats.Presenter.UploadFailures).
			Float64("fps", stats.Presenter.FPS)
	})
}
