package player

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// MediaSource is an opened container with a selected video stream. It is
// read-only after Open returns.
type MediaSource struct {
	demuxer Demuxer
	streams []StreamInfo
	video   int
	path    string
}

// OpenSource opens path, probes stream info and selects the video stream the
// demuxer ranks best. Any failure is a *SetupError and leaves nothing open.
func OpenSource(ctx context.Context, opener DemuxOpener, path string, log zerolog.Logger) (*MediaSource, error) {
	d, err := opener.OpenInput(ctx, path)
	if err != nil {
		return nil, setupError(StageOpenInput, fmt.Errorf("cannot open input %q: %w", path, err))
	}

	if err := d.FindStreamInfo(ctx); err != nil {
		d.Close()
		return nil, setupError(StageProbe, err)
	}

	streams := d.Streams()
	idx, err := bestVideoStream(d, streams)
	if err != nil {
		d.Close()
		return nil, setupError(StageSelect, err)
	}

	st := streams[idx]
	log.Info().
		Str("component", "source").
		Str("path", path).
		Int("streams", len(streams)).
		Int("video_stream", st.Index).
		Str("codec", st.CodecName).
		Int("width", st.Width).
		Int("height", st.Height).
		Stringer("format", st.Format).
		Msg("input opened")

	return &MediaSource{
		demuxer: d,
		streams: streams,
		video:   idx,
		path:    path,
	}, nil
}

// bestVideoStream resolves the demuxer's choice to a position in streams.
func bestVideoStream(d Demuxer, streams []StreamInfo) (int, error) {
	index, err := d.BestVideoStream()
	if err != nil {
		return -1, err
	}
	for i, s := range streams {
		if s.Index != index {
			continue
		}
		if s.Type != MediaTypeVideo {
			return -1, fmt.Errorf("%w: stream %d is %s", ErrNoVideoStream, index, s.Type)
		}
		return i, nil
	}
	return -1, fmt.Errorf("%w: demuxer chose unknown stream %d", ErrNoVideoStream, index)
}

// SelectVideoStream picks the video stream with the most pixels, preferring
// the lowest index on ties. It returns the position in streams. Demuxers
// without their own ranking can use it to implement BestVideoStream.
func SelectVideoStream(streams []StreamInfo) (int, error) {
	best := -1
	bestArea := -1
	for i, s := range streams {
		if s.Type != MediaTypeVideo {
			continue
		}
		if area := s.Width * s.Height; area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return -1, ErrNoVideoStream
	}
	return best, nil
}

// Video returns the selected video stream.
func (s *MediaSource) Video() StreamInfo { return s.streams[s.video] }

// Streams returns all container streams.
func (s *MediaSource) Streams() []StreamInfo { return s.streams }

// Path returns the opened input path.
func (s *MediaSource) Path() string { return s.path }

// Demuxer returns the packet source.
func (s *MediaSource) Demuxer() Demuxer { return s.demuxer }

// Close closes the demuxer. It must run after the decoder has been closed.
func (s *MediaSource) Close() error {
	if s.demuxer == nil {
		return nil
	}
	err := s.demuxer.Close()
	s.demuxer = nil
	return err
}
