package player

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectVideoStream(t *testing.T) {
	tests := []struct {
		name    string
		streams []StreamInfo
		want    int
		wantErr error
	}{
		{
			name:    "no streams",
			wantErr: ErrNoVideoStream,
		},
		{
			name: "audio only",
			streams: []StreamInfo{
				{Index: 0, Type: MediaTypeAudio},
				{Index: 1, Type: MediaTypeSubtitle},
			},
			wantErr: ErrNoVideoStream,
		},
		{
			name: "video after audio",
			streams: []StreamInfo{
				{Index: 0, Type: MediaTypeAudio},
				{Index: 1, Type: MediaTypeVideo, Width: 640, Height: 360},
			},
			want: 1,
		},
		{
			name: "largest picture wins",
			streams: []StreamInfo{
				{Index: 0, Type: MediaTypeVideo, Width: 320, Height: 240},
				{Index: 1, Type: MediaTypeVideo, Width: 1920, Height: 1080},
			},
			want: 1,
		},
		{
			name: "tie goes to lowest index",
			streams: []StreamInfo{
				{Index: 0, Type: MediaTypeData},
				{Index: 1, Type: MediaTypeVideo, Width: 1280, Height: 720},
				{Index: 2, Type: MediaTypeVideo, Width: 1280, Height: 720},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectVideoStream(tt.streams)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenSource(t *testing.T) {
	d := &fakeDemuxer{streams: []StreamInfo{
		{Index: 0, Type: MediaTypeAudio},
		{Index: 1, Type: MediaTypeVideo, Width: 640, Height: 480, CodecName: "h264"},
	}}

	src, err := OpenSource(context.Background(), &fakeOpener{demuxer: d}, "clip.mp4", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, src.Video().Index)
	assert.Equal(t, "clip.mp4", src.Path())
	assert.Len(t, src.Streams(), 2)

	require.NoError(t, src.Close())
	assert.True(t, d.closed)
	require.NoError(t, src.Close(), "second close is a no-op")
}

func TestOpenSourceFollowsDemuxerRanking(t *testing.T) {
	video := 0
	d := &fakeDemuxer{
		streams: []StreamInfo{
			{Index: 0, Type: MediaTypeVideo, CodecName: "h264", Width: 640, Height: 480},
			{Index: 1, Type: MediaTypeAudio, CodecName: "aac"},
			{Index: 2, Type: MediaTypeVideo, CodecName: "mjpeg", Width: 1000, Height: 1000}, // cover art
		},
		best: &video,
	}

	src, err := OpenSource(context.Background(), &fakeOpener{demuxer: d}, "album.mp4", zerolog.Nop())
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 0, src.Video().Index)
	assert.Equal(t, "h264", src.Video().CodecName)
}

func TestOpenSourceRejectsBadRanking(t *testing.T) {
	for name, best := range map[string]int{"audio stream": 1, "unknown stream": 7} {
		t.Run(name, func(t *testing.T) {
			d := &fakeDemuxer{
				streams: []StreamInfo{
					{Index: 0, Type: MediaTypeVideo, Width: 640, Height: 480},
					{Index: 1, Type: MediaTypeAudio},
				},
				best: &best,
			}
			_, err := OpenSource(context.Background(), &fakeOpener{demuxer: d}, "clip.mp4", zerolog.Nop())
			assert.ErrorIs(t, err, ErrNoVideoStream)
			assert.True(t, d.closed)
		})
	}
}

func TestOpenSourceFailures(t *testing.T) {
	tests := []struct {
		name      string
		opener    *fakeOpener
		stage     string
		wantErr   error
		wantClose bool
	}{
		{
			name:   "open fails",
			opener: &fakeOpener{err: errors.New("no such file")},
			stage:  StageOpenInput,
		},
		{
			name:      "probe fails",
			opener:    &fakeOpener{demuxer: &fakeDemuxer{probeErr: errors.New("truncated")}},
			stage:     StageProbe,
			wantClose: true,
		},
		{
			name: "no video stream",
			opener: &fakeOpener{demuxer: &fakeDemuxer{streams: []StreamInfo{
				{Index: 0, Type: MediaTypeAudio},
			}}},
			stage:     StageSelect,
			wantErr:   ErrNoVideoStream,
			wantClose: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenSource(context.Background(), tt.opener, "clip.mp4", zerolog.Nop())
			require.Error(t, err)
			assert.True(t, IsFatalSetup(err))

			var se *SetupError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.opener.demuxer != nil {
				assert.Equal(t, tt.wantClose, tt.opener.demuxer.closed)
			}
		})
	}
}
