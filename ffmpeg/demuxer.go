package ffmpeg

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/player"
)

// Opener opens containers with libavformat.
type Opener struct{}

// OpenInput implements player.DemuxOpener.
func (Opener) OpenInput(ctx context.Context, path string) (player.Demuxer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context failed")
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, err
	}
	return &demuxer{fc: fc}, nil
}

type demuxer struct {
	fc      *astiav.FormatContext
	streams []player.StreamInfo
}

func (d *demuxer) FindStreamInfo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("find stream info: %w", err)
	}

	streams := d.fc.Streams()
	d.streams = make([]player.StreamInfo, 0, len(streams))
	for _, s := range streams {
		par := s.CodecParameters()
		d.streams = append(d.streams, player.StreamInfo{
			Index:     s.Index(),
			Type:      mediaType(par.MediaType()),
			CodecID:   int(par.CodecID()),
			CodecName: par.CodecID().String(),
			Width:     par.Width(),
			Height:    par.Height(),
			Format:    PixelFormat(par.PixelFormat()),
			TimeBase:  rational(s.TimeBase()),
			FrameRate: rational(s.AvgFrameRate()),
			Params:    par,
		})
	}
	return nil
}

func (d *demuxer) Streams() []player.StreamInfo { return d.streams }

// BestVideoStream lets libavformat rank the streams, which skips attached
// cover art and prefers streams with a decoder.
func (d *demuxer) BestVideoStream() (int, error) {
	s, _, err := d.fc.FindBestStream(astiav.MediaTypeVideo, -1, -1)
	switch {
	case errors.Is(err, astiav.ErrStreamNotFound):
		return -1, player.ErrNoVideoStream
	case errors.Is(err, astiav.ErrDecoderNotFound):
		return -1, fmt.Errorf("%w: no decoder for any video stream", player.ErrNoVideoStream)
	case err != nil:
		return -1, fmt.Errorf("find best stream: %w", err)
	}
	return s.Index(), nil
}

func (d *demuxer) ReadPacket() (player.Packet, error) {
	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, errors.New("alloc packet failed")
	}
	if err := d.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		if errors.Is(err, astiav.ErrEof) {
			return nil, player.ErrEndOfStream
		}
		return nil, err
	}
	return &packet{pkt: pkt}, nil
}

func (d *demuxer) Close() error {
	if d.fc == nil {
		return nil
	}
	d.fc.CloseInput()
	d.fc.Free()
	d.fc = nil
	return nil
}

// packet is a reference-counted demuxed packet.
type packet struct {
	pkt *astiav.Packet
}

func (p *packet) StreamIndex() int { return p.pkt.StreamIndex() }

func (p *packet) Release() {
	if p.pkt != nil {
		p.pkt.Free()
		p.pkt = nil
	}
}
