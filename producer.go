package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// FrameSource yields decoded frames without blocking on presentation.
// Next returns a frame, ErrAgain when none is ready yet, ErrEndOfStream at
// the end, or a fatal error.
type FrameSource interface {
	Next() (*Frame, error)
}

// ProducerStats provides frame production metrics.
type ProducerStats struct {
	PacketsRead      uint64 // Packets read from the demuxer
	PacketsDiscarded uint64 // Packets belonging to other streams
	DecodeErrors     uint64 // Packets or frames dropped by decode errors
	FramesProduced   uint64 // Frames handed to the caller
}

// FrameProducer pulls packets for the selected stream through the decoder,
// yielding at most one frame per call.
type FrameProducer struct {
	demuxer  Demuxer
	decoder  Decoder
	selector FormatSelector
	stream   int
	log      zerolog.Logger

	pending  Packet // packet refused with ErrAgain
	draining bool   // flush sent, waiting for the decoder to drain
	done     bool
	fatal    error

	stats   ProducerStats
	statsMu sync.Mutex
}

// NewFrameProducer creates a producer for the session's stream.
func NewFrameProducer(src *MediaSource, dc *DecodeContext, log zerolog.Logger) *FrameProducer {
	return &FrameProducer{
		demuxer:  src.Demuxer(),
		decoder:  dc.Decoder(),
		selector: dc.Selector(),
		stream:   src.Video().Index,
		log:      log.With().Str("component", "producer").Logger(),
	}
}

// Next implements FrameSource.
func (p *FrameProducer) Next() (*Frame, error) {
	if p.fatal != nil {
		return nil, p.fatal
	}
	if p.done {
		return nil, ErrEndOfStream
	}

	// A packet may yield several frames: drain before reading more input.
	if f, err := p.receive(); !errors.Is(err, ErrAgain) {
		return f, err
	}
	if p.draining {
		// Flushed decoder returned ErrAgain; nothing more will come.
		p.done = true
		return nil, ErrEndOfStream
	}

	if err := p.submit(); err != nil {
		return nil, err
	}
	return p.receive()
}

// submit feeds exactly one packet of the selected stream to the decoder, or
// the flush signal once input is exhausted.
func (p *FrameProducer) submit() error {
	pkt := p.pending
	p.pending = nil

	for pkt == nil {
		next, err := p.demuxer.ReadPacket()
		if errors.Is(err, ErrEndOfStream) {
			return p.flush()
		}
		if err != nil {
			return p.fail(fmt.Errorf("read packet: %w", err))
		}
		p.count(func(s *ProducerStats) { s.PacketsRead++ })
		if next.StreamIndex() != p.stream {
			next.Release()
			p.count(func(s *ProducerStats) { s.PacketsDiscarded++ })
			continue
		}
		pkt = next
	}

	err := p.decoder.SendPacket(pkt)
	switch {
	case err == nil:
		pkt.Release()
		return nil
	case errors.Is(err, ErrAgain):
		p.pending = pkt
		return nil
	case IsRecoverable(err):
		pkt.Release()
		p.dropped(err)
		return nil
	default:
		pkt.Release()
		return p.fail(err)
	}
}

func (p *FrameProducer) flush() error {
	p.draining = true
	p.log.Debug().Msg("input exhausted, flushing decoder")
	if err := p.decoder.SendPacket(nil); err != nil && !errors.Is(err, ErrEndOfStream) {
		return p.fail(fmt.Errorf("flush decoder: %w", err))
	}
	return nil
}

func (p *FrameProducer) receive() (*Frame, error) {
	f, err := p.decoder.ReceiveFrame()
	switch {
	case err == nil:
		p.count(func(s *ProducerStats) { s.FramesProduced++ })
		return f, nil
	case errors.Is(err, ErrAgain):
		return nil, ErrAgain
	case errors.Is(err, ErrEndOfStream):
		p.done = true
		return nil, ErrEndOfStream
	case IsRecoverable(err):
		p.dropped(err)
		return nil, ErrAgain
	default:
		return nil, p.fail(err)
	}
}

func (p *FrameProducer) dropped(err error) {
	p.count(func(s *ProducerStats) { s.DecodeErrors++ })
	p.log.Warn().Err(err).Msg("dropping undecodable packet")
}

func (p *FrameProducer) fail(err error) error {
	// A decoder that could not get its surface format fails with a bare
	// codec error; the selector knows why.
	if s, ok := p.selector.(interface{ Err() error }); ok {
		if serr := s.Err(); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	if !errors.Is(err, ErrDecoderFailed) {
		err = fmt.Errorf("%w: %w", ErrDecoderFailed, err)
	}
	p.fatal = err
	return err
}

func (p *FrameProducer) count(fn func(*ProducerStats)) {
	p.statsMu.Lock()
	fn(&p.stats)
	p.statsMu.Unlock()
}

// Stats returns production statistics.
func (p *FrameProducer) Stats() ProducerStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// Close releases a packet held back by decoder back-pressure.
func (p *FrameProducer) Close() {
	if p.pending != nil {
		p.pending.Release()
		p.pending = nil
	}
}
