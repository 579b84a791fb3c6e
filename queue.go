package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Queue capacity bounds.
const (
	MinQueueCapacity     = 1
	MaxQueueCapacity     = 3
	DefaultQueueCapacity = 2
)

// DefaultFrameRate paces frames without timestamps when the stream does not
// declare a rate.
var DefaultFrameRate = Rational{Num: 25, Den: 1}

// Pacing selects how the decode worker schedules frames.
type Pacing int

const (
	PacingNone Pacing = iota // decode as fast as possible
	PacingPTS                // hold each frame until its presentation time
)

func (p Pacing) String() string {
	switch p {
	case PacingNone:
		return "none"
	case PacingPTS:
		return "pts"
	default:
		return "unknown"
	}
}

// ParsePacing parses a pacing name.
func ParsePacing(s string) (Pacing, error) {
	switch s {
	case "none", "":
		return PacingNone, nil
	case "pts":
		return PacingPTS, nil
	default:
		return PacingNone, fmt.Errorf("unknown pacing %q", s)
	}
}

// QueueStats provides frame queue metrics.
type QueueStats struct {
	Pushed  uint64 // Frames accepted from the producer
	Popped  uint64 // Frames handed to the presenter
	Dropped uint64 // Oldest frames evicted because the queue was full
}

// QueueConfig configures a FrameQueue.
type QueueConfig struct {
	Capacity int
	Pacing   Pacing
	// FrameRate spaces frames that carry no timestamp. Zero uses
	// DefaultFrameRate.
	FrameRate Rational
	Log       zerolog.Logger

	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// FrameQueue decouples decoding from presentation. A worker goroutine pulls
// from a FrameSource into a bounded queue; when the queue is full the oldest
// frame is dropped so the producer never blocks the presenter.
type FrameQueue struct {
	src    FrameSource
	config QueueConfig
	log    zerolog.Logger

	mu     sync.Mutex
	frames []*Frame
	final  error // terminal result once the worker has stopped
	seen   bool  // final was returned by Next
	closed bool
	stats  QueueStats

	cancel context.CancelFunc
	group  *errgroup.Group

	// PTS pacing state, owned by the worker.
	baseWall time.Time
	basePTS  float64
	lastPTS  float64
	paced    bool
}

// NewFrameQueue validates the configuration and starts the decode worker.
// Only the worker touches src until Close returns.
func NewFrameQueue(ctx context.Context, src FrameSource, config QueueConfig) (*FrameQueue, error) {
	if config.Capacity == 0 {
		config.Capacity = DefaultQueueCapacity
	}
	if config.Capacity < MinQueueCapacity || config.Capacity > MaxQueueCapacity {
		return nil, fmt.Errorf("queue capacity %d out of range [%d, %d]",
			config.Capacity, MinQueueCapacity, MaxQueueCapacity)
	}
	if config.sleep == nil {
		config.sleep = sleepContext
	}
	if config.now == nil {
		config.now = time.Now
	}
	if config.FrameRate.Num <= 0 || config.FrameRate.Den <= 0 {
		config.FrameRate = DefaultFrameRate
	}

	q := &FrameQueue{
		src:    src,
		config: config,
		log:    config.Log.With().Str("component", "queue").Logger(),
		frames: make([]*Frame, 0, config.Capacity),
	}

	ctx, q.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	q.group = g
	g.Go(func() error { return q.run(gctx) })

	return q, nil
}

func (q *FrameQueue) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			q.finish(ErrClosed)
			return nil
		}

		f, err := q.src.Next()
		switch {
		case err == nil:
			if err := q.pace(ctx, f); err != nil {
				f.Release()
				q.finish(ErrClosed)
				return nil
			}
			q.push(f)
		case errors.Is(err, ErrAgain):
			continue
		case errors.Is(err, ErrEndOfStream):
			q.finish(ErrEndOfStream)
			return nil
		default:
			q.finish(err)
			return err
		}
	}
}

// pace blocks until the frame's presentation time relative to the first
// paced frame. Frames without a timestamp are placed one frame interval
// after the previous one.
func (q *FrameQueue) pace(ctx context.Context, f *Frame) error {
	if q.config.Pacing != PacingPTS {
		return nil
	}
	pts, ok := f.Seconds()
	if !ok && q.paced {
		pts = q.lastPTS + q.config.FrameRate.Interval()
	}
	q.lastPTS = pts

	now := q.config.now()
	if !q.paced || pts < q.basePTS {
		q.baseWall, q.basePTS, q.paced = now, pts, true
		return nil
	}
	offset := time.Duration((pts - q.basePTS) * float64(time.Second)).Round(time.Microsecond)
	if wait := q.baseWall.Add(offset).Sub(now); wait > 0 {
		return q.config.sleep(ctx, wait)
	}
	return nil
}

func (q *FrameQueue) push(f *Frame) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		f.Release()
		return
	}
	var evicted *Frame
	if len(q.frames) == q.config.Capacity {
		evicted = q.frames[0]
		copy(q.frames, q.frames[1:])
		q.frames = q.frames[:len(q.frames)-1]
		q.stats.Dropped++
	}
	q.frames = append(q.frames, f)
	q.stats.Pushed++
	q.mu.Unlock()

	if evicted != nil {
		evicted.Release()
		q.log.Debug().Int64("pts", evicted.PTS).Msg("queue full, dropped oldest frame")
	}
}

func (q *FrameQueue) finish(err error) {
	q.mu.Lock()
	if q.final == nil {
		q.final = err
	}
	q.mu.Unlock()
}

// Next implements FrameSource. It never blocks: queued frames are returned
// first, then the worker's terminal result.
func (q *FrameQueue) Next() (*Frame, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) > 0 {
		f := q.frames[0]
		copy(q.frames, q.frames[1:])
		q.frames[len(q.frames)-1] = nil
		q.frames = q.frames[:len(q.frames)-1]
		q.stats.Popped++
		return f, nil
	}
	if q.final != nil {
		q.seen = true
		return nil, q.final
	}
	return nil, ErrAgain
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Stats returns queue statistics.
func (q *FrameQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close stops the worker, waits for it and releases queued frames. The
// underlying source may be torn down once Close returns. A worker failure
// never returned by Next is reported here.
func (q *FrameQueue) Close() error {
	q.cancel()
	err := q.group.Wait()

	q.mu.Lock()
	frames := q.frames
	q.frames = nil
	q.closed = true
	seen := q.seen
	q.mu.Unlock()

	for _, f := range frames {
		f.Release()
	}
	if seen {
		return nil
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
