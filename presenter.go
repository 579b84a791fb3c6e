package player

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// PresenterStats provides render loop metrics.
type PresenterStats struct {
	Iterations     uint64  // Loop iterations (draws)
	FramesShown    uint64  // Frames uploaded and published
	UploadFailures uint64  // Frames dropped by recoverable upload errors
	FPS            float64 // Smoothed loop rate
}

// PresenterConfig configures the render loop.
type PresenterConfig struct {
	ScaleMode ScaleMode
	Log       zerolog.Logger
}

// Presenter owns the render loop: poll events, pull a frame, upload, draw
// the last presented texture and swap.
type Presenter struct {
	window   Window
	renderer Renderer
	uploader *FrameUploader
	source   FrameSource
	clock    *Clock
	config   PresenterConfig
	log      zerolog.Logger

	state    PresentationState
	viewport Viewport
	drawW    int
	drawH    int
	stats    PresenterStats
}

// NewPresenter creates the render loop over an uploader and frame source.
func NewPresenter(w Window, r Renderer, u *FrameUploader, src FrameSource, clock *Clock, config PresenterConfig) *Presenter {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &Presenter{
		window:   w,
		renderer: r,
		uploader: u,
		source:   src,
		clock:    clock,
		config:   config,
		log:      config.Log.With().Str("component", "presenter").Logger(),
	}
}

// Run drives the loop until a quit signal, end of stream or a fatal error.
// Quit and end of stream take effect after the current draw; both return
// nil. Cancelling ctx counts as a quit signal.
func (p *Presenter) Run(ctx context.Context) error {
	p.resize(p.window.DrawableSize())

	for {
		p.tick()

		quit := p.pollEvents() || ctx.Err() != nil
		ended := false

		if !quit {
			f, err := p.source.Next()
			switch {
			case err == nil:
				if err := p.present(f); err != nil {
					return err
				}
			case errors.Is(err, ErrAgain):
			case errors.Is(err, ErrEndOfStream):
				ended = true
			default:
				return err
			}
		}

		p.draw()

		if quit || ended {
			p.log.Info().
				Bool("end_of_stream", ended).
				Uint64("frames", p.stats.FramesShown).
				Uint64("iterations", p.stats.Iterations).
				Float64("fps", p.stats.FPS).
				Msg("render loop finished")
			return nil
		}
	}
}

func (p *Presenter) tick() {
	dt := p.clock.Tick()
	if dt <= 0 {
		return
	}
	fps := 1 / dt
	if p.stats.FPS == 0 {
		p.stats.FPS = fps
	} else {
		p.stats.FPS = 0.9*p.stats.FPS + 0.1*fps
	}
}

// pollEvents drains pending events and reports whether quit was requested.
func (p *Presenter) pollEvents() bool {
	quit := false
	for ev := p.window.PollEvent(); ev != nil; ev = p.window.PollEvent() {
		switch e := ev.(type) {
		case QuitEvent:
			quit = true
		case ResizeEvent:
			if e.WindowID != p.window.ID() {
				p.log.Trace().Uint32("window", e.WindowID).Msg("ignoring resize for other window")
				continue
			}
			p.resize(e.Width, e.Height)
		}
	}
	return quit
}

// present uploads f and publishes the texture. Only a fully uploaded
// texture is published; f is released either way.
func (p *Presenter) present(f *Frame) error {
	defer f.Release()

	prev, _ := p.state.Load()
	tex, err := p.uploader.Upload(f)
	if err != nil {
		if errors.Is(err, ErrFormatMismatch) || errors.Is(err, ErrUnsupportedFormat) {
			return err
		}
		p.stats.UploadFailures++
		p.log.Warn().Err(err).Int64("pts", f.PTS).Msg("frame upload failed")
		if _, ok := p.state.Load(); ok && !p.uploader.Filled() {
			// The storage behind the published picture was reallocated.
			p.state.Clear()
			p.updateViewport()
		}
		return nil
	}

	p.state.Store(Presentation{Texture: tex, PTS: f.PTS, Updated: time.Now()})
	p.stats.FramesShown++

	if tex.Width != prev.Texture.Width || tex.Height != prev.Texture.Height {
		p.updateViewport()
	}
	return nil
}

func (p *Presenter) resize(width, height int) {
	p.drawW, p.drawH = width, height
	p.updateViewport()
}

func (p *Presenter) updateViewport() {
	var srcW, srcH int
	if cur, ok := p.state.Load(); ok {
		srcW, srcH = cur.Texture.Width, cur.Texture.Height
	}
	p.viewport = CalculateViewport(srcW, srcH, p.drawW, p.drawH, p.config.ScaleMode)
	p.renderer.SetViewport(p.viewport.X, p.viewport.Y, p.viewport.Width, p.viewport.Height)
}

func (p *Presenter) draw() {
	cur, ok := p.state.Load()
	p.renderer.Draw(cur.Texture.ID, ok)
	p.window.Swap()
	p.stats.Iterations++
}

// Viewport returns the active viewport.
func (p *Presenter) Viewport() Viewport { return p.viewport }

// State returns the presentation state read by the draw call.
func (p *Presenter) State() *PresentationState { return &p.state }

// Stats returns render loop statistics.
func (p *Presenter) Stats() PresenterStats { return p.stats }
