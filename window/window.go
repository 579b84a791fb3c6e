// Package window provides the player's output window, input events and tick
// counter on SDL2 with an OpenGL 2.1 context.
package window

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/thesyncim/player"
)

// Config configures the window.
type Config struct {
	Title  string
	Width  int
	Height int
	VSync  bool
	Log    zerolog.Logger
}

// Window is an SDL window with a current GL context. All methods must be
// called from the thread that created it.
type Window struct {
	win *sdl.Window
	ctx sdl.GLContext
	id  uint32
}

// Open initialises SDL video, creates a resizable high-DPI window and makes
// a GL 2.1 context current.
func Open(config Config) (w *Window, err error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	defer func() {
		if err != nil {
			sdl.Quit()
		}
	}()

	attrs := []struct {
		attr  sdl.GLattr
		value int
	}{
		{sdl.GL_CONTEXT_MAJOR_VERSION, 2},
		{sdl.GL_CONTEXT_MINOR_VERSION, 1},
		{sdl.GL_DOUBLEBUFFER, 1},
	}
	for _, a := range attrs {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			return nil, fmt.Errorf("set gl attribute %d: %w", a.attr, err)
		}
	}

	win, err := sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(config.Width), int32(config.Height),
		sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	ctx, err := win.GLCreateContext()
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("create gl context: %w", err)
	}

	id, err := win.GetID()
	if err != nil {
		sdl.GLDeleteContext(ctx)
		win.Destroy()
		return nil, fmt.Errorf("window id: %w", err)
	}

	setSwapInterval(sdl.GLSetSwapInterval, config.VSync, config.Log)

	return &Window{win: win, ctx: ctx, id: id}, nil
}

// setSwapInterval syncs swaps to the display refresh when vsync is set. Not
// every driver honours the interval and tearing is not fatal, so a failure
// is only logged.
func setSwapInterval(set func(int) error, vsync bool, log zerolog.Logger) {
	interval := 0
	if vsync {
		interval = 1
	}
	if err := set(interval); err != nil {
		log.Debug().Err(err).Int("interval", interval).Msg("swap interval not applied")
	}
}

// ID implements player.Window.
func (w *Window) ID() uint32 { return w.id }

// DrawableSize implements player.Window. It is the framebuffer size in
// pixels, which differs from the window size on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.win.GLGetDrawableSize()
	return int(width), int(height)
}

// PollEvent implements player.Window. SDL events the player does not
// consume are skipped.
func (w *Window) PollEvent() player.Event {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		if e := w.translate(ev); e != nil {
			return e
		}
	}
	return nil
}

func (w *Window) translate(ev sdl.Event) player.Event {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		return player.QuitEvent{}
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && (e.Keysym.Sym == sdl.K_ESCAPE || e.Keysym.Sym == sdl.K_q) {
			return player.QuitEvent{}
		}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESIZED:
			width, height := int(e.Data1), int(e.Data2)
			if e.WindowID == w.id {
				width, height = w.DrawableSize()
			}
			return player.ResizeEvent{WindowID: e.WindowID, Width: width, Height: height}
		case sdl.WINDOWEVENT_CLOSE:
			if e.WindowID == w.id {
				return player.QuitEvent{}
			}
		}
	}
	return nil
}

// Swap implements player.Window.
func (w *Window) Swap() { w.win.GLSwap() }

// ProcAddress resolves an OpenGL entry point for the current context.
func (w *Window) ProcAddress(name string) uintptr {
	return uintptr(sdl.GLGetProcAddress(name))
}

// Close implements player.Window. It destroys the GL context and window and
// shuts SDL down.
func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	sdl.GLDeleteContext(w.ctx)
	err := w.win.Destroy()
	w.win = nil
	sdl.Quit()
	return err
}

// Counter is SDL's high-resolution performance counter.
type Counter struct{}

// Counter implements player.Counter.
func (Counter) Counter() uint64 { return sdl.GetPerformanceCounter() }

// Frequency implements player.Counter.
func (Counter) Frequency() uint64 { return sdl.GetPerformanceFrequency() }
